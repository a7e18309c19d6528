package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-admin/apps/shared"
	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/collection"
	"github.com/trezcool/masomo-admin/core/screen"
)

const (
	searchParam   = "search"
	sortParam     = "sort"
	dirParam      = "dir"
	pageParam     = "page"
	pageSizeParam = "page_size"
	refreshParam  = "refresh"
	confirmParam  = "confirm"
	fromSuffix    = "_from"
	toSuffix      = "_to"

	maxPageSize = 100
)

var confirmKey = core.DefineTexts("api.confirm", core.Texts{
	"en": "Please confirm the \"{0}\" action by sending it again with confirm=true.",
	"fr": "Veuillez confirmer l'action « {0} » en la renvoyant avec confirm=true.",
})

// ViewQuery is the view state and the entity parameters read from a screen request.
type ViewQuery struct {
	State      collection.State
	Params     map[string]string
	DateBounds *collection.DateBounds
	Refresh    bool
}

// Bind reads search, sort ("-field" for descending), page, page_size, refresh, one
// parameter per filter (<field>_from and <field>_to for date ranges) and the entity
// parameters declared by the screen. Malformed values are ignored.
func (vq *ViewQuery) Bind(ctx echo.Context, scr screen.Screen, cfg collection.Config) {
	q := ctx.QueryParams()

	vq.State = collection.State{
		Search:   strings.TrimSpace(q.Get(searchParam)),
		Filters:  make(map[string]collection.FilterValue),
		Page:     positiveInt(q.Get(pageParam), 1),
		PageSize: positiveInt(q.Get(pageSizeParam), 0),
	}
	if vq.State.PageSize > maxPageSize {
		vq.State.PageSize = maxPageSize
	}
	field, dir := collection.ParseOrdering(q.Get(sortParam))
	if d := q.Get(dirParam); d != "" {
		dir = collection.ParseSortDir(d)
	}
	if dir != collection.SortNone && scr.Sortable(field) {
		vq.State.SortColumn, vq.State.SortDir = field, dir
	}
	vq.Refresh, _ = strconv.ParseBool(q.Get(refreshParam))

	for _, f := range cfg.Filters {
		if f == nil {
			continue
		}
		field := f.Spec().Field
		var fv collection.FilterValue
		if f.Type() == collection.FilterDateRange {
			fv.From = strings.TrimSpace(q.Get(field + fromSuffix))
			fv.To = strings.TrimSpace(q.Get(field + toSuffix))
		} else {
			fv.Value = strings.TrimSpace(q.Get(field))
		}
		if fv.IsEmpty() {
			continue
		}
		vq.State.Filters[field] = fv

		// the first usable date filter is delegated to the backend
		if cfg.ServerSideDates && vq.DateBounds == nil {
			if bounds, ok := collection.NormalizeDateBounds(f, fv); ok {
				vq.DateBounds = &bounds
			}
		}
	}

	overrides := make(map[string]string, len(scr.Params))
	for key := range scr.Params {
		overrides[key] = strings.TrimSpace(q.Get(key))
	}
	vq.Params = scr.EntityParams(overrides)
	if vq.DateBounds != nil {
		if vq.DateBounds.Begin != "" {
			vq.Params[shared.DateBeginParam] = vq.DateBounds.Begin
		}
		if vq.DateBounds.End != "" {
			vq.Params[shared.DateEndParam] = vq.DateBounds.End
		}
	}
}

func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id < 1 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// confirmed guards a destructive or state-changing action: without confirm=true the
// request is answered 428 and nothing is sent to the remote API.
func (s *Server) confirmed(action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if ok, _ := strconv.ParseBool(ctx.QueryParam(confirmParam)); ok {
				return next(ctx)
			}
			return echo.NewHTTPError(http.StatusPreconditionRequired, s.deps.Validator.T(confirmKey, action))
		}
	}
}
