package echodev

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/collection"
	inmemdb "github.com/trezcool/masomo-admin/storage/inmem"
)

// resource is one CRUD collection of the backend.
type resource struct {
	name      string
	dateField string // filtered by dateBegin / dateEnd
	createdAt string // stamped on creation
	required  []string
	defaults  inmemdb.Row
}

var resources = []resource{
	{name: inmemdb.SchoolYears, createdAt: "dateCreation", required: []string{"libelle", "dateDebut", "dateFin"}, defaults: inmemdb.Row{"active": false}},
	{name: inmemdb.Students, createdAt: "dateInscription", required: []string{"nom", "prenom"}, defaults: inmemdb.Row{"statut": "INSCRIPTION", "classe": nil}},
	{name: inmemdb.Offers, createdAt: "datePublication", required: []string{"titre", "type"}, defaults: inmemdb.Row{"statut": "OUVERTE"}},
	{name: inmemdb.Recruitments, dateField: "dateCandidature", createdAt: "dateCandidature", required: []string{"nom", "email", "poste"}, defaults: inmemdb.Row{"statut": "EN_ATTENTE"}},
	{name: inmemdb.Messages, dateField: "dateEnvoi", createdAt: "dateEnvoi", required: []string{"email", "sujet", "contenu"}, defaults: inmemdb.Row{"lu": false}},
}

func now() string {
	return time.Now().Format(collection.DateTimeLayout)
}

func (res resource) register(g *echo.Group, tbl *inmemdb.Table) {
	h := resourceHandlers{res: res, tbl: tbl}
	rg := g.Group("/" + res.name)
	rg.GET("", h.list)
	rg.POST("", h.create)
	rg.GET("/:id", h.retrieve)
	rg.PUT("/:id", h.update)
	rg.DELETE("/:id", h.destroy)
}

type resourceHandlers struct {
	res resource
	tbl *inmemdb.Table
}

func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errNotFound
	}
	return id, nil
}

func bindRow(ctx echo.Context) (inmemdb.Row, error) {
	row := inmemdb.Row{}
	body := ctx.Request().Body
	if body == nil {
		return row, nil
	}
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&row); err != nil && err != io.EOF {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "corps de requête invalide")
	}
	return row, nil
}

func notFoundOr(err error) error {
	if errors.Cause(err) == inmemdb.ErrNotFound {
		return errNotFound
	}
	return err
}

// matcher builds the row filter of a list query: every parameter but the date bounds
// must equal the row field (case-insensitively).
func (res resource) matcher(q map[string][]string) (func(inmemdb.Row) bool, error) {
	var begin, end time.Time
	var err error
	if v := strings.TrimSpace(firstValue(q, "dateBegin")); v != "" {
		if begin, err = time.Parse(collection.DateTimeLayout, v); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "dateBegin invalide")
		}
	}
	if v := strings.TrimSpace(firstValue(q, "dateEnd")); v != "" {
		if end, err = time.Parse(collection.DateTimeLayout, v); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "dateEnd invalide")
		}
	}

	return func(r inmemdb.Row) bool {
		for key, values := range q {
			if key == "dateBegin" || key == "dateEnd" || len(values) == 0 || values[0] == "" {
				continue
			}
			if !strings.EqualFold(fmt.Sprint(r[key]), values[0]) {
				return false
			}
		}
		if res.dateField == "" || (begin.IsZero() && end.IsZero()) {
			return true
		}
		t, ok := collection.ParseDate(r[res.dateField])
		if !ok {
			return false
		}
		return (begin.IsZero() || !t.Before(begin)) && (end.IsZero() || !t.After(end))
	}, nil
}

func firstValue(q map[string][]string, key string) string {
	if v := q[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (h resourceHandlers) list(ctx echo.Context) error {
	match, err := h.res.matcher(ctx.QueryParams())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, h.tbl.Query(match))
}

func (h resourceHandlers) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	row, err := h.tbl.Get(id)
	if err != nil {
		return notFoundOr(err)
	}
	return ctx.JSON(http.StatusOK, row)
}

func (h resourceHandlers) create(ctx echo.Context) error {
	row, err := bindRow(ctx)
	if err != nil {
		return err
	}
	missing := make([]string, 0)
	for _, f := range h.res.required {
		if row[f] == nil || strings.TrimSpace(fmt.Sprint(row[f])) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "champs obligatoires manquants : "+strings.Join(missing, ", "))
	}
	for k, v := range h.res.defaults {
		if _, ok := row[k]; !ok {
			row[k] = v
		}
	}
	if h.res.createdAt != "" {
		if _, ok := row[h.res.createdAt]; !ok {
			row[h.res.createdAt] = now()
		}
	}
	return ctx.JSON(http.StatusCreated, h.tbl.Insert(row))
}

func (h resourceHandlers) update(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	patch, err := bindRow(ctx)
	if err != nil {
		return err
	}
	row, err := h.tbl.Update(id, patch)
	if err != nil {
		return notFoundOr(err)
	}
	return ctx.JSON(http.StatusOK, row)
}

func (h resourceHandlers) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := h.tbl.Delete(id); err != nil {
		return notFoundOr(err)
	}
	return ctx.NoContent(http.StatusNoContent)
}
