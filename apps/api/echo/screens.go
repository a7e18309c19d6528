package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-admin/core/collection"
	"github.com/trezcool/masomo-admin/core/fetch"
)

// ScreenView is the answer of a screen request.
type ScreenView struct {
	collection.Page
	Sort           string                         `json:"sort,omitempty"`
	Options        map[string][]collection.Option `json:"options"`
	Source         fetch.Source                   `json:"source"`
	RefreshTrigger uint64                         `json:"refresh_trigger"`
	DateBounds     *collection.DateBounds         `json:"date_bounds,omitempty"`
}

func (s *Server) listScreens(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.deps.Screens.All())
}

func (s *Server) viewScreen(ctx echo.Context) error {
	scr, ok := s.deps.Screens.Get(ctx.Param("screen"))
	if !ok {
		return errHttpNotFound
	}
	src, ok := s.sources[scr.Entity]
	if !ok {
		return errHttpNotFound
	}

	cfg := scr.Config()
	var vq ViewQuery
	vq.Bind(ctx, scr, cfg)

	res := src.List(ctx.Request().Context(), vq.Params, vq.Refresh)
	if res.Err != nil {
		return res.Err
	}

	return ctx.JSON(http.StatusOK, ScreenView{
		Page:           collection.Apply(res.Data, cfg, vq.State),
		Sort:           collection.FormatOrdering(vq.State.SortColumn, vq.State.SortDir),
		Options:        collection.DynamicOptions(res.Data, cfg),
		Source:         res.Performance.Source,
		RefreshTrigger: src.Fetcher.RefreshTrigger(),
		DateBounds:     vq.DateBounds,
	})
}

// clearCache drops every cached list, or those of one entity with ?prefix=.
func (s *Server) clearCache(ctx echo.Context) error {
	prefix := strings.TrimSpace(ctx.QueryParam("prefix"))
	if prefix == "" {
		for _, src := range s.sources {
			src.Fetcher.Invalidate()
		}
		s.deps.Cache.Clear()
		return ctx.NoContent(http.StatusNoContent)
	}
	if src, ok := s.sources[prefix]; ok {
		src.Fetcher.Invalidate()
		return ctx.NoContent(http.StatusNoContent)
	}
	s.deps.Cache.ClearPrefix(prefix)
	return ctx.NoContent(http.StatusNoContent)
}
