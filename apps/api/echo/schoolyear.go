package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/schoolyear"
)

type schoolYearApi struct {
	svc *schoolyear.Service
}

func (s *Server) registerSchoolYearAPI(g *echo.Group) {
	if s.deps.SchoolYearSvc == nil {
		return
	}
	api := schoolYearApi{svc: s.deps.SchoolYearSvc}

	g.POST("", api.create)
	g.PUT("/:id", api.update)
	g.PUT("/:id/activate", api.activate, s.confirmed("activate"))
	g.DELETE("/:id", api.destroy, s.confirmed("delete"))
}

func (api schoolYearApi) create(ctx echo.Context) error {
	var data schoolyear.NewSchoolYear
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchoolYear")
	}
	sy, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sy)
}

func (api schoolYearApi) update(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data schoolyear.UpdateSchoolYear
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchoolYear")
	}
	sy, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sy)
}

// activate makes one school year the active one; the others are deactivated by the remote API.
func (api schoolYearApi) activate(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Activate(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api schoolYearApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
