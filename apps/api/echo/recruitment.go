package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/recruitment"
)

type recruitmentApi struct {
	svc *recruitment.Service
}

func (s *Server) registerRecruitmentAPI(g *echo.Group) {
	if s.deps.RecruitmentSvc == nil {
		return
	}
	api := recruitmentApi{svc: s.deps.RecruitmentSvc}

	g.GET("/:id", api.retrieve)
	g.PUT("/:id/accept", api.accept, s.confirmed("accept"))
	g.PUT("/:id/reject", api.reject, s.confirmed("reject"))
	g.DELETE("/:id", api.destroy, s.confirmed("delete"))
}

func (api recruitmentApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	r, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

// accept and reject answer with the updated application; the candidate is notified by email.
func (api recruitmentApi) accept(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	r, err := api.svc.Accept(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api recruitmentApi) reject(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data recruitment.RejectRecruitment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RejectRecruitment")
	}
	r, err := api.svc.Reject(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api recruitmentApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
