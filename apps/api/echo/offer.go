package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/offer"
)

type offerApi struct {
	svc *offer.Service
}

func (s *Server) registerOfferAPI(g *echo.Group) {
	if s.deps.OfferSvc == nil {
		return
	}
	api := offerApi{svc: s.deps.OfferSvc}

	g.POST("", api.create)
	g.PUT("/:id", api.update)
	g.PUT("/:id/close", api.close, s.confirmed("close"))
	g.DELETE("/:id", api.destroy, s.confirmed("delete"))
}

func (api offerApi) create(ctx echo.Context) error {
	var data offer.NewOffer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOffer")
	}
	o, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, o)
}

func (api offerApi) update(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data offer.UpdateOffer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateOffer")
	}
	o, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, o)
}

func (api offerApi) close(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Close(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api offerApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
