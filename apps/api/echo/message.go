package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/message"
)

type messageApi struct {
	svc *message.Service
}

func (s *Server) registerMessageAPI(g *echo.Group) {
	if s.deps.MessageSvc == nil {
		return
	}
	api := messageApi{svc: s.deps.MessageSvc}

	g.GET("/:id", api.retrieve)
	g.PUT("/:id/read", api.markRead)
	g.POST("/:id/reply", api.reply)
	g.DELETE("/:id", api.destroy, s.confirmed("delete"))
}

// retrieve opens a message, which marks it read.
func (api messageApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	m, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if !m.Lu {
		if err := api.svc.MarkRead(ctx.Request().Context(), id); err != nil {
			return err
		}
		m.Lu = true
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api messageApi) markRead(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.MarkRead(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api messageApi) reply(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data message.Reply
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Reply")
	}
	if err := api.svc.Reply(ctx.Request().Context(), id, data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api messageApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
