package echoapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/student"
)

const (
	photoField   = "photo"
	maxPhotoSize = 5 << 20
)

var (
	missingPhotoKey = core.DefineTexts("api.photo.missing", core.Texts{
		"en": "no photo was sent",
		"fr": "aucune photo n'a été envoyée",
	})
	photoTooLargeKey = core.DefineTexts("api.photo.too_large", core.Texts{
		"en": "the photo must not exceed 5 MB",
		"fr": "la photo ne doit pas dépasser 5 Mo",
	})
)

type studentApi struct {
	svc       *student.Service
	validator *core.Validator
}

func (s *Server) registerStudentAPI(g *echo.Group) {
	if s.deps.StudentSvc == nil {
		return
	}
	api := studentApi{svc: s.deps.StudentSvc, validator: s.deps.Validator}

	g.GET("/:id", api.retrieve)
	g.PUT("/:id/validate", api.validate, s.confirmed("validate"))
	g.PUT("/:id/reject", api.reject, s.confirmed("reject"))
	g.DELETE("/:id", api.destroy, s.confirmed("delete"))

	g.POST("/:id/photo", api.uploadPhoto)
	g.GET("/:id/photo", api.downloadPhoto)
	g.DELETE("/:id/photo", api.deletePhoto, s.confirmed("delete photo"))
}

func (api studentApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	st, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api studentApi) validate(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Validate(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api studentApi) reject(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data student.RejectStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RejectStudent")
	}
	if err := api.svc.Reject(ctx.Request().Context(), id, data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api studentApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api studentApi) uploadPhoto(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	fh, err := ctx.FormFile(photoField)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: photoField, Error: api.validator.T(missingPhotoKey)})
	}
	if fh.Size > maxPhotoSize {
		return core.NewValidationError(nil, core.FieldError{Field: photoField, Error: api.validator.T(photoTooLargeKey)})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening photo")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxPhotoSize))
	if err != nil {
		return errors.Wrap(err, "reading photo")
	}

	if err := api.svc.UploadPhoto(ctx.Request().Context(), id, student.Photo{Filename: fh.Filename, Data: data}); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api studentApi) downloadPhoto(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	blob, err := api.svc.DownloadPhoto(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if blob.Filename != "" {
		ctx.Response().Header().Set(echo.HeaderContentDisposition, "inline; filename=\""+blob.Filename+"\"")
	}
	return ctx.Blob(http.StatusOK, blob.ContentType, blob.Data)
}

func (api studentApi) deletePhoto(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeletePhoto(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
