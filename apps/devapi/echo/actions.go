package echodev

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	inmemdb "github.com/trezcool/masomo-admin/storage/inmem"
)

const maxPhotoSize = 5 << 20

func (s *Server) activateSchoolYear(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	tbl := s.db.Table(inmemdb.SchoolYears)
	if _, err = tbl.Get(id); err != nil {
		return notFoundOr(err)
	}
	tbl.UpdateAll(inmemdb.Row{"active": false})
	row, err := tbl.Update(id, inmemdb.Row{"active": true})
	if err != nil {
		return notFoundOr(err)
	}
	return ctx.JSON(http.StatusOK, row)
}

// transition applies patch to a row whose field still holds from; any other state is a conflict.
func (s *Server) transition(table, field, from string, patch inmemdb.Row) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := pathID(ctx)
		if err != nil {
			return err
		}
		tbl := s.db.Table(table)
		row, err := tbl.Get(id)
		if err != nil {
			return notFoundOr(err)
		}
		if fmt.Sprint(row[field]) != from {
			return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("transition impossible depuis l'état %v", row[field]))
		}
		if row, err = tbl.Update(id, patch); err != nil {
			return notFoundOr(err)
		}
		return ctx.JSON(http.StatusOK, row)
	}
}

func (s *Server) rejectWithReason(table, from, reasonField string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		body, err := bindRow(ctx)
		if err != nil {
			return err
		}
		reason := strings.TrimSpace(fmt.Sprint(body["motif"]))
		if body["motif"] == nil || reason == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "le motif est obligatoire")
		}
		return s.transition(table, "statut", from, inmemdb.Row{"statut": "REJETE", reasonField: reason})(ctx)
	}
}

func photoKey(id int) string {
	return fmt.Sprintf("%s/%d/photo", inmemdb.Students, id)
}

func (s *Server) uploadPhoto(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if _, err = s.db.Table(inmemdb.Students).Get(id); err != nil {
		return notFoundOr(err)
	}

	fh, err := ctx.FormFile("photo")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "fichier « photo » manquant")
	}
	if fh.Size > maxPhotoSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image trop volumineuse")
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return errors.Wrap(err, "reading upload")
	}

	name := filepath.Base(fh.Filename)
	s.db.PutFile(photoKey(id), inmemdb.File{Name: name, ContentType: http.DetectContentType(data), Data: data})
	row, err := s.db.Table(inmemdb.Students).Update(id, inmemdb.Row{"photoUrl": fmt.Sprintf("/api/%s", photoKey(id))})
	if err != nil {
		return notFoundOr(err)
	}
	return ctx.JSON(http.StatusOK, row)
}

func (s *Server) downloadPhoto(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	f, err := s.db.GetFile(photoKey(id))
	if err != nil {
		return notFoundOr(err)
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", f.Name))
	return ctx.Blob(http.StatusOK, f.ContentType, f.Data)
}

func (s *Server) deletePhoto(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = s.db.DeleteFile(photoKey(id)); err != nil {
		return notFoundOr(err)
	}
	_, _ = s.db.Table(inmemdb.Students).Update(id, inmemdb.Row{"photoUrl": ""})
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) markRead(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	row, err := s.db.Table(inmemdb.Messages).Update(id, inmemdb.Row{"lu": true})
	if err != nil {
		return notFoundOr(err)
	}
	return ctx.JSON(http.StatusOK, row)
}

func (s *Server) reply(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	body, err := bindRow(ctx)
	if err != nil {
		return err
	}
	content := strings.TrimSpace(fmt.Sprint(body["contenu"]))
	if body["contenu"] == nil || content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "la réponse est vide")
	}
	row, err := s.db.Table(inmemdb.Messages).Update(id, inmemdb.Row{"reponse": content, "dateReponse": now(), "lu": true})
	if err != nil {
		return notFoundOr(err)
	}
	return ctx.JSON(http.StatusOK, row)
}
