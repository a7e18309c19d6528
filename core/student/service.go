// Package student manages enrolments and students of the remote API.
package student

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/apiclient"
	"github.com/trezcool/masomo-admin/core/cache"
	"github.com/trezcool/masomo-admin/core/collection"
	"github.com/trezcool/masomo-admin/core/fetch"
)

const (
	Entity     = "students"
	path       = "eleves"
	photoField = "photo"
)

type Service struct {
	api      *apiclient.Client
	fetcher  *fetch.Fetcher
	validate *core.Validator
}

func NewService(api *apiclient.Client, c *cache.Cache, v *core.Validator) *Service {
	svc := &Service{api: api, validate: v}
	svc.fetcher = fetch.New(Entity, c, svc.load)
	return svc
}

func (svc *Service) Fetcher() *fetch.Fetcher { return svc.fetcher }

func (svc *Service) load(ctx context.Context, params fetch.Params) ([]collection.Record, error) {
	raw, err := svc.api.Get(ctx, path, params.Query())
	if err != nil {
		return nil, err
	}
	var students []Student
	if err := apiclient.DecodeList(raw, &students); err != nil {
		return nil, err
	}
	records := make([]collection.Record, 0, len(students))
	for _, s := range students {
		records = append(records, s.Record())
	}
	return records, nil
}

// List returns the students with the given status (all when empty), cache first.
func (svc *Service) List(ctx context.Context, filter ListFilter, skipCache bool) fetch.Result {
	filter.Statut = core.CleanString(filter.Statut)
	if err := svc.validate.Struct(filter); err != nil {
		return fetch.Result{Data: []collection.Record{}, Err: apiclient.Classify(err)}
	}
	var params fetch.Params
	if filter.Statut != "" {
		params = fetch.Params{"statut": filter.Statut}
	}
	return svc.fetcher.Fetch(ctx, params, skipCache)
}

func (svc *Service) Get(ctx context.Context, id int) (Student, error) {
	raw, err := svc.api.Get(ctx, fmt.Sprintf("%s/%d", path, id), nil)
	if err != nil {
		return Student{}, err
	}
	var s Student
	if err := apiclient.Decode(raw, &s); err != nil {
		return Student{}, errors.Wrap(err, "student.Get")
	}
	return s, nil
}

// Validate accepts a pending enrolment.
func (svc *Service) Validate(ctx context.Context, id int) error {
	if _, err := svc.api.Put(ctx, fmt.Sprintf("%s/%d/valider", path, id), nil, svc.api.ShortTimeout()); err != nil {
		return err
	}
	svc.fetcher.Invalidate()
	return nil
}

// Reject turns down a pending enrolment.
func (svc *Service) Reject(ctx context.Context, id int, rs RejectStudent) error {
	if err := rs.Validate(svc.validate); err != nil {
		return err
	}
	if _, err := svc.api.Put(ctx, fmt.Sprintf("%s/%d/rejeter", path, id), rs, svc.api.ShortTimeout()); err != nil {
		return err
	}
	svc.fetcher.Invalidate()
	return nil
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	if err := svc.api.Delete(ctx, fmt.Sprintf("%s/%d", path, id)); err != nil {
		return err
	}
	svc.fetcher.Invalidate()
	return nil
}

func (svc *Service) UploadPhoto(ctx context.Context, id int, photo Photo) error {
	if err := photo.Validate(svc.validate); err != nil {
		return err
	}
	if _, err := svc.api.Upload(ctx, fmt.Sprintf("%s/%d/photo", path, id), photoField, photo.Filename, bytes.NewReader(photo.Data)); err != nil {
		return err
	}
	svc.fetcher.Invalidate()
	return nil
}

func (svc *Service) DownloadPhoto(ctx context.Context, id int) (*apiclient.Blob, error) {
	return svc.api.Download(ctx, fmt.Sprintf("%s/%d/photo", path, id))
}

// DeletePhoto removes the picture; a student without picture is not an error.
func (svc *Service) DeletePhoto(ctx context.Context, id int) error {
	if err := svc.api.Delete(ctx, fmt.Sprintf("%s/%d/photo", path, id)); err != nil {
		return err
	}
	svc.fetcher.Invalidate()
	return nil
}
