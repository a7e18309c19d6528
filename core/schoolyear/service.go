// Package schoolyear manages the school years of the remote API.
package schoolyear

import (
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
	Entity = "schoolyears"
	path   = "annees-scolaires"
)

type Service struct {
	api      *apiclient.Client
	fetcher  *fetch.Fetcher
	validate *core.Validator
}

func NewService(api *apiclient.Client, c *cache.Cache, v *core.Validator) *Service {
	RegisterValidators(v)
	svc := &Service{api: api, validate: v}
	svc.fetcher = fetch.New(Entity, c, svc.load)
	return svc
}

func (svc *Service) Fetcher() *fetch.Fetcher { return svc.fetcher }

func (svc *Service) load(ctx context.Context, _ fetch.Params) ([]collection.Record, error) {
	raw, err := svc.api.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var years []SchoolYear
	if err := apiclient.DecodeList(raw, &years); err != nil {
		return nil, err
	}
	records := make([]collection.Record, 0, len(years))
	for _, sy := range years {
		records = append(records, sy.Record())
	}
	return records, nil
}

// List returns every school year, cache first.
func (svc *Service) List(ctx context.Context, skipCache bool) fetch.Result {
	return svc.fetcher.Fetch(ctx, nil, skipCache)
}

func (svc *Service) Create(ctx context.Context, ns NewSchoolYear) (SchoolYear, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return SchoolYear{}, err
	}
	raw, err := svc.api.Post(ctx, path, ns)
	if err != nil {
		return SchoolYear{}, err
	}
	svc.fetcher.Invalidate()

	var sy SchoolYear
	if err := apiclient.Decode(raw, &sy); err != nil {
		return SchoolYear{}, errors.Wrap(err, "schoolyear.Create")
	}
	return sy, nil
}

func (svc *Service) Update(ctx context.Context, id int, us UpdateSchoolYear) (SchoolYear, error) {
	if err := us.Validate(svc.validate); err != nil {
		return SchoolYear{}, err
	}
	raw, err := svc.api.Put(ctx, fmt.Sprintf("%s/%d", path, id), us)
	if err != nil {
		return SchoolYear{}, err
	}
	svc.fetcher.Invalidate()

	var sy SchoolYear
	if err := apiclient.Decode(raw, &sy); err != nil {
		return SchoolYear{}, errors.Wrap(err, "schoolyear.Update")
	}
	return sy, nil
}

// Activate makes id the current school year; the server deactivates the others.
func (svc *Service) Activate(ctx context.Context, id int) error {
	if _, err := svc.api.Put(ctx, fmt.Sprintf("%s/%d/activer", path, id), nil, svc.api.ShortTimeout()); err != nil {
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
