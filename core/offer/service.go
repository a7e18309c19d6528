// Package offer manages the job and internship offers of the remote API.
package offer

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
	Entity = "offers"
	path   = "offres"
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

func (svc *Service) load(ctx context.Context, params fetch.Params) ([]collection.Record, error) {
	raw, err := svc.api.Get(ctx, path, params.Query())
	if err != nil {
		return nil, err
	}
	var offers []Offer
	if err := apiclient.DecodeList(raw, &offers); err != nil {
		return nil, err
	}
	records := make([]collection.Record, 0, len(offers))
	for _, o := range offers {
		records = append(records, o.Record())
	}
	return records, nil
}

// List returns the offers of one type (all when empty), cache first.
func (svc *Service) List(ctx context.Context, filter ListFilter, skipCache bool) fetch.Result {
	filter.Type = core.CleanString(filter.Type)
	if err := svc.validate.Struct(filter); err != nil {
		return fetch.Result{Data: []collection.Record{}, Err: apiclient.Classify(err)}
	}
	var params fetch.Params
	if filter.Type != "" {
		params = fetch.Params{"type": filter.Type}
	}
	return svc.fetcher.Fetch(ctx, params, skipCache)
}

func (svc *Service) Create(ctx context.Context, no NewOffer) (Offer, error) {
	if err := no.Validate(svc.validate); err != nil {
		return Offer{}, err
	}
	raw, err := svc.api.Post(ctx, path, no)
	if err != nil {
		return Offer{}, err
	}
	svc.fetcher.Invalidate()

	var o Offer
	if err := apiclient.Decode(raw, &o); err != nil {
		return Offer{}, errors.Wrap(err, "offer.Create")
	}
	return o, nil
}

func (svc *Service) Update(ctx context.Context, id int, uo UpdateOffer) (Offer, error) {
	if err := uo.Validate(svc.validate); err != nil {
		return Offer{}, err
	}
	raw, err := svc.api.Put(ctx, fmt.Sprintf("%s/%d", path, id), uo)
	if err != nil {
		return Offer{}, err
	}
	svc.fetcher.Invalidate()

	var o Offer
	if err := apiclient.Decode(raw, &o); err != nil {
		return Offer{}, errors.Wrap(err, "offer.Update")
	}
	return o, nil
}

// Close stops accepting applications for the offer.
func (svc *Service) Close(ctx context.Context, id int) error {
	if _, err := svc.api.Put(ctx, fmt.Sprintf("%s/%d/cloturer", path, id), nil, svc.api.ShortTimeout()); err != nil {
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
