// Package recruitment manages the applications received for staff positions.
package recruitment

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/apiclient"
	"github.com/trezcool/masomo-admin/core/cache"
	"github.com/trezcool/masomo-admin/core/collection"
	"github.com/trezcool/masomo-admin/core/fetch"
)

const (
	Entity = "recruitments"
	path   = "recrutements"

	acceptedTemplate = "recruitment_accepted"
	rejectedTemplate = "recruitment_rejected"
)

var (
	acceptedSubject = core.DefineTexts("recruitment.subject.accepted", core.Texts{"en": "Your application was accepted", "fr": "Votre candidature a été retenue"})
	rejectedSubject = core.DefineTexts("recruitment.subject.rejected", core.Texts{"en": "Your application", "fr": "Votre candidature"})
)

type Service struct {
	api      *apiclient.Client
	fetcher  *fetch.Fetcher
	validate *core.Validator
	mailer   core.EmailService
	logger   core.Logger
}

// NewService returns the recruitment service; mailer may be nil, in which case
// candidates are not notified.
func NewService(api *apiclient.Client, c *cache.Cache, v *core.Validator, mailer core.EmailService, logger core.Logger) *Service {
	if logger == nil {
		logger = core.NopLogger{}
	}
	svc := &Service{api: api, validate: v, mailer: mailer, logger: logger}
	svc.fetcher = fetch.New(Entity, c, svc.load)
	return svc
}

func (svc *Service) Fetcher() *fetch.Fetcher { return svc.fetcher }

func (svc *Service) load(ctx context.Context, params fetch.Params) ([]collection.Record, error) {
	raw, err := svc.api.Get(ctx, path, params.Query())
	if err != nil {
		return nil, err
	}
	var apps []Recruitment
	if err := apiclient.DecodeList(raw, &apps); err != nil {
		return nil, err
	}
	records := make([]collection.Record, 0, len(apps))
	for _, r := range apps {
		records = append(records, r.Record())
	}
	return records, nil
}

// List returns the applications matching filter, cache first.
func (svc *Service) List(ctx context.Context, filter ListFilter, skipCache bool) fetch.Result {
	if err := filter.Validate(svc.validate); err != nil {
		return fetch.Result{Data: []collection.Record{}, Err: apiclient.Classify(err)}
	}
	return svc.fetcher.Fetch(ctx, filter.params(), skipCache)
}

func (svc *Service) Get(ctx context.Context, id int) (Recruitment, error) {
	raw, err := svc.api.Get(ctx, fmt.Sprintf("%s/%d", path, id), nil)
	if err != nil {
		return Recruitment{}, err
	}
	var r Recruitment
	if err := apiclient.Decode(raw, &r); err != nil {
		return Recruitment{}, errors.Wrap(err, "recruitment.Get")
	}
	return r, nil
}

// Accept hires the candidate and lets them know by email.
func (svc *Service) Accept(ctx context.Context, id int) (Recruitment, error) {
	r, err := svc.decide(ctx, id, "accepter", nil)
	if err != nil {
		return Recruitment{}, err
	}
	svc.notify(r, acceptedTemplate, acceptedSubject, map[string]interface{}{"Position": r.Poste})
	return r, nil
}

// Reject turns the application down and sends the reason to the candidate.
func (svc *Service) Reject(ctx context.Context, id int, rr RejectRecruitment) (Recruitment, error) {
	if err := rr.Validate(svc.validate); err != nil {
		return Recruitment{}, err
	}
	r, err := svc.decide(ctx, id, "rejeter", rr)
	if err != nil {
		return Recruitment{}, err
	}
	svc.notify(r, rejectedTemplate, rejectedSubject, map[string]interface{}{"Position": r.Poste, "Reason": rr.Motif})
	return r, nil
}

func (svc *Service) decide(ctx context.Context, id int, verb string, payload interface{}) (Recruitment, error) {
	raw, err := svc.api.Put(ctx, fmt.Sprintf("%s/%d/%s", path, id, verb), payload, svc.api.ShortTimeout())
	if err != nil {
		return Recruitment{}, err
	}
	svc.fetcher.Invalidate()

	var r Recruitment
	if err := apiclient.Decode(raw, &r); err != nil || r.Email == "" {
		// the server did not echo the application back; the decision stands either way
		read, err := svc.Get(ctx, id)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("recruitment %d: re-reading after %s", id, verb), err)
			return Recruitment{ID: id}, nil
		}
		r = read
	}
	return r, nil
}

func (svc *Service) notify(r Recruitment, tmpl string, subject string, data map[string]interface{}) {
	if svc.mailer == nil || r.Email == "" {
		return
	}
	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: r.FullName(), Address: r.Email}},
		Subject:      svc.validate.T(subject),
		TemplateName: tmpl,
		TemplateData: data,
	})
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	if err := svc.api.Delete(ctx, fmt.Sprintf("%s/%d", path, id)); err != nil {
		return err
	}
	svc.fetcher.Invalidate()
	return nil
}
