// Package message manages the contact messages received by the school.
package message

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/apiclient"
	"github.com/trezcool/masomo-admin/core/cache"
	"github.com/trezcool/masomo-admin/core/collection"
	"github.com/trezcool/masomo-admin/core/fetch"
)

const (
	Entity = "messages"
	path   = "messages"

	replyTemplate    = "message_reply"
	originalFilename = "message.txt"
)

type Service struct {
	api      *apiclient.Client
	fetcher  *fetch.Fetcher
	validate *core.Validator
	mailer   core.EmailService
}

func NewService(api *apiclient.Client, c *cache.Cache, v *core.Validator, mailer core.EmailService) *Service {
	svc := &Service{api: api, validate: v, mailer: mailer}
	svc.fetcher = fetch.New(Entity, c, svc.load)
	return svc
}

func (svc *Service) Fetcher() *fetch.Fetcher { return svc.fetcher }

func (svc *Service) load(ctx context.Context, params fetch.Params) ([]collection.Record, error) {
	raw, err := svc.api.Get(ctx, path, params.Query())
	if err != nil {
		return nil, err
	}
	var msgs []Message
	if err := apiclient.DecodeList(raw, &msgs); err != nil {
		return nil, err
	}
	records := make([]collection.Record, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, m.Record())
	}
	return records, nil
}

// List returns the messages matching filter, cache first.
func (svc *Service) List(ctx context.Context, filter ListFilter, skipCache bool) fetch.Result {
	if err := filter.Validate(svc.validate); err != nil {
		return fetch.Result{Data: []collection.Record{}, Err: apiclient.Classify(err)}
	}
	return svc.fetcher.Fetch(ctx, filter.params(), skipCache)
}

func (svc *Service) Get(ctx context.Context, id int) (Message, error) {
	raw, err := svc.api.Get(ctx, fmt.Sprintf("%s/%d", path, id), nil)
	if err != nil {
		return Message{}, err
	}
	var m Message
	if err := apiclient.Decode(raw, &m); err != nil {
		return Message{}, errors.Wrap(err, "message.Get")
	}
	return m, nil
}

func (svc *Service) MarkRead(ctx context.Context, id int) error {
	if _, err := svc.api.Put(ctx, fmt.Sprintf("%s/%d/lu", path, id), nil, svc.api.ShortTimeout()); err != nil {
		return err
	}
	svc.fetcher.Invalidate()
	return nil
}

// Reply records the answer on the message and emails it to the sender.
func (svc *Service) Reply(ctx context.Context, id int, r Reply) error {
	if err := r.Validate(svc.validate); err != nil {
		return err
	}
	msg, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := svc.api.Post(ctx, fmt.Sprintf("%s/%d/repondre", path, id), r); err != nil {
		return err
	}
	svc.fetcher.Invalidate()

	if svc.mailer != nil && msg.Email != "" {
		em := &core.EmailMessage{
			To:           []mail.Address{{Name: msg.Nom, Address: msg.Email}},
			Subject:      "Re: " + msg.Sujet,
			TemplateName: replyTemplate,
			TemplateData: map[string]interface{}{"Subject": msg.Sujet, "Body": r.Contenu},
		}
		if r.ReplyTo != "" {
			em.ReplyTo = &mail.Address{Address: r.ReplyTo}
		}
		// the sender gets their own message back
		if msg.Contenu != "" {
			if err := em.Attach(strings.NewReader(msg.Contenu), originalFilename, "text/plain; charset=utf-8"); err != nil {
				return errors.Wrap(err, "attaching the original message")
			}
		}
		svc.mailer.SendMessages(em)
	}
	return nil
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	if err := svc.api.Delete(ctx, fmt.Sprintf("%s/%d", path, id)); err != nil {
		return err
	}
	svc.fetcher.Invalidate()
	return nil
}
