package shared

import (
	"context"

	"github.com/trezcool/masomo-admin/core/fetch"
	"github.com/trezcool/masomo-admin/core/message"
	"github.com/trezcool/masomo-admin/core/offer"
	"github.com/trezcool/masomo-admin/core/recruitment"
	"github.com/trezcool/masomo-admin/core/schoolyear"
	"github.com/trezcool/masomo-admin/core/student"
)

// Entity parameters carrying the date bounds delegated to the backend.
const (
	DateBeginParam = "dateBegin"
	DateEndParam   = "dateEnd"
)

// Source lists and deletes the records of one entity through its service.
type Source struct {
	Fetcher *fetch.Fetcher
	List    func(ctx context.Context, params map[string]string, skipCache bool) fetch.Result
	Delete  func(ctx context.Context, id int) error
}

// NewSources maps each entity name to its source. Nil services are left out.
func NewSources(
	years *schoolyear.Service,
	students *student.Service,
	offers *offer.Service,
	recruitments *recruitment.Service,
	messages *message.Service,
) map[string]Source {
	sources := make(map[string]Source)
	if years != nil {
		sources[schoolyear.Entity] = Source{
			Fetcher: years.Fetcher(),
			List: func(ctx context.Context, _ map[string]string, skip bool) fetch.Result {
				return years.List(ctx, skip)
			},
			Delete: years.Delete,
		}
	}
	if students != nil {
		sources[student.Entity] = Source{
			Fetcher: students.Fetcher(),
			List: func(ctx context.Context, p map[string]string, skip bool) fetch.Result {
				return students.List(ctx, student.ListFilter{Statut: p["statut"]}, skip)
			},
			Delete: students.Delete,
		}
	}
	if offers != nil {
		sources[offer.Entity] = Source{
			Fetcher: offers.Fetcher(),
			List: func(ctx context.Context, p map[string]string, skip bool) fetch.Result {
				return offers.List(ctx, offer.ListFilter{Type: p["type"]}, skip)
			},
			Delete: offers.Delete,
		}
	}
	if recruitments != nil {
		sources[recruitment.Entity] = Source{
			Fetcher: recruitments.Fetcher(),
			List: func(ctx context.Context, p map[string]string, skip bool) fetch.Result {
				return recruitments.List(ctx, recruitment.ListFilter{Statut: p["statut"], DateBegin: p[DateBeginParam], DateEnd: p[DateEndParam]}, skip)
			},
			Delete: recruitments.Delete,
		}
	}
	if messages != nil {
		sources[message.Entity] = Source{
			Fetcher: messages.Fetcher(),
			List: func(ctx context.Context, p map[string]string, skip bool) fetch.Result {
				return messages.List(ctx, message.ListFilter{Lu: p["lu"], DateBegin: p[DateBeginParam], DateEnd: p[DateEndParam]}, skip)
			},
			Delete: messages.Delete,
		}
	}
	return sources
}

// Sources maps each entity of s to its source.
func (s *Services) Sources() map[string]Source {
	return NewSources(s.SchoolYears, s.Students, s.Offers, s.Recruitments, s.Messages)
}
