package offer

import (
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/collection"
)

// Types
const (
	TypeJob        = "EMPLOI"
	TypeInternship = "STAGE"
)

// Statuses
const (
	StatusOpen   = "OUVERTE"
	StatusClosed = "FERMEE"
)

const (
	typeTag   = "offer_type"
	salaryTag = "salary"
)

var (
	Types = []string{TypeJob, TypeInternship}

	typeTexts   = core.Texts{"en": "must be EMPLOI or STAGE", "fr": "doit être EMPLOI ou STAGE"}
	salaryTexts = core.Texts{"en": "must be a positive amount", "fr": "doit être un montant positif"}
)

// Offer is a job or internship offer as served by the remote API.
type Offer struct {
	ID              int              `json:"id"`
	Titre           string           `json:"titre"`
	Description     string           `json:"description"`
	Type            string           `json:"type"`
	Lieu            string           `json:"lieu"`
	Salaire         *decimal.Decimal `json:"salaire"`
	Devise          string           `json:"devise,omitempty"`
	DateLimite      string           `json:"dateLimite"`
	Statut          string           `json:"statut"`
	DatePublication string           `json:"datePublication"`
}

// Record normalizes the offer for the collection engine. Salaries stay decimals so
// they sort numerically; an unknown salary is nil and sorts last.
func (o Offer) Record() collection.Record {
	var salary interface{}
	if o.Salaire != nil {
		salary = *o.Salaire
	}
	statut := o.Statut
	if statut == "" {
		statut = StatusOpen
	}
	return collection.Record{
		"id":              o.ID,
		"titre":           o.Titre,
		"description":     o.Description,
		"type":            o.Type,
		"lieu":            o.Lieu,
		"salaire":         salary,
		"devise":          o.Devise,
		"dateLimite":      date(o.DateLimite),
		"statut":          statut,
		"datePublication": date(o.DatePublication),
	}
}

func date(s string) interface{} {
	if t, ok := collection.ParseDate(s); ok {
		return t
	}
	return nil
}

// ListFilter holds the query parameters of the offer list.
type ListFilter struct {
	Type string `json:"type" validate:"omitempty,offer_type"`
}

// NewOffer contains the information needed to publish an offer.
type NewOffer struct {
	Titre       string           `json:"titre" validate:"required,notblank,max=200"`
	Description string           `json:"description" validate:"required,notblank"`
	Type        string           `json:"type" validate:"required,offer_type"`
	Lieu        string           `json:"lieu" validate:"required,notblank"`
	Salaire     *decimal.Decimal `json:"salaire,omitempty" validate:"omitempty,salary"`
	Devise      string           `json:"devise,omitempty" validate:"omitempty,len=3,alpha"`
	DateLimite  string           `json:"dateLimite" validate:"required,datetime=2006-01-02"`
}

func (no *NewOffer) Validate(v *core.Validator) error {
	no.Titre = core.CleanString(no.Titre)
	no.Description = core.CleanString(no.Description)
	no.Lieu = core.CleanString(no.Lieu)
	no.DateLimite = core.CleanString(no.DateLimite)
	no.Type = core.CleanString(no.Type)
	return v.Struct(no)
}

// UpdateOffer defines what may be changed on an offer; empty fields are left untouched.
type UpdateOffer struct {
	Titre       string           `json:"titre,omitempty" validate:"omitempty,notblank,max=200"`
	Description string           `json:"description,omitempty"`
	Lieu        string           `json:"lieu,omitempty"`
	Salaire     *decimal.Decimal `json:"salaire,omitempty" validate:"omitempty,salary"`
	Devise      string           `json:"devise,omitempty" validate:"omitempty,len=3,alpha"`
	DateLimite  string           `json:"dateLimite,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (uo *UpdateOffer) Validate(v *core.Validator) error {
	uo.Titre = core.CleanString(uo.Titre)
	uo.Description = core.CleanString(uo.Description)
	uo.Lieu = core.CleanString(uo.Lieu)
	uo.DateLimite = core.CleanString(uo.DateLimite)
	return v.Struct(uo)
}

// RegisterValidators adds the offer validation tags to v.
func RegisterValidators(v *core.Validator) {
	// decimals are validated through their string form
	v.Engine().RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	v.Register(typeTag, typeValidation, typeTexts)
	v.Register(salaryTag, salaryValidation, salaryTexts)
}

func typeValidation(fl validator.FieldLevel) bool {
	t := fl.Field().String()
	return t == TypeJob || t == TypeInternship
}

func salaryValidation(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && d.IsPositive()
}
