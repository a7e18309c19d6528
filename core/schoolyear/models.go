package schoolyear

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/collection"
)

const (
	labelTag   = "schoolyear_label"
	dateLayout = "2006-01-02"
)

var (
	labelRegex = regexp.MustCompile(`^(\d{4})-(\d{4})$`)
	labelTexts = core.Texts{
		"en": "must look like 2024-2025 (two consecutive years)",
		"fr": "doit être de la forme 2024-2025 (deux années consécutives)",
	}
	endBeforeStartKey = core.DefineTexts("schoolyear.end_before_start", core.Texts{
		"en": "the end date must come after the start date",
		"fr": "la date de fin doit être postérieure à la date de début",
	})
)

// SchoolYear as served by the remote API.
type SchoolYear struct {
	ID           int    `json:"id"`
	Libelle      string `json:"libelle"`
	DateDebut    string `json:"dateDebut"`
	DateFin      string `json:"dateFin"`
	Active       bool   `json:"active"`
	DateCreation string `json:"dateCreation,omitempty"`
}

// Record normalizes the school year for the collection engine.
func (sy SchoolYear) Record() collection.Record {
	return collection.Record{
		"id":           sy.ID,
		"libelle":      sy.Libelle,
		"dateDebut":    date(sy.DateDebut),
		"dateFin":      date(sy.DateFin),
		"active":       sy.Active,
		"dateCreation": date(sy.DateCreation),
	}
}

func date(s string) interface{} {
	if t, ok := collection.ParseDate(s); ok {
		return t
	}
	return nil
}

// Getters used by the screen definitions.
func Getters() map[string]collection.Getter {
	return map[string]collection.Getter{
		"activeLabel": func(r collection.Record) interface{} {
			if active, _ := r["active"].(bool); active {
				return "Active"
			}
			return "Inactive"
		},
	}
}

// NewSchoolYear contains the information needed to create a school year.
type NewSchoolYear struct {
	Libelle   string `json:"libelle" validate:"required,schoolyear_label"`
	DateDebut string `json:"dateDebut" validate:"required,datetime=2006-01-02"`
	DateFin   string `json:"dateFin" validate:"required,datetime=2006-01-02"`
}

func (ns *NewSchoolYear) Validate(v *core.Validator) error {
	ns.Libelle = core.CleanString(ns.Libelle)
	ns.DateDebut = core.CleanString(ns.DateDebut)
	ns.DateFin = core.CleanString(ns.DateFin)
	if err := v.Struct(ns); err != nil {
		return err
	}
	return checkPeriod(v, ns.DateDebut, ns.DateFin)
}

// UpdateSchoolYear defines what may be changed on an existing school year.
// Empty fields keep their current value.
type UpdateSchoolYear struct {
	Libelle   string `json:"libelle,omitempty" validate:"omitempty,schoolyear_label"`
	DateDebut string `json:"dateDebut,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DateFin   string `json:"dateFin,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (us *UpdateSchoolYear) Validate(v *core.Validator) error {
	us.Libelle = core.CleanString(us.Libelle)
	us.DateDebut = core.CleanString(us.DateDebut)
	us.DateFin = core.CleanString(us.DateFin)
	if err := v.Struct(us); err != nil {
		return err
	}
	if us.DateDebut != "" && us.DateFin != "" {
		return checkPeriod(v, us.DateDebut, us.DateFin)
	}
	return nil
}

func checkPeriod(v *core.Validator, start, end string) error {
	from, err1 := time.Parse(dateLayout, start)
	to, err2 := time.Parse(dateLayout, end)
	if err1 != nil || err2 != nil || to.After(from) {
		return nil
	}
	return core.NewValidationError(nil, core.FieldError{Field: "dateFin", Error: v.T(endBeforeStartKey)})
}

// RegisterValidators adds the school year validation tags to v.
func RegisterValidators(v *core.Validator) {
	v.Register(labelTag, labelValidation, labelTexts)
}

func labelValidation(fl validator.FieldLevel) bool {
	m := labelRegex.FindStringSubmatch(fl.Field().String())
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return end == start+1
}

// Label returns the label of the school year starting in year.
func Label(year int) string {
	return fmt.Sprintf("%d-%d", year, year+1)
}
