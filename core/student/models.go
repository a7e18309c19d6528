package student

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/collection"
)

// Statuses
const (
	StatusPending  = "INSCRIPTION"
	StatusValid    = "VALIDE"
	StatusRejected = "REJETE"
)

// NoClass labels students without a class.
const NoClass = "Non assignée"

var (
	Statuses = []string{StatusPending, StatusValid, StatusRejected}

	photoExts     = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
	photoExtKey   = core.DefineTexts("student.photo.ext", core.Texts{"en": "only jpg, png and webp pictures are accepted", "fr": "seules les images jpg, png et webp sont acceptées"})
	photoEmptyKey = core.DefineTexts("student.photo.empty", core.Texts{"en": "the picture is empty", "fr": "l'image est vide"})

	nowFunc = time.Now
)

type Class struct {
	ID  int    `json:"id"`
	Nom string `json:"nom"`
}

// Student as served by the remote API.
type Student struct {
	ID              int    `json:"id"`
	Matricule       string `json:"matricule"`
	Nom             string `json:"nom"`
	Postnom         string `json:"postnom"`
	Prenom          string `json:"prenom"`
	Sexe            string `json:"sexe"`
	DateNaissance   string `json:"dateNaissance"`
	Email           string `json:"email"`
	Telephone       string `json:"telephone"`
	Adresse         string `json:"adresse"`
	NomParent       string `json:"nomParent"`
	TelephoneParent string `json:"telephoneParent"`
	Classe          *Class `json:"classe"`
	Statut          string `json:"statut"`
	MotifRejet      string `json:"motifRejet,omitempty"`
	PhotoURL        string `json:"photoUrl,omitempty"`
	DateInscription string `json:"dateInscription"`
}

func (s Student) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.Nom, s.Postnom, s.Prenom} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Record normalizes the student for the collection engine. A missing class becomes NoClass.
func (s Student) Record() collection.Record {
	classe, classeID := NoClass, interface{}(nil)
	if s.Classe != nil && strings.TrimSpace(s.Classe.Nom) != "" {
		classe, classeID = s.Classe.Nom, s.Classe.ID
	}
	return collection.Record{
		"id":              s.ID,
		"matricule":       s.Matricule,
		"nom":             s.Nom,
		"postnom":         s.Postnom,
		"prenom":          s.Prenom,
		"sexe":            strings.ToUpper(s.Sexe),
		"dateNaissance":   date(s.DateNaissance),
		"email":           s.Email,
		"telephone":       s.Telephone,
		"adresse":         s.Adresse,
		"nomParent":       s.NomParent,
		"telephoneParent": s.TelephoneParent,
		"classe":          classe,
		"classeId":        classeID,
		"statut":          s.Statut,
		"motifRejet":      s.MotifRejet,
		"hasPhoto":        s.PhotoURL != "",
		"dateInscription": date(s.DateInscription),
	}
}

func date(s string) interface{} {
	if t, ok := collection.ParseDate(s); ok {
		return t
	}
	return nil
}

// Age in full years at now, nil when the birth date is unknown.
func Age(birth time.Time, now time.Time) interface{} {
	if birth.IsZero() || birth.After(now) {
		return nil
	}
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

// Getters used by the screen definitions.
func Getters() map[string]collection.Getter {
	return map[string]collection.Getter{
		"age": func(r collection.Record) interface{} {
			birth, ok := r["dateNaissance"].(time.Time)
			if !ok {
				return nil
			}
			return Age(birth, nowFunc())
		},
	}
}

// ListFilter holds the query parameters of the student list.
type ListFilter struct {
	Statut string `json:"statut" validate:"omitempty,oneof=INSCRIPTION VALIDE REJETE"`
}

// RejectStudent is the reason given when an enrolment is turned down.
type RejectStudent struct {
	Motif string `json:"motif" validate:"required,notblank,max=500"`
}

func (rs *RejectStudent) Validate(v *core.Validator) error {
	rs.Motif = core.CleanString(rs.Motif)
	return v.Struct(rs)
}

// Photo is an uploaded student picture.
type Photo struct {
	Filename string
	Data     []byte
}

func (p *Photo) Validate(v *core.Validator) error {
	p.Filename = filepath.Base(core.CleanString(p.Filename))
	if !photoExts[strings.ToLower(filepath.Ext(p.Filename))] {
		return core.NewValidationError(nil, core.FieldError{Field: "photo", Error: v.T(photoExtKey)})
	}
	if len(p.Data) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "photo", Error: v.T(photoEmptyKey)})
	}
	return nil
}
