package recruitment

import (
	"strings"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/collection"
	"github.com/trezcool/masomo-admin/core/fetch"
)

// Statuses
const (
	StatusPending  = "EN_ATTENTE"
	StatusAccepted = "ACCEPTE"
	StatusRejected = "REJETE"
)

var Statuses = []string{StatusPending, StatusAccepted, StatusRejected}

// Recruitment is an application received for a staff position.
type Recruitment struct {
	ID              int    `json:"id"`
	Nom             string `json:"nom"`
	Prenom          string `json:"prenom"`
	Email           string `json:"email"`
	Telephone       string `json:"telephone"`
	Poste           string `json:"poste"`
	OffreID         *int   `json:"offreId,omitempty"`
	Statut          string `json:"statut"`
	Motif           string `json:"motif,omitempty"`
	DateCandidature string `json:"dateCandidature"`
}

func (r Recruitment) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(r.Prenom) + " " + strings.TrimSpace(r.Nom))
}

// Record normalizes the application; an unknown status is reported as pending.
func (r Recruitment) Record() collection.Record {
	statut := r.Statut
	if statut == "" {
		statut = StatusPending
	}
	var offreID interface{}
	if r.OffreID != nil {
		offreID = *r.OffreID
	}
	var received interface{}
	if t, ok := collection.ParseDate(r.DateCandidature); ok {
		received = t
	}
	return collection.Record{
		"id":              r.ID,
		"nom":             r.Nom,
		"prenom":          r.Prenom,
		"email":           r.Email,
		"telephone":       r.Telephone,
		"poste":           r.Poste,
		"offreId":         offreID,
		"statut":          statut,
		"motif":           r.Motif,
		"dateCandidature": received,
	}
}

// ListFilter holds the query parameters of the application list. DateBegin and
// DateEnd come from the server-side period filter.
type ListFilter struct {
	Statut    string `json:"statut" validate:"omitempty,oneof=EN_ATTENTE ACCEPTE REJETE"`
	DateBegin string `json:"dateBegin" validate:"omitempty,datetime=2006-01-02 15:04:05"`
	DateEnd   string `json:"dateEnd" validate:"omitempty,datetime=2006-01-02 15:04:05"`
}

func (lf *ListFilter) Validate(v *core.Validator) error {
	lf.Statut = core.CleanString(lf.Statut)
	lf.DateBegin = core.CleanString(lf.DateBegin)
	lf.DateEnd = core.CleanString(lf.DateEnd)
	return v.Struct(lf)
}

func (lf ListFilter) params() fetch.Params {
	params := fetch.Params{}
	if lf.Statut != "" {
		params["statut"] = lf.Statut
	}
	if lf.DateBegin != "" {
		params["dateBegin"] = lf.DateBegin
	}
	if lf.DateEnd != "" {
		params["dateEnd"] = lf.DateEnd
	}
	if len(params) == 0 {
		return nil
	}
	return params
}

// RejectRecruitment is the reason sent to a rejected candidate.
type RejectRecruitment struct {
	Motif string `json:"motif" validate:"required,notblank,max=500"`
}

func (rr *RejectRecruitment) Validate(v *core.Validator) error {
	rr.Motif = core.CleanString(rr.Motif)
	return v.Struct(rr)
}
