package message

import (
	"strconv"
	"strings"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/collection"
	"github.com/trezcool/masomo-admin/core/fetch"
)

// Read states, as shown in the "etat" column.
const (
	LabelRead   = "Lu"
	LabelUnread = "Non lu"
)

// Message is a contact message left on the public site.
type Message struct {
	ID          int    `json:"id"`
	Nom         string `json:"nom"`
	Email       string `json:"email"`
	Telephone   string `json:"telephone,omitempty"`
	Sujet       string `json:"sujet"`
	Contenu     string `json:"contenu"`
	Lu          bool   `json:"lu"`
	Reponse     string `json:"reponse,omitempty"`
	DateEnvoi   string `json:"dateEnvoi"`
	DateReponse string `json:"dateReponse,omitempty"`
}

func readLabel(read bool) string {
	if read {
		return LabelRead
	}
	return LabelUnread
}

// Record normalizes the message; the sender is exposed as "expediteur".
func (m Message) Record() collection.Record {
	sender := strings.TrimSpace(m.Nom)
	if sender == "" {
		sender = m.Email
	}
	var sent interface{}
	if t, ok := collection.ParseDate(m.DateEnvoi); ok {
		sent = t
	}
	return collection.Record{
		"id":         m.ID,
		"expediteur": sender,
		"email":      m.Email,
		"telephone":  m.Telephone,
		"sujet":      m.Sujet,
		"contenu":    m.Contenu,
		"lu":         m.Lu,
		"etat":       readLabel(m.Lu),
		"reponse":    m.Reponse,
		"repondu":    m.Reponse != "",
		"dateEnvoi":  sent,
	}
}

func Getters() map[string]collection.Getter {
	return map[string]collection.Getter{
		"readLabel": func(r collection.Record) interface{} {
			read, _ := r["lu"].(bool)
			return readLabel(read)
		},
	}
}

// ListFilter holds the query parameters of the message list. Lu is "true",
// "false" or empty for every message.
type ListFilter struct {
	Lu        string `json:"lu" validate:"omitempty,oneof=true false"`
	DateBegin string `json:"dateBegin" validate:"omitempty,datetime=2006-01-02 15:04:05"`
	DateEnd   string `json:"dateEnd" validate:"omitempty,datetime=2006-01-02 15:04:05"`
}

func (lf *ListFilter) Validate(v *core.Validator) error {
	lf.Lu = core.CleanString(lf.Lu, true)
	lf.DateBegin = core.CleanString(lf.DateBegin)
	lf.DateEnd = core.CleanString(lf.DateEnd)
	return v.Struct(lf)
}

func (lf ListFilter) params() fetch.Params {
	params := fetch.Params{}
	if lf.Lu != "" {
		read, _ := strconv.ParseBool(lf.Lu)
		params["lu"] = strconv.FormatBool(read)
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

// Reply is the answer sent to the sender of a message.
type Reply struct {
	Contenu string `json:"contenu" validate:"required,notblank,max=5000"`
	ReplyTo string `json:"replyTo,omitempty" validate:"omitempty,email"`
}

func (r *Reply) Validate(v *core.Validator) error {
	r.Contenu = strings.TrimSpace(r.Contenu)
	r.ReplyTo = core.CleanString(r.ReplyTo, true)
	return v.Struct(r)
}
