package apiclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	ut "github.com/go-playground/universal-translator"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
)

type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation      // caught before any request was sent
	KindNetwork         // the request never reached the server
	KindTimeout         // the client-side timeout elapsed
	KindHTTP            // the server answered with a failure status
	KindCanceled        // the caller went away
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindNetwork:
		return "NetworkError"
	case KindTimeout:
		return "TimeoutError"
	case KindHTTP:
		return "HttpError"
	case KindCanceled:
		return "Canceled"
	default:
		return "UnexpectedError"
	}
}

// Error is the classified failure of a remote call.
type Error struct {
	Kind          Kind
	Status        int
	ServerMessage string
	Op            string // "GET /eleves"
	RequestID     string
	Err           error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Kind == KindHTTP {
		msg += fmt.Sprintf(" %d", e.Status)
		if e.ServerMessage != "" {
			msg += " (" + e.ServerMessage + ")"
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func httpError(op, reqID string, status int, serverMsg string) *Error {
	return &Error{Kind: KindHTTP, Op: op, RequestID: reqID, Status: status, ServerMessage: serverMsg}
}

// Classify maps any error onto the taxonomy. nil stays nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if core.IsValidationError(err) {
		return &Error{Kind: KindValidation, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindCanceled, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var urlErr *url.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.As(err, &urlErr) {
		return &Error{Kind: KindNetwork, Err: err}
	}
	return &Error{Kind: KindUnexpected, Err: err}
}

func KindOf(err error) Kind {
	if e := Classify(err); e != nil {
		return e.Kind
	}
	return KindUnexpected
}

// IsNotFound reports a 404 answer.
func IsNotFound(err error) bool {
	e := Classify(err)
	return e != nil && e.Kind == KindHTTP && e.Status == http.StatusNotFound
}

const StatusClientClosedRequest = 499

// HTTPStatus is the status a server relaying err should answer with.
func HTTPStatus(err error) int {
	e := Classify(err)
	if e == nil {
		return http.StatusOK
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNetwork:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindHTTP:
		if e.Status >= 400 {
			return e.Status
		}
		return http.StatusBadGateway
	case KindCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

var (
	kindKeys = map[Kind]string{
		KindNetwork: core.DefineTexts("apiclient.kind.network", core.Texts{
			"en": "Unable to reach the server. Check your connection and try again.",
			"fr": "Impossible de joindre le serveur. Vérifiez votre connexion et réessayez.",
		}),
		KindTimeout: core.DefineTexts("apiclient.kind.timeout", core.Texts{
			"en": "The server took too long to respond. Please try again.",
			"fr": "Le serveur a mis trop de temps à répondre. Veuillez réessayer.",
		}),
		KindCanceled: core.DefineTexts("apiclient.kind.canceled", core.Texts{
			"en": "The request was canceled.",
			"fr": "La requête a été annulée.",
		}),
		KindValidation: core.DefineTexts("apiclient.kind.validation", core.Texts{
			"en": "Some fields are invalid.",
			"fr": "Certains champs sont invalides.",
		}),
		KindUnexpected: core.DefineTexts("apiclient.kind.unexpected", core.Texts{
			"en": "An unexpected error occurred.",
			"fr": "Une erreur inattendue s'est produite.",
		}),
	}

	statusKeys = map[int]string{
		http.StatusBadRequest: core.DefineTexts("apiclient.status.400", core.Texts{
			"en": "Invalid data.",
			"fr": "Données invalides.",
		}),
		http.StatusUnauthorized: core.DefineTexts("apiclient.status.401", core.Texts{
			"en": "Your session has expired. Please sign in again.",
			"fr": "Votre session a expiré. Veuillez vous reconnecter.",
		}),
		http.StatusForbidden: core.DefineTexts("apiclient.status.403", core.Texts{
			"en": "You are not allowed to perform this action.",
			"fr": "Vous n'avez pas les droits pour effectuer cette action.",
		}),
		http.StatusNotFound: core.DefineTexts("apiclient.status.404", core.Texts{
			"en": "The requested resource no longer exists.",
			"fr": "La ressource demandée n'existe plus.",
		}),
		http.StatusConflict: core.DefineTexts("apiclient.status.409", core.Texts{
			"en": "This action has already been performed.",
			"fr": "Cette action a déjà été effectuée.",
		}),
		http.StatusUnprocessableEntity: core.DefineTexts("apiclient.status.422", core.Texts{
			"en": "The data could not be processed.",
			"fr": "Les données n'ont pas pu être traitées.",
		}),
		http.StatusInternalServerError: core.DefineTexts("apiclient.status.500", core.Texts{
			"en": "Server error. Please try again later.",
			"fr": "Erreur du serveur. Veuillez réessayer plus tard.",
		}),
		http.StatusServiceUnavailable: core.DefineTexts("apiclient.status.503", core.Texts{
			"en": "The service is temporarily unavailable.",
			"fr": "Le service est temporairement indisponible.",
		}),
	}

	// statuses whose server message is worth showing
	detailedStatuses = map[int]bool{
		http.StatusBadRequest:          true,
		http.StatusConflict:            true,
		http.StatusUnprocessableEntity: true,
	}
)

// fallbackTranslator serves Message when no translator is given.
var fallbackTranslator = sync.OnceValue(func() ut.Translator { return core.NewTranslator("fr") })

// Message turns err into a short localized text fit for users. Raw details are never included,
// except the server message of 400, 409 and 422 answers and translated field errors.
func Message(err error, translator ut.Translator) string {
	e := Classify(err)
	if e == nil {
		return ""
	}
	if translator == nil {
		translator = fallbackTranslator()
	}

	switch e.Kind {
	case KindValidation:
		msg := core.T(translator, kindKeys[KindValidation])
		var vErr *core.ValidationError
		if errors.As(e.Err, &vErr) && len(vErr.Fields) > 0 {
			msg += " " + fieldMessages(vErr)
		}
		return msg

	case KindHTTP:
		key, ok := statusKeys[e.Status]
		if !ok {
			switch {
			case e.Status >= 500:
				key = statusKeys[http.StatusInternalServerError]
			case e.Status >= 400:
				key = statusKeys[http.StatusBadRequest]
			default:
				key = kindKeys[KindUnexpected]
			}
		}
		msg := core.T(translator, key)
		if detailedStatuses[e.Status] && e.ServerMessage != "" {
			msg += " " + e.ServerMessage
		}
		return msg

	default:
		return core.T(translator, kindKeys[e.Kind])
	}
}

// fieldMessages joins every field error as "field: message", sorted by field.
func fieldMessages(vErr *core.ValidationError) string {
	flds := vErr.FieldMap()
	names := make([]string, 0, len(flds))
	for name := range flds {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+flds[name])
	}
	return strings.Join(parts, "; ")
}
