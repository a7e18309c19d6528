package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/apiclient"
)

type (
	// Request is one call received by a FakeAPI.
	Request struct {
		Method string
		Path   string
		Query  url.Values
		Body   []byte
	}

	reply struct {
		status int
		body   interface{}
	}

	// FakeAPI is a scripted remote REST API. Unscripted routes answer 404.
	FakeAPI struct {
		t      *testing.T
		server *httptest.Server

		mu       sync.Mutex
		routes   map[string]reply
		requests []Request
	}
)

func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	f := &FakeAPI{t: t, routes: make(map[string]reply)}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func routeKey(method, path string) string {
	return method + " /" + strings.Trim(path, "/")
}

// Handle scripts the answer of method + path (relative to the API root).
// A []byte or string body is written as is, anything else as JSON.
func (f *FakeAPI) Handle(method, path string, status int, body interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[routeKey(method, path)] = reply{status: status, body: body}
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := strings.TrimPrefix(r.URL.Path, "/api")

	f.mu.Lock()
	f.requests = append(f.requests, Request{Method: r.Method, Path: path, Query: r.URL.Query(), Body: body})
	rep, ok := f.routes[routeKey(r.Method, path)]
	f.mu.Unlock()

	if !ok {
		rep = reply{status: http.StatusNotFound, body: map[string]string{"message": "introuvable"}}
	}
	switch b := rep.body.(type) {
	case nil:
		w.WriteHeader(rep.status)
	case []byte:
		w.WriteHeader(rep.status)
		_, _ = w.Write(b)
	case string:
		w.WriteHeader(rep.status)
		_, _ = io.WriteString(w, b)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rep.status)
		_ = json.NewEncoder(w).Encode(b)
	}
}

// Client returns an API client pointed at the fake.
func (f *FakeAPI) Client() *apiclient.Client {
	return apiclient.New(apiclient.Options{
		BaseURL:      f.server.URL + "/api",
		Token:        "test-token",
		ShortTimeout: time.Second,
	}, nil)
}

func (f *FakeAPI) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// Calls counts the requests received for method + path.
func (f *FakeAPI) Calls(method, path string) int {
	key := routeKey(method, path)
	n := 0
	for _, r := range f.Requests() {
		if routeKey(r.Method, r.Path) == key {
			n++
		}
	}
	return n
}

// Last returns the most recent request, failing the test when there is none.
func (f *FakeAPI) Last() Request {
	f.t.Helper()
	reqs := f.Requests()
	if len(reqs) == 0 {
		f.t.Fatal("FakeAPI.Last(): no request received")
	}
	return reqs[len(reqs)-1]
}

// Mailer records the messages instead of sending them.
type Mailer struct {
	mu   sync.Mutex
	Sent []*core.EmailMessage
}

var _ core.EmailService = (*Mailer)(nil)

func (m *Mailer) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, messages...)
}

func (m *Mailer) Messages() []*core.EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*core.EmailMessage, len(m.Sent))
	copy(out, m.Sent)
	return out
}

// Logger records what is logged at warn level and above.
type Logger struct {
	core.NopLogger

	mu      sync.Mutex
	entries []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) Warn(msg string, _ ...interface{})  { l.record(msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.record(msg) }

func (l *Logger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, msg)
}

func (l *Logger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}
