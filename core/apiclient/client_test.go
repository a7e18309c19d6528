package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/api/", Token: "tok", ShortTimeout: 50 * time.Millisecond}, nil), srv
}

func TestClient_Get(t *testing.T) {
	var got *http.Request
	cli, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = io.WriteString(w, `[{"id":1}]`)
	})

	raw, err := cli.Get(context.Background(), "/eleves", url.Values{"statut": {"INSCRIPTION"}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(raw))
	assert.Equal(t, "/api/eleves", got.URL.Path)
	assert.Equal(t, "INSCRIPTION", got.URL.Query().Get("statut"))
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.NotEmpty(t, got.Header.Get(RequestIDHeader))
}

func TestClient_PostJSON(t *testing.T) {
	cli, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": 9, "libelle": body["libelle"]})
	})

	raw, err := cli.Post(context.Background(), "annees-scolaires", map[string]string{"libelle": "2024-2025"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":9,"libelle":"2024-2025"}`, string(raw))
}

func TestClient_httpErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{name: "json message", status: http.StatusConflict, body: `{"message":"déjà validé"}`, wantMessage: "déjà validé"},
		{name: "json detail", status: http.StatusUnprocessableEntity, body: `{"detail":"date invalide"}`, wantMessage: "date invalide"},
		{name: "plain text", status: http.StatusBadRequest, body: "bad input", wantMessage: "bad input"},
		{name: "html page", status: http.StatusServiceUnavailable, body: "<html>down</html>"},
		{name: "empty", status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := cli.Get(context.Background(), "x", nil)
			require.Error(t, err)

			apiErr := Classify(err)
			assert.Equal(t, KindHTTP, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.ServerMessage)
			assert.Equal(t, "GET /x", apiErr.Op)
			assert.Equal(t, tt.status, HTTPStatus(err))
		})
	}
}

func TestClient_DeleteNotFoundIsSuccess(t *testing.T) {
	calls := 0
	cli, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodDelete, r.Method)
		if strings.HasSuffix(r.URL.Path, "/forbidden") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	assert.NoError(t, cli.Delete(context.Background(), "eleves/3/photo"))
	err := cli.Delete(context.Background(), "forbidden")
	assert.Equal(t, http.StatusForbidden, Classify(err).Status)
	assert.Equal(t, 2, calls)
}

func TestClient_timeoutAndCancel(t *testing.T) {
	release := make(chan struct{})
	cli, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	_, err := cli.Get(context.Background(), "slow", nil, 20*time.Millisecond)
	assert.Equal(t, KindTimeout, KindOf(err))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = cli.Get(ctx, "slow", nil)
	assert.Equal(t, KindCanceled, KindOf(err))
}

func TestClient_networkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	cli := New(Options{BaseURL: base}, nil)
	_, err := cli.Get(context.Background(), "eleves", nil)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(err))
}

func TestClient_UploadDownload(t *testing.T) {
	cli, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			file, header, err := r.FormFile("photo")
			if !assert.NoError(t, err) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(file)
			assert.Equal(t, "moi.png", header.Filename)
			assert.Equal(t, "PNGDATA", string(data))
			_, _ = io.WriteString(w, `{"ok":true}`)
		case http.MethodGet:
			w.Header().Set("Content-Type", "image/png")
			w.Header().Set("Content-Disposition", `attachment; filename="moi.png"`)
			_, _ = io.WriteString(w, "PNGDATA")
		}
	})

	_, err := cli.Upload(context.Background(), "eleves/1/photo", "photo", "moi.png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)

	blob, err := cli.Download(context.Background(), "eleves/1/photo")
	require.NoError(t, err)
	assert.Equal(t, "image/png", blob.ContentType)
	assert.Equal(t, "moi.png", blob.Filename)
	assert.Equal(t, []byte("PNGDATA"), blob.Data)
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantLen int
	}{
		{name: "array", raw: `[{"id":1},{"id":2}]`, wantLen: 2},
		{name: "data envelope", raw: `{"data":[{"id":1}],"total":1}`, wantLen: 1},
		{name: "content envelope", raw: `{"content":[{"id":1},{"id":2},{"id":3}]}`, wantLen: 3},
		{name: "object", raw: `{"id":1}`, wantLen: 0},
		{name: "null", raw: `null`, wantLen: 0},
		{name: "empty body", raw: ``, wantLen: 0},
		{name: "scalar", raw: `"oops"`, wantLen: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []map[string]interface{}
			require.NoError(t, DecodeList(json.RawMessage(tt.raw), &got))
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestClassify(t *testing.T) {
	vErr := core.NewValidationError(nil, core.FieldError{Field: "libelle", Error: "ce champ est obligatoire"})

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "validation", err: vErr, want: KindValidation},
		{name: "deadline", err: context.DeadlineExceeded, want: KindTimeout},
		{name: "canceled", err: context.Canceled, want: KindCanceled},
		{name: "url error", err: &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}, want: KindNetwork},
		{name: "other", err: errors.New("boom"), want: KindUnexpected},
		{name: "already classified", err: &Error{Kind: KindHTTP, Status: 404}, want: KindHTTP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err).Kind)
		})
	}
	assert.Nil(t, Classify(nil))
}

func TestMessage(t *testing.T) {
	fr := core.NewTranslator("fr")
	en := core.NewTranslator("en")

	assert.Equal(t, "Vous n'avez pas les droits pour effectuer cette action.", Message(&Error{Kind: KindHTTP, Status: 403}, fr))
	assert.Equal(t, "You are not allowed to perform this action.", Message(&Error{Kind: KindHTTP, Status: 403}, en))
	assert.Equal(t, "Cette action a déjà été effectuée. déjà validé", Message(&Error{Kind: KindHTTP, Status: 409, ServerMessage: "déjà validé"}, fr))
	assert.Equal(t, "Erreur du serveur. Veuillez réessayer plus tard.", Message(&Error{Kind: KindHTTP, Status: 502, ServerMessage: "stack trace"}, fr))
	assert.Equal(t, "Le serveur a mis trop de temps à répondre. Veuillez réessayer.", Message(context.DeadlineExceeded, fr))
	assert.Equal(t, "Unable to reach the server. Check your connection and try again.", Message(&Error{Kind: KindNetwork}, en))
	assert.Equal(t, "", Message(nil, fr))

	vErr := core.NewValidationError(nil, core.FieldError{Field: "libelle", Error: "ce champ est obligatoire"})
	assert.Equal(t, "Certains champs sont invalides. libelle: ce champ est obligatoire", Message(vErr, fr))
	assert.Equal(t, "Le serveur a mis trop de temps à répondre. Veuillez réessayer.", Message(context.DeadlineExceeded, nil))
}

func TestMessage_everyFieldError(t *testing.T) {
	vErr := core.NewValidationError(nil,
		core.FieldError{Field: "poste", Error: "this field is required"},
		core.FieldError{Field: "email", Error: "must be a valid email address"},
	)

	got := Message(vErr, core.NewTranslator("en"))
	assert.Equal(t, "Some fields are invalid. email: must be a valid email address; poste: this field is required", got)
}
