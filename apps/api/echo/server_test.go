package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/masomo-admin/apps/api/echo"
	echodev "github.com/trezcool/masomo-admin/apps/devapi/echo"
	"github.com/trezcool/masomo-admin/apps/shared"
	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/apiclient"
	"github.com/trezcool/masomo-admin/core/fetch"
	"github.com/trezcool/masomo-admin/core/user"
	inmemdb "github.com/trezcool/masomo-admin/storage/inmem"
	testutil "github.com/trezcool/masomo-admin/tests"
)

const (
	adminPassword = "admin-pass"
	contentType   = "Content-Type"
)

type fixture struct {
	app    *echoapi.Server
	remote *apiclient.Client
	mailer *testutil.Mailer
	conf   *core.Config
	token  string
}

func testConfig() *core.Config {
	conf := &core.Config{
		AppName:   "Masomo Admin",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "test-secret",
		Lang:      "fr",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Cache: core.CacheConfig{TTL: 5 * time.Minute, MaxEntries: 200},
	}
	conf.SetDefaultFromEmail("Masomo <noreply@masomo.cd>")
	return conf
}

func setup(t *testing.T, configure ...func(*core.Config)) *fixture {
	t.Helper()

	db := inmemdb.Open()
	require.NoError(t, inmemdb.Seed(db, adminPassword))
	backend := httptest.NewServer(echodev.NewServer(db, echodev.Options{Token: "dev-token", DisableReqLogs: true}))
	t.Cleanup(backend.Close)

	conf := testConfig()
	for _, fn := range configure {
		fn(conf)
	}
	remote := apiclient.New(apiclient.Options{BaseURL: backend.URL + "/api", Token: "dev-token", ShortTimeout: 2 * time.Second}, nil)
	mailer := new(testutil.Mailer)
	svcs, err := shared.NewServices(conf, remote, mailer, nil)
	require.NoError(t, err)

	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Validator:      svcs.Validator,
		Cache:          svcs.Cache,
		Screens:        svcs.Screens,
		UserSvc:        svcs.Users,
		SchoolYearSvc:  svcs.SchoolYears,
		StudentSvc:     svcs.Students,
		OfferSvc:       svcs.Offers,
		RecruitmentSvc: svcs.Recruitments,
		MessageSvc:     svcs.Messages,
		DisableReqLogs: true,
	})

	admin := user.User{ID: 1, Username: "admin", Email: "admin@masomo.cd", IsActive: true, Roles: []string{user.RoleAdminOwner}}
	token, err := echoapi.GenerateToken(echoapi.NewClaims(admin, conf), conf.SecretKey)
	require.NoError(t, err)

	return &fixture{app: app, remote: remote, mailer: mailer, conf: conf, token: token}
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(contentType, "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.app.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) view(t *testing.T, path string) echoapi.ScreenView {
	t.Helper()
	rec := f.do(t, http.MethodGet, path, f.token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sv echoapi.ScreenView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sv))
	return sv
}

func TestHome(t *testing.T) {
	f := setup(t)
	rec := f.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Masomo Admin!", rec.Body.String())
}

func TestAuth(t *testing.T) {
	f := setup(t)

	teacher := user.User{ID: 7, Username: "prof", IsActive: true, Roles: []string{user.RoleTeacher}}
	teacherToken, err := echoapi.GenerateToken(echoapi.NewClaims(teacher, f.conf), f.conf.SecretKey)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "login ok", method: http.MethodPost, path: "/v1/auth/login", body: user.Credentials{Username: "Admin", Password: adminPassword}, wantCode: http.StatusOK},
		{name: "bad password", method: http.MethodPost, path: "/v1/auth/login", body: user.Credentials{Username: "admin", Password: "nope"}, wantCode: http.StatusBadRequest},
		{name: "blank username", method: http.MethodPost, path: "/v1/auth/login", body: user.Credentials{Username: " ", Password: "x"}, wantCode: http.StatusBadRequest},
		{name: "no token", method: http.MethodGet, path: "/v1/screens", wantCode: http.StatusUnauthorized},
		{name: "forged token", method: http.MethodGet, path: "/v1/screens", token: "abc.def.ghi", wantCode: http.StatusUnauthorized},
		{name: "not an admin", method: http.MethodGet, path: "/v1/screens", token: teacherToken, wantCode: http.StatusForbidden},
		{name: "admin", method: http.MethodGet, path: "/v1/screens", token: f.token, wantCode: http.StatusOK},
		{name: "refresh", method: http.MethodPost, path: "/v1/auth/token-refresh", token: f.token, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	t.Run("login token opens the dashboard", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/auth/login", "", user.Credentials{Username: "admin@masomo.cd", Password: adminPassword})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp echoapi.LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "admin", resp.User.Username)

		rec = f.do(t, http.MethodGet, "/v1/screens", resp.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var screens []map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &screens))
		assert.Len(t, screens, 6)
	})
}

func TestViewScreen(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name      string
		path      string
		wantTotal int
		check     func(t *testing.T, sv echoapi.ScreenView)
	}{
		{
			name: "screen params", path: "/v1/screens/eleves", wantTotal: 2,
			check: func(t *testing.T, sv echoapi.ScreenView) {
				assert.Equal(t, 1, sv.Page.Page)
				assert.Equal(t, 20, sv.PageSize)
			},
		},
		{
			name: "search", path: "/v1/screens/inscriptions?search=GRACE", wantTotal: 1,
			check: func(t *testing.T, sv echoapi.ScreenView) {
				assert.Equal(t, "MS-0002", sv.Items[0]["matricule"])
				assert.Equal(t, "Non assignée", sv.Items[0]["classe"])
			},
		},
		{
			name: "sort desc", path: "/v1/screens/eleves?sort=-matricule", wantTotal: 2,
			check: func(t *testing.T, sv echoapi.ScreenView) {
				assert.Equal(t, "-matricule", sv.Sort)
				assert.Equal(t, "MS-0003", sv.Items[0]["matricule"])
			},
		},
		{
			name: "sort with explicit direction", path: "/v1/screens/eleves?sort=matricule&dir=DESC", wantTotal: 2,
			check: func(t *testing.T, sv echoapi.ScreenView) {
				assert.Equal(t, "-matricule", sv.Sort)
				assert.Equal(t, "MS-0003", sv.Items[0]["matricule"])
			},
		},
		{
			name: "direction none drops the sort", path: "/v1/screens/eleves?sort=-matricule&dir=none", wantTotal: 2,
			check: func(t *testing.T, sv echoapi.ScreenView) {
				assert.Empty(t, sv.Sort)
			},
		},
		{
			name: "unsortable column is ignored", path: "/v1/screens/eleves?sort=telephone", wantTotal: 2,
			check: func(t *testing.T, sv echoapi.ScreenView) {
				assert.Empty(t, sv.Sort)
			},
		},
		{
			name: "page is clamped", path: "/v1/screens/eleves?page=9&page_size=1", wantTotal: 2,
			check: func(t *testing.T, sv echoapi.ScreenView) {
				assert.Equal(t, 2, sv.Page.Page)
				assert.Equal(t, 2, sv.MaxPage)
				assert.Len(t, sv.Items, 1)
			},
		},
		{
			name: "select filter", path: "/v1/screens/eleves?sexe=m", wantTotal: 2,
		},
		{
			name: "dynamic options", path: "/v1/screens/offres?statut=OUVERTE", wantTotal: 2,
			check: func(t *testing.T, sv echoapi.ScreenView) {
				require.Len(t, sv.Options["lieu"], 1)
				assert.Equal(t, "Kinshasa", sv.Options["lieu"][0].Value)
				assert.Len(t, sv.Options["statut"], 2)
			},
		},
		{
			name: "entity param override", path: "/v1/screens/offres?type=STAGE", wantTotal: 1,
		},
		{
			name: "server side dates", path: "/v1/screens/recrutements?dateCandidature_from=2024-09-01&dateCandidature_to=2024-09-30", wantTotal: 2,
			check: func(t *testing.T, sv echoapi.ScreenView) {
				require.NotNil(t, sv.DateBounds)
				assert.Equal(t, "2024-09-01 00:00:00", sv.DateBounds.Begin)
				assert.Equal(t, "2024-09-30 23:59:59", sv.DateBounds.End)
			},
		},
		{
			name: "getter filter", path: "/v1/screens/messages?etat=Non+lu", wantTotal: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sv := f.view(t, tt.path)
			assert.Equal(t, tt.wantTotal, sv.Total)
			if tt.check != nil {
				tt.check(t, sv)
			}
		})
	}

	t.Run("unknown screen", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/screens/nope", f.token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("cache first", func(t *testing.T) {
		assert.Equal(t, fetch.SourceCache, f.view(t, "/v1/screens/eleves").Source)
		assert.Equal(t, fetch.SourceNetwork, f.view(t, "/v1/screens/eleves?refresh=true").Source)

		rec := f.do(t, http.MethodDelete, "/v1/cache", f.token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		sv := f.view(t, "/v1/screens/eleves")
		assert.Equal(t, fetch.SourceNetwork, sv.Source)
		assert.Equal(t, uint64(1), sv.RefreshTrigger, "clearing everything invalidates every entity")

		rec = f.do(t, http.MethodDelete, "/v1/cache?prefix=students", f.token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		sv = f.view(t, "/v1/screens/eleves")
		assert.Equal(t, fetch.SourceNetwork, sv.Source)
		assert.Equal(t, uint64(2), sv.RefreshTrigger)
	})
}

func TestActions(t *testing.T) {
	f := setup(t)

	t.Run("confirmation required", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, "/v1/students/5", f.token, nil)
		assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
		assert.Contains(t, rec.Body.String(), "Veuillez confirmer l'action « delete » en la renvoyant avec confirm=true.")

		_, err := f.remote.Get(context.Background(), "eleves/5", nil)
		assert.NoError(t, err, "nothing was sent")
	})

	tests := []httpTest{
		{name: "validate", method: http.MethodPut, path: "/v1/students/2/validate?confirm=true", wantCode: http.StatusNoContent},
		{name: "validate twice", method: http.MethodPut, path: "/v1/students/2/validate?confirm=true", wantCode: http.StatusConflict},
		{name: "reject without reason", method: http.MethodPut, path: "/v1/students/4/reject?confirm=true", body: map[string]string{}, wantCode: http.StatusBadRequest},
		{name: "reject", method: http.MethodPut, path: "/v1/students/4/reject?confirm=true", body: map[string]string{"motif": "Dossier incomplet"}, wantCode: http.StatusNoContent},
		{name: "delete", method: http.MethodDelete, path: "/v1/students/5?confirm=true", wantCode: http.StatusNoContent},
		{name: "delete missing", method: http.MethodDelete, path: "/v1/students/5?confirm=true", wantCode: http.StatusNoContent},
		{name: "unknown student", method: http.MethodGet, path: "/v1/students/99", wantCode: http.StatusNotFound},
		{name: "bad id", method: http.MethodGet, path: "/v1/students/abc", wantCode: http.StatusNotFound},
		{name: "invalid school year", method: http.MethodPost, path: "/v1/schoolyears", body: map[string]string{"libelle": "2024"}, wantCode: http.StatusBadRequest},
		{name: "create school year", method: http.MethodPost, path: "/v1/schoolyears", body: map[string]string{"libelle": "2025-2026", "dateDebut": "2025-09-01", "dateFin": "2026-07-03"}, wantCode: http.StatusCreated},
		{name: "activate", method: http.MethodPut, path: "/v1/schoolyears/3/activate?confirm=true", wantCode: http.StatusNoContent},
		{name: "close offer", method: http.MethodPut, path: "/v1/offers/1/close?confirm=true", wantCode: http.StatusNoContent},
		{name: "accept", method: http.MethodPut, path: "/v1/recruitments/1/accept?confirm=true", wantCode: http.StatusOK},
		{name: "reject accepted", method: http.MethodPut, path: "/v1/recruitments/1/reject?confirm=true", body: map[string]string{"motif": "Poste pourvu"}, wantCode: http.StatusConflict},
		{name: "reply", method: http.MethodPost, path: "/v1/messages/2/reply", body: map[string]string{"contenu": "Les cours commencent à 7h30."}, wantCode: http.StatusNoContent},
		{name: "empty reply", method: http.MethodPost, path: "/v1/messages/2/reply", body: map[string]string{"contenu": " "}, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, f.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	t.Run("screens reflect the changes", func(t *testing.T) {
		assert.Equal(t, 0, f.view(t, "/v1/screens/inscriptions").Total)
		assert.Equal(t, 3, f.view(t, "/v1/screens/eleves").Total)
		assert.Equal(t, 1, f.view(t, "/v1/screens/offres?statut=OUVERTE").Total)
		assert.Equal(t, 1, f.view(t, "/v1/screens/annees-scolaires?etat=Active").Total)
	})

	t.Run("emails", func(t *testing.T) {
		sent := f.mailer.Messages()
		require.Len(t, sent, 2)
		assert.Equal(t, "sarah.ilunga@example.com", sent[0].To[0].Address)
		assert.Equal(t, "anonyme@example.com", sent[1].To[0].Address)
	})

	t.Run("opening a message marks it read", func(t *testing.T) {
		require.Equal(t, 1, f.view(t, "/v1/screens/messages?etat=Non+lu").Total)
		rec := f.do(t, http.MethodGet, "/v1/messages/1", f.token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"lu":true`)
		assert.Equal(t, 0, f.view(t, "/v1/screens/messages?etat=Non+lu").Total)
	})
}

func TestStudentPhoto(t *testing.T) {
	f := setup(t)
	png := []byte("\x89PNG\r\n\x1a\n0000")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", "amani.png")
	require.NoError(t, err)
	_, err = fw.Write(png)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/students/1/photo", &buf)
	req.Header.Set(contentType, mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+f.token)
	rec := httptest.NewRecorder()
	f.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/v1/students/1/photo", f.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(contentType))
	assert.Equal(t, png, rec.Body.Bytes())

	rec = f.do(t, http.MethodPost, "/v1/students/1/photo", f.token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no file")
	assert.Contains(t, rec.Body.String(), "aucune photo n'a été envoyée")

	rec = f.do(t, http.MethodDelete, "/v1/students/1/photo?confirm=true", f.token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodGet, "/v1/students/1/photo", f.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	f := setup(t, func(conf *core.Config) {
		conf.Server.RateLimit = 0.01
		conf.Server.RateBurst = 2
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, f.do(t, http.MethodGet, "/v1/screens", f.token, nil).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	rec := f.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "only the API is limited")
}
