package schoolyear

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/apiclient"
	"github.com/trezcool/masomo-admin/core/cache"
	"github.com/trezcool/masomo-admin/core/fetch"
	testutil "github.com/trezcool/masomo-admin/tests"
)

func newTestService(t *testing.T) (*Service, *testutil.FakeAPI) {
	api := testutil.NewFakeAPI(t)
	api.Handle(http.MethodGet, path, http.StatusOK, []SchoolYear{
		{ID: 1, Libelle: "2023-2024", DateDebut: "2023-09-04", DateFin: "2024-07-02"},
		{ID: 2, Libelle: "2024-2025", DateDebut: "2024-09-02", DateFin: "2025-07-01", Active: true},
	})
	return NewService(api.Client(), cache.New(), core.NewValidator("en")), api
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "expected a validation error, got %v", err)
	return vErr.FieldMap()
}

func TestService_List(t *testing.T) {
	svc, api := newTestService(t)

	res := svc.List(context.Background(), false)
	require.Nil(t, res.Err)
	require.Len(t, res.Data, 2)
	assert.Equal(t, "2024-2025", res.Data[1]["libelle"])
	assert.Equal(t, time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC), res.Data[1]["dateDebut"])
	assert.Nil(t, res.Data[0]["dateCreation"])

	res = svc.List(context.Background(), false)
	assert.Equal(t, fetch.SourceCache, res.Performance.Source)
	assert.Equal(t, 1, api.Calls(http.MethodGet, path))
}

func TestService_Create(t *testing.T) {
	tests := []struct {
		name   string
		ns     NewSchoolYear
		fields []string
	}{
		{name: "missing fields", ns: NewSchoolYear{}, fields: []string{"libelle", "dateDebut", "dateFin"}},
		{name: "not consecutive", ns: NewSchoolYear{Libelle: "2024-2026", DateDebut: "2024-09-02", DateFin: "2025-07-01"}, fields: []string{"libelle"}},
		{name: "bad date", ns: NewSchoolYear{Libelle: "2024-2025", DateDebut: "02/09/2024", DateFin: "2025-07-01"}, fields: []string{"dateDebut"}},
		{name: "end before start", ns: NewSchoolYear{Libelle: "2024-2025", DateDebut: "2025-07-01", DateFin: "2024-09-02"}, fields: []string{"dateFin"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, api := newTestService(t)
			_, err := svc.Create(context.Background(), tc.ns)
			flds := fieldErrors(t, err)
			for _, f := range tc.fields {
				assert.Contains(t, flds, f)
			}
			assert.Empty(t, api.Requests(), "no request may leave on invalid input")
		})
	}

	t.Run("created", func(t *testing.T) {
		svc, api := newTestService(t)
		api.Handle(http.MethodPost, path, http.StatusCreated, SchoolYear{ID: 3, Libelle: "2025-2026", DateDebut: "2025-09-01", DateFin: "2026-07-03"})
		svc.List(context.Background(), false)

		sy, err := svc.Create(context.Background(), NewSchoolYear{Libelle: " 2025-2026 ", DateDebut: "2025-09-01", DateFin: "2026-07-03"})
		require.NoError(t, err)
		assert.Equal(t, 3, sy.ID)

		var sent map[string]string
		require.NoError(t, json.Unmarshal(api.Last().Body, &sent))
		assert.Equal(t, "2025-2026", sent["libelle"])
		assert.Equal(t, uint64(1), svc.Fetcher().RefreshTrigger())

		svc.List(context.Background(), false)
		assert.Equal(t, 2, api.Calls(http.MethodGet, path), "the list is fetched again after a mutation")
	})
}

func TestService_Update(t *testing.T) {
	svc, api := newTestService(t)
	api.Handle(http.MethodPut, path+"/2", http.StatusOK, map[string]interface{}{"data": SchoolYear{ID: 2, Libelle: "2024-2025", DateFin: "2025-07-04"}})

	sy, err := svc.Update(context.Background(), 2, UpdateSchoolYear{DateFin: "2025-07-04"})
	require.NoError(t, err)
	assert.Equal(t, "2025-07-04", sy.DateFin)
	assert.JSONEq(t, `{"dateFin":"2025-07-04"}`, string(api.Last().Body))

	_, err = svc.Update(context.Background(), 2, UpdateSchoolYear{DateDebut: "2025-09-01", DateFin: "2025-01-01"})
	assert.Contains(t, fieldErrors(t, err), "dateFin")
}

func TestService_ActivateAndDelete(t *testing.T) {
	svc, api := newTestService(t)
	api.Handle(http.MethodPut, path+"/1/activer", http.StatusOK, nil)

	require.NoError(t, svc.Activate(context.Background(), 1))
	assert.Equal(t, 1, api.Calls(http.MethodPut, path+"/1/activer"))

	// unscripted: the fake answers 404, which counts as deleted
	require.NoError(t, svc.Delete(context.Background(), 7))
	assert.Equal(t, uint64(2), svc.Fetcher().RefreshTrigger())

	api.Handle(http.MethodPut, path+"/9/activer", http.StatusConflict, map[string]string{"message": "année clôturée"})
	err := svc.Activate(context.Background(), 9)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apiclient.HTTPStatus(err))
	assert.Equal(t, uint64(2), svc.Fetcher().RefreshTrigger(), "a failed mutation changes nothing")
}

func TestGetters(t *testing.T) {
	label := Getters()["activeLabel"]
	assert.Equal(t, "Active", label(SchoolYear{Active: true}.Record()))
	assert.Equal(t, "Inactive", label(SchoolYear{}.Record()))
	assert.Equal(t, "2030-2031", Label(2030))
}
