package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core/collection"
	appfs "github.com/trezcool/masomo-admin/fs"
)

func TestLoad_embeddedScreens(t *testing.T) {
	data, err := appfs.FS.ReadFile(appfs.ScreensFile)
	require.NoError(t, err)

	reg, err := Load(data, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"annees-scolaires", "eleves", "inscriptions", "messages", "offres", "recrutements"}, reg.Names())

	s, ok := reg.Get("inscriptions")
	require.True(t, ok)
	assert.Equal(t, "students", s.Entity)
	assert.Equal(t, map[string]string{"statut": "INSCRIPTION"}, s.EntityParams(nil))
	assert.Equal(t, map[string]string{"statut": "REJETE"}, s.EntityParams(map[string]string{"statut": "REJETE", "other": "x"}))

	cfg := s.Config()
	assert.Equal(t, 10, cfg.DefaultPageSize)
	require.Len(t, cfg.Filters, 2)
	assert.Equal(t, collection.FilterSelect, cfg.Filters[0].Type())
	assert.Equal(t, collection.FilterDateRange, cfg.Filters[1].Type())

	rec := collection.Record{"nom": "KABILA", "postnom": "", "prenom": "Joseph"}
	assert.Equal(t, "KABILA Joseph", cfg.Columns[1].Resolve(rec))

	action, ok := cfg.Action("validate")
	require.True(t, ok)
	assert.True(t, action.Confirm)

	rs, _ := reg.Get("recrutements")
	assert.True(t, rs.Config().ServerSideDates)
}

func TestLoad_getters(t *testing.T) {
	data := []byte(`
screens:
  - name: demo
    entity: demo
    columns:
      - {name: double, getter: double}
      - {name: unknown, getter: nope}
      - {name: alias, key: nested.value}
`)
	getters := map[string]collection.Getter{
		"double": func(r collection.Record) interface{} { return r["n"].(int) * 2 },
	}
	reg, err := Load(data, getters)
	require.NoError(t, err)

	s, _ := reg.Get("demo")
	cols := s.Config().Columns
	rec := collection.Record{"n": 21, "nested": map[string]interface{}{"value": "ok"}}
	assert.Equal(t, 42, cols[0].Resolve(rec))
	assert.Nil(t, cols[1].Resolve(rec))
	assert.Equal(t, "ok", cols[2].Resolve(rec))
	assert.Equal(t, "double", cols[0].Label)
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "bad yaml", data: "screens: [\n"},
		{name: "missing columns", data: "screens:\n  - {name: a, entity: e}\n"},
		{name: "bad filter type", data: "screens:\n  - name: a\n    entity: e\n    columns: [{name: x}]\n    filters: [{field: x, type: range}]\n"},
		{name: "duplicate", data: "screens:\n  - {name: a, entity: e, columns: [{name: x}]}\n  - {name: a, entity: e, columns: [{name: x}]}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data), nil)
			assert.Error(t, err)
		})
	}
}
