package collection

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(n int) []Record {
	records := make([]Record, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, Record{"id": i, "nom": fmt.Sprintf("Eleve %02d", i)})
	}
	return records
}

func ids(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID(DefaultRowKey))
	}
	return out
}

func studentsFixture() ([]Record, Config) {
	records := []Record{
		{"id": 1, "nom": "DUPONT", "prenom": "Jean", "classe": "6e A", "dateCreation": "2023-12-31", "moyenne": 12.5},
		{"id": 2, "nom": "Martin", "prenom": "Alice", "classe": "5e B", "dateCreation": "2024-01-15", "moyenne": nil},
		{"id": 3, "nom": "Bernard", "prenom": "Paul", "classe": "6e A", "dateCreation": "2024-02-01", "moyenne": 15.0},
		{"id": 4, "nom": "Petit", "prenom": "Zoé", "classe": nil, "dateCreation": "2024-01-31 18:30", "moyenne": 9.75},
	}
	cfg := Config{
		Columns: []Column{
			{Name: "nomComplet", Label: "Nom", Value: ByKeys{Keys: []string{"nom", "prenom"}}, Sortable: true},
			{Name: "classe", Label: "Classe", Sortable: true},
			{Name: "moyenne", Label: "Moyenne", Sortable: true},
			{Name: "dateCreation", Label: "Créé le", Sortable: true},
		},
		Searchable: []string{"nom", "prenom"},
		Filters: []Filter{
			SelectFilter{FilterSpec: FilterSpec{Field: "classe", Label: "Classe"}, Dynamic: true},
			DateRangeFilter{FilterSpec{Field: "dateCreation", Label: "Date"}},
			TextFilter{FilterSpec{Field: "prenom", Label: "Prénom"}},
		},
	}
	return records, cfg
}

func TestApply_pagination(t *testing.T) {
	records := numbered(25)
	cfg := Config{DefaultPageSize: 10}

	tests := []struct {
		name     string
		page     int
		wantPage int
		wantIDs  []string
	}{
		{name: "first page", page: 1, wantPage: 1, wantIDs: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}},
		{name: "last partial page", page: 3, wantPage: 3, wantIDs: []string{"21", "22", "23", "24", "25"}},
		{name: "beyond last page", page: 4, wantPage: 3, wantIDs: []string{"21", "22", "23", "24", "25"}},
		{name: "below first page", page: 0, wantPage: 1, wantIDs: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Apply(records, cfg, State{Page: tt.page})
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, 3, page.MaxPage)
			assert.Equal(t, 25, page.Total)
			if diff := cmp.Diff(tt.wantIDs, ids(page.Items)); diff != "" {
				t.Errorf("Apply() ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApply_emptyDataset(t *testing.T) {
	page := Apply(nil, Config{}, State{Page: 5})
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.MaxPage)
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Items)
}

func TestPaginate_coversAllRecordsOnce(t *testing.T) {
	records, cfg := studentsFixture()
	records = append(records, numbered(40)[4:]...)
	st := State{SortColumn: "nomComplet", SortDir: SortDesc}
	full := Filtered(records, cfg, st)

	for _, size := range []int{1, 3, 7, 10, 100} {
		t.Run(fmt.Sprintf("size %d", size), func(t *testing.T) {
			var all []Record
			max := MaxPage(len(full), size)
			for p := 1; p <= max; p++ {
				st.Page, st.PageSize = p, size
				all = append(all, Apply(records, cfg, st).Items...)
			}
			if diff := cmp.Diff(ids(full), ids(all)); diff != "" {
				t.Errorf("pages mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	records, cfg := studentsFixture()

	t.Run("case insensitive single match", func(t *testing.T) {
		got := Search(records, cfg, "dupont")
		require.Len(t, got, 1)
		assert.Equal(t, "DUPONT", got[0]["nom"])
	})

	t.Run("empty term keeps everything", func(t *testing.T) {
		assert.Len(t, Search(records, cfg, "  "), len(records))
	})

	t.Run("subset containing the term", func(t *testing.T) {
		for _, term := range []string{"a", "E", "zo", "xyz", "ti"} {
			got := Search(records, cfg, term)
			assert.LessOrEqual(t, len(got), len(records))
			for _, r := range got {
				found := false
				for _, field := range cfg.Searchable {
					if strings.Contains(strings.ToLower(Stringify(r[field])), strings.ToLower(term)) {
						found = true
					}
				}
				assert.True(t, found, "record %v does not contain %q", r["id"], term)
			}
		}
	})
}

func TestApplyFilters(t *testing.T) {
	records, cfg := studentsFixture()

	tests := []struct {
		name    string
		filters map[string]FilterValue
		wantIDs []string
	}{
		{
			name:    "date range inclusive",
			filters: map[string]FilterValue{"dateCreation": {From: "2024-01-01", To: "2024-01-31"}},
			wantIDs: []string{"2", "4"},
		},
		{
			name:    "open lower bound",
			filters: map[string]FilterValue{"dateCreation": {To: "2024-01-15"}},
			wantIDs: []string{"1", "2"},
		},
		{
			name:    "select is case insensitive equality",
			filters: map[string]FilterValue{"classe": {Value: "6E a"}},
			wantIDs: []string{"1", "3"},
		},
		{
			name:    "text contains",
			filters: map[string]FilterValue{"prenom": {Value: "LI"}},
			wantIDs: []string{"2"},
		},
		{
			name: "filters combine",
			filters: map[string]FilterValue{
				"classe":       {Value: "6e A"},
				"dateCreation": {From: "2024-01-01"},
			},
			wantIDs: []string{"3"},
		},
		{
			name:    "empty values are ignored",
			filters: map[string]FilterValue{"classe": {}, "prenom": {Value: " "}},
			wantIDs: []string{"1", "2", "3", "4"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyFilters(records, cfg, tt.filters)
			if diff := cmp.Diff(tt.wantIDs, ids(got)); diff != "" {
				t.Errorf("ApplyFilters() mismatch (-want +got):\n%s", diff)
			}
			again := ApplyFilters(records, cfg, tt.filters)
			assert.Equal(t, ids(got), ids(again))
		})
	}
}

func TestApplyFilters_idempotent(t *testing.T) {
	records, cfg := studentsFixture()
	before := make([]Record, 0, len(records))
	for _, r := range records {
		cp := make(Record, len(r))
		for k, v := range r {
			cp[k] = v
		}
		before = append(before, cp)
	}

	filters := []map[string]FilterValue{
		{"dateCreation": {From: "2024-01-01", To: "2024-01-31"}},
		{"classe": {Value: "6e a"}, "prenom": {Value: "p"}},
		{"prenom": {Value: "zo"}},
		{},
	}
	for i, f := range filters {
		t.Run(fmt.Sprintf("filters #%d", i), func(t *testing.T) {
			once := ApplyFilters(records, cfg, f)
			twice := ApplyFilters(once, cfg, f)
			if diff := cmp.Diff(once, twice); diff != "" {
				t.Errorf("ApplyFilters() not idempotent (-once +twice):\n%s", diff)
			}
			if diff := cmp.Diff(before, records); diff != "" {
				t.Errorf("ApplyFilters() changed its input (-before +after):\n%s", diff)
			}
		})
	}
}

func TestApplyFilters_dateRangeScenario(t *testing.T) {
	records := []Record{
		{"id": "a", "dateCreation": "2023-12-31"},
		{"id": "b", "dateCreation": "2024-01-15"},
		{"id": "c", "dateCreation": "2024-02-01"},
	}
	cfg := Config{Filters: []Filter{DateRangeFilter{FilterSpec{Field: "dateCreation"}}}}

	got := ApplyFilters(records, cfg, map[string]FilterValue{
		"dateCreation": {From: "2024-01-01", To: "2024-01-31"},
	})
	assert.Equal(t, []string{"b"}, ids(got))

	cfg.ServerSideDates = true
	got = ApplyFilters(records, cfg, map[string]FilterValue{
		"dateCreation": {From: "2024-01-01", To: "2024-01-31"},
	})
	assert.Len(t, got, 3)
}

func TestApplyFilters_sameDay(t *testing.T) {
	records := []Record{
		{"id": 1, "envoye": time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)},
		{"id": 2, "envoye": time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"id": 3, "envoye": nil},
	}
	cfg := Config{Filters: []Filter{DateFilter{FilterSpec{Field: "envoye"}}}}
	got := ApplyFilters(records, cfg, map[string]FilterValue{"envoye": {Value: "2024-03-10"}})
	assert.Equal(t, []string{"1"}, ids(got))
}

func TestSortRecords(t *testing.T) {
	records, cfg := studentsFixture()

	t.Run("nil values last in both directions", func(t *testing.T) {
		asc := SortRecords(records, cfg.Columns, "moyenne", SortAsc)
		desc := SortRecords(records, cfg.Columns, "moyenne", SortDesc)
		assert.Equal(t, []string{"4", "1", "3", "2"}, ids(asc))
		assert.Equal(t, []string{"3", "1", "4", "2"}, ids(desc))
	})

	t.Run("reverse without ties", func(t *testing.T) {
		asc := ids(SortRecords(records, cfg.Columns, "nomComplet", SortAsc))
		desc := ids(SortRecords(records, cfg.Columns, "nomComplet", SortDesc))
		for i, j := 0, len(desc)-1; i < j; i, j = i+1, j-1 {
			desc[i], desc[j] = desc[j], desc[i]
		}
		assert.Equal(t, asc, desc)
		assert.Equal(t, []string{"3", "1", "2", "4"}, asc)
	})

	t.Run("stable on ties", func(t *testing.T) {
		got := SortRecords(records, cfg.Columns, "classe", SortAsc)
		assert.Equal(t, []string{"2", "1", "3", "4"}, ids(got))
	})

	t.Run("no column keeps order", func(t *testing.T) {
		got := SortRecords(records, cfg.Columns, "", SortAsc)
		assert.Equal(t, ids(records), ids(got))
	})

	t.Run("input untouched", func(t *testing.T) {
		before := ids(records)
		_ = SortRecords(records, cfg.Columns, "nomComplet", SortDesc)
		assert.Equal(t, before, ids(records))
	})
}

func TestCompare(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	tests := []struct {
		name string
		a, b interface{}
		want int
	}{
		{name: "times", a: early, b: late, want: -1},
		{name: "strings ignore case", a: "abc", b: "ABC", want: 0},
		{name: "strings", a: "b", b: "A", want: 1},
		{name: "ints", a: 2, b: 10, want: -1},
		{name: "int vs float", a: 2, b: 1.5, want: 1},
		{name: "decimals", a: decimal.RequireFromString("1500.50"), b: decimal.RequireFromString("1500.5"), want: 0},
		{name: "bools", a: false, b: true, want: -1},
		{name: "mixed falls back to text", a: "10", b: 9, want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestParseOrdering(t *testing.T) {
	field, dir := ParseOrdering("-dateCreation")
	assert.Equal(t, "dateCreation", field)
	assert.Equal(t, SortDesc, dir)

	field, dir = ParseOrdering("nom")
	assert.Equal(t, "nom", field)
	assert.Equal(t, SortAsc, dir)

	assert.Equal(t, "-nom", FormatOrdering("nom", SortDesc))
	assert.Equal(t, "", FormatOrdering("nom", SortNone))
}

func TestDynamicOptions(t *testing.T) {
	records, cfg := studentsFixture()
	cfg.Filters = append(cfg.Filters, SelectFilter{
		FilterSpec: FilterSpec{Field: "statut"},
		Options:    []Option{{Value: "VALIDE", Label: "Validé"}},
	})

	// options come from the full dataset whatever the active filters
	opts := DynamicOptions(records, cfg)
	assert.Equal(t, []Option{{Value: "5e B", Label: "5e B"}, {Value: "6e A", Label: "6e A"}}, opts["classe"])
	assert.Equal(t, []Option{{Value: "VALIDE", Label: "Validé"}}, opts["statut"])
	assert.NotContains(t, opts, "dateCreation")
}

func TestColumnResolvers(t *testing.T) {
	r := Record{"nom": "Kabila", "prenom": "", "postnom": "Mwamba", "classe": map[string]interface{}{"nom": "6e A"}}

	tests := []struct {
		name string
		col  Column
		want interface{}
	}{
		{name: "by own name", col: Column{Name: "nom"}, want: "Kabila"},
		{name: "by key", col: Column{Name: "x", Value: ByKey("postnom")}, want: "Mwamba"},
		{name: "dotted key", col: Column{Name: "x", Value: ByKey("classe.nom")}, want: "6e A"},
		{name: "missing key", col: Column{Name: "x", Value: ByKey("absent.nom")}, want: nil},
		{name: "by keys skips empty", col: Column{Name: "x", Value: ByKeys{Keys: []string{"nom", "prenom", "postnom"}}}, want: "Kabila Mwamba"},
		{name: "by keys custom sep", col: Column{Name: "x", Value: ByKeys{Keys: []string{"nom", "postnom"}, Sep: ", "}}, want: "Kabila, Mwamba"},
		{name: "by keys none", col: Column{Name: "x", Value: ByKeys{}}, want: nil},
		{name: "by getter", col: Column{Name: "x", Value: ByGetter(func(r Record) interface{} { return len(r) })}, want: 4},
		{name: "panicking getter", col: Column{Name: "x", Value: ByGetter(func(r Record) interface{} { return r["classe"].(string) })}, want: nil},
		{name: "nil getter", col: Column{Name: "x", Value: ByGetter(nil)}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.col.Resolve(r))
		})
	}
}

func TestNormalizeDateBounds(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		value  FilterValue
		want   DateBounds
		wantOK bool
	}{
		{
			name:   "range of days",
			filter: DateRangeFilter{FilterSpec{Field: "d"}},
			value:  FilterValue{From: "2024-01-01", To: "2024-01-31"},
			want:   DateBounds{Begin: "2024-01-01 00:00:00", End: "2024-01-31 23:59:59"},
			wantOK: true,
		},
		{
			name:   "open upper bound",
			filter: DateRangeFilter{FilterSpec{Field: "d"}},
			value:  FilterValue{From: "15/01/2024"},
			want:   DateBounds{Begin: "2024-01-15 00:00:00"},
			wantOK: true,
		},
		{
			name:   "single day",
			filter: DateFilter{FilterSpec{Field: "d"}},
			value:  FilterValue{Value: "2024-03-10"},
			want:   DateBounds{Begin: "2024-03-10 00:00:00", End: "2024-03-10 23:59:59"},
			wantOK: true,
		},
		{
			name:   "garbage",
			filter: DateFilter{FilterSpec{Field: "d"}},
			value:  FilterValue{Value: "demain"},
		},
		{
			name:   "not a date filter",
			filter: TextFilter{FilterSpec{Field: "d"}},
			value:  FilterValue{Value: "2024-03-10"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDateBounds(tt.filter, tt.value)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringify(t *testing.T) {
	at := time.Date(2024, 5, 2, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "2024-05-02 14:30", Stringify(at))
	assert.Equal(t, "2024-05-02", Stringify(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "1500.5", Stringify(decimal.RequireFromString("1500.50")))
	assert.Equal(t, "3", Stringify(float64(3)))
	assert.Equal(t, "a, b", Stringify([]interface{}{"a", nil, "b"}))
}
