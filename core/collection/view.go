package collection

import (
	"sort"
	"strings"
)

const DefaultPageSize = 10

type (
	// Config is the declarative description of one view.
	Config struct {
		RowKey     string
		Columns    []Column
		Searchable []string
		Filters    []Filter
		Actions    []ActionSpec
		// ServerSideDates delegates date filters to the backend: they never filter
		// locally and changes are reported through Table's date callback instead.
		ServerSideDates bool
		// OnDateRange receives the normalized bounds whenever a date filter changes in server-side mode.
		OnDateRange     func(field string, bounds DateBounds)
		DefaultPageSize int
	}

	// State is the ephemeral search/filter/sort/page state of one view.
	State struct {
		Search     string                 `json:"search"`
		Filters    map[string]FilterValue `json:"filters"`
		SortColumn string                 `json:"sort_column"`
		SortDir    SortDir                `json:"sort_dir"`
		Page       int                    `json:"page"`
		PageSize   int                    `json:"page_size"`
	}

	// Page is one slice of the filtered and sorted records.
	Page struct {
		Items    []Record `json:"items"`
		Total    int      `json:"total"`
		Page     int      `json:"page"`
		PageSize int      `json:"page_size"`
		MaxPage  int      `json:"max_page"`
	}
)

func (cfg Config) pageSize(size int) int {
	if size > 0 {
		return size
	}
	if cfg.DefaultPageSize > 0 {
		return cfg.DefaultPageSize
	}
	return DefaultPageSize
}

// Filter returns the filter declared for field.
func (cfg Config) Filter(field string) (Filter, bool) {
	for _, f := range cfg.Filters {
		if f != nil && f.Spec().Field == field {
			return f, true
		}
	}
	return nil, false
}

// Search keeps the records where at least one searchable field contains term, ignoring case.
func Search(records []Record, cfg Config, term string) []Record {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return records
	}
	resolvers := make([]Resolver, 0, len(cfg.Searchable))
	for _, field := range cfg.Searchable {
		resolvers = append(resolvers, resolverFor(cfg.Columns, field))
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		for _, res := range resolvers {
			if strings.Contains(strings.ToLower(Stringify(res.resolve(r))), term) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// ApplyFilters keeps the records matching every non-empty active filter.
// Values for fields without a declared filter are compared as text.
func ApplyFilters(records []Record, cfg Config, active map[string]FilterValue) []Record {
	type check struct {
		filter Filter
		value  FilterValue
		res    Resolver
	}
	checks := make([]check, 0, len(active))
	for field, fv := range active {
		if fv.IsEmpty() {
			continue
		}
		f, ok := cfg.Filter(field)
		if !ok {
			f = TextFilter{FilterSpec{Field: field}}
		}
		checks = append(checks, check{filter: f, value: fv, res: resolverFor(cfg.Columns, field)})
	}
	if len(checks) == 0 {
		return records
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		keep := true
		for _, c := range checks {
			if !matchFilter(c.filter, c.value, c.res.resolve(r), cfg.ServerSideDates) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}

// MaxPage is the number of pages needed for total records; at least 1.
func MaxPage(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// ClampPage moves page into [1, MaxPage(total, pageSize)].
func ClampPage(page, total, pageSize int) int {
	if page < 1 {
		return 1
	}
	if max := MaxPage(total, pageSize); page > max {
		return max
	}
	return page
}

// Paginate slices [(page-1)*pageSize, page*pageSize) out of records, clamping page first.
func Paginate(records []Record, page, pageSize int) Page {
	total := len(records)
	page = ClampPage(page, total, pageSize)
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	items := make([]Record, end-start)
	copy(items, records[start:end])
	return Page{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		MaxPage:  MaxPage(total, pageSize),
	}
}

// Filtered runs search, attribute filters and sort; the result is every record of the view.
func Filtered(records []Record, cfg Config, st State) []Record {
	out := Search(records, cfg, st.Search)
	out = ApplyFilters(out, cfg, st.Filters)
	return SortRecords(out, cfg.Columns, st.SortColumn, st.SortDir)
}

// Apply derives the visible page of records for st. It is a pure function of its inputs.
func Apply(records []Record, cfg Config, st State) Page {
	return Paginate(Filtered(records, cfg, st), st.Page, cfg.pageSize(st.PageSize))
}

// DynamicOptions lists the options of every select filter. Dynamic filters use the
// distinct non-empty values of the full dataset, so lists do not shrink while filtering.
func DynamicOptions(records []Record, cfg Config) map[string][]Option {
	opts := make(map[string][]Option)
	for _, f := range cfg.Filters {
		var sf SelectFilter
		switch flt := f.(type) {
		case SelectFilter:
			sf = flt
		case *SelectFilter:
			if flt == nil {
				continue
			}
			sf = *flt
		default:
			continue
		}
		if !sf.Dynamic {
			opts[sf.Field] = sf.Options
			continue
		}
		opts[sf.Field] = DistinctValues(records, resolverFor(cfg.Columns, sf.Field))
	}
	return opts
}

// DistinctValues collects the distinct non-empty values read by res, sorted case-insensitively.
func DistinctValues(records []Record, res Resolver) []Option {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, r := range records {
		s := Stringify(res.resolve(r))
		if strings.TrimSpace(s) == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		values = append(values, s)
	}
	sort.SliceStable(values, func(i, j int) bool {
		return strings.ToLower(values[i]) < strings.ToLower(values[j])
	})

	opts := make([]Option, 0, len(values))
	for _, v := range values {
		opts = append(opts, Option{Value: v, Label: v})
	}
	return opts
}
