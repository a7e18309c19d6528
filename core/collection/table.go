package collection

import (
	"sort"
	"sync"
)

// Table is one stateful view over a record set. It keeps the view state within its
// invariants (page clamped, page reset on search/filter/size changes) and tracks a
// selection of row ids that survives paging.
type Table struct {
	mu       sync.RWMutex
	cfg      Config
	records  []Record
	state    State
	selected map[string]struct{}
}

// SelectionState of the visible page.
type SelectionState int

const (
	SelectionNone SelectionState = iota
	SelectionPartial
	SelectionAll
)

func NewTable(cfg Config, records []Record) *Table {
	if cfg.RowKey == "" {
		cfg.RowKey = DefaultRowKey
	}
	t := &Table{
		cfg:      cfg,
		selected: make(map[string]struct{}),
		state: State{
			Filters:  make(map[string]FilterValue),
			Page:     1,
			PageSize: cfg.pageSize(0),
		},
	}
	t.SetRecords(records)
	return t
}

func (t *Table) Config() Config { return t.cfg }

// SetRecords replaces the dataset. Selected ids that no longer exist are dropped.
func (t *Table) SetRecords(records []Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = records
	present := make(map[string]struct{}, len(records))
	for _, r := range records {
		present[r.ID(t.cfg.RowKey)] = struct{}{}
	}
	for id := range t.selected {
		if _, ok := present[id]; !ok {
			delete(t.selected, id)
		}
	}
	t.clamp()
}

func (t *Table) Records() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.records
}

// State returns a copy of the current view state.
func (t *Table) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st := t.state
	st.Filters = make(map[string]FilterValue, len(t.state.Filters))
	for k, v := range t.state.Filters {
		st.Filters[k] = v
	}
	return st
}

// clamp must be called with t.mu held.
func (t *Table) clamp() {
	total := len(Filtered(t.records, t.cfg, t.state))
	t.state.Page = ClampPage(t.state.Page, total, t.state.PageSize)
}

func (t *Table) SetSearch(term string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Search = term
	t.state.Page = 1
}

// SetFilter activates (or, with an empty value, removes) the filter on field. In
// server-side date mode a date filter change is reported through Config.OnDateRange.
func (t *Table) SetFilter(field string, value FilterValue) {
	t.mu.Lock()
	if value.IsEmpty() {
		delete(t.state.Filters, field)
	} else {
		t.state.Filters[field] = value
	}
	t.state.Page = 1

	var (
		notify func(string, DateBounds)
		bounds DateBounds
	)
	if f, ok := t.cfg.Filter(field); ok && t.cfg.ServerSideDates && isDateFilter(f) && t.cfg.OnDateRange != nil {
		notify = t.cfg.OnDateRange
		bounds, _ = NormalizeDateBounds(f, value)
	}
	t.mu.Unlock()

	// outside the lock, the callback may read the table
	if notify != nil {
		notify(field, bounds)
	}
}

// ClearFilters removes the search term and every filter.
func (t *Table) ClearFilters() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Search = ""
	t.state.Filters = make(map[string]FilterValue)
	t.state.Page = 1
}

func (t *Table) SetSort(column string, dir SortDir) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if dir == SortNone {
		column = ""
	}
	t.state.SortColumn = column
	t.state.SortDir = dir
	t.clamp()
}

// ToggleSort cycles a column through ascending, descending and unsorted.
func (t *Table) ToggleSort(column string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.state.SortColumn != column || t.state.SortDir == SortNone:
		t.state.SortColumn, t.state.SortDir = column, SortAsc
	case t.state.SortDir == SortAsc:
		t.state.SortDir = SortDesc
	default:
		t.state.SortColumn, t.state.SortDir = "", SortNone
	}
	t.clamp()
}

// SetPage moves to page, clamped into [1, maxPage].
func (t *Table) SetPage(page int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Page = page
	t.clamp()
}

func (t *Table) SetPageSize(size int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.PageSize = t.cfg.pageSize(size)
	t.state.Page = 1
}

// View returns the visible page for the current state.
func (t *Table) View() Page {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Apply(t.records, t.cfg, t.state)
}

func (t *Table) pageIDs() []string {
	page := Apply(t.records, t.cfg, t.state)
	ids := make([]string, 0, len(page.Items))
	for _, r := range page.Items {
		ids = append(ids, r.ID(t.cfg.RowKey))
	}
	return ids
}

// Toggle flips the selection of id and reports whether it is now selected.
func (t *Table) Toggle(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.selected[id]; ok {
		delete(t.selected, id)
		return false
	}
	t.selected[id] = struct{}{}
	return true
}

func (t *Table) Select(ids ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		t.selected[id] = struct{}{}
	}
}

func (t *Table) Deselect(ids ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		delete(t.selected, id)
	}
}

// SelectPage adds the ids of the visible page to the selection.
func (t *Table) SelectPage() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range t.pageIDs() {
		t.selected[id] = struct{}{}
	}
}

// DeselectPage removes only the ids of the visible page from the selection.
func (t *Table) DeselectPage() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range t.pageIDs() {
		delete(t.selected, id)
	}
}

// DeselectAll clears the whole selection, across pages.
func (t *Table) DeselectAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = make(map[string]struct{})
}

func (t *Table) IsSelected(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.selected[id]
	return ok
}

// Selected returns the selected ids, sorted.
func (t *Table) Selected() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.selected))
	for id := range t.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SelectedRecords returns the selected records in dataset order.
func (t *Table) SelectedRecords() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Record, 0, len(t.selected))
	for _, r := range t.records {
		if _, ok := t.selected[r.ID(t.cfg.RowKey)]; ok {
			out = append(out, r)
		}
	}
	return out
}

// PageSelection tells whether none, some or all rows of the visible page are selected.
func (t *Table) PageSelection() SelectionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := t.pageIDs()
	n := 0
	for _, id := range ids {
		if _, ok := t.selected[id]; ok {
			n++
		}
	}
	switch {
	case n == 0:
		return SelectionNone
	case n == len(ids):
		return SelectionAll
	default:
		return SelectionPartial
	}
}

// Record finds a record of the dataset by id.
func (t *Table) Record(id string) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, r := range t.records {
		if r.ID(t.cfg.RowKey) == id {
			return r, true
		}
	}
	return nil, false
}
