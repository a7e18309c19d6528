package main

import (
	"context"
	"io"
	"strings"

	"github.com/trezcool/masomo-admin/apps"
	"github.com/trezcool/masomo-admin/apps/shared"
	"github.com/trezcool/masomo-admin/core/collection"
	"github.com/trezcool/masomo-admin/core/fetch"
	"github.com/trezcool/masomo-admin/core/screen"
)

const (
	cellMaxWidth = 40
	rangeSep     = ".."
)

// screenView is one screen loaded into a collection table.
type screenView struct {
	scr    screen.Screen
	src    shared.Source
	tbl    *collection.Table
	params map[string]string
	cards  bool
	source fetch.Source

	// set while a date filter change awaits the next fetch
	datesChanged bool
}

func newScreenView(scr screen.Screen, src shared.Source) *screenView {
	v := &screenView{scr: scr, src: src, params: scr.EntityParams(nil)}
	cfg := scr.Config()
	cfg.OnDateRange = func(_ string, b collection.DateBounds) {
		v.setBounds(b)
	}
	v.tbl = collection.NewTable(cfg, nil)
	return v
}

func (v *screenView) setBounds(b collection.DateBounds) {
	if v.params[shared.DateBeginParam] == b.Begin && v.params[shared.DateEndParam] == b.End {
		return
	}
	setParam(v.params, shared.DateBeginParam, b.Begin)
	setParam(v.params, shared.DateEndParam, b.End)
	v.datesChanged = true
}

func setParam(params map[string]string, key, value string) {
	if value == "" {
		delete(params, key)
		return
	}
	params[key] = value
}

// fetch loads the records for the current entity parameters.
func (v *screenView) fetch(ctx context.Context, refresh bool) error {
	res := v.src.List(ctx, v.params, refresh)
	if res.Err != nil {
		return res.Err
	}
	v.datesChanged = false
	v.source = res.Performance.Source
	v.tbl.SetRecords(res.Data)
	return nil
}

// refetchDates fetches again when a server-side date filter changed.
func (v *screenView) refetchDates(ctx context.Context) error {
	if !v.datesChanged {
		return nil
	}
	return v.fetch(ctx, false)
}

// setFilter parses "value" or, for date ranges, "from..to" (either side may be empty).
func (v *screenView) setFilter(field, raw string) error {
	f, ok := v.tbl.Config().Filter(field)
	if !ok {
		return apps.NewArgumentError("unknown filter %q (valid: %s)", field, strings.Join(v.filterFields(), ", "))
	}
	raw = strings.TrimSpace(raw)
	var fv collection.FilterValue
	if f.Type() == collection.FilterDateRange {
		from, to := raw, ""
		if i := strings.Index(raw, rangeSep); i >= 0 {
			from, to = raw[:i], raw[i+len(rangeSep):]
		}
		fv.From, fv.To = strings.TrimSpace(from), strings.TrimSpace(to)
	} else {
		fv.Value = raw
	}
	v.tbl.SetFilter(field, fv)
	return nil
}

func (v *screenView) filterFields() []string {
	var fields []string
	for _, f := range v.tbl.Config().Filters {
		if f != nil {
			fields = append(fields, f.Spec().Field)
		}
	}
	return fields
}

// setSort reads "field" or "-field"; only sortable columns are accepted.
func (v *screenView) setSort(ordering string) error {
	field, dir := collection.ParseOrdering(ordering)
	if field == "" {
		v.tbl.SetSort("", collection.SortNone)
		return nil
	}
	if !v.scr.Sortable(field) {
		return apps.NewArgumentError("column %q is not sortable", field)
	}
	v.tbl.SetSort(field, dir)
	return nil
}

func (v *screenView) render(w io.Writer, selection bool) error {
	cfg := v.tbl.Config()
	opts := collection.RenderOptions{RowKey: cfg.RowKey, MaxWidth: cellMaxWidth}
	if selection {
		opts.IsSelected = v.tbl.IsSelected
	}
	if v.cards {
		return collection.RenderCards(w, v.tbl.View(), cfg.Columns, opts)
	}
	return collection.RenderRows(w, v.tbl.View(), cfg.Columns, opts)
}
