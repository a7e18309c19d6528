package collection

import (
	"strings"
	"time"
)

type FilterType string

const (
	FilterText      FilterType = "text"
	FilterSelect    FilterType = "select"
	FilterDate      FilterType = "date"
	FilterDateRange FilterType = "dateRange"
)

// DateTimeLayout is the layout of DateBounds values.
const DateTimeLayout = "2006-01-02 15:04:05"

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	DateTimeLayout,
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
}

type (
	// FilterSpec is shared by every filter variant.
	FilterSpec struct {
		Field string `json:"field"`
		Label string `json:"label"`
	}

	// Filter is the closed set of filter variants: TextFilter, SelectFilter, DateFilter, DateRangeFilter.
	Filter interface {
		Spec() FilterSpec
		Type() FilterType
	}

	TextFilter struct{ FilterSpec }

	Option struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}

	// SelectFilter matches by case-insensitive equality. Dynamic filters take their
	// options from the distinct values of the full, unfiltered dataset.
	SelectFilter struct {
		FilterSpec
		Options []Option
		Dynamic bool
	}

	// DateFilter matches records falling on the same calendar day.
	DateFilter struct{ FilterSpec }

	// DateRangeFilter matches records within [From, To], both inclusive; a missing bound is open.
	DateRangeFilter struct{ FilterSpec }

	// FilterValue is the active value of one filter. Value serves text, select and
	// date filters; From and To serve date ranges.
	FilterValue struct {
		Value string `json:"value,omitempty"`
		From  string `json:"from,omitempty"`
		To    string `json:"to,omitempty"`
	}

	// DateBounds is handed to the caller in server-side date mode.
	DateBounds struct {
		Begin string `json:"dateBegin"`
		End   string `json:"dateEnd"`
	}
)

func (s FilterSpec) Spec() FilterSpec { return s }

func (TextFilter) Type() FilterType      { return FilterText }
func (SelectFilter) Type() FilterType    { return FilterSelect }
func (DateFilter) Type() FilterType      { return FilterDate }
func (DateRangeFilter) Type() FilterType { return FilterDateRange }

func (v FilterValue) IsEmpty() bool {
	return strings.TrimSpace(v.Value) == "" && strings.TrimSpace(v.From) == "" && strings.TrimSpace(v.To) == ""
}

func isDateFilter(f Filter) bool {
	switch f.(type) {
	case DateFilter, DateRangeFilter, *DateFilter, *DateRangeFilter:
		return true
	}
	return false
}

// ParseDate accepts time values and the usual ISO / french date strings.
func ParseDate(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, !val.IsZero()
	case *time.Time:
		if val == nil {
			return time.Time{}, false
		}
		return *val, !val.IsZero()
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).Add(24*time.Hour - time.Nanosecond)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// isDateOnly reports whether s carries no clock component.
func isDateOnly(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) == len("2006-01-02") || len(s) == len("02/01/2006")
}

// matchFilter applies one active filter to a resolved record value.
func matchFilter(f Filter, fv FilterValue, v interface{}, serverSideDates bool) bool {
	switch f.(type) {
	case TextFilter, *TextFilter:
		needle := strings.ToLower(strings.TrimSpace(fv.Value))
		return strings.Contains(strings.ToLower(Stringify(v)), needle)

	case SelectFilter, *SelectFilter:
		return strings.EqualFold(strings.TrimSpace(Stringify(v)), strings.TrimSpace(fv.Value))

	case DateFilter, *DateFilter:
		if serverSideDates {
			return true
		}
		day, ok := ParseDate(fv.Value)
		if !ok {
			return true // unusable filter value filters nothing
		}
		t, ok := ParseDate(v)
		return ok && sameDay(t.In(day.Location()), day)

	case DateRangeFilter, *DateRangeFilter:
		if serverSideDates {
			return true
		}
		return inRange(v, fv)

	default:
		return true
	}
}

func inRange(v interface{}, fv FilterValue) bool {
	from, hasFrom := ParseDate(fv.From)
	to, hasTo := ParseDate(fv.To)
	if !hasFrom && !hasTo {
		return true
	}
	t, ok := ParseDate(v)
	if !ok {
		return false
	}
	if hasFrom {
		if isDateOnly(fv.From) {
			from = startOfDay(from)
		}
		if t.Before(from) {
			return false
		}
	}
	if hasTo {
		if isDateOnly(fv.To) {
			to = endOfDay(to)
		}
		if t.After(to) {
			return false
		}
	}
	return true
}

// NormalizeDateBounds turns a date or date-range filter value into the bounds a
// server expects. ok is false when the value holds no usable date.
func NormalizeDateBounds(f Filter, fv FilterValue) (DateBounds, bool) {
	var bounds DateBounds
	switch f.(type) {
	case DateFilter, *DateFilter:
		day, ok := ParseDate(fv.Value)
		if !ok {
			return bounds, false
		}
		bounds.Begin = startOfDay(day).Format(DateTimeLayout)
		bounds.End = endOfDay(day).Format(DateTimeLayout)
	case DateRangeFilter, *DateRangeFilter:
		from, hasFrom := ParseDate(fv.From)
		to, hasTo := ParseDate(fv.To)
		if !hasFrom && !hasTo {
			return bounds, false
		}
		if hasFrom {
			if isDateOnly(fv.From) {
				from = startOfDay(from)
			}
			bounds.Begin = from.Format(DateTimeLayout)
		}
		if hasTo {
			if isDateOnly(fv.To) {
				to = endOfDay(to)
			}
			bounds.End = to.Format(DateTimeLayout)
		}
	default:
		return bounds, false
	}
	return bounds, true
}
