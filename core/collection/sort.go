package collection

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type SortDir int

const (
	SortNone SortDir = iota
	SortAsc
	SortDesc
)

func (d SortDir) String() string {
	switch d {
	case SortAsc:
		return "asc"
	case SortDesc:
		return "desc"
	default:
		return "none"
	}
}

// ParseSortDir accepts "asc", "desc" and anything else as none.
func ParseSortDir(s string) SortDir {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return SortAsc
	case "desc", "descending":
		return SortDesc
	default:
		return SortNone
	}
}

// ParseOrdering reads "field" (ascending) or "-field" (descending).
func ParseOrdering(s string) (string, SortDir) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", SortNone
	}
	if strings.HasPrefix(s, "-") {
		return s[1:], SortDesc
	}
	return strings.TrimPrefix(s, "+"), SortAsc
}

// FormatOrdering is the inverse of ParseOrdering.
func FormatOrdering(field string, dir SortDir) string {
	switch {
	case field == "" || dir == SortNone:
		return ""
	case dir == SortDesc:
		return "-" + field
	default:
		return field
	}
}

func isNil(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case *time.Time:
		return val == nil
	}
	return false
}

func toNumber(v interface{}) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int8:
		return decimal.NewFromInt(int64(n)), true
	case int16:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint:
		return decimal.NewFromInt(int64(n)), true
	case uint8:
		return decimal.NewFromInt(int64(n)), true
	case uint16:
		return decimal.NewFromInt(int64(n)), true
	case uint32:
		return decimal.NewFromInt(int64(n)), true
	case uint64:
		return decimal.NewFromInt(int64(n)), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case float64:
		return decimal.NewFromFloat(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case decimal.Decimal:
		return n, true
	case *decimal.Decimal:
		if n == nil {
			return decimal.Decimal{}, false
		}
		return *n, true
	}
	return decimal.Decimal{}, false
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	}
	return time.Time{}, false
}

func sign(b bool) int {
	if b {
		return 1
	}
	return -1
}

// Compare orders two non-nil resolved values: times by instant, strings
// case-insensitively, numbers numerically, anything else by its printed form.
func Compare(a, b interface{}) int {
	if ta, ok := toTime(a); ok {
		if tb, ok := toTime(b); ok {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			}
			return 0
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			la, lb := strings.ToLower(sa), strings.ToLower(sb)
			if la == lb {
				return 0
			}
			return sign(la > lb)
		}
	}
	if na, ok := toNumber(a); ok {
		if nb, ok := toNumber(b); ok {
			return na.Cmp(nb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			if ba == bb {
				return 0
			}
			return sign(ba)
		}
	}

	// mixed or unknown types
	fa, fb := fmt.Sprint(a), fmt.Sprint(b)
	if fa == fb {
		return 0
	}
	return sign(fa > fb)
}

// SortRecords returns a sorted copy of records. nil values go last in both directions;
// ties keep their input order.
func SortRecords(records []Record, cols []Column, column string, dir SortDir) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	if column == "" || dir == SortNone {
		return sorted
	}

	res := resolverFor(cols, column)
	values := make(map[int]interface{}, len(sorted))
	idx := make([]int, len(sorted))
	for i := range sorted {
		idx[i] = i
		values[i] = res.resolve(sorted[i])
	}

	sort.SliceStable(idx, func(i, j int) bool {
		va, vb := values[idx[i]], values[idx[j]]
		na, nb := isNil(va), isNil(vb)
		switch {
		case na && nb:
			return false
		case na:
			return false
		case nb:
			return true
		}
		c := Compare(va, vb)
		if dir == SortDesc {
			c = -c
		}
		return c < 0
	})

	out := make([]Record, len(sorted))
	for i, j := range idx {
		out[i] = sorted[j]
	}
	return out
}
