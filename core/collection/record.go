// Package collection derives filtered, sorted and paginated views of a record set.
// It performs no I/O and never fails: a malformed column or filter resolves to nil
// values instead of stopping the rest of the view from being built.
package collection

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultRowKey = "id"

// Record is one normalized row of domain data. Views never mutate records.
type Record map[string]interface{}

// ID returns the record identifier stored under rowKey ("id" when empty).
func (r Record) ID(rowKey string) string {
	if rowKey == "" {
		rowKey = DefaultRowKey
	}
	return Stringify(lookup(r, rowKey))
}

// lookup reads key from r, walking nested maps for dotted keys ("classe.nom").
func lookup(r Record, key string) interface{} {
	if r == nil || key == "" {
		return nil
	}
	if v, ok := r[key]; ok {
		return v
	}
	if !strings.Contains(key, ".") {
		return nil
	}

	var cur interface{} = map[string]interface{}(r)
	for _, part := range strings.Split(key, ".") {
		switch m := cur.(type) {
		case map[string]interface{}:
			cur = m[part]
		case Record:
			cur = m[part]
		default:
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Stringify renders a resolved value the way it is searched and displayed.
func Stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		if val.IsZero() {
			return ""
		}
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04")
	case *time.Time:
		if val == nil {
			return ""
		}
		return Stringify(*val)
	case decimal.Decimal:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			if s := Stringify(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(val, ", ")
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
