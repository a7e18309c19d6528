package collection

import "strings"

type (
	// Getter derives a display value from a whole record.
	Getter func(Record) interface{}

	// Resolver is the closed set of column value strategies: ByKey, ByKeys and ByGetter.
	Resolver interface {
		resolve(Record) interface{}
	}

	// ByKey reads a single (possibly dotted) field.
	ByKey string

	// ByKeys joins several fields with Sep, skipping empty parts ("nom prenom").
	ByKeys struct {
		Keys []string
		Sep  string
	}

	// ByGetter computes the value with a function.
	ByGetter Getter

	// Column describes one column of a view. Renderers decide how to show it.
	Column struct {
		Name     string   `json:"name"`
		Label    string   `json:"label"`
		Value    Resolver `json:"-"`
		Sortable bool     `json:"sortable"`
		Width    int      `json:"width,omitempty"`
		Flex     int      `json:"flex,omitempty"`
	}
)

func (k ByKey) resolve(r Record) interface{} {
	return lookup(r, string(k))
}

func (k ByKeys) resolve(r Record) interface{} {
	if len(k.Keys) == 0 {
		return nil
	}
	sep := k.Sep
	if sep == "" {
		sep = " "
	}
	parts := make([]string, 0, len(k.Keys))
	for _, key := range k.Keys {
		if s := Stringify(lookup(r, key)); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return strings.Join(parts, sep)
}

func (g ByGetter) resolve(r Record) (v interface{}) {
	if g == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			v = nil
		}
	}()
	return g(r)
}

// Resolve returns the column value for r. A column without a resolver reads its own name.
func (c Column) Resolve(r Record) interface{} {
	if c.Value == nil {
		return ByKey(c.Name).resolve(r)
	}
	return c.Value.resolve(r)
}

// resolverFor finds how to read field: through the column of the same name when there
// is one, otherwise straight from the record.
func resolverFor(cols []Column, field string) Resolver {
	for _, c := range cols {
		if c.Name == field {
			if c.Value == nil {
				return ByKey(c.Name)
			}
			return c.Value
		}
	}
	return ByKey(field)
}
