// Package screen loads the declarative screen definitions and turns them into
// collection engine configurations.
package screen

import (
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/masomo-admin/core/collection"
)

type (
	OptionDef struct {
		Value string `yaml:"value" json:"value" validate:"required"`
		Label string `yaml:"label" json:"label"`
	}

	ColumnDef struct {
		Name     string   `yaml:"name" json:"name" validate:"required"`
		Label    string   `yaml:"label" json:"label"`
		Key      string   `yaml:"key" json:"key,omitempty"`
		Keys     []string `yaml:"keys" json:"keys,omitempty"`
		Sep      string   `yaml:"sep" json:"sep,omitempty"`
		Getter   string   `yaml:"getter" json:"getter,omitempty"`
		Sortable bool     `yaml:"sortable" json:"sortable"`
		Width    int      `yaml:"width" json:"width,omitempty"`
		Flex     int      `yaml:"flex" json:"flex,omitempty"`
	}

	FilterDef struct {
		Field   string      `yaml:"field" json:"field" validate:"required"`
		Label   string      `yaml:"label" json:"label"`
		Type    string      `yaml:"type" json:"type" validate:"required,oneof=text select date dateRange"`
		Options []OptionDef `yaml:"options" json:"options,omitempty" validate:"dive"`
		Dynamic bool        `yaml:"dynamic" json:"dynamic,omitempty"`
	}

	// Screen is one list screen of the dashboard.
	Screen struct {
		Name            string                  `yaml:"name" json:"name" validate:"required"`
		Title           string                  `yaml:"title" json:"title"`
		Entity          string                  `yaml:"entity" json:"entity" validate:"required"`
		Params          map[string]string       `yaml:"params" json:"params,omitempty"`
		RowKey          string                  `yaml:"rowKey" json:"row_key,omitempty"`
		DefaultPageSize int                     `yaml:"defaultPageSize" json:"default_page_size" validate:"gte=0"`
		ServerSideDates bool                    `yaml:"serverSideDates" json:"server_side_dates"`
		Columns         []ColumnDef             `yaml:"columns" json:"columns" validate:"required,min=1,dive"`
		Searchable      []string                `yaml:"searchable" json:"searchable"`
		Filters         []FilterDef             `yaml:"filters" json:"filters" validate:"dive"`
		Actions         []collection.ActionSpec `yaml:"actions" json:"actions"`

		getters map[string]collection.Getter
	}

	file struct {
		Screens []Screen `yaml:"screens" validate:"dive"`
	}

	Registry struct {
		screens map[string]Screen
		order   []string
	}
)

// Load parses screen definitions. getters resolves the named getters of columns; an
// unknown getter does not fail the load, its column simply yields nil values.
func Load(data []byte, getters map[string]collection.Getter) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parsing screens")
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, errors.Wrap(err, "validating screens")
	}

	reg := &Registry{screens: make(map[string]Screen, len(f.Screens))}
	for _, s := range f.Screens {
		if _, dup := reg.screens[s.Name]; dup {
			return nil, errors.Errorf("duplicate screen %q", s.Name)
		}
		s.getters = getters
		reg.screens[s.Name] = s
		reg.order = append(reg.order, s.Name)
	}
	return reg, nil
}

func (r *Registry) Get(name string) (Screen, bool) {
	s, ok := r.screens[name]
	return s, ok
}

// All returns the screens in declaration order.
func (r *Registry) All() []Screen {
	out := make([]Screen, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.screens[name])
	}
	return out
}

// Names returns the screen names, sorted.
func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

func (c ColumnDef) resolver(getters map[string]collection.Getter) collection.Resolver {
	switch {
	case c.Getter != "":
		// nil getter resolves to nil values
		return collection.ByGetter(getters[c.Getter])
	case len(c.Keys) > 0:
		return collection.ByKeys{Keys: c.Keys, Sep: c.Sep}
	case c.Key != "":
		return collection.ByKey(c.Key)
	default:
		return collection.ByKey(c.Name)
	}
}

func (f FilterDef) filter() collection.Filter {
	spec := collection.FilterSpec{Field: f.Field, Label: f.Label}
	switch collection.FilterType(f.Type) {
	case collection.FilterSelect:
		opts := make([]collection.Option, 0, len(f.Options))
		for _, o := range f.Options {
			label := o.Label
			if label == "" {
				label = o.Value
			}
			opts = append(opts, collection.Option{Value: o.Value, Label: label})
		}
		return collection.SelectFilter{FilterSpec: spec, Options: opts, Dynamic: f.Dynamic}
	case collection.FilterDate:
		return collection.DateFilter{FilterSpec: spec}
	case collection.FilterDateRange:
		return collection.DateRangeFilter{FilterSpec: spec}
	default:
		return collection.TextFilter{FilterSpec: spec}
	}
}

// Config builds the engine configuration of the screen.
func (s Screen) Config() collection.Config {
	cols := make([]collection.Column, 0, len(s.Columns))
	for _, c := range s.Columns {
		label := c.Label
		if label == "" {
			label = c.Name
		}
		cols = append(cols, collection.Column{
			Name:     c.Name,
			Label:    label,
			Value:    c.resolver(s.getters),
			Sortable: c.Sortable,
			Width:    c.Width,
			Flex:     c.Flex,
		})
	}
	filters := make([]collection.Filter, 0, len(s.Filters))
	for _, f := range s.Filters {
		filters = append(filters, f.filter())
	}
	return collection.Config{
		RowKey:          s.RowKey,
		Columns:         cols,
		Searchable:      s.Searchable,
		Filters:         filters,
		Actions:         s.Actions,
		ServerSideDates: s.ServerSideDates,
		DefaultPageSize: s.DefaultPageSize,
	}
}

// Sortable reports whether column may be used to sort the screen.
func (s Screen) Sortable(column string) bool {
	for _, c := range s.Columns {
		if c.Name == column {
			return c.Sortable
		}
	}
	return false
}

// EntityParams merges the screen defaults with overrides, keeping only known keys.
func (s Screen) EntityParams(overrides map[string]string) map[string]string {
	out := make(map[string]string, len(s.Params))
	for k, v := range s.Params {
		out[k] = v
		if o, ok := overrides[k]; ok && o != "" {
			out[k] = o
		}
	}
	return out
}
