package collection

type ActionType string

const (
	ActionView   ActionType = "view"
	ActionEdit   ActionType = "edit"
	ActionDelete ActionType = "delete"
	ActionCreate ActionType = "create"
)

// ActionSpec describes one per-record or toolbar action. Confirm marks destructive or
// state-changing actions that need an explicit confirmation before they are sent.
type ActionSpec struct {
	Type    ActionType `json:"type" yaml:"type"`
	Label   string     `json:"label,omitempty" yaml:"label"`
	Icon    string     `json:"icon,omitempty" yaml:"icon"`
	Tooltip string     `json:"tooltip,omitempty" yaml:"tooltip"`
	Color   string     `json:"color,omitempty" yaml:"color"`
	Confirm bool       `json:"confirm,omitempty" yaml:"confirm"`
}

// Handler receives a dispatched action.
type Handler func(action ActionSpec, record Record) error

// Action finds the declared action of the given type.
func (cfg Config) Action(typ ActionType) (ActionSpec, bool) {
	for _, a := range cfg.Actions {
		if a.Type == typ {
			return a, true
		}
	}
	return ActionSpec{}, false
}

// Dispatch hands the record to handler together with the declared action spec.
// Undeclared types are passed through as a bare spec; the consumer decides what they mean.
func Dispatch(cfg Config, typ ActionType, record Record, handler Handler) error {
	if handler == nil {
		return nil
	}
	spec, ok := cfg.Action(typ)
	if !ok {
		spec = ActionSpec{Type: typ}
	}
	return handler(spec, record)
}
