// Package descriptor defines the immutable configuration records that
// describe how to construct applications and buses, together with their
// mapping serialization.
//
// Construction from a mapping and serialization back to a mapping are exact
// inverses for any descriptor whose optional fields are either all present
// or all omitted to their defaults.
package descriptor

import "encoding/json"

// Position is a dock position on the presentation container.
type Position string

// Recognized dock positions.
const (
	PositionLeft   Position = "left"
	PositionRight  Position = "right"
	PositionTop    Position = "top"
	PositionBottom Position = "bottom"
)

// DefaultPosition is substituted for unrecognized position values.
const DefaultPosition = PositionLeft

// Recognized reports whether p is one of the enumerated positions.
func (p Position) Recognized() bool {
	switch p {
	case PositionLeft, PositionRight, PositionTop, PositionBottom:
		return true
	}
	return false
}

// OrDefault returns p if recognized, DefaultPosition otherwise. An
// unrecognized value is a degraded input, not an error; callers log and
// continue.
func (p Position) OrDefault() Position {
	if p.Recognized() {
		return p
	}
	return DefaultPosition
}

// App describes how to construct an application instance.
type App struct {
	// Module is the component module identifier.
	Module string

	// ClassName is the component type name within the module.
	ClassName string

	// Path is an auxiliary search path consulted during resolution.
	Path string

	// Show requests that the instance's panels be attached on creation.
	Show bool

	// Position is the requested dock position. May hold an unrecognized
	// raw value; use Position.OrDefault at attachment time.
	Position Position

	// Buses lists the channel names this application subscribes to.
	// Duplicate entries do not duplicate delivery.
	Buses []string

	// Args holds optional named construction arguments. Nil means unset:
	// the component is constructed with defaults.
	Args map[string]any
}

// Bus describes configuration for a channel.
type Bus struct {
	// TimeoutSeconds is the delivery time budget for the channel. Nil means
	// no budget. Deliveries overrunning the budget are logged as slow; they
	// are not cancelled.
	TimeoutSeconds *float64
}

// App mapping keys.
const (
	keyModule    = "module"
	keyClassName = "className"
	keyPath      = "path"
	keyShow      = "show"
	keyPosition  = "position"
	keyBuses     = "buses"
	keyArgs      = "args"

	keyTimeoutSeconds = "timeoutSeconds"
)

// ParseApp constructs an App from a mapping. A mapping with unknown keys
// fails with ErrUnrecognizedField; a mapping missing "module" or
// "className" fails with ErrMissingField.
func ParseApp(m map[string]any) (App, error) {
	const kind = "app"

	for key := range m {
		switch key {
		case keyModule, keyClassName, keyPath, keyShow, keyPosition, keyBuses, keyArgs:
		default:
			return App{}, unrecognizedField(kind, key)
		}
	}

	app := App{
		Path: ".",
		Show: true,
	}

	module, ok := m[keyModule]
	if !ok {
		return App{}, missingField(kind, keyModule)
	}
	if app.Module, ok = module.(string); !ok {
		return App{}, invalidField(kind, keyModule)
	}

	className, ok := m[keyClassName]
	if !ok {
		return App{}, missingField(kind, keyClassName)
	}
	if app.ClassName, ok = className.(string); !ok {
		return App{}, invalidField(kind, keyClassName)
	}

	if v, ok := m[keyPath]; ok {
		if app.Path, ok = v.(string); !ok {
			return App{}, invalidField(kind, keyPath)
		}
	}
	if v, ok := m[keyShow]; ok {
		if app.Show, ok = v.(bool); !ok {
			return App{}, invalidField(kind, keyShow)
		}
	}
	if v, ok := m[keyPosition]; ok {
		s, ok := v.(string)
		if !ok {
			return App{}, invalidField(kind, keyPosition)
		}
		app.Position = Position(s)
	}
	if v, ok := m[keyBuses]; ok {
		buses, err := stringSlice(v)
		if err != nil {
			return App{}, invalidField(kind, keyBuses)
		}
		app.Buses = buses
	}
	if v, ok := m[keyArgs]; ok {
		args, ok := v.(map[string]any)
		if !ok {
			return App{}, invalidField(kind, keyArgs)
		}
		app.Args = args
	}

	return app, nil
}

// Map serializes the descriptor back to a mapping. All fields are emitted
// except Args, which is emitted only when set.
func (a App) Map() map[string]any {
	buses := make([]any, len(a.Buses))
	for i, b := range a.Buses {
		buses[i] = b
	}
	m := map[string]any{
		keyModule:    a.Module,
		keyClassName: a.ClassName,
		keyPath:      a.Path,
		keyShow:      a.Show,
		keyPosition:  string(a.Position),
		keyBuses:     buses,
	}
	if a.Args != nil {
		m[keyArgs] = a.Args
	}
	return m
}

// ParseAppJSON constructs an App from a JSON object.
func ParseAppJSON(data []byte) (App, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return App{}, err
	}
	return ParseApp(m)
}

// JSON serializes the descriptor to a JSON object.
func (a App) JSON() ([]byte, error) {
	return json.Marshal(a.Map())
}

// ParseBus constructs a Bus from a mapping. Unknown keys fail with
// ErrUnrecognizedField.
func ParseBus(m map[string]any) (Bus, error) {
	const kind = "bus"

	for key := range m {
		if key != keyTimeoutSeconds {
			return Bus{}, unrecognizedField(kind, key)
		}
	}

	var bus Bus
	if v, ok := m[keyTimeoutSeconds]; ok {
		f, ok := floatValue(v)
		if !ok {
			return Bus{}, invalidField(kind, keyTimeoutSeconds)
		}
		bus.TimeoutSeconds = &f
	}
	return bus, nil
}

// Map serializes the bus descriptor back to a mapping. TimeoutSeconds is
// emitted only when set so that the value round-trips exactly.
func (b Bus) Map() map[string]any {
	m := map[string]any{}
	if b.TimeoutSeconds != nil {
		m[keyTimeoutSeconds] = *b.TimeoutSeconds
	}
	return m
}

// stringSlice converts a mapping list value to []string. An empty list
// yields nil so that parse and serialize stay exact inverses for the
// default value.
func stringSlice(v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		if len(list) == 0 {
			return nil, nil
		}
		out := make([]string, len(list))
		copy(out, list)
		return out, nil
	case []any:
		if len(list) == 0 {
			return nil, nil
		}
		out := make([]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, ErrInvalidField
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, ErrInvalidField
	}
}

// floatValue converts a mapping numeric value to float64.
func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
