package descriptor

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseApp_Defaults(t *testing.T) {
	app, err := ParseApp(map[string]any{
		"module":    "numgen",
		"className": "NumGen",
	})
	if err != nil {
		t.Fatalf("ParseApp() failed: %v", err)
	}

	if app.Module != "numgen" {
		t.Errorf("Module = %q, want %q", app.Module, "numgen")
	}
	if app.ClassName != "NumGen" {
		t.Errorf("ClassName = %q, want %q", app.ClassName, "NumGen")
	}
	if app.Path != "." {
		t.Errorf("Path = %q, want %q", app.Path, ".")
	}
	if !app.Show {
		t.Error("Show = false, want default true")
	}
	if app.Position != "" {
		t.Errorf("Position = %q, want empty", app.Position)
	}
	if app.Buses != nil {
		t.Errorf("Buses = %v, want nil", app.Buses)
	}
	if app.Args != nil {
		t.Errorf("Args = %v, want nil", app.Args)
	}
}

func TestParseApp_AllFields(t *testing.T) {
	app, err := ParseApp(map[string]any{
		"module":    "dbmgr",
		"className": "DBMgr",
		"path":      "./apps",
		"show":      false,
		"position":  "right",
		"buses":     []any{"db", "log"},
		"args":      map[string]any{"root": "/tmp"},
	})
	if err != nil {
		t.Fatalf("ParseApp() failed: %v", err)
	}

	want := App{
		Module:    "dbmgr",
		ClassName: "DBMgr",
		Path:      "./apps",
		Show:      false,
		Position:  PositionRight,
		Buses:     []string{"db", "log"},
		Args:      map[string]any{"root": "/tmp"},
	}
	if !reflect.DeepEqual(app, want) {
		t.Errorf("ParseApp() = %+v, want %+v", app, want)
	}
}

func TestParseApp_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]any
	}{
		{"no module", map[string]any{"className": "X"}},
		{"no className", map[string]any{"module": "x"}},
		{"empty mapping", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseApp(tt.m)
			if !errors.Is(err, ErrMissingField) {
				t.Errorf("ParseApp() error = %v, want ErrMissingField", err)
			}
		})
	}
}

func TestParseApp_UnrecognizedField(t *testing.T) {
	_, err := ParseApp(map[string]any{
		"module":    "x",
		"className": "X",
		"channel":   []any{"a"},
	})
	if !errors.Is(err, ErrUnrecognizedField) {
		t.Errorf("ParseApp() error = %v, want ErrUnrecognizedField", err)
	}

	var fieldErr *FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected *FieldError, got %T", err)
	}
	if fieldErr.Field != "channel" {
		t.Errorf("FieldError.Field = %q, want %q", fieldErr.Field, "channel")
	}
}

func TestParseApp_InvalidTypes(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]any
	}{
		{"module not string", map[string]any{"module": 1, "className": "X"}},
		{"show not bool", map[string]any{"module": "x", "className": "X", "show": "yes"}},
		{"buses not list", map[string]any{"module": "x", "className": "X", "buses": "db"}},
		{"bus entry not string", map[string]any{"module": "x", "className": "X", "buses": []any{1}}},
		{"args not mapping", map[string]any{"module": "x", "className": "X", "args": []any{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseApp(tt.m)
			if !errors.Is(err, ErrInvalidField) {
				t.Errorf("ParseApp() error = %v, want ErrInvalidField", err)
			}
		})
	}
}

func TestApp_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		app  App
	}{
		{
			name: "all optional fields present",
			app: App{
				Module:    "numgen",
				ClassName: "NumGen",
				Path:      "./apps",
				Show:      false,
				Position:  PositionBottom,
				Buses:     []string{"db", "numbers"},
				Args:      map[string]any{"seed": "fixed"},
			},
		},
		{
			name: "all optional fields defaulted",
			app: App{
				Module:    "logger",
				ClassName: "Logger",
				Path:      ".",
				Show:      true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseApp(tt.app.Map())
			if err != nil {
				t.Fatalf("ParseApp(Map()) failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.app) {
				t.Errorf("round trip = %+v, want %+v", got, tt.app)
			}
		})
	}
}

func TestApp_RoundTripJSON(t *testing.T) {
	app := App{
		Module:    "poller",
		ClassName: "Poller",
		Path:      ".",
		Show:      true,
		Position:  PositionTop,
		Buses:     []string{"tick"},
		Args:      map[string]any{"intervalMs": float64(50)},
	}

	data, err := app.JSON()
	if err != nil {
		t.Fatalf("JSON() failed: %v", err)
	}
	got, err := ParseAppJSON(data)
	if err != nil {
		t.Fatalf("ParseAppJSON() failed: %v", err)
	}
	if !reflect.DeepEqual(got, app) {
		t.Errorf("round trip = %+v, want %+v", got, app)
	}
}

func TestParseBus(t *testing.T) {
	bus, err := ParseBus(map[string]any{"timeoutSeconds": 5.0})
	if err != nil {
		t.Fatalf("ParseBus() failed: %v", err)
	}
	if bus.TimeoutSeconds == nil || *bus.TimeoutSeconds != 5.0 {
		t.Errorf("TimeoutSeconds = %v, want 5.0", bus.TimeoutSeconds)
	}

	empty, err := ParseBus(map[string]any{})
	if err != nil {
		t.Fatalf("ParseBus(empty) failed: %v", err)
	}
	if empty.TimeoutSeconds != nil {
		t.Errorf("TimeoutSeconds = %v, want nil", empty.TimeoutSeconds)
	}

	if _, err := ParseBus(map[string]any{"timeout": 1.0}); !errors.Is(err, ErrUnrecognizedField) {
		t.Errorf("ParseBus() error = %v, want ErrUnrecognizedField", err)
	}
}

func TestBus_RoundTrip(t *testing.T) {
	timeout := 2.5
	tests := []struct {
		name string
		bus  Bus
	}{
		{"timeout present", Bus{TimeoutSeconds: &timeout}},
		{"timeout omitted", Bus{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBus(tt.bus.Map())
			if err != nil {
				t.Fatalf("ParseBus(Map()) failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.bus) {
				t.Errorf("round trip = %+v, want %+v", got, tt.bus)
			}
		})
	}
}

func TestPosition_OrDefault(t *testing.T) {
	tests := []struct {
		in   Position
		want Position
	}{
		{PositionLeft, PositionLeft},
		{PositionRight, PositionRight},
		{PositionTop, PositionTop},
		{PositionBottom, PositionBottom},
		{"", DefaultPosition},
		{"center", DefaultPosition},
		{"Left", DefaultPosition},
	}

	for _, tt := range tests {
		if got := tt.in.OrDefault(); got != tt.want {
			t.Errorf("Position(%q).OrDefault() = %q, want %q", tt.in, got, tt.want)
		}
	}
}
