// Package setup loads the set-up document that tells the host which
// applications to create and how channels are configured.
//
// The document is JSON with two top-level sections, "app" and "bus", each
// mapping a name to a descriptor-shaped record. Section entries are
// processed in document order, which fixes the startup creation order.
package setup

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/quayhost/quay/internal/descriptor"
)

// AppEntry is one named application descriptor in document order.
type AppEntry struct {
	Name       string
	Descriptor descriptor.App
}

// BusEntry is one named bus descriptor in document order.
type BusEntry struct {
	Name       string
	Descriptor descriptor.Bus
}

// Document is a parsed set-up file.
type Document struct {
	Apps  []AppEntry
	Buses []BusEntry
}

// App returns the descriptor for name and whether it is present.
func (d *Document) App(name string) (descriptor.App, bool) {
	for _, e := range d.Apps {
		if e.Name == name {
			return e.Descriptor, true
		}
	}
	return descriptor.App{}, false
}

// Parse parses a set-up document. Descriptor-level problems (missing or
// unrecognized fields) fail the parse; they are configuration errors, not
// peer misbehavior.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("setup document is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("setup document must be a mapping")
	}

	doc := &Document{}
	var parseErr error

	root.Get("app").ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			parseErr = fmt.Errorf("app %q: descriptor must be a mapping", key.Str)
			return false
		}
		desc, err := descriptor.ParseAppJSON([]byte(value.Raw))
		if err != nil {
			parseErr = fmt.Errorf("app %q: %w", key.Str, err)
			return false
		}
		doc.Apps = append(doc.Apps, AppEntry{Name: key.Str, Descriptor: desc})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	root.Get("bus").ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			parseErr = fmt.Errorf("bus %q: descriptor must be a mapping", key.Str)
			return false
		}
		m, _ := value.Value().(map[string]any)
		desc, err := descriptor.ParseBus(m)
		if err != nil {
			parseErr = fmt.Errorf("bus %q: %w", key.Str, err)
			return false
		}
		doc.Buses = append(doc.Buses, BusEntry{Name: key.Str, Descriptor: desc})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return doc, nil
}

// Load reads and parses the set-up file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading setup file %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing setup file %s: %w", path, err)
	}
	return doc, nil
}
