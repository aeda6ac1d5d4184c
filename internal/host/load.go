package host

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/quayhost/quay/internal/setup"
)

// Load applies a set-up document to a fresh host: channels are configured
// first, then every application is created in document order. Each failed
// creation is reported; later creations still run, since one bad
// descriptor must not take the rest of the session down.
func (h *Host) Load(doc *setup.Document) error {
	for _, entry := range doc.Buses {
		h.registry.Configure(entry.Name, entry.Descriptor)
	}

	var errs []error
	for _, entry := range doc.Apps {
		if err := h.CreateApp(entry.Name, entry.Descriptor); err != nil {
			h.log.Error().Err(err).Str("app", entry.Name).Msg("startup creation failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reconcile drives the host toward a changed set-up document: applications
// missing from the document are destroyed, new ones are created, and ones
// whose descriptor changed are recreated. Channel configuration is
// reapplied; channels are never removed (subscription table entries are
// long-lived by design).
func (h *Host) Reconcile(doc *setup.Document) error {
	for _, entry := range doc.Buses {
		h.registry.Configure(entry.Name, entry.Descriptor)
	}

	var errs []error

	for _, name := range h.AppNames() {
		if _, wanted := doc.App(name); !wanted {
			if err := h.DestroyApp(name); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, entry := range doc.Apps {
		current, exists := h.Descriptor(entry.Name)
		switch {
		case !exists:
			if err := h.CreateApp(entry.Name, entry.Descriptor); err != nil {
				errs = append(errs, err)
			}
		case !reflect.DeepEqual(current, entry.Descriptor):
			if err := h.DestroyApp(entry.Name); err != nil {
				errs = append(errs, fmt.Errorf("recreating %q: %w", entry.Name, err))
				continue
			}
			if err := h.CreateApp(entry.Name, entry.Descriptor); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}
