// Package apps wires the bundled sample applications into a component
// registry.
package apps

import (
	"github.com/quayhost/quay/apps/datacalc"
	"github.com/quayhost/quay/apps/dbmgr"
	"github.com/quayhost/quay/apps/logger"
	"github.com/quayhost/quay/apps/numgen"
	"github.com/quayhost/quay/apps/poller"
	"github.com/quayhost/quay/internal/api"
	"github.com/quayhost/quay/internal/component"
)

// RegisterAll registers every bundled application under its module and
// class name.
func RegisterAll(reg *component.Registry) error {
	for _, r := range []struct {
		module    string
		className string
		factory   api.Factory
	}{
		{"numgen", "NumGenApp", numgen.New},
		{"dbmgr", "DBMgrApp", dbmgr.New},
		{"poller", "PollerApp", poller.New},
		{"datacalc", "DataCalcApp", datacalc.New},
		{"logger", "LoggerApp", logger.New},
	} {
		if err := reg.Register(r.module, r.className, r.factory); err != nil {
			return err
		}
	}
	return nil
}
