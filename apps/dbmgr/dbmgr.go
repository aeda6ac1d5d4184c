// Package dbmgr hosts the database manager application. It maintains the
// set of known sqlite databases and announces it to everyone interested.
//
// The announcement channel carries {"db": [{"name": ..., "path": ...}]}.
// Commands arrive as JSON on any other subscribed channel:
//
//	{"action": "add", "path": "/data/run42.db"}
//	{"action": "remove", "name": "run42.db"}
//	{"action": "list"}
//
// Every successful command triggers a fresh announcement.
package dbmgr

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/quayhost/quay/internal/api"
)

// AnnounceChannel is where the database list is published.
const AnnounceChannel = "dbbus"

// DB is one known database.
type DB struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// App is the database manager.
type App struct {
	api.Base

	mu           sync.Mutex
	dbs          []DB
	announceOnce sync.Once
	panel        *api.TextPanel
	log          zerolog.Logger
}

// New builds the application. The optional "databases" argument is a list
// of paths seeding the known set.
func New(name string, owner api.Owner, args map[string]any) (api.App, error) {
	a := &App{
		Base:  api.NewBase(name, owner),
		panel: api.NewTextPanel("databases"),
		log:   zerolog.Nop(),
	}
	if seed, ok := args["databases"].([]any); ok {
		for _, v := range seed {
			path, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("dbmgr: databases entries must be strings, got %T", v)
			}
			a.dbs = append(a.dbs, DB{Name: filepath.Base(path), Path: path})
		}
	}
	a.render()
	return a, nil
}

// SetLogger replaces the no-op default.
func (a *App) SetLogger(log zerolog.Logger) { a.log = log }

// Frames returns the manager panel.
func (a *App) Frames() []api.Panel { return []api.Panel{a.panel} }

// Received handles a command message. Traffic on the announcement channel
// itself is ignored; the manager is its only producer. The first delivery
// on any other channel also announces the seeded list, so consumers that
// came up after construction learn it without issuing a command.
func (a *App) Received(channel, message string) {
	if channel == AnnounceChannel {
		return
	}
	a.announceOnce.Do(a.Announce)
	if !gjson.Valid(message) {
		// Non-JSON traffic (a poller tick, say) is a valid announce
		// trigger but not a command.
		a.log.Debug().Str("channel", channel).Msg("dbmgr: ignoring non-command traffic")
		return
	}
	cmd := gjson.Parse(message)
	switch action := cmd.Get("action").Str; action {
	case "add":
		path := cmd.Get("path").Str
		if path == "" {
			a.log.Warn().Msg("dbmgr: add command without path")
			return
		}
		a.add(path)
	case "remove":
		name := cmd.Get("name").Str
		if name == "" {
			a.log.Warn().Msg("dbmgr: remove command without name")
			return
		}
		a.remove(name)
	case "list":
	default:
		a.log.Warn().Str("action", action).Msg("dbmgr: unknown command")
		return
	}
	a.Announce()
}

// Announce broadcasts the current database list.
func (a *App) Announce() {
	a.mu.Lock()
	dbs := make([]DB, len(a.dbs))
	copy(dbs, a.dbs)
	a.mu.Unlock()
	if err := a.BroadcastJSON(AnnounceChannel, map[string]any{"db": dbs}); err != nil {
		a.log.Error().Err(err).Msg("dbmgr: announce failed")
	}
}

// Databases returns a copy of the known set.
func (a *App) Databases() []DB {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]DB, len(a.dbs))
	copy(out, a.dbs)
	return out
}

func (a *App) add(path string) {
	name := filepath.Base(path)
	a.mu.Lock()
	for _, db := range a.dbs {
		if db.Name == name {
			a.mu.Unlock()
			a.log.Warn().Str("name", name).Msg("dbmgr: database already known")
			return
		}
	}
	a.dbs = append(a.dbs, DB{Name: name, Path: path})
	a.mu.Unlock()
	a.render()
}

func (a *App) remove(name string) {
	a.mu.Lock()
	kept := a.dbs[:0]
	for _, db := range a.dbs {
		if db.Name != name {
			kept = append(kept, db)
		}
	}
	a.dbs = kept
	a.mu.Unlock()
	a.render()
}

func (a *App) render() {
	a.mu.Lock()
	lines := make([]string, 0, len(a.dbs)+1)
	if len(a.dbs) == 0 {
		lines = append(lines, "no databases")
	}
	for _, db := range a.dbs {
		lines = append(lines, fmt.Sprintf("%s  (%s)", db.Name, db.Path))
	}
	a.mu.Unlock()
	a.panel.SetLines(lines...)
}
