// Package numgen hosts the random number generator application. A
// generate trigger on any subscribed channel produces a number from 0 to
// 99, persists it through the store, and announces the result.
//
// Announcements on "numbus" carry {"app": ..., "db": ..., "value": ...}.
// The database list is learned from dbmgr's announcements on "dbbus"; the
// "database" construction argument selects which one numbers are saved to.
package numgen

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/quayhost/quay/apps/dbmgr"
	"github.com/quayhost/quay/apps/internal/store"
	"github.com/quayhost/quay/internal/api"
)

// NumberChannel is where generated numbers are announced.
const NumberChannel = "numbus"

// Dataset is the store dataset generated numbers are appended to.
const Dataset = "numbers"

// App is the number generator.
type App struct {
	api.Base

	mu       sync.Mutex
	dbs      map[string]string
	selected string
	stores   map[string]*store.Store
	last     int
	count    int

	genPanel  *api.TextPanel
	viewPanel *api.TextPanel
	rng       *rand.Rand
	log       zerolog.Logger
}

// New builds the application. The optional "database" argument names the
// database to save into; saving is skipped until a known database is
// selected.
func New(name string, owner api.Owner, args map[string]any) (api.App, error) {
	a := &App{
		Base:      api.NewBase(name, owner),
		dbs:       make(map[string]string),
		stores:    make(map[string]*store.Store),
		genPanel:  api.NewTextPanel("generator"),
		viewPanel: api.NewTextPanel("viewer"),
		rng:       rand.New(rand.NewSource(rand.Int63())),
		log:       zerolog.Nop(),
	}
	if db, ok := args["database"].(string); ok {
		a.selected = db
	}
	a.genPanel.SetLines("send \"generate\" to trigger")
	a.viewPanel.SetLines("initialized", "not generated")
	return a, nil
}

// SetLogger replaces the no-op default.
func (a *App) SetLogger(log zerolog.Logger) { a.log = log }

// Frames returns the generator and viewer panels.
func (a *App) Frames() []api.Panel { return []api.Panel{a.genPanel, a.viewPanel} }

// Received updates the database list on dbmgr announcements and treats
// everything else as a generate trigger.
func (a *App) Received(channel, message string) {
	if channel == dbmgr.AnnounceChannel {
		a.updateDBs(message)
		return
	}
	a.generate()
}

// Close releases the store handles.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.stores {
		s.Close()
	}
	a.stores = make(map[string]*store.Store)
}

func (a *App) updateDBs(message string) {
	if !gjson.Valid(message) {
		a.log.Warn().Msg("numgen: database announcement is not JSON")
		return
	}
	a.mu.Lock()
	a.dbs = make(map[string]string)
	gjson.Get(message, "db").ForEach(func(_, db gjson.Result) bool {
		name, path := db.Get("name").Str, db.Get("path").Str
		if name != "" && path != "" {
			a.dbs[name] = path
		}
		return true
	})
	a.mu.Unlock()
	a.setStatus("database updated")
}

func (a *App) generate() {
	num := a.rng.Intn(100)

	a.mu.Lock()
	a.last = num
	a.count++
	count := a.count
	db := a.selected
	path := a.dbs[db]
	a.mu.Unlock()

	a.viewPanel.SetLines(
		fmt.Sprintf("generated number: %d", num),
		fmt.Sprintf("total generated: %d", count),
	)

	if path == "" {
		a.setStatus("no database selected, number not saved")
	} else if err := a.save(path, num); err != nil {
		a.log.Error().Err(err).Str("db", db).Msg("numgen: save failed")
		a.setStatus("failed to save number")
	} else {
		a.setStatus("number saved successfully")
	}

	if err := a.BroadcastJSON(NumberChannel, map[string]any{
		"app":   a.Name(),
		"db":    db,
		"value": num,
	}); err != nil {
		a.log.Error().Err(err).Msg("numgen: announce failed")
	}
}

func (a *App) save(path string, num int) error {
	a.mu.Lock()
	s, ok := a.stores[path]
	a.mu.Unlock()
	if !ok {
		var err error
		s, err = store.Open(path)
		if err != nil {
			return err
		}
		a.mu.Lock()
		a.stores[path] = s
		a.mu.Unlock()
	}
	return s.Save(Dataset, num)
}

func (a *App) setStatus(status string) {
	a.genPanel.SetLines(status)
}
