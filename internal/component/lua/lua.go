// Package lua hosts script-defined application components on gopher-lua.
//
// A component script defines one or more class tables. A class table must
// provide a "new" constructor taking (name, args) and returning the
// instance table. The instance table may provide "received" and "frames"
// methods:
//
//	Greeter = {}
//
//	function Greeter.new(name, args)
//	    local self = { name = name, panel = { title = "greeter", lines = {} } }
//	    function self.received(channel, message)
//	        self.panel.lines = { channel .. ": " .. message }
//	    end
//	    function self.frames()
//	        return { self.panel }
//	    end
//	    return self
//	end
//
// Scripts additionally see a "quay" global with the instance name and a
// broadcast(channel, message) function bound to the host.
package lua

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/quayhost/quay/internal/api"
	"github.com/quayhost/quay/internal/component"
)

// NewFactory builds an api.Factory from the script at scriptPath exposing
// className. The script is loaded once per constructed instance so that
// instances never share interpreter state.
//
// gopher-lua states are not goroutine-safe; every entry into the state is
// serialized through the instance mutex.
func NewFactory(scriptPath, className string) (api.Factory, error) {
	// Probe the script once up front so resolution errors surface at
	// resolve time, not at construction time.
	if err := probe(scriptPath, className); err != nil {
		return nil, err
	}

	factory := func(name string, owner api.Owner, args map[string]any) (api.App, error) {
		return newScriptApp(scriptPath, className, name, owner, args)
	}
	return factory, nil
}

// probe loads the script in a throwaway state and verifies the class table
// and its constructor exist.
func probe(scriptPath, className string) error {
	L := newState()
	defer L.Close()

	if err := L.DoFile(scriptPath); err != nil {
		return fmt.Errorf("loading script %s: %w", scriptPath, err)
	}
	cls := L.GetGlobal(className)
	tbl, ok := cls.(*lua.LTable)
	if !ok {
		return fmt.Errorf("script %s: %w: %s", scriptPath, component.ErrClassNotFound, className)
	}
	if _, ok := L.GetField(tbl, "new").(*lua.LFunction); !ok {
		return fmt.Errorf("script %s: class %s has no constructor: %w",
			scriptPath, className, component.ErrClassNotFound)
	}
	return nil
}

// newState creates a Lua state with only the safe standard libraries.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	// io, os, debug and package stay closed.
	return L
}

// scriptApp is an application instance whose behavior lives in Lua.
type scriptApp struct {
	mu    sync.Mutex
	L     *lua.LState
	name  string
	owner api.Owner
	self  *lua.LTable
}

func newScriptApp(scriptPath, className, name string, owner api.Owner, args map[string]any) (*scriptApp, error) {
	L := newState()

	app := &scriptApp{L: L, name: name, owner: owner}
	app.installHostTable()

	if err := L.DoFile(scriptPath); err != nil {
		L.Close()
		return nil, fmt.Errorf("loading script %s: %w", scriptPath, err)
	}

	cls, ok := L.GetGlobal(className).(*lua.LTable)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("script %s: %w: %s", scriptPath, component.ErrClassNotFound, className)
	}
	ctor, ok := L.GetField(cls, "new").(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("script %s: class %s has no constructor: %w",
			scriptPath, className, component.ErrClassNotFound)
	}

	if err := L.CallByParam(lua.P{Fn: ctor, NRet: 1, Protect: true},
		lua.LString(name), goToLua(L, args)); err != nil {
		L.Close()
		return nil, fmt.Errorf("constructing %s from %s: %w", className, scriptPath, err)
	}

	self, ok := L.Get(-1).(*lua.LTable)
	L.Pop(1)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("script %s: %s.new did not return a table", scriptPath, className)
	}
	app.self = self
	return app, nil
}

// installHostTable exposes the host capabilities to the script.
func (a *scriptApp) installHostTable() {
	host := a.L.NewTable()
	a.L.SetField(host, "name", lua.LString(a.name))
	a.L.SetField(host, "broadcast", a.L.NewFunction(func(L *lua.LState) int {
		channel := L.CheckString(1)
		message := L.CheckString(2)
		if a.owner != nil {
			a.owner.Broadcast(channel, message)
		}
		return 0
	}))
	a.L.SetGlobal("quay", host)
}

// Name implements api.App.
func (a *scriptApp) Name() string { return a.name }

// Received implements api.App by invoking the script's received method,
// when present. Script errors are swallowed by returning; the host treats
// a misbehaving component as degraded, not fatal.
func (a *scriptApp) Received(channel, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fn, ok := a.L.GetField(a.self, "received").(*lua.LFunction)
	if !ok {
		return
	}
	_ = a.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true},
		lua.LString(channel), lua.LString(message))
}

// Frames implements api.App. Each panel table returned by the script is
// wrapped so that later content changes are visible to the presentation
// container.
func (a *scriptApp) Frames() []api.Panel {
	a.mu.Lock()
	defer a.mu.Unlock()

	fn, ok := a.L.GetField(a.self, "frames").(*lua.LFunction)
	if !ok {
		return nil
	}
	if err := a.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
		return nil
	}
	ret := a.L.Get(-1)
	a.L.Pop(1)

	list, ok := ret.(*lua.LTable)
	if !ok {
		return nil
	}

	var panels []api.Panel
	list.ForEach(func(_, v lua.LValue) {
		if tbl, ok := v.(*lua.LTable); ok {
			panels = append(panels, &scriptPanel{app: a, tbl: tbl})
		}
	})
	return panels
}

// Close releases the interpreter state.
func (a *scriptApp) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.L.Close()
}

// scriptPanel adapts a Lua panel table ({title=..., lines={...}}) to
// api.Panel. Reads re-enter the owning state under its mutex.
type scriptPanel struct {
	app *scriptApp
	tbl *lua.LTable
}

func (p *scriptPanel) Title() string {
	p.app.mu.Lock()
	defer p.app.mu.Unlock()

	if s, ok := p.app.L.GetField(p.tbl, "title").(lua.LString); ok {
		return string(s)
	}
	return ""
}

func (p *scriptPanel) Lines() []string {
	p.app.mu.Lock()
	defer p.app.mu.Unlock()

	lines, ok := p.app.L.GetField(p.tbl, "lines").(*lua.LTable)
	if !ok {
		return nil
	}
	var out []string
	lines.ForEach(func(_, v lua.LValue) {
		out = append(out, lua.LVAsString(v))
	})
	return out
}

// goToLua converts a Go argument mapping to a Lua table.
func goToLua(L *lua.LState, args map[string]any) lua.LValue {
	if args == nil {
		return lua.LNil
	}
	tbl := L.NewTable()
	for k, v := range args {
		L.SetField(tbl, k, goValue(L, v))
	}
	return tbl
}

func goValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case []any:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(goValue(L, item))
		}
		return tbl
	case map[string]any:
		return goToLua(L, val)
	default:
		return lua.LString(fmt.Sprint(val))
	}
}
