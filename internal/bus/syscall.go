package bus

import (
	"github.com/tidwall/gjson"

	"github.com/quayhost/quay/internal/descriptor"
)

// System-call action names, exactly as written on the wire.
const (
	actionCreate  = "create"
	actionDestroy = "destroy"
)

// system decodes message as the system-call protocol and executes its
// actions in document order. gjson iterates object members in the order
// they appear in the text, which is the stable insertion order the
// protocol requires.
//
// Malformed bodies and unrecognized actions are logged and skipped; they
// indicate a misbehaving peer application, not a fault in the bus. A
// failed create or destroy is likewise terminal here: this handler is the
// caller the error propagates to.
func (r *Registry) system(message string) {
	if !gjson.Valid(message) {
		r.log.Warn().Str("message", message).Msg("malformed system call ignored")
		return
	}
	parsed := gjson.Parse(message)
	if !parsed.IsObject() {
		r.log.Warn().Str("message", message).Msg("system call is not a mapping, ignored")
		return
	}

	r.mu.RLock()
	lc := r.lifecycle
	r.mu.RUnlock()
	if lc == nil {
		r.log.Error().Err(ErrNoLifecycle).Msg("system call dropped")
		return
	}

	r.syscalls.Add(1)

	parsed.ForEach(func(key, value gjson.Result) bool {
		switch key.Str {
		case actionCreate:
			r.systemCreate(lc, value)
		case actionDestroy:
			r.systemDestroy(lc, value)
		default:
			r.log.Warn().Str("action", key.Str).Msg("unrecognized system-call action skipped")
		}
		return true
	})
}

// systemCreate handles {"create": {"name": ..., "descriptor": {...}}}.
func (r *Registry) systemCreate(lc Lifecycle, value gjson.Result) {
	name := value.Get("name")
	desc := value.Get("descriptor")
	if name.Type != gjson.String || !desc.IsObject() {
		r.log.Warn().Str("value", value.Raw).Msg("malformed create action skipped")
		return
	}

	appDesc, err := descriptor.ParseAppJSON([]byte(desc.Raw))
	if err != nil {
		r.log.Warn().Err(err).Str("app", name.Str).Msg("create action descriptor rejected")
		return
	}

	if err := lc.CreateApp(name.Str, appDesc); err != nil {
		r.log.Error().Err(err).Str("app", name.Str).Msg("create action failed")
	}
}

// systemDestroy handles {"destroy": "<name>"}.
func (r *Registry) systemDestroy(lc Lifecycle, value gjson.Result) {
	if value.Type != gjson.String {
		r.log.Warn().Str("value", value.Raw).Msg("malformed destroy action skipped")
		return
	}

	if err := lc.DestroyApp(value.Str); err != nil {
		r.log.Error().Err(err).Str("app", value.Str).Msg("destroy action failed")
	}
}
