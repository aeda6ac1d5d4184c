package api

import (
	"encoding/json"
	"sync"
)

// Base is a minimal App implementation intended for embedding. It stores
// the instance name and owner capability, owns no panels, and ignores
// received messages. Concrete applications override Frames and Received
// as needed.
type Base struct {
	name  string
	owner Owner
}

// NewBase creates a Base for the given name and owner.
func NewBase(name string, owner Owner) Base {
	return Base{name: name, owner: owner}
}

// Name returns the instance name.
func (b *Base) Name() string { return b.name }

// Frames returns no panels.
func (b *Base) Frames() []Panel { return nil }

// Received ignores the message.
func (b *Base) Received(channel, message string) {}

// Broadcast forwards to the owner capability. It is a no-op when the
// instance was constructed without an owner (standalone use in tests).
func (b *Base) Broadcast(channel, message string) {
	if b.owner != nil {
		b.owner.Broadcast(channel, message)
	}
}

// BroadcastJSON encodes content as JSON and broadcasts it. Content that
// cannot be encoded is reported back to the caller rather than sent.
func (b *Base) BroadcastJSON(channel string, content any) error {
	msg, err := json.Marshal(content)
	if err != nil {
		return err
	}
	b.Broadcast(channel, string(msg))
	return nil
}

// TextPanel is a trivial Panel backed by a title and a mutable line slice.
// It is sufficient for applications that render plain text status. Content
// is written on the dispatch goroutine and read by the presentation
// container, so access is guarded.
type TextPanel struct {
	mu      sync.Mutex
	title   string
	content []string
}

// NewTextPanel creates an empty titled panel.
func NewTextPanel(title string) *TextPanel {
	return &TextPanel{title: title}
}

// Title returns the panel title.
func (p *TextPanel) Title() string { return p.title }

// Lines returns a copy of the current content.
func (p *TextPanel) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	lines := make([]string, len(p.content))
	copy(lines, p.content)
	return lines
}

// SetLines replaces the panel content.
func (p *TextPanel) SetLines(lines ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.content = append(p.content[:0:0], lines...)
}

// Append adds a line, keeping at most limit lines when limit > 0.
func (p *TextPanel) Append(line string, limit int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.content = append(p.content, line)
	if limit > 0 && len(p.content) > limit {
		p.content = p.content[len(p.content)-limit:]
	}
}
