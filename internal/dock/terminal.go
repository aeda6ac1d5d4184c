package dock

import (
	"errors"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/quayhost/quay/internal/api"
	"github.com/quayhost/quay/internal/descriptor"
)

// ErrTerminalClosed is returned when attaching to a closed terminal.
var ErrTerminalClosed = errors.New("terminal container is closed")

// entry is one attached panel.
type entry struct {
	handle Handle
	app    string
	panel  api.Panel
	pos    descriptor.Position
}

// Terminal is a Container that renders panels into dock areas of a tcell
// screen: stacked columns on the left and right, stacked rows on the top
// and bottom.
type Terminal struct {
	mu      sync.Mutex
	screen  tcell.Screen
	entries []entry
	closed  bool
	quit    chan struct{}
	once    sync.Once
}

// NewTerminal creates a terminal container on a fresh tcell screen.
func NewTerminal() (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	return &Terminal{
		screen: screen,
		quit:   make(chan struct{}),
	}, nil
}

// newTerminalWithScreen exists for tests on a simulation screen.
func newTerminalWithScreen(screen tcell.Screen) *Terminal {
	return &Terminal{
		screen: screen,
		quit:   make(chan struct{}),
	}
}

// Attach implements Container.
func (t *Terminal) Attach(app string, panel api.Panel, pos descriptor.Position) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return Handle{}, ErrTerminalClosed
	}

	h := NewHandle()
	t.entries = append(t.entries, entry{handle: h, app: app, panel: panel, pos: pos.OrDefault()})
	t.redrawLocked()
	return h, nil
}

// Detach implements Container.
func (t *Terminal) Detach(h Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, e := range t.entries {
		if e.handle == h {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			break
		}
	}
	if !t.closed {
		t.redrawLocked()
	}
}

// Refresh repaints all panels with their current content.
func (t *Terminal) Refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.redrawLocked()
	}
}

// refreshInterval is how often Run repaints panel content. Applications
// mutate their panels on the dispatch goroutine; the container polls the
// content rather than requiring a change notification.
const refreshInterval = 250 * time.Millisecond

// Run polls terminal events until Ctrl+C, Escape or Close. It blocks and
// is intended to be the main goroutine's loop. While running, panel
// content is repainted on a fixed interval so deliveries become visible
// without a user event.
func (t *Terminal) Run() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-t.quit:
				return
			case <-ticker.C:
				t.Refresh()
			}
		}
	}()

	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			t.screen.Sync()
			t.Refresh()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyEscape {
				t.Close()
				return
			}
		}
		select {
		case <-t.quit:
			return
		default:
		}
	}
}

// Close releases the screen. Safe to call more than once.
func (t *Terminal) Close() {
	t.once.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
		close(t.quit)
		t.screen.Fini()
	})
}

// Done is closed when the container shuts down.
func (t *Terminal) Done() <-chan struct{} {
	return t.quit
}

// Layout constants.
const (
	sideWidth  = 32 // columns reserved per left/right dock
	bandHeight = 8  // rows reserved per top/bottom dock
)

// redrawLocked repaints the whole screen. Caller holds t.mu.
func (t *Terminal) redrawLocked() {
	t.screen.Clear()
	width, height := t.screen.Size()

	var left, right, top, bottom []entry
	for _, e := range t.entries {
		switch e.pos {
		case descriptor.PositionRight:
			right = append(right, e)
		case descriptor.PositionTop:
			top = append(top, e)
		case descriptor.PositionBottom:
			bottom = append(bottom, e)
		default:
			left = append(left, e)
		}
	}

	topH, bottomH := 0, 0
	if len(top) > 0 {
		topH = min(bandHeight, height/3)
	}
	if len(bottom) > 0 {
		bottomH = min(bandHeight, height/3)
	}
	midY := topH
	midH := height - topH - bottomH

	t.drawRow(top, 0, 0, width, topH)
	t.drawRow(bottom, 0, height-bottomH, width, bottomH)

	leftW, rightW := 0, 0
	if len(left) > 0 {
		leftW = min(sideWidth, width/2)
	}
	if len(right) > 0 {
		rightW = min(sideWidth, width/2)
	}
	t.drawColumn(left, 0, midY, leftW, midH)
	t.drawColumn(right, width-rightW, midY, rightW, midH)

	t.screen.Show()
}

// drawColumn stacks entries vertically in the given region.
func (t *Terminal) drawColumn(entries []entry, x, y, w, h int) {
	if len(entries) == 0 || w <= 0 || h <= 0 {
		return
	}
	each := h / len(entries)
	for i, e := range entries {
		t.drawPanel(e, x, y+i*each, w, each)
	}
}

// drawRow lays entries side by side in the given region.
func (t *Terminal) drawRow(entries []entry, x, y, w, h int) {
	if len(entries) == 0 || w <= 0 || h <= 0 {
		return
	}
	each := w / len(entries)
	for i, e := range entries {
		t.drawPanel(e, x+i*each, y, each, h)
	}
}

// drawPanel renders one titled panel into its region.
func (t *Terminal) drawPanel(e entry, x, y, w, h int) {
	if w < 2 || h < 1 {
		return
	}

	titleStyle := tcell.StyleDefault.Bold(true).Underline(true)
	title := e.app + ": " + e.panel.Title()
	t.drawText(x, y, w, title, titleStyle)

	lines := e.panel.Lines()
	style := tcell.StyleDefault
	for i, line := range lines {
		if i+1 >= h {
			break
		}
		t.drawText(x, y+1+i, w, line, style)
	}
}

// drawText writes a clipped string at (x, y).
func (t *Terminal) drawText(x, y, w int, text string, style tcell.Style) {
	col := x
	for _, r := range text {
		if col >= x+w {
			break
		}
		t.screen.SetContent(col, y, r, nil, style)
		col++
	}
}
