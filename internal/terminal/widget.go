package terminal

import (
	"bytes"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dshills/luaterm/internal/input/key"
	"github.com/dshills/luaterm/internal/logging"
)

// KeyHandler receives key events dispatched to a widget.
type KeyHandler func(ev key.Event)

// Widget is a virtual terminal: an io.Writer that draws into a Screen and a
// source of key events for one registered handler.
type Widget struct {
	id string

	writeMu sync.Mutex
	screen  *Screen
	parser  *Parser
	mirror  io.Writer
	closed  bool

	handlerMu sync.Mutex
	handler   KeyHandler
	handlerID uint64

	changed chan struct{}
	log     *logrus.Entry
}

// WidgetOption configures a Widget.
type WidgetOption func(*Widget)

// WithMirror copies everything written to the widget to w, after newline
// translation.
func WithMirror(w io.Writer) WidgetOption {
	return func(wg *Widget) {
		wg.mirror = w
	}
}

// WithWidgetLogger sets the logger.
func WithWidgetLogger(entry *logrus.Entry) WidgetOption {
	return func(wg *Widget) {
		wg.log = entry
	}
}

// NewWidget creates a widget with a cols x rows screen.
func NewWidget(cols, rows int, opts ...WidgetOption) *Widget {
	screen := NewScreen(cols, rows)
	w := &Widget{
		id:      uuid.New().String(),
		screen:  screen,
		parser:  NewParser(screen),
		changed: make(chan struct{}, 1),
		log:     logging.Named("terminal"),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.parser.SetUnknownCallback(func(seq string) {
		w.log.WithField("seq", seq).Debug("unsupported escape sequence")
	})
	return w
}

// ID returns the widget's unique identifier.
func (w *Widget) ID() string {
	return w.id
}

// Screen returns the widget's screen.
func (w *Widget) Screen() *Screen {
	return w.screen
}

// Changed is signalled after writes. Multiple writes between receives
// collapse into one signal.
func (w *Widget) Changed() <-chan struct{} {
	return w.changed
}

// Write draws p on the screen. Bare "\n" is written as "\r\n" so output
// from line-oriented code starts each line at column zero.
func (w *Widget) Write(p []byte) (int, error) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if w.closed {
		return 0, ErrWidgetClosed
	}

	data := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	w.parser.Parse(data)
	if w.mirror != nil {
		if _, err := w.mirror.Write(data); err != nil {
			w.log.WithError(err).Warn("mirror write failed")
		}
	}

	select {
	case w.changed <- struct{}{}:
	default:
	}
	return len(p), nil
}

// WriteString writes s.
func (w *Widget) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Clear blanks the screen and homes the cursor.
func (w *Widget) Clear() {
	_, _ = w.WriteString("\x1b[2J\x1b[H")
}

// Resize changes the screen size.
func (w *Widget) Resize(cols, rows int) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.screen.Resize(cols, rows)
}

// OnKey makes fn the widget's key handler, replacing any previous one. The
// returned dispose function unregisters fn; it does nothing once another
// handler has replaced it.
func (w *Widget) OnKey(fn KeyHandler) (dispose func()) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()

	w.handlerID++
	id := w.handlerID
	w.handler = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			w.handlerMu.Lock()
			defer w.handlerMu.Unlock()
			if w.handlerID == id {
				w.handler = nil
			}
		})
	}
}

// Dispatch delivers ev to the current handler. Events with no handler are
// dropped.
func (w *Widget) Dispatch(ev key.Event) {
	w.handlerMu.Lock()
	fn := w.handler
	w.handlerMu.Unlock()

	if fn == nil {
		w.log.WithField("key", ev.String()).Debug("key dropped, no handler")
		return
	}
	fn(ev)
}

// Close stops the widget accepting writes.
func (w *Widget) Close() error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.closed = true
	return nil
}
