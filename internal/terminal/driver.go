package terminal

import (
	"context"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"

	"github.com/dshills/luaterm/internal/input/key"
	"github.com/dshills/luaterm/internal/logging"
)

// Driver shows a widget on a tcell screen and feeds it the screen's key
// events.
type Driver struct {
	screen tcell.Screen
	widget *Widget
	color  bool
	log    *logrus.Entry
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithColor enables or disables colored output.
func WithColor(enabled bool) DriverOption {
	return func(d *Driver) {
		d.color = enabled
	}
}

// WithDriverLogger sets the logger.
func WithDriverLogger(entry *logrus.Entry) DriverOption {
	return func(d *Driver) {
		d.log = entry
	}
}

// NewDriver creates a driver. The screen must not be initialized yet; Run
// owns its lifetime.
func NewDriver(screen tcell.Screen, widget *Widget, opts ...DriverOption) *Driver {
	d := &Driver{
		screen: screen,
		widget: widget,
		color:  true,
		log:    logging.Named("driver"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run initializes the screen and processes events until ctx is done.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.screen.Init(); err != nil {
		return err
	}
	defer d.screen.Fini()

	if err := d.widget.Resize(d.screen.Size()); err != nil {
		d.log.WithError(err).Warn("initial resize failed")
	}

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go d.screen.ChannelEvents(events, quit)

	d.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.widget.Changed():
			d.draw()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.handle(ev)
		}
	}
}

func (d *Driver) handle(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if k, ok := convertKey(ev); ok {
			d.widget.Dispatch(k)
		}
	case *tcell.EventResize:
		w, h := ev.Size()
		if err := d.widget.Resize(w, h); err != nil {
			d.log.WithError(err).Warn("resize failed")
		}
		d.screen.Sync()
		d.draw()
	}
}

func (d *Driver) draw() {
	s := d.widget.Screen()
	width, height := s.Size()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := s.Cell(x, y)
			if c.Width == 0 {
				continue
			}
			d.screen.SetContent(x, y, c.Rune, nil, d.style(c))
		}
	}
	if s.CursorVisible() {
		cx, cy := s.Cursor()
		d.screen.ShowCursor(min(cx, width-1), cy)
	} else {
		d.screen.HideCursor()
	}
	d.screen.Show()
}

func (d *Driver) style(c Cell) tcell.Style {
	st := tcell.StyleDefault
	if d.color {
		st = st.Foreground(tcellColor(c.Fg)).Background(tcellColor(c.Bg))
	}
	return st.
		Bold(c.Attrs.Has(AttrBold)).
		Dim(c.Attrs.Has(AttrDim)).
		Italic(c.Attrs.Has(AttrItalic)).
		Underline(c.Attrs.Has(AttrUnderline)).
		Reverse(c.Attrs.Has(AttrReverse))
}

func tcellColor(c Color) tcell.Color {
	if c == ColorDefault {
		return tcell.ColorDefault
	}
	return tcell.PaletteColor(int(c))
}

// convertKey maps a tcell key event to a key.Event. Control letters arrive
// from tcell either as KeyCtrlA..KeyCtrlZ or as raw C0 codes; both become a
// lower-case rune with ModCtrl.
func convertKey(ev *tcell.EventKey) (key.Event, bool) {
	mods := convertMods(ev.Modifiers())
	k := ev.Key()

	switch {
	case k == tcell.KeyRune:
		return key.NewRuneEvent(ev.Rune(), mods), true
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		return key.NewRuneEvent('a'+rune(k-tcell.KeyCtrlA), mods.With(key.ModCtrl)), true
	}

	if special, ok := specialKeys[k]; ok {
		return key.NewSpecialEvent(special, mods), true
	}

	// Remaining C0 codes, e.g. Ctrl-D from a terminal that reports KeyEOT
	if k > tcell.KeyNUL && k < tcell.KeyESC {
		return key.NewRuneEvent('a'+rune(k-tcell.KeySOH), mods.With(key.ModCtrl)), true
	}
	return key.Event{}, false
}

var specialKeys = map[tcell.Key]key.Key{
	tcell.KeyEnter:     key.KeyEnter,
	tcell.KeyLF:        key.KeyEnter,
	tcell.KeyTab:       key.KeyTab,
	tcell.KeyBacktab:   key.KeyTab,
	tcell.KeyBackspace: key.KeyBackspace,
	tcell.KeyDEL:       key.KeyBackspace,
	tcell.KeyEscape:    key.KeyEscape,
	tcell.KeyDelete:    key.KeyDelete,
	tcell.KeyInsert:    key.KeyInsert,
	tcell.KeyHome:      key.KeyHome,
	tcell.KeyEnd:       key.KeyEnd,
	tcell.KeyPgUp:      key.KeyPageUp,
	tcell.KeyPgDn:      key.KeyPageDown,
	tcell.KeyUp:        key.KeyUp,
	tcell.KeyDown:      key.KeyDown,
	tcell.KeyLeft:      key.KeyLeft,
	tcell.KeyRight:     key.KeyRight,
	tcell.KeyF1:        key.KeyF1,
	tcell.KeyF2:        key.KeyF2,
	tcell.KeyF3:        key.KeyF3,
	tcell.KeyF4:        key.KeyF4,
	tcell.KeyF5:        key.KeyF5,
	tcell.KeyF6:        key.KeyF6,
	tcell.KeyF7:        key.KeyF7,
	tcell.KeyF8:        key.KeyF8,
	tcell.KeyF9:        key.KeyF9,
	tcell.KeyF10:       key.KeyF10,
	tcell.KeyF11:       key.KeyF11,
	tcell.KeyF12:       key.KeyF12,
}

func convertMods(m tcell.ModMask) key.Modifier {
	var mods key.Modifier
	if m&tcell.ModShift != 0 {
		mods |= key.ModShift
	}
	if m&tcell.ModCtrl != 0 {
		mods |= key.ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		mods |= key.ModAlt
	}
	if m&tcell.ModMeta != 0 {
		mods |= key.ModMeta
	}
	return mods
}
