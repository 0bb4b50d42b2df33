package console

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/dshills/luaterm/internal/input/key"
	"github.com/dshills/luaterm/internal/logging"
)

// EraseSequence moves the cursor left, blanks the cell and moves left again.
const EraseSequence = "\b \b"

// Default prompts, following the stand-alone lua interpreter.
const (
	DefaultPrimaryPrompt   = "> "
	DefaultSecondaryPrompt = ">> "
)

// Evaluator runs source pushed one line at a time.
type Evaluator interface {
	// Push adds a line and reports whether more input is needed to
	// complete the statement.
	Push(line string) (more bool)

	// Redirect installs w as the output and error sink and returns the
	// sink it replaced.
	Redirect(w io.Writer) (prev io.Writer)
}

// Host is notified when interactive mode ends.
type Host interface {
	// ExitInteractiveMode is called on the end-of-input path (Ctrl-D).
	ExitInteractiveMode()

	// RestorePriorMode is called when the interaction is interrupted (Ctrl-C).
	RestorePriorMode()
}

// Prompts holds the primary and secondary (continuation) prompt strings.
type Prompts struct {
	Primary   string
	Secondary string
}

// DefaultPrompts returns the prompts used when none are configured.
func DefaultPrompts() Prompts {
	return Prompts{Primary: DefaultPrimaryPrompt, Secondary: DefaultSecondaryPrompt}
}

// State is the interaction lifecycle state.
type State int

const (
	// Idle means key events are ignored.
	Idle State = iota
	// Interacting means key events edit the pending line.
	Interacting
)

func (s State) String() string {
	if s == Interacting {
		return "interacting"
	}
	return "idle"
}

// Bindings are the keys that end an interaction.
type Bindings struct {
	Interrupt key.Event
	EOF       key.Event
}

// DefaultBindings returns Ctrl-C for interrupt and Ctrl-D for end of input.
func DefaultBindings() Bindings {
	return Bindings{
		Interrupt: key.NewRuneEvent('c', key.ModCtrl),
		EOF:       key.NewRuneEvent('d', key.ModCtrl),
	}
}

// Adapter connects a terminal widget to an Evaluator.
type Adapter struct {
	widget io.Writer
	eval   Evaluator
	host   Host

	prompts  Prompts
	bindings Bindings

	pending    LineBuffer
	continuing bool
	state      State
	prevSink   io.Writer

	log *logrus.Entry
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithPrompts overrides the default prompts. Empty fields keep the default.
func WithPrompts(p Prompts) Option {
	return func(a *Adapter) {
		a.SetPrompts(p)
	}
}

// WithBindings overrides the interrupt and end-of-input keys.
func WithBindings(b Bindings) Option {
	return func(a *Adapter) {
		a.bindings = b
	}
}

// WithLogger sets the log entry.
func WithLogger(entry *logrus.Entry) Option {
	return func(a *Adapter) {
		a.log = entry
	}
}

// NewAdapter creates an idle adapter writing to widget.
func NewAdapter(widget io.Writer, eval Evaluator, host Host, opts ...Option) *Adapter {
	a := &Adapter{
		widget:   widget,
		eval:     eval,
		host:     host,
		prompts:  DefaultPrompts(),
		bindings: DefaultBindings(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logging.Named("console")
	}
	return a
}

// Write forwards p to the widget unchanged.
func (a *Adapter) Write(p []byte) (int, error) {
	return a.widget.Write(p)
}

// Flush does nothing. Writes are never buffered.
func (a *Adapter) Flush() error {
	return nil
}

func (a *Adapter) writeString(s string) {
	if s == "" {
		return
	}
	if _, err := io.WriteString(a.widget, s); err != nil {
		a.log.WithError(err).Warn("widget write failed")
	}
}

// HandleKey applies one key event. Events are ignored while Idle.
func (a *Adapter) HandleKey(ev key.Event) {
	if a.state != Interacting {
		return
	}

	switch {
	case ev.IsEnter():
		a.submit()
	case a.bindings.IsInterrupt(ev):
		a.EndInteraction()
	case a.bindings.IsEOF(ev):
		a.Exit()
	case ev.Key == key.KeyBackspace:
		if a.pending.Backspace() {
			a.writeString(EraseSequence)
		}
	default:
		text := ev.Text()
		if text == "" {
			return
		}
		a.pending.Append(text)
		a.writeString(text)
	}
}

// IsInterrupt reports whether ev is the interrupt key.
func (b Bindings) IsInterrupt(ev key.Event) bool { return matches(ev, b.Interrupt) }

// IsEOF reports whether ev is the end-of-input key.
func (b Bindings) IsEOF(ev key.Event) bool { return matches(ev, b.EOF) }

// matches compares ev to a binding. Ctrl+letter bindings ignore Shift and
// letter case.
func matches(ev, binding key.Event) bool {
	if binding.Key == key.KeyRune && binding.Modifiers.HasCtrl() {
		return ev.IsCtrl(binding.Rune)
	}
	return ev.Equals(binding)
}

func (a *Adapter) submit() {
	a.writeString("\n")
	line := a.pending.Take()
	a.continuing = a.eval.Push(line)
	a.log.WithFields(logging.Fields{"line": line, "more": a.continuing}).Debug("line submitted")

	// The evaluator may have ended the interaction (exit())
	if a.state != Interacting {
		return
	}
	a.writePrompt()
}

func (a *Adapter) writePrompt() {
	if a.continuing {
		a.writeString(a.prompts.Secondary)
	} else {
		a.writeString(a.prompts.Primary)
	}
}

// SetPrompts replaces the prompts. Empty fields keep their current value.
func (a *Adapter) SetPrompts(p Prompts) {
	if p.Primary != "" {
		a.prompts.Primary = p.Primary
	}
	if p.Secondary != "" {
		a.prompts.Secondary = p.Secondary
	}
}

// Prompts returns the current prompts.
func (a *Adapter) Prompts() Prompts {
	return a.prompts
}

// Pending returns the line typed so far.
func (a *Adapter) Pending() string {
	return a.pending.String()
}

// Continuing reports whether the evaluator asked for more input.
func (a *Adapter) Continuing() bool {
	return a.continuing
}

// State returns the lifecycle state.
func (a *Adapter) State() State {
	return a.state
}
