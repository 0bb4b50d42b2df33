package key

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Event represents a single key press event.
type Event struct {
	// Key identifies the key pressed.
	Key Key

	// Rune is the character for KeyRune events.
	Rune rune

	// Modifiers contains the active modifier keys.
	Modifiers Modifier

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// NewRuneEvent creates a key event for a character.
func NewRuneEvent(r rune, mods Modifier) Event {
	return Event{
		Key:       KeyRune,
		Rune:      r,
		Modifiers: mods,
		Timestamp: time.Now(),
	}
}

// NewSpecialEvent creates a key event for a special key.
func NewSpecialEvent(key Key, mods Modifier) Event {
	return Event{
		Key:       key,
		Modifiers: mods,
		Timestamp: time.Now(),
	}
}

// IsRune returns true if this is a character key event.
func (e Event) IsRune() bool {
	return e.Key == KeyRune && e.Rune != 0
}

// IsEnter returns true for Enter and keypad Enter, whatever the modifiers.
func (e Event) IsEnter() bool {
	return e.Key == KeyEnter || e.Key == KeyKPEnter
}

// IsBackspace returns true if this is Backspace (with no modifiers).
func (e Event) IsBackspace() bool {
	return e.Key == KeyBackspace && e.Modifiers == ModNone
}

// IsCtrl reports whether the event is Ctrl plus the letter r.
// The comparison ignores case, so Ctrl+D and Ctrl+d both match 'd'.
func (e Event) IsCtrl(r rune) bool {
	return e.IsRune() && e.Modifiers.HasCtrl() &&
		unicode.ToLower(e.Rune) == unicode.ToLower(r)
}

// specialText holds the input sequences a VT100/xterm terminal sends in
// normal cursor key mode.
var specialText = map[Key]string{
	KeyEscape:    "\x1b",
	KeyEnter:     "\r",
	KeyKPEnter:   "\r",
	KeyTab:       "\t",
	KeyBackspace: "\x7f",
	KeyDelete:    "\x1b[3~",
	KeyInsert:    "\x1b[2~",
	KeyHome:      "\x1b[H",
	KeyEnd:       "\x1b[F",
	KeyPageUp:    "\x1b[5~",
	KeyPageDown:  "\x1b[6~",
	KeyUp:        "\x1b[A",
	KeyDown:      "\x1b[B",
	KeyRight:     "\x1b[C",
	KeyLeft:      "\x1b[D",
	KeyF1:        "\x1bOP",
	KeyF2:        "\x1bOQ",
	KeyF3:        "\x1bOR",
	KeyF4:        "\x1bOS",
	KeyF5:        "\x1b[15~",
	KeyF6:        "\x1b[17~",
	KeyF7:        "\x1b[18~",
	KeyF8:        "\x1b[19~",
	KeyF9:        "\x1b[20~",
	KeyF10:       "\x1b[21~",
	KeyF11:       "\x1b[23~",
	KeyF12:       "\x1b[24~",
	KeySpace:     " ",
}

// Text returns the literal text a terminal emits for the key.
// Ctrl plus a letter yields the matching C0 control character and Alt
// prefixes the text with ESC. Unknown keys return "".
func (e Event) Text() string {
	var s string
	switch {
	case e.Key == KeyRune:
		if e.Rune == 0 {
			return ""
		}
		s = string(e.Rune)
		if e.Modifiers.HasCtrl() {
			if c, ok := controlChar(e.Rune); ok {
				s = string(c)
			}
		}
	default:
		s = specialText[e.Key]
		if s == "" {
			return ""
		}
	}
	if e.Modifiers.HasAlt() {
		s = "\x1b" + s
	}
	return s
}

// controlChar maps '@', 'a'-'z' and '[' through '_' to 0x00-0x1f.
func controlChar(r rune) (rune, bool) {
	r = unicode.ToUpper(r)
	if r >= '@' && r <= '_' {
		return r - '@', true
	}
	return 0, false
}

// String returns a canonical string representation.
// Examples: "a", "C-d", "Enter", "A-Left"
func (e Event) String() string {
	var parts []string
	if e.Modifiers.HasCtrl() {
		parts = append(parts, "C")
	}
	if e.Modifiers.HasAlt() {
		parts = append(parts, "A")
	}
	if e.Modifiers.HasMeta() {
		parts = append(parts, "M")
	}
	// Shift is part of the character for runes
	if e.Modifiers.HasShift() && !e.IsRune() {
		parts = append(parts, "S")
	}

	switch {
	case e.Key == KeyRune && e.Rune == ' ':
		parts = append(parts, "Space")
	case e.Key == KeyRune:
		parts = append(parts, string(e.Rune))
	default:
		parts = append(parts, e.Key.String())
	}
	return strings.Join(parts, "-")
}

// Equals returns true if two events represent the same key press.
// Timestamps are not compared.
func (e Event) Equals(other Event) bool {
	return e.Key == other.Key &&
		e.Rune == other.Rune &&
		e.Modifiers == other.Modifiers
}

// GoString implements fmt.GoStringer for debugging.
func (e Event) GoString() string {
	return fmt.Sprintf("Event{Key: %s, Rune: %q, Modifiers: %s}",
		e.Key.String(), e.Rune, e.Modifiers.String())
}
