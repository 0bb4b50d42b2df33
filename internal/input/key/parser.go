package key

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Parse errors
var (
	ErrEmptySpec        = errors.New("empty key specification")
	ErrInvalidSpec      = errors.New("invalid key specification")
	ErrUnmatchedBracket = errors.New("unmatched bracket in key specification")
)

// modifierNames covers both notations: "Ctrl+Alt+x" and Vim's "<C-A-x>".
// D is Vim's name for Command.
var modifierNames = map[string]Modifier{
	"c":       ModCtrl,
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"a":       ModAlt,
	"alt":     ModAlt,
	"option":  ModAlt,
	"s":       ModShift,
	"shift":   ModShift,
	"m":       ModMeta,
	"d":       ModMeta,
	"meta":    ModMeta,
	"cmd":     ModMeta,
	"super":   ModMeta,
}

// runeNames spell characters that are awkward inside a spec.
var runeNames = map[string]rune{
	"space": ' ',
	"lt":    '<',
	"gt":    '>',
	"bar":   '|',
	"plus":  '+',
	"minus": '-',
}

// Parse reads a key binding. Accepted forms:
//   - a single character: "a", "A" (implies Shift), "@"
//   - a key name: "Enter", "Esc", "Backspace", "F5"
//   - modifiers joined with '+': "Ctrl+D", "Alt+Shift+Left"
//   - Vim notation: "<C-d>", "<A-lt>", "<CR>", "<BS>"
//   - the same without brackets, as String writes it: "C-d", "A-Left"
//
// Ctrl combinations always carry the lower-case letter, so "Ctrl+D" and
// "<C-d>" parse to the same event.
func Parse(spec string) (Event, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Event{}, ErrEmptySpec
	}

	sep := "+"
	if strings.HasPrefix(spec, "<") && len(spec) > 1 {
		if !strings.HasSuffix(spec, ">") {
			return Event{}, fmt.Errorf("%w: %q", ErrUnmatchedBracket, spec)
		}
		spec = spec[1 : len(spec)-1]
		sep = "-"
	}

	parts := splitSpec(spec, sep)
	if sep == "+" {
		if dashed := splitSpec(spec, "-"); len(dashed) > 1 && allModifiers(dashed[:len(dashed)-1]) {
			parts = dashed
		}
	}
	var mods Modifier
	for _, p := range parts[:len(parts)-1] {
		m, ok := modifierNames[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return Event{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
		}
		mods = mods.With(m)
	}
	return keyEvent(strings.TrimSpace(parts[len(parts)-1]), mods)
}

// splitSpec splits on sep, treating a doubled trailing separator as the
// separator key itself: "Ctrl++" is Ctrl and '+'.
func splitSpec(spec, sep string) []string {
	if spec == sep {
		return []string{spec}
	}
	if len(spec) > 1 && strings.HasSuffix(spec, sep+sep) {
		parts := strings.Split(strings.TrimSuffix(spec, sep+sep), sep)
		return append(parts, sep)
	}
	return strings.Split(spec, sep)
}

func allModifiers(parts []string) bool {
	for _, p := range parts {
		if _, ok := modifierNames[strings.ToLower(strings.TrimSpace(p))]; !ok {
			return false
		}
	}
	return true
}

func keyEvent(name string, mods Modifier) (Event, error) {
	if name == "" {
		return Event{}, ErrInvalidSpec
	}
	if r, ok := runeNames[strings.ToLower(name)]; ok {
		return NewRuneEvent(r, mods), nil
	}
	if k := KeyFromName(name); k != KeyNone && k != KeySpace {
		return NewSpecialEvent(k, mods), nil
	}

	runes := []rune(name)
	if len(runes) != 1 {
		return Event{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, name)
	}
	r := runes[0]
	switch {
	case mods.HasCtrl():
		r = unicode.ToLower(r)
	case mods == ModNone && unicode.IsUpper(r):
		mods = ModShift
	}
	return NewRuneEvent(r, mods), nil
}
