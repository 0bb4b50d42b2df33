package key

import "strings"

// Modifier is a set of held modifier keys.
type Modifier uint8

// Modifier bits. ModNone is the empty set.
const (
	ModNone  Modifier = 0
	ModShift Modifier = 1 << (iota - 1)
	ModCtrl
	ModAlt  // Option on macOS
	ModMeta // Cmd on macOS, Win on Windows
)

// Has reports whether every bit of mod is set in m.
func (m Modifier) Has(mod Modifier) bool {
	return mod != ModNone && m&mod == mod
}

func (m Modifier) HasShift() bool { return m.Has(ModShift) }
func (m Modifier) HasCtrl() bool  { return m.Has(ModCtrl) }
func (m Modifier) HasAlt() bool   { return m.Has(ModAlt) }
func (m Modifier) HasMeta() bool  { return m.Has(ModMeta) }

// With returns m plus mod.
func (m Modifier) With(mod Modifier) Modifier {
	return m | mod
}

var modifierOrder = []struct {
	mod  Modifier
	name string
}{
	{ModCtrl, "Ctrl"},
	{ModAlt, "Alt"},
	{ModShift, "Shift"},
	{ModMeta, "Meta"},
}

// String joins the held modifiers with '+', e.g. "Ctrl+Alt".
func (m Modifier) String() string {
	var parts []string
	for _, o := range modifierOrder {
		if m.Has(o.mod) {
			parts = append(parts, o.name)
		}
	}
	return strings.Join(parts, "+")
}
