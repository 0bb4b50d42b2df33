// Package key provides normalized key events for the console.
//
// A terminal backend converts its own event shape into an Event with a Key
// identifier, an optional Rune and named Modifier flags. Consumers never see
// the backend's event type.
//
//   - Key: identifies a special key or KeyRune for characters
//   - Modifier: Ctrl, Alt, Shift and Meta flags
//   - Event: a single key press with modifiers and timestamp
//
// # Terminal Text
//
// Event.Text returns the bytes a VT100-compatible terminal would send for the
// key. The console echoes this text for keys it does not interpret, so an
// arrow key shows up as its escape sequence rather than moving the cursor.
//
// # Key Specifications
//
// Bindings can be written as "a", "Enter", "Ctrl+D" or Vim-style "<C-d>".
package key
