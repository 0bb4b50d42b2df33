// Package terminal provides the virtual terminal widget luaterm draws into.
//
// A Widget owns a cell Screen and an ANSI Parser. Text written to the widget
// is parsed into the screen; key events delivered with Dispatch go to the
// single handler registered with OnKey. Drivers connect a widget to the
// outside world:
//
//   - Driver renders the screen on a tcell.Screen and converts its key
//     events.
//   - PipeDriver replays newline-terminated input from a reader, for
//     scripted sessions where stdin is not a terminal.
//
// The parser understands the subset of escape sequences the shell and the
// Lua console emit: cursor movement, erase, and SGR colors.
package terminal
