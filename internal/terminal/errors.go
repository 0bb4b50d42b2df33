package terminal

import "errors"

// Sentinel errors for the terminal package.
var (
	// ErrWidgetClosed is returned when writing to a closed widget.
	ErrWidgetClosed = errors.New("terminal widget is closed")

	// ErrInvalidSize is returned when a size has no rows or columns.
	ErrInvalidSize = errors.New("invalid terminal size")
)
