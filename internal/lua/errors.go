package lua

import (
	"errors"
	"fmt"
)

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a chunk runs past the state's timeout.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrModuleNotFound is returned when require or RunModule cannot resolve a name.
	ErrModuleNotFound = errors.New("module not found")
)

// ExitError reports that Lua code called exit() or os.exit().
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}
