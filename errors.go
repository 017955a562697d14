package vcpu

import (
	"errors"
	"fmt"
)

// BadStateError reports a lifecycle operation invoked from a state that
// does not satisfy its precondition. The VCpu is forced to StateInvalid
// before this error is returned.
type BadStateError struct {
	// Op is the operation that was attempted.
	Op string
	// Want is the state the operation requires.
	Want State
	// Got is the state the VCpu was actually in.
	Got State
}

func (e *BadStateError) Error() string {
	return fmt.Sprintf("vcpu: %s requires state %s, but state is %s", e.Op, e.Want, e.Got)
}

// Common errors for API consumers.
var (
	// ErrInvalidArgument reports malformed input at a construction
	// boundary.
	ErrInvalidArgument = errors.New("vcpu: invalid argument")
)

// opError wraps a backend failure with the failing operation. The backend
// error is forwarded unmodified underneath and remains reachable with
// errors.Is and errors.As.
func opError(op string, err error) error {
	return fmt.Errorf("vcpu: %s: %w", op, err)
}
