package flow

import (
	"errors"
	"fmt"

	"github.com/kislikjeka/memechain/internal/platform/txerror"
)

var (
	// ErrInProgress is returned when a run is requested while another is still running
	ErrInProgress = errors.New("flow already in progress")

	// ErrNeedsReset is returned when a run is requested while the flow is in its error state
	ErrNeedsReset = errors.New("flow failed; reset it before running again")
)

// Error is the terminal failure of a run: the step it failed in, the classified presentation
// and the underlying cause.
type Error struct {
	Step Status `json:"step"`
	txerror.Classified
	Err error `json:"-"`
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed: %s", e.Step, e.Classified.Message)
	}
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts a *Error from err
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

var (
	// ErrReverted is returned when a confirmed receipt reports a failed execution
	ErrReverted = errors.New("transaction reverted on chain")

	// ErrReset is returned to a run that was abandoned by Reset
	ErrReset = errors.New("flow was reset")
)
