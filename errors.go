package regnet

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/regnet/expression"
)

// ErrRunAborted marks a run that stopped before completing all
// bootstraps. The protocol is fail-fast: there are no retries and no
// partial-bootstrap recovery, so any rank error surfaces here.
//
// The original underlying error can be accessed via errors.Unwrap.
var ErrRunAborted = errors.New("run aborted")

// translateError normalizes subpackage errors at the workflow boundary.
// Structured errors (AlignmentError, EmptyResultError, orientation and
// configuration sentinels) pass through so callers can inspect them;
// everything else that kills a run is unified under ErrRunAborted.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Caller-inspectable classes keep their identity.
	var align *expression.AlignmentError
	if errors.As(err, &align) {
		return err
	}
	var empty *expression.EmptyResultError
	if errors.As(err, &empty) {
		return err
	}
	if errors.Is(err, expression.ErrOrientation) || errors.Is(err, expression.ErrConfiguration) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrRunAborted, err)
}
