package observability

import (
	stderrors "errors"

	"github.com/matzehuels/layouttune/pkg/errors"
)

// StageError records which evaluation stage produced Err.
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// AtStage wraps err with its stage. It returns nil for a nil err.
func AtStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf reports the stage that produced err. Errors that were not wrapped
// with [AtStage] are attributed by their error code; unknown errors return "".
func StageOf(err error) Stage {
	var se *StageError
	if stderrors.As(err, &se) {
		return se.Stage
	}
	switch errors.GetCode(err) {
	case errors.ErrCodePatchMismatch:
		return StagePatch
	case errors.ErrCodeBuildFailed:
		return StageBuild
	case errors.ErrCodeRenderFailed:
		return StageRender
	case errors.ErrCodeParseFailed:
		return StageParse
	}
	return ""
}
