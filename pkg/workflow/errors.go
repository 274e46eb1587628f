package workflow

import (
	"errors"
	"fmt"

	"github.com/dukex/crmflow/pkg/models"
)

var (
	ErrActionPanicked    = errors.New("action panicked")
	ErrWorkflowPanicked  = errors.New("workflow panicked")
	ErrUnknownActionType = errors.New("unknown action type")
	ErrRecursionGuard    = errors.New("recursive trigger event aborted")
)

// ActionError reports the failure of one action of a workflow.
type ActionError struct {
	WorkflowID string
	Index      int
	Type       models.ActionType
	Err        error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %d (%s) of workflow %s failed: %v", e.Index, e.Type, e.WorkflowID, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func (e *ActionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}
