package workflow

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dukex/crmflow/pkg/models"
)

// DefaultMaxDepth bounds how many trigger events may be nested through actions.
const DefaultMaxDepth = 8

type chainKey struct{}

// frame identifies one Process call: an entity of a tenant and the event it fired.
type frame struct {
	TenantID     string
	EntityType   string
	EntityID     string
	TriggerEvent string
}

func newFrame(triggerEvent string, ref models.EntityRef) frame {
	return frame{
		TenantID:     ref.TenantID,
		EntityType:   ref.Type,
		EntityID:     ref.ID,
		TriggerEvent: triggerEvent,
	}
}

func (f frame) String() string {
	return fmt.Sprintf("%s %s/%s@%s", f.TriggerEvent, f.EntityType, f.EntityID, f.TenantID)
}

// chain returns the Process calls currently on the stack of ctx, outermost first.
func chain(ctx context.Context) []frame {
	frames, _ := ctx.Value(chainKey{}).([]frame)

	return frames
}

func withFrame(ctx context.Context, f frame) context.Context {
	frames := chain(ctx)

	next := make([]frame, len(frames), len(frames)+1)
	copy(next, frames)

	return context.WithValue(ctx, chainKey{}, append(next, f))
}

// checkReentry returns ErrRecursionGuard when f is already being processed
// or the chain is already maxDepth calls deep.
func checkReentry(frames []frame, f frame, maxDepth int) error {
	if slices.Contains(frames, f) {
		return fmt.Errorf("%w: %s is already being processed (%s)", ErrRecursionGuard, f, describe(frames))
	}

	if len(frames) >= maxDepth {
		return fmt.Errorf("%w: depth %d reached (%s)", ErrRecursionGuard, maxDepth, describe(frames))
	}

	return nil
}

func describe(frames []frame) string {
	parts := make([]string, 0, len(frames))
	for _, f := range frames {
		parts = append(parts, f.String())
	}

	return strings.Join(parts, " -> ")
}

// Depth reports how many trigger events are being processed on the stack of ctx.
func Depth(ctx context.Context) int {
	return len(chain(ctx))
}
