package workflow

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/protocol"
	"github.com/dukex/crmflow/pkg/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAction records the workflows it ran for and delegates to run when set.
type fakeAction struct {
	actionType models.ActionType
	run        func(ctx context.Context, req protocol.ActionRequest) error

	mu    sync.Mutex
	calls []string
}

func newFakeAction(actionType models.ActionType, run func(ctx context.Context, req protocol.ActionRequest) error) *fakeAction {
	return &fakeAction{actionType: actionType, run: run}
}

func (a *fakeAction) Type() models.ActionType {
	return a.actionType
}

func (a *fakeAction) Schema() map[string]any {
	return map[string]any{"type": "object"}
}

func (a *fakeAction) Validate(map[string]any) error {
	return nil
}

func (a *fakeAction) Execute(ctx context.Context, req protocol.ActionRequest) error {
	a.mu.Lock()
	a.calls = append(a.calls, req.Workflow.ID)
	a.mu.Unlock()

	if a.run != nil {
		return a.run(ctx, req)
	}

	return nil
}

func (a *fakeAction) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]string(nil), a.calls...)
}

func newTestRegistry(actions ...protocol.Action) *registry.Registry {
	reg := registry.NewRegistry(testLogger())
	for _, action := range actions {
		reg.RegisterAction(action)
	}

	return reg
}

// explodingEntity panics when the "explode" path is resolved.
type explodingEntity struct {
	*models.Record
}

func (e explodingEntity) Get(path string) (any, bool) {
	if path == "explode" {
		panic("field resolution exploded")
	}

	return e.Record.Get(path)
}
