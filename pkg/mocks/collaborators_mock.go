package mocks

import (
	"context"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockTaskCreator is a mock implementation of protocol.TaskCreator interface.
type MockTaskCreator struct {
	mock.Mock
}

func (m *MockTaskCreator) CreateTask(ctx context.Context, task *models.Task) error {
	args := m.Called(ctx, task)

	return args.Error(0)
}

// MockEntityUpdater is a mock implementation of protocol.EntityUpdater interface.
type MockEntityUpdater struct {
	mock.Mock
}

func (m *MockEntityUpdater) UpdateField(ctx context.Context, entity models.Entity, field string, value any) error {
	args := m.Called(ctx, entity, field, value)

	return args.Error(0)
}

// MockNotifier is a mock implementation of protocol.Notifier interface.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)

	return args.Error(0)
}
