// Package testutil provides test data builders shared by package tests.
package testutil

import (
	"time"

	"github.com/dukex/crmflow/pkg/crm"
	"github.com/dukex/crmflow/pkg/models"
	"github.com/google/uuid"
)

const TestTenantID = "tenant-test"

// CreateTestWorkflow creates an active workflow on "deal.updated" with no
// conditions and no actions; overrides adjust it.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	now := time.Now().UTC()

	workflow := &models.Workflow{
		ID:           uuid.New().String(),
		TenantID:     TestTenantID,
		Name:         "Test Workflow",
		TriggerEvent: "deal.updated",
		Conditions:   []models.Condition{},
		Actions:      []models.Action{},
		IsActive:     true,
		Owner:        "user-1",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

func WithID(id string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.ID = id
	}
}

func WithTenant(tenantID string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.TenantID = tenantID
	}
}

func WithTrigger(triggerEvent string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.TriggerEvent = triggerEvent
	}
}

func WithCreatedAt(createdAt time.Time) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.CreatedAt = createdAt
		w.UpdatedAt = createdAt
	}
}

func WithInactive() func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.IsActive = false
	}
}

func WithCondition(field string, operator models.Operator, value any) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Conditions = append(w.Conditions, models.Condition{Field: field, Operator: operator, Value: value})
	}
}

func WithAction(actionType models.ActionType, params map[string]any) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Actions = append(w.Actions, models.Action{Type: actionType, Params: params})
	}
}

// CreateTestDeal creates an open deal of TestTenantID in a stage with the given probability.
func CreateTestDeal(probability float64, overrides ...func(*crm.Deal)) *crm.Deal {
	deal := &crm.Deal{
		ID:       uuid.New().String(),
		TenantID: TestTenantID,
		Name:     "Acme renewal",
		Status:   "open",
		Amount:   12000,
		Currency: "USD",
		OwnerID:  "user-1",
		Stage: &crm.Stage{
			ID:          "stage-1",
			Name:        "Negotiation",
			Pipeline:    "sales",
			Probability: probability,
		},
	}

	for _, override := range overrides {
		override(deal)
	}

	return deal
}

// CreateTestRecord creates a generic record of TestTenantID.
func CreateTestRecord(entityType string, attributes map[string]any) *models.Record {
	now := time.Now().UTC()

	return &models.Record{
		Type:       entityType,
		ID:         uuid.New().String(),
		TenantID:   TestTenantID,
		Attributes: attributes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
