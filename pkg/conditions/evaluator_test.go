package conditions

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/dukex/crmflow/pkg/crm"
	"github.com/dukex/crmflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeal(attributes map[string]any) *models.Record {
	return &models.Record{Type: "deal", ID: "deal-1", TenantID: "acme", Attributes: attributes}
}

func testEvaluator(buf *bytes.Buffer) *Evaluator {
	return NewEvaluator(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func TestEvaluator_EmptyConditionsAlwaysMatch(t *testing.T) {
	var buf bytes.Buffer
	evaluator := testEvaluator(&buf)

	entities := []models.Entity{
		newDeal(nil),
		newDeal(map[string]any{"status": "open"}),
		&crm.Contact{ID: "c1", TenantID: "acme"},
		nil,
	}

	for _, entity := range entities {
		assert.True(t, evaluator.Matches(nil, entity))
		assert.True(t, evaluator.Matches([]models.Condition{}, entity))
	}
}

func TestEvaluate(t *testing.T) {
	deal := newDeal(map[string]any{
		"status":   "Closed Won",
		"amount":   1500.5,
		"quantity": "12",
		"notes":    "",
		"flag":     true,
		"stage": map[string]any{
			"name":        "Negotiation",
			"probability": 100,
		},
		"owner": map[string]any{"id": 7},
		"tags":  []any{"vip", "emea"},
	})

	tests := []struct {
		name      string
		condition models.Condition
		expected  bool
		err       error
	}{
		{"equal number", models.Condition{Field: "stage.probability", Operator: "=", Value: float64(100)}, true, nil},
		{"equal number as string", models.Condition{Field: "stage.probability", Operator: "=", Value: "100"}, true, nil},
		{"equal number mismatch", models.Condition{Field: "stage.probability", Operator: "=", Value: 40}, false, nil},
		{"equal case insensitive", models.Condition{Field: "status", Operator: "=", Value: "closed won"}, true, nil},
		{"not equal", models.Condition{Field: "status", Operator: "!=", Value: "lost"}, true, nil},
		{"not equal same", models.Condition{Field: "status", Operator: "!=", Value: "CLOSED WON"}, false, nil},
		{"not equal null", models.Condition{Field: "status", Operator: "!=", Value: nil}, true, nil},
		{"contains case insensitive", models.Condition{Field: "status", Operator: "contains", Value: "won"}, true, nil},
		{"contains miss", models.Condition{Field: "status", Operator: "contains", Value: "lost"}, false, nil},
		{"contains nil value", models.Condition{Field: "status", Operator: "contains", Value: nil}, false, nil},
		{"starts with", models.Condition{Field: "status", Operator: "startsWith", Value: "CLOSED"}, true, nil},
		{"relation label", models.Condition{Field: "stage", Operator: "=", Value: "negotiation"}, true, nil},
		{"relation without label", models.Condition{Field: "owner", Operator: "contains", Value: `"id":7`}, true, nil},
		{"slice serialized", models.Condition{Field: "tags", Operator: "contains", Value: "vip"}, true, nil},
		{"greater than", models.Condition{Field: "amount", Operator: ">", Value: 1000}, true, nil},
		{"greater than string operand", models.Condition{Field: "quantity", Operator: ">=", Value: "12"}, true, nil},
		{"less than", models.Condition{Field: "amount", Operator: "<", Value: "1000"}, false, nil},
		{"less or equal", models.Condition{Field: "amount", Operator: "<=", Value: 1500.5}, true, nil},
		{"numeric with non numeric value", models.Condition{Field: "amount", Operator: ">", Value: "a lot"}, false, nil},
		{"numeric on non numeric field", models.Condition{Field: "status", Operator: ">", Value: 3}, false, nil},
		{"numeric on bool field", models.Condition{Field: "flag", Operator: ">", Value: 0}, false, nil},
		{"numeric on missing field", models.Condition{Field: "missing", Operator: "<", Value: 3}, false, nil},
		{"missing field equal", models.Condition{Field: "missing", Operator: "=", Value: "x"}, false, nil},
		{"missing field equal null", models.Condition{Field: "missing", Operator: "=", Value: nil}, true, nil},
		{"missing field equal empty", models.Condition{Field: "missing", Operator: "=", Value: ""}, true, nil},
		{"missing field not equal", models.Condition{Field: "missing", Operator: "!=", Value: "x"}, false, nil},
		{"missing field contains", models.Condition{Field: "missing", Operator: "contains", Value: "x"}, false, nil},
		{"is empty missing", models.Condition{Field: "missing", Operator: "isEmpty"}, true, nil},
		{"is empty empty string", models.Condition{Field: "notes", Operator: "isEmpty"}, true, nil},
		{"is empty with value", models.Condition{Field: "status", Operator: "isEmpty"}, false, nil},
		{"is not empty", models.Condition{Field: "status", Operator: "isNotEmpty"}, true, nil},
		{"is not empty missing", models.Condition{Field: "stage.owner", Operator: "isNotEmpty"}, false, nil},
		{"unknown operator", models.Condition{Field: "status", Operator: "matches", Value: ".*"}, false, ErrUnknownOperator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, err := Evaluate(tt.condition, deal)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.expected, matched)
		})
	}
}

func TestEvaluator_MatchesIsConjunction(t *testing.T) {
	var buf bytes.Buffer
	evaluator := testEvaluator(&buf)
	deal := newDeal(map[string]any{"status": "Closed Won", "amount": 10})

	assert.True(t, evaluator.Matches([]models.Condition{
		{Field: "status", Operator: models.OperatorContains, Value: "won"},
		{Field: "amount", Operator: models.OperatorGreaterThan, Value: 5},
	}, deal))

	assert.False(t, evaluator.Matches([]models.Condition{
		{Field: "status", Operator: models.OperatorContains, Value: "won"},
		{Field: "amount", Operator: models.OperatorGreaterThan, Value: 50},
	}, deal))
}

func TestEvaluator_UnknownOperatorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	evaluator := testEvaluator(&buf)

	matched := evaluator.Matches([]models.Condition{{Field: "status", Operator: "~=", Value: "x"}}, newDeal(map[string]any{"status": "x"}))

	assert.False(t, matched)
	assert.Contains(t, buf.String(), "Invalid condition")
	assert.Contains(t, buf.String(), "field=status")
}

func TestEvaluate_TypedAdapters(t *testing.T) {
	deal := &crm.Deal{ID: "d1", TenantID: "acme", Status: "open", Amount: 1200, Stage: &crm.Stage{Name: "Won", Probability: 100}}
	contact := &crm.Contact{ID: "c1", TenantID: "acme", FirstName: "Ada", Email: "ada@acme.test"}

	tests := []struct {
		name      string
		entity    models.Entity
		condition models.Condition
		want      bool
	}{
		{name: "nested numeric", entity: deal, condition: models.Condition{Field: "stage.probability", Operator: "=", Value: 100}, want: true},
		{name: "relation label", entity: deal, condition: models.Condition{Field: "stage", Operator: "=", Value: "won"}, want: true},
		{name: "missing relation is empty", entity: deal, condition: models.Condition{Field: "account", Operator: "isEmpty"}, want: true},
		{name: "path below scalar is empty", entity: deal, condition: models.Condition{Field: "status.label", Operator: "isEmpty"}, want: true},
		{name: "path below scalar never equals", entity: deal, condition: models.Condition{Field: "status.label", Operator: "=", Value: "open"}, want: false},
		{name: "path below numeric never compares", entity: deal, condition: models.Condition{Field: "amount.currency", Operator: ">", Value: 100}, want: false},
		{name: "scalar still resolves", entity: deal, condition: models.Condition{Field: "amount", Operator: ">", Value: 100}, want: true},
		{name: "contact path below scalar is empty", entity: contact, condition: models.Condition{Field: "email.domain", Operator: "isEmpty"}, want: true},
		{name: "contact path below scalar is not not-empty", entity: contact, condition: models.Condition{Field: "email.domain", Operator: "isNotEmpty"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, err := Evaluate(tt.condition, tt.entity)
			require.NoError(t, err)
			assert.Equal(t, tt.want, matched)
		})
	}
}

func TestEvaluate_EntityRelationLabel(t *testing.T) {
	account := &models.Record{Type: "account", ID: "a1", TenantID: "acme", Attributes: map[string]any{"name": "Initech"}}
	contact := &models.Record{Type: "contact", ID: "c1", TenantID: "acme", Attributes: map[string]any{"account": account}}

	matched, err := Evaluate(models.Condition{Field: "account", Operator: "=", Value: "initech"}, contact)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(models.Condition{Field: "amount", Operator: ">", Value: "10"}))
	require.NoError(t, Validate(models.Condition{Field: "notes", Operator: "isEmpty"}))
	require.NoError(t, Validate(models.Condition{Field: "status", Operator: "=", Value: nil}))

	require.ErrorIs(t, Validate(models.Condition{Operator: "="}), ErrConditionFieldRequired)
	require.ErrorIs(t, Validate(models.Condition{Field: "x", Operator: "like"}), ErrUnknownOperator)
	require.ErrorIs(t, Validate(models.Condition{Field: "x", Operator: ">", Value: "ten"}), ErrInvalidConditionValue)
	require.ErrorIs(t, Validate(models.Condition{Field: "x", Operator: ">", Value: true}), ErrInvalidConditionValue)
	require.ErrorIs(t, Validate(models.Condition{Field: "x", Operator: "contains"}), ErrInvalidConditionValue)
}
