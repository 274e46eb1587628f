package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const definitions = `
tenant_id: acme
owner: ops@acme.test
workflows:
  - id: wf-won
    name: Won deal follow up
    trigger_event: deal.updated
    conditions:
      - field: stage.probability
        operator: ">="
        value: 90
    actions:
      - type: create_task
        params:
          subject: Send contract
          due_in_days: 2
  - name: Paused welcome
    tenant_id: globex
    trigger_event: contact.created
    is_active: false
    actions:
      - type: send_notification
        params:
          message: 'Welcome {{ field "name" }}'
`

func TestParseWorkflows(t *testing.T) {
	workflows, err := ParseWorkflows([]byte(definitions))
	require.NoError(t, err)
	require.Len(t, workflows, 2)

	won := workflows[0]
	assert.Equal(t, "wf-won", won.ID)
	assert.Equal(t, "acme", won.TenantID)
	assert.Equal(t, "ops@acme.test", won.Owner)
	assert.True(t, won.IsActive)
	require.Len(t, won.Conditions, 1)
	assert.Equal(t, models.Operator(">="), won.Conditions[0].Operator)
	assert.Equal(t, 90, won.Conditions[0].Value)
	require.Len(t, won.Actions, 1)
	assert.Equal(t, models.ActionTypeCreateTask, won.Actions[0].Type)
	assert.Equal(t, "Send contract", won.Actions[0].Params["subject"])

	paused := workflows[1]
	assert.Equal(t, "globex", paused.TenantID)
	assert.False(t, paused.IsActive)
	assert.Empty(t, paused.Conditions)
}

func TestParseWorkflows_Errors(t *testing.T) {
	_, err := ParseWorkflows([]byte("tenant_id: acme\n"))
	require.ErrorIs(t, err, ErrNoWorkflows)

	_, err = ParseWorkflows([]byte("workflows: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadWorkflows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflows.yaml")
	require.NoError(t, os.WriteFile(path, []byte(definitions), 0o600))

	workflows, err := LoadWorkflows(path)
	require.NoError(t, err)
	assert.Len(t, workflows, 2)

	_, err = LoadWorkflows(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
