package crm

import (
	"testing"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeal_Get(t *testing.T) {
	deal := &Deal{
		ID:       "d1",
		TenantID: "acme",
		Name:     "Big deal",
		Status:   "Closed Won",
		Amount:   1200,
		Stage:    &Stage{ID: "s1", Name: "Won", Probability: 100},
	}

	value, ok := deal.Get("stage.probability")
	assert.True(t, ok)
	assert.InDelta(t, 100.0, value, 0)

	value, ok = deal.Get("stage")
	assert.True(t, ok)
	assert.Equal(t, "Won", value.(models.Labeler).Label())

	_, ok = deal.Get("account.name")
	assert.False(t, ok)

	_, ok = deal.Get("stage.secret")
	assert.False(t, ok)

	_, ok = deal.Get("password")
	assert.False(t, ok)

	for _, path := range []string{"status.label", "amount.currency", "name.first", "stage.name.x"} {
		value, ok = deal.Get(path)
		assert.False(t, ok, path)
		assert.Nil(t, value, path)
	}
}

func TestDeal_Set(t *testing.T) {
	deal := &Deal{ID: "d1", TenantID: "acme"}

	require.NoError(t, deal.Set("status", "won"))
	require.NoError(t, deal.Set("amount", "99.5"))
	assert.Equal(t, "won", deal.Status)
	assert.InDelta(t, 99.5, deal.Amount, 0)

	require.ErrorIs(t, deal.Set("amount", "lots"), models.ErrFieldNotWritable)
	require.ErrorIs(t, deal.Set("stage.probability", 10), models.ErrFieldNotWritable)
}

func TestContact_GetSet(t *testing.T) {
	contact := &Contact{ID: "c1", TenantID: "acme", FirstName: "Ada", LastName: "Lovelace", Account: &Account{Name: "Analytical"}}

	value, ok := contact.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "Ada Lovelace", value)

	value, ok = contact.Get("account.name")
	assert.True(t, ok)
	assert.Equal(t, "Analytical", value)

	_, ok = contact.Get("email.domain")
	assert.False(t, ok)

	_, ok = contact.Get("name.first")
	assert.False(t, ok)

	require.NoError(t, contact.Set("status", "customer"))
	assert.Equal(t, "customer", contact.Status)
	require.ErrorIs(t, contact.Set("account", "x"), models.ErrFieldNotWritable)

	assert.Equal(t, "contact", contact.Ref().Type)
}
