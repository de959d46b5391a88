package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditChanges_RoundTripThroughColumn(t *testing.T) {
	changes, err := NewAuditChanges(nil, map[string]string{"status": "confirmed"})
	require.NoError(t, err)
	assert.Empty(t, changes.Old)

	value, err := changes.Value()
	require.NoError(t, err)

	var scanned AuditChanges
	require.NoError(t, scanned.Scan(value))
	assert.Nil(t, scanned.Old)
	assert.JSONEq(t, `{"status":"confirmed"}`, string(scanned.New))
}

func TestAuditChanges_EmptyIsNull(t *testing.T) {
	value, err := AuditChanges{}.Value()
	require.NoError(t, err)
	assert.Nil(t, value)

	var scanned AuditChanges
	require.NoError(t, scanned.Scan(nil))
	assert.Equal(t, AuditChanges{}, scanned)
	assert.Error(t, scanned.Scan(42))
}
