package state

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryManager(t *testing.T) {
	hm := NewHistoryManager(t.TempDir())

	history, err := hm.LoadHistory()
	require.NoError(t, err)
	assert.Empty(t, history)

	tx := NewTransaction()
	tx.Changes = []TransactionChange{{
		Host:       "smp",
		Target:     "/certs/cacert.pem",
		Action:     ActionUpdated,
		BackupPath: "/backup/smp_2024-05-01T12:00:00.000000.pem",
	}}
	require.NoError(t, hm.AddTransaction(tx))
	require.NoError(t, hm.AddTransaction(NewTransaction()))

	history, err = hm.LoadHistory()
	require.NoError(t, err)
	assert.Len(t, history, 2)

	got, err := hm.GetTransaction(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, got.Status)
	require.Len(t, got.Changes, 1)
	assert.Equal(t, "smp", got.Changes[0].Host)

	require.NoError(t, hm.UpdateStatus(tx.ID, StatusReverted))
	got, err = hm.GetTransaction(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReverted, got.Status)

	_, err = hm.GetTransaction("missing")
	assert.ErrorContains(t, err, "transaction not found")
	assert.Error(t, hm.UpdateStatus("missing", StatusFailed))
}

func TestHistoryManager_Corrupt(t *testing.T) {
	hm := NewHistoryManager(t.TempDir())
	require.NoError(t, os.WriteFile(hm.HistoryFile, []byte("{not json"), 0o600))

	_, err := hm.LoadHistory()
	assert.ErrorContains(t, err, "corrupt history file")
	assert.Error(t, hm.AddTransaction(NewTransaction()), "a corrupt history is never overwritten")
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}
