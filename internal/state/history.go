package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusReverted = "reverted"

	ActionUpdated    = "updated"
	ActionUnchanged  = "unchanged"
	ActionFailed     = "failed"
	ActionRolledBack = "rolled_back"
)

// TransactionChange records what a run did to one host.
type TransactionChange struct {
	Host        string `json:"host"`
	Target      string `json:"target"` // remote certificate path
	Action      string `json:"action"`
	BackupPath  string `json:"backup_path,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Transaction represents a complete run over the fleet.
type Transaction struct {
	ID        string              `json:"id"`
	Timestamp string              `json:"timestamp"`
	Status    string              `json:"status"`
	DryRun    bool                `json:"dry_run,omitempty"`
	Changes   []TransactionChange `json:"changes"`
}

// NewTransaction starts a transaction stamped with the current time.
func NewTransaction() Transaction {
	return Transaction{
		ID:        GenerateID(),
		Timestamp: time.Now().Format(time.RFC3339),
		Status:    StatusSuccess,
	}
}

// HistoryManager manages the persistent history of transactions.
type HistoryManager struct {
	HistoryFile string
}

func NewHistoryManager(baseDir string) *HistoryManager {
	if baseDir == "" {
		home, _ := os.UserHomeDir()
		baseDir = filepath.Join(home, ".certsync")
	}
	return &HistoryManager{
		HistoryFile: filepath.Join(baseDir, "history.json"),
	}
}

// AddTransaction appends a transaction to the history file. Listing
// reverses the order.
func (hm *HistoryManager) AddTransaction(tx Transaction) error {
	history, err := hm.LoadHistory()
	if err != nil {
		return err
	}
	history = append(history, tx)
	return hm.saveHistory(history)
}

// UpdateStatus rewrites the status of an existing transaction.
func (hm *HistoryManager) UpdateStatus(id, status string) error {
	history, err := hm.LoadHistory()
	if err != nil {
		return err
	}
	for i := range history {
		if history[i].ID == id {
			history[i].Status = status
			return hm.saveHistory(history)
		}
	}
	return fmt.Errorf("transaction not found: %s", id)
}

// LoadHistory reads the history file. A missing file is an empty history.
func (hm *HistoryManager) LoadHistory() ([]Transaction, error) {
	data, err := os.ReadFile(hm.HistoryFile)
	if os.IsNotExist(err) {
		return []Transaction{}, nil
	}
	if err != nil {
		return nil, err
	}

	var history []Transaction
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("corrupt history file %s: %w", hm.HistoryFile, err)
	}
	return history, nil
}

// GetTransaction finds a transaction by ID.
func (hm *HistoryManager) GetTransaction(id string) (*Transaction, error) {
	history, err := hm.LoadHistory()
	if err != nil {
		return nil, err
	}

	for _, tx := range history {
		if tx.ID == id {
			return &tx, nil
		}
	}
	return nil, fmt.Errorf("transaction not found: %s", id)
}

func (hm *HistoryManager) saveHistory(history []Transaction) error {
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(hm.HistoryFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(hm.HistoryFile, data, 0o600)
}

// GenerateID returns a unique run ID.
func GenerateID() string {
	return uuid.NewString()
}
