package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind defines supported ledger entry kinds.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindPurchase   Kind = "purchase"
	KindSale       Kind = "sale"
	KindRefund     Kind = "refund"
)

// Status defines the entry lifecycle. Completed and failed are terminal:
// such rows are never updated, corrections are new entries.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Metadata is an open string-keyed map of scalar values stored as JSONB.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("ledger: unsupported metadata source type")
	}
}

// Entry is one append-only ledger row. The signed Amount explains the move
// from BalanceBefore to BalanceAfter; for completed rows
// balance_after = balance_before + amount always holds.
type Entry struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	WalletID      uuid.UUID       `db:"wallet_id" json:"wallet_id"`
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	Kind          Kind            `db:"kind" json:"kind"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before" json:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after" json:"balance_after"`
	Status        Status          `db:"status" json:"status"`
	ExternalRef   *string         `db:"external_ref" json:"external_ref,omitempty"`
	Description   string          `db:"description" json:"description,omitempty"`
	Metadata      Metadata        `db:"metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}
