package deposit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tokenbay/tokenbay-api/internal/domain/ledger"
)

// Status defines the intent lifecycle. pending -> confirmed and
// pending -> expired are the only transitions; both targets are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusExpired   Status = "expired"
	StatusFailed    Status = "failed"
)

// IntentTTL bounds how long an intent waits for its transfer.
const IntentTTL = 60 * time.Minute

// Intent is a tracked expectation of an incoming on-chain transfer.
type Intent struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	WalletID        uuid.UUID        `db:"wallet_id" json:"wallet_id"`
	UserID          uuid.UUID        `db:"user_id" json:"user_id"`
	Token           string           `db:"token" json:"token"`
	Network         string           `db:"network" json:"network"`
	AmountExpected  decimal.Decimal  `db:"amount_expected" json:"amount_expected"`
	AmountConfirmed *decimal.Decimal `db:"amount_confirmed" json:"amount_confirmed,omitempty"`
	Status          Status           `db:"status" json:"status"`
	ExternalRef     *string          `db:"external_ref" json:"external_ref,omitempty"`
	Metadata        ledger.Metadata  `db:"metadata" json:"metadata,omitempty"`
	ExpiresAt       time.Time        `db:"expires_at" json:"expires_at"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// Expired reports whether the intent's waiting window has passed.
func (i *Intent) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
