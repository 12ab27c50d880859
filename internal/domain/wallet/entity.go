package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is a platform-custodied blockchain wallet. EncryptedKey holds the
// AES-GCM ciphertext of the private key and never leaves the service layer.
type Wallet struct {
	ID           uuid.UUID       `db:"id" json:"-"`
	UserID       uuid.UUID       `db:"user_id" json:"-"`
	Address      string          `db:"address" json:"-"`
	EncryptedKey string          `db:"encrypted_key" json:"-"`
	Balance      decimal.Decimal `db:"balance" json:"-"`
	IsActive     bool            `db:"is_active" json:"-"`
	CreatedAt    time.Time       `db:"created_at" json:"-"`
	UpdatedAt    time.Time       `db:"updated_at" json:"-"`
}

// Public is the projection exposed to wallet owners.
type Public struct {
	ID        uuid.UUID       `json:"id"`
	Address   string          `json:"address"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

func (w *Wallet) Public() Public {
	return Public{
		ID:        w.ID,
		Address:   w.Address,
		Balance:   w.Balance,
		CreatedAt: w.CreatedAt,
	}
}
