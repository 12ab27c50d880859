package deposit

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/tokenbay/tokenbay-api/internal/domain/ledger"
	"github.com/tokenbay/tokenbay-api/internal/domain/wallet"
)

// Store is the persistence surface the reconciliation state machine needs.
// Kept as an interface so the state machine is testable against a fake.
type Store interface {
	// ActiveWallet returns the id and receiving address of the user's
	// active wallet, or wallet.ErrNotFound.
	ActiveWallet(ctx context.Context, userID uuid.UUID) (uuid.UUID, string, error)

	// WalletAddress returns the receiving address for a wallet id.
	WalletAddress(ctx context.Context, walletID uuid.UUID) (string, error)

	CreateIntent(ctx context.Context, intent *Intent) error
	GetIntent(ctx context.Context, id uuid.UUID) (*Intent, error)

	// ListPending returns the oldest pending, non-expired intents.
	ListPending(ctx context.Context, limit int) ([]Intent, error)

	// ExpireIntent transitions a pending intent to expired. If the intent
	// already reached a terminal state it is returned unchanged.
	ExpireIntent(ctx context.Context, id uuid.UUID) (*Intent, error)

	// ConfirmIntent atomically marks the intent confirmed with the matched
	// amount and transfer reference, credits the wallet, and appends one
	// completed deposit ledger entry carrying the same reference. All three
	// effects commit together or none do. A transfer reference already used
	// anywhere returns ErrTransferAlreadyCredited.
	ConfirmIntent(ctx context.Context, id uuid.UUID, ref string, amount decimal.Decimal) (*Intent, error)
}

const intentColumns = `id, wallet_id, user_id, token, network, amount_expected, amount_confirmed,
	status, external_ref, metadata, expires_at, created_at, updated_at`

// PostgresStore implements Store over sqlx, composing the wallet and ledger
// repositories for the transactional confirm path.
type PostgresStore struct {
	db      *sqlx.DB
	wallets *wallet.Repository
	entries *ledger.Repository
}

func NewPostgresStore(db *sqlx.DB, wallets *wallet.Repository, entries *ledger.Repository) *PostgresStore {
	return &PostgresStore{db: db, wallets: wallets, entries: entries}
}

func (s *PostgresStore) ActiveWallet(ctx context.Context, userID uuid.UUID) (uuid.UUID, string, error) {
	w, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return uuid.Nil, "", err
	}
	return w.ID, w.Address, nil
}

func (s *PostgresStore) WalletAddress(ctx context.Context, walletID uuid.UUID) (string, error) {
	w, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		return "", err
	}
	return w.Address, nil
}

func (s *PostgresStore) CreateIntent(ctx context.Context, intent *Intent) error {
	return s.db.QueryRowxContext(ctx, `
		INSERT INTO deposit_intents
			(id, wallet_id, user_id, token, network, amount_expected, status, metadata, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8)
		RETURNING created_at, updated_at
	`, intent.ID, intent.WalletID, intent.UserID, intent.Token, intent.Network,
		intent.AmountExpected, intent.Metadata, intent.ExpiresAt).
		Scan(&intent.CreatedAt, &intent.UpdatedAt)
}

func (s *PostgresStore) GetIntent(ctx context.Context, id uuid.UUID) (*Intent, error) {
	var intent Intent
	err := s.db.GetContext(ctx, &intent, `
		SELECT `+intentColumns+` FROM deposit_intents WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIntentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (s *PostgresStore) ListPending(ctx context.Context, limit int) ([]Intent, error) {
	intents := []Intent{}
	err := s.db.SelectContext(ctx, &intents, `
		SELECT `+intentColumns+`
		FROM deposit_intents
		WHERE status = 'pending' AND expires_at > now()
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return intents, nil
}

func (s *PostgresStore) ExpireIntent(ctx context.Context, id uuid.UUID) (*Intent, error) {
	var intent Intent
	err := s.db.QueryRowxContext(ctx, `
		UPDATE deposit_intents
		SET status = 'expired', updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+intentColumns+`
	`, id).StructScan(&intent)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the race with another transition; report what stands.
		return s.GetIntent(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (s *PostgresStore) ConfirmIntent(ctx context.Context, id uuid.UUID, ref string, amount decimal.Decimal) (*Intent, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Lock the intent row first; it pins the wallet lock order below.
	var intent Intent
	err = tx.GetContext(ctx, &intent, `
		SELECT `+intentColumns+` FROM deposit_intents WHERE id = $1 FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIntentNotFound
	}
	if err != nil {
		return nil, err
	}
	if intent.Status != StatusPending {
		return &intent, nil
	}

	w, err := s.wallets.LockByIDTx(ctx, tx, intent.WalletID)
	if err != nil {
		return nil, err
	}

	newBalance := w.Balance.Add(amount)

	// The partial unique index on external_ref rejects a transfer that
	// already confirmed any other intent.
	err = tx.QueryRowxContext(ctx, `
		UPDATE deposit_intents
		SET status = 'confirmed', amount_confirmed = $1, external_ref = $2, updated_at = now()
		WHERE id = $3
		RETURNING `+intentColumns+`
	`, amount, ref, id).StructScan(&intent)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrTransferAlreadyCredited
		}
		return nil, err
	}

	entry := &ledger.Entry{
		WalletID:      w.ID,
		UserID:        intent.UserID,
		Kind:          ledger.KindDeposit,
		Amount:        amount,
		BalanceBefore: w.Balance,
		BalanceAfter:  newBalance,
		Status:        ledger.StatusCompleted,
		ExternalRef:   &ref,
		Description:   "on-chain deposit",
		Metadata: ledger.Metadata{
			"intent_id": intent.ID.String(),
			"token":     intent.Token,
			"network":   intent.Network,
		},
	}
	if err := s.entries.InsertTx(ctx, tx, entry); err != nil {
		if errors.Is(err, ledger.ErrDuplicateRef) {
			return nil, ErrTransferAlreadyCredited
		}
		return nil, err
	}

	if err := s.wallets.SetBalanceTx(ctx, tx, w.ID, newBalance); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &intent, nil
}
