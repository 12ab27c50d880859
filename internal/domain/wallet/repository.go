package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a wallet with zero balance. A partial unique index on
// (user_id) WHERE is_active enforces at most one active wallet per user.
func (r *Repository) Create(ctx context.Context, w *Wallet) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO wallets (id, user_id, address, encrypted_key, balance, is_active)
		VALUES ($1, $2, $3, $4, 0, TRUE)
		RETURNING created_at, updated_at
	`, w.ID, w.UserID, w.Address, w.EncryptedKey).Scan(&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return err
	}
	w.Balance = decimal.Zero
	w.IsActive = true
	return nil
}

func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := r.db.GetContext(ctx, &w, `
		SELECT id, user_id, address, encrypted_key, balance, is_active, created_at, updated_at
		FROM wallets
		WHERE user_id = $1 AND is_active
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) GetByID(ctx context.Context, walletID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := r.db.GetContext(ctx, &w, `
		SELECT id, user_id, address, encrypted_key, balance, is_active, created_at, updated_at
		FROM wallets
		WHERE id = $1
	`, walletID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// LockByUserTx loads the user's active wallet under an exclusive row lock.
// Every balance mutation goes through this lock inside a single transaction.
func (r *Repository) LockByUserTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := tx.GetContext(ctx, &w, `
		SELECT id, user_id, address, encrypted_key, balance, is_active, created_at, updated_at
		FROM wallets
		WHERE user_id = $1 AND is_active
		FOR UPDATE
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// LockByIDTx is LockByUserTx keyed by wallet id.
func (r *Repository) LockByIDTx(ctx context.Context, tx *sqlx.Tx, walletID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := tx.GetContext(ctx, &w, `
		SELECT id, user_id, address, encrypted_key, balance, is_active, created_at, updated_at
		FROM wallets
		WHERE id = $1
		FOR UPDATE
	`, walletID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// SetBalanceTx updates the wallet balance. Must only run in the same
// transaction as the ledger entry that explains the change.
func (r *Repository) SetBalanceTx(ctx context.Context, tx *sqlx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallets SET balance = $1, updated_at = now() WHERE id = $2
	`, balance, walletID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
