package ledger

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

// InsertTx appends an entry inside the caller's transaction. Balances come
// from the caller; the ledger does not recompute them, but it refuses rows
// that break the invariant for terminal statuses. A unique index on
// external_ref surfaces as ErrDuplicateRef.
func (r *Repository) InsertTx(ctx context.Context, tx *sqlx.Tx, e *Entry) error {
	if e.Status != StatusPending && !e.BalanceBefore.Add(e.Amount).Equal(e.BalanceAfter) {
		return ErrInvariantViolated
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	err := tx.QueryRowxContext(ctx, `
		INSERT INTO wallet_transactions
			(id, wallet_id, user_id, kind, amount, balance_before, balance_after, status, external_ref, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, e.ID, e.WalletID, e.UserID, string(e.Kind), e.Amount, e.BalanceBefore, e.BalanceAfter,
		string(e.Status), e.ExternalRef, e.Description, e.Metadata).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateRef
		}
		return err
	}
	return nil
}

// GetForUpdateTx loads an entry under an exclusive row lock.
func (r *Repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Entry, error) {
	var e Entry
	err := tx.GetContext(ctx, &e, `
		SELECT id, wallet_id, user_id, kind, amount, balance_before, balance_after,
		       status, external_ref, description, metadata, created_at, updated_at
		FROM wallet_transactions
		WHERE id = $1
		FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CompleteTx moves a pending entry to completed with its realized balances.
// The WHERE clause keeps terminal rows immutable.
func (r *Repository) CompleteTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, balanceBefore, balanceAfter decimal.Decimal) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallet_transactions
		SET status = 'completed', balance_before = $1, balance_after = $2, updated_at = now()
		WHERE id = $3 AND status = 'pending'
	`, balanceBefore, balanceAfter, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotPending
	}
	return nil
}

// FailTx moves a pending entry to failed, appending the reason to its
// description. Balances are untouched.
func (r *Repository) FailTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, reason string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallet_transactions
		SET status = 'failed',
		    description = trim(description || ' | ' || $1, ' |'),
		    updated_at = now()
		WHERE id = $2 AND status = 'pending'
	`, reason, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotPending
	}
	return nil
}

// GetByID loads an entry outside a transaction.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	var e Entry
	err := r.db.GetContext(ctx, &e, `
		SELECT id, wallet_id, user_id, kind, amount, balance_before, balance_after,
		       status, external_ref, description, metadata, created_at, updated_at
		FROM wallet_transactions
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByUser returns a user's entries, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	entries := []Entry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, wallet_id, user_id, kind, amount, balance_before, balance_after,
		       status, external_ref, description, metadata, created_at, updated_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
