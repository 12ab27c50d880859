package settlement

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tokenbay/tokenbay-api/internal/domain/ledger"
	"github.com/tokenbay/tokenbay-api/internal/domain/wallet"
)

// OrderBuilder creates the order and its side effects inside the settlement
// transaction. Any error rolls the whole settlement back: an order never
// exists without its debit, a debit never exists without its order.
type OrderBuilder func(ctx context.Context, tx *sqlx.Tx) error

// Bounds holds the configured withdrawal limits.
type Bounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

type Service struct {
	db      *sqlx.DB
	wallets *wallet.Repository
	entries *ledger.Repository
	bounds  Bounds
}

func NewService(db *sqlx.DB, wallets *wallet.Repository, entries *ledger.Repository, bounds Bounds) *Service {
	return &Service{db: db, wallets: wallets, entries: entries, bounds: bounds}
}

func (s *Service) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	return s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// SettleOrderWithWallet debits the wallet, appends the purchase ledger entry
// and builds the order, all in one transaction. The wallet row lock makes
// concurrent settlements against the same wallet serialize; whichever loses
// the race re-checks the balance and fails with ErrInsufficientBalance.
func (s *Service) SettleOrderWithWallet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, buildOrder OrderBuilder) (*ledger.Entry, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := s.wallets.LockByUserTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if w.Balance.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}
	newBalance := w.Balance.Sub(amount)

	entry := &ledger.Entry{
		WalletID:      w.ID,
		UserID:        userID,
		Kind:          ledger.KindPurchase,
		Amount:        amount.Neg(),
		BalanceBefore: w.Balance,
		BalanceAfter:  newBalance,
		Status:        ledger.StatusCompleted,
		Description:   "wallet-funded order",
	}
	if err := s.entries.InsertTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := s.wallets.SetBalanceTx(ctx, tx, w.ID, newBalance); err != nil {
		return nil, err
	}

	if err := buildOrder(ctx, tx); err != nil {
		return nil, fmt.Errorf("build order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("amount", amount.String()).
		Str("balance", newBalance.String()).
		Msg("order settled from wallet")

	return entry, nil
}

// RequestWithdrawal records a withdrawal request as a pending ledger entry.
// No balance is moved or held: funds leave the wallet only at approval,
// where the balance is checked again.
func (s *Service) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, method string, details map[string]any) (*ledger.Entry, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if amount.LessThan(s.bounds.Min) || amount.GreaterThan(s.bounds.Max) {
		return nil, ErrAmountOutOfBounds
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := s.wallets.LockByUserTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if w.Balance.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}

	metadata := ledger.Metadata{"method": method}
	for k, v := range details {
		metadata[k] = v
	}

	entry := &ledger.Entry{
		WalletID:      w.ID,
		UserID:        userID,
		Kind:          ledger.KindWithdrawal,
		Amount:        amount.Neg(),
		BalanceBefore: w.Balance,
		BalanceAfter:  w.Balance,
		Status:        ledger.StatusPending,
		Description:   "withdrawal request",
		Metadata:      metadata,
	}
	if err := s.entries.InsertTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("entry_id", entry.ID.String()).
		Str("amount", amount.String()).
		Str("method", method).
		Msg("withdrawal requested")

	return entry, nil
}

// ApproveWithdrawal debits the wallet and completes the pending entry with
// its realized balances. The balance check runs at approval time.
func (s *Service) ApproveWithdrawal(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := s.entries.GetForUpdateTx(ctx, tx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Kind != ledger.KindWithdrawal {
		return nil, ErrNotWithdrawal
	}
	if entry.Status != ledger.StatusPending {
		return nil, ledger.ErrNotPending
	}

	w, err := s.wallets.LockByIDTx(ctx, tx, entry.WalletID)
	if err != nil {
		return nil, err
	}

	// entry.Amount is negative; the debit must keep the balance non-negative.
	newBalance := w.Balance.Add(entry.Amount)
	if newBalance.IsNegative() {
		return nil, ErrInsufficientBalance
	}

	if err := s.entries.CompleteTx(ctx, tx, entry.ID, w.Balance, newBalance); err != nil {
		return nil, err
	}
	if err := s.wallets.SetBalanceTx(ctx, tx, w.ID, newBalance); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	entry.Status = ledger.StatusCompleted
	entry.BalanceBefore = w.Balance
	entry.BalanceAfter = newBalance

	log.Info().
		Str("entry_id", entry.ID.String()).
		Str("user_id", entry.UserID.String()).
		Str("balance", newBalance.String()).
		Msg("withdrawal approved")

	return entry, nil
}

// RejectWithdrawal fails the pending entry with a reason. Balance untouched.
func (s *Service) RejectWithdrawal(ctx context.Context, entryID uuid.UUID, reason string) (*ledger.Entry, error) {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := s.entries.GetForUpdateTx(ctx, tx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Kind != ledger.KindWithdrawal {
		return nil, ErrNotWithdrawal
	}

	if err := s.entries.FailTx(ctx, tx, entry.ID, reason); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	entry.Status = ledger.StatusFailed

	log.Info().
		Str("entry_id", entry.ID.String()).
		Str("user_id", entry.UserID.String()).
		Str("reason", reason).
		Msg("withdrawal rejected")

	return entry, nil
}
