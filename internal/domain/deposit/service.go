package deposit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Config carries the injected reconciliation settings.
type Config struct {
	Token       string
	Network     string
	IntentTTL   time.Duration
	CallTimeout time.Duration
	BatchSize   int
}

type Service struct {
	store    Store
	provider ChainProvider
	cfg      Config
}

func NewService(store Store, provider ChainProvider, cfg Config) *Service {
	if cfg.IntentTTL <= 0 {
		cfg.IntentTTL = IntentTTL
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Service{store: store, provider: provider, cfg: cfg}
}

// CreateIntent registers the expectation of an incoming transfer. Requires
// an active wallet; returns the intent and the wallet's receiving address.
func (s *Service) CreateIntent(ctx context.Context, userID uuid.UUID, expected decimal.Decimal) (*Intent, string, error) {
	if !expected.IsPositive() {
		return nil, "", ErrInvalidAmount
	}

	walletID, address, err := s.store.ActiveWallet(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	intent := &Intent{
		ID:             uuid.New(),
		WalletID:       walletID,
		UserID:         userID,
		Token:          s.cfg.Token,
		Network:        s.cfg.Network,
		AmountExpected: expected,
		Status:         StatusPending,
		ExpiresAt:      time.Now().Add(s.cfg.IntentTTL),
	}
	if err := s.store.CreateIntent(ctx, intent); err != nil {
		return nil, "", err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("intent_id", intent.ID.String()).
		Str("amount_expected", expected.String()).
		Time("expires_at", intent.ExpiresAt).
		Msg("deposit intent created")

	return intent, address, nil
}

// VerifyIntent drives one intent through the state machine. Terminal intents
// are returned unchanged; expiry wins over matching; otherwise the chain is
// queried and the first sufficient transfer whose reference is still unused
// confirms the intent. Safe to call repeatedly.
func (s *Service) VerifyIntent(ctx context.Context, intentID uuid.UUID) (*Intent, error) {
	intent, err := s.store.GetIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	if intent.Status != StatusPending {
		return intent, nil
	}

	if intent.Expired(time.Now()) {
		expired, err := s.store.ExpireIntent(ctx, intent.ID)
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("intent_id", intent.ID.String()).
			Msg("deposit intent expired")
		return expired, nil
	}

	address, err := s.store.WalletAddress(ctx, intent.WalletID)
	if err != nil {
		return nil, err
	}

	// The external call carries its own deadline; a timeout leaves the
	// intent pending for the next cycle.
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	transfers, err := s.provider.TokenTransfers(callCtx, address, intent.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	for _, transfer := range transfers {
		if transfer.To != address || transfer.Amount.LessThan(intent.AmountExpected) {
			continue
		}

		confirmed, err := s.store.ConfirmIntent(ctx, intent.ID, transfer.TxID, transfer.Amount)
		if errors.Is(err, ErrTransferAlreadyCredited) {
			// This transfer already paid for another intent; try the next.
			continue
		}
		if err != nil {
			return nil, err
		}

		log.Info().
			Str("intent_id", intent.ID.String()).
			Str("tx_id", transfer.TxID).
			Str("amount", transfer.Amount.String()).
			Msg("deposit intent confirmed")
		return confirmed, nil
	}

	return intent, nil
}

// Outcome is one intent's result within a batch scan.
type Outcome struct {
	IntentID uuid.UUID `json:"intent_id"`
	Status   Status    `json:"status"`
	Error    string    `json:"error,omitempty"`
}

// BatchReport summarizes one scan cycle. Per-item failures are recorded
// here, never swallowed, and never abort the rest of the batch.
type BatchReport struct {
	Scanned   int       `json:"scanned"`
	Confirmed int       `json:"confirmed"`
	Expired   int       `json:"expired"`
	Pending   int       `json:"pending"`
	Failed    int       `json:"failed"`
	Outcomes  []Outcome `json:"outcomes"`
}

// VerifyPendingBatch verifies the oldest pending, non-expired intents.
// Intended to be driven by a periodic scheduler.
func (s *Service) VerifyPendingBatch(ctx context.Context) (BatchReport, error) {
	intents, err := s.store.ListPending(ctx, s.cfg.BatchSize)
	if err != nil {
		return BatchReport{}, err
	}

	report := BatchReport{
		Scanned:  len(intents),
		Outcomes: make([]Outcome, 0, len(intents)),
	}

	for _, intent := range intents {
		verified, err := s.VerifyIntent(ctx, intent.ID)
		if err != nil {
			report.Failed++
			report.Outcomes = append(report.Outcomes, Outcome{
				IntentID: intent.ID,
				Status:   intent.Status,
				Error:    err.Error(),
			})
			log.Warn().
				Err(err).
				Str("intent_id", intent.ID.String()).
				Msg("deposit intent verification failed")
			continue
		}

		switch verified.Status {
		case StatusConfirmed:
			report.Confirmed++
		case StatusExpired:
			report.Expired++
		default:
			report.Pending++
		}
		report.Outcomes = append(report.Outcomes, Outcome{
			IntentID: verified.ID,
			Status:   verified.Status,
		})
	}

	return report, nil
}
