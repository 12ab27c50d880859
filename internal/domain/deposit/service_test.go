package deposit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tokenbay/tokenbay-api/internal/domain/deposit"
	"github.com/tokenbay/tokenbay-api/internal/domain/wallet"
	"github.com/tokenbay/tokenbay-api/internal/pkg/tron"
)

type fakeStore struct {
	intents   map[uuid.UUID]*deposit.Intent
	wallets   map[uuid.UUID]string // walletID -> address
	byUser    map[uuid.UUID]uuid.UUID
	usedRefs  map[string]bool
	balances  map[uuid.UUID]decimal.Decimal
	ledgerLen int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		intents:  make(map[uuid.UUID]*deposit.Intent),
		wallets:  make(map[uuid.UUID]string),
		byUser:   make(map[uuid.UUID]uuid.UUID),
		usedRefs: make(map[string]bool),
		balances: make(map[uuid.UUID]decimal.Decimal),
	}
}

func (f *fakeStore) addWallet(userID uuid.UUID, address string) uuid.UUID {
	walletID := uuid.New()
	f.wallets[walletID] = address
	f.byUser[userID] = walletID
	f.balances[walletID] = decimal.Zero
	return walletID
}

func (f *fakeStore) ActiveWallet(_ context.Context, userID uuid.UUID) (uuid.UUID, string, error) {
	walletID, ok := f.byUser[userID]
	if !ok {
		return uuid.Nil, "", wallet.ErrNotFound
	}
	return walletID, f.wallets[walletID], nil
}

func (f *fakeStore) WalletAddress(_ context.Context, walletID uuid.UUID) (string, error) {
	address, ok := f.wallets[walletID]
	if !ok {
		return "", wallet.ErrNotFound
	}
	return address, nil
}

func (f *fakeStore) CreateIntent(_ context.Context, intent *deposit.Intent) error {
	now := time.Now()
	intent.CreatedAt = now
	intent.UpdatedAt = now
	clone := *intent
	f.intents[intent.ID] = &clone
	return nil
}

func (f *fakeStore) GetIntent(_ context.Context, id uuid.UUID) (*deposit.Intent, error) {
	intent, ok := f.intents[id]
	if !ok {
		return nil, deposit.ErrIntentNotFound
	}
	clone := *intent
	return &clone, nil
}

func (f *fakeStore) ListPending(_ context.Context, limit int) ([]deposit.Intent, error) {
	var out []deposit.Intent
	now := time.Now()
	for _, intent := range f.intents {
		if intent.Status == deposit.StatusPending && intent.ExpiresAt.After(now) {
			out = append(out, *intent)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) ExpireIntent(_ context.Context, id uuid.UUID) (*deposit.Intent, error) {
	intent, ok := f.intents[id]
	if !ok {
		return nil, deposit.ErrIntentNotFound
	}
	if intent.Status == deposit.StatusPending {
		intent.Status = deposit.StatusExpired
	}
	clone := *intent
	return &clone, nil
}

func (f *fakeStore) ConfirmIntent(_ context.Context, id uuid.UUID, ref string, amount decimal.Decimal) (*deposit.Intent, error) {
	intent, ok := f.intents[id]
	if !ok {
		return nil, deposit.ErrIntentNotFound
	}
	if intent.Status != deposit.StatusPending {
		clone := *intent
		return &clone, nil
	}
	if f.usedRefs[ref] {
		return nil, deposit.ErrTransferAlreadyCredited
	}
	f.usedRefs[ref] = true
	intent.Status = deposit.StatusConfirmed
	intent.AmountConfirmed = &amount
	intent.ExternalRef = &ref
	f.balances[intent.WalletID] = f.balances[intent.WalletID].Add(amount)
	f.ledgerLen++
	clone := *intent
	return &clone, nil
}

type fakeProvider struct {
	transfers []tron.Transfer
	err       error
	calls     int
}

func (f *fakeProvider) NowBlock(context.Context) (int64, error) {
	return 1, nil
}

func (f *fakeProvider) TokenTransfers(context.Context, string, time.Time) ([]tron.Transfer, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.transfers, nil
}

func newTestService(store deposit.Store, provider deposit.ChainProvider) *deposit.Service {
	return deposit.NewService(store, provider, deposit.Config{
		Token:       "USDT",
		Network:     "tron",
		IntentTTL:   time.Hour,
		CallTimeout: time.Second,
		BatchSize:   10,
	})
}

func TestCreateIntentRequiresWallet(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeProvider{})

	_, _, err := svc.CreateIntent(context.Background(), uuid.New(), decimal.NewFromInt(25))
	if !errors.Is(err, wallet.ErrNotFound) {
		t.Fatalf("expected wallet.ErrNotFound, got %v", err)
	}

	userID := uuid.New()
	store.addWallet(userID, "TAddr1")

	if _, _, err := svc.CreateIntent(context.Background(), userID, decimal.Zero); !errors.Is(err, deposit.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	intent, address, err := svc.CreateIntent(context.Background(), userID, decimal.NewFromInt(25))
	if err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}
	if address != "TAddr1" {
		t.Fatalf("expected receiving address TAddr1, got %s", address)
	}
	if intent.Status != deposit.StatusPending {
		t.Fatalf("expected pending status, got %s", intent.Status)
	}
	if !intent.ExpiresAt.After(time.Now().Add(50 * time.Minute)) {
		t.Fatalf("expected roughly one-hour expiry, got %v", intent.ExpiresAt)
	}
}

func TestVerifyIntentConfirmsFirstSufficientTransfer(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	store.addWallet(userID, "TAddr1")

	provider := &fakeProvider{transfers: []tron.Transfer{
		{TxID: "tx-small", To: "TAddr1", Amount: decimal.NewFromInt(10), Timestamp: time.Now()},
		{TxID: "tx-match", To: "TAddr1", Amount: decimal.NewFromInt(30), Timestamp: time.Now()},
		{TxID: "tx-late", To: "TAddr1", Amount: decimal.NewFromInt(100), Timestamp: time.Now()},
	}}
	svc := newTestService(store, provider)

	intent, _, err := svc.CreateIntent(context.Background(), userID, decimal.NewFromInt(25))
	if err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}

	verified, err := svc.VerifyIntent(context.Background(), intent.ID)
	if err != nil {
		t.Fatalf("VerifyIntent failed: %v", err)
	}
	if verified.Status != deposit.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", verified.Status)
	}
	if verified.AmountConfirmed == nil || !verified.AmountConfirmed.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected confirmed amount 30, got %v", verified.AmountConfirmed)
	}
	if verified.ExternalRef == nil || *verified.ExternalRef != "tx-match" {
		t.Fatalf("expected external ref tx-match, got %v", verified.ExternalRef)
	}
	if store.ledgerLen != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", store.ledgerLen)
	}
	if !store.balances[verified.WalletID].Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected wallet balance 30, got %s", store.balances[verified.WalletID])
	}
}

func TestVerifyIntentIdempotentOnTerminal(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	store.addWallet(userID, "TAddr1")

	provider := &fakeProvider{transfers: []tron.Transfer{
		{TxID: "tx1", To: "TAddr1", Amount: decimal.NewFromInt(30)},
	}}
	svc := newTestService(store, provider)

	intent, _, _ := svc.CreateIntent(context.Background(), userID, decimal.NewFromInt(25))

	first, err := svc.VerifyIntent(context.Background(), intent.ID)
	if err != nil {
		t.Fatalf("VerifyIntent failed: %v", err)
	}
	if first.Status != deposit.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", first.Status)
	}
	callsAfterConfirm := provider.calls

	second, err := svc.VerifyIntent(context.Background(), intent.ID)
	if err != nil {
		t.Fatalf("VerifyIntent failed: %v", err)
	}
	if second.Status != deposit.StatusConfirmed {
		t.Fatalf("expected confirmed on repeat, got %s", second.Status)
	}
	if provider.calls != callsAfterConfirm {
		t.Fatal("terminal intent must not query the chain again")
	}
	if store.ledgerLen != 1 {
		t.Fatalf("expected no additional ledger entries, got %d", store.ledgerLen)
	}
}

func TestVerifyIntentExpires(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	walletID := store.addWallet(userID, "TAddr1")

	provider := &fakeProvider{}
	svc := newTestService(store, provider)

	intent := &deposit.Intent{
		ID:             uuid.New(),
		WalletID:       walletID,
		UserID:         userID,
		Token:          "USDT",
		Network:        "tron",
		AmountExpected: decimal.NewFromInt(25),
		Status:         deposit.StatusPending,
		ExpiresAt:      time.Now().Add(-time.Minute),
	}
	store.CreateIntent(context.Background(), intent)

	verified, err := svc.VerifyIntent(context.Background(), intent.ID)
	if err != nil {
		t.Fatalf("VerifyIntent failed: %v", err)
	}
	if verified.Status != deposit.StatusExpired {
		t.Fatalf("expected expired, got %s", verified.Status)
	}
	if provider.calls != 0 {
		t.Fatal("expired intent must not query the chain")
	}

	// Further calls are no-ops without external queries.
	again, err := svc.VerifyIntent(context.Background(), intent.ID)
	if err != nil {
		t.Fatalf("VerifyIntent failed: %v", err)
	}
	if again.Status != deposit.StatusExpired || provider.calls != 0 {
		t.Fatal("expired intent must stay expired with no chain query")
	}
}

func TestVerifyIntentStaysPendingWithoutMatch(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	store.addWallet(userID, "TAddr1")

	provider := &fakeProvider{transfers: []tron.Transfer{
		{TxID: "tx-small", To: "TAddr1", Amount: decimal.NewFromInt(10)},
	}}
	svc := newTestService(store, provider)

	intent, _, _ := svc.CreateIntent(context.Background(), userID, decimal.NewFromInt(25))

	verified, err := svc.VerifyIntent(context.Background(), intent.ID)
	if err != nil {
		t.Fatalf("VerifyIntent failed: %v", err)
	}
	if verified.Status != deposit.StatusPending {
		t.Fatalf("expected pending, got %s", verified.Status)
	}
	if store.ledgerLen != 0 {
		t.Fatal("no ledger entry may exist before confirmation")
	}
}

func TestVerifyIntentSkipsAlreadyCreditedTransfer(t *testing.T) {
	store := newFakeStore()
	userA := uuid.New()
	userB := uuid.New()
	store.addWallet(userA, "TShared")
	store.addWallet(userB, "TShared")

	provider := &fakeProvider{transfers: []tron.Transfer{
		{TxID: "tx-once", To: "TShared", Amount: decimal.NewFromInt(50)},
	}}
	svc := newTestService(store, provider)

	intentA, _, _ := svc.CreateIntent(context.Background(), userA, decimal.NewFromInt(25))
	intentB, _, _ := svc.CreateIntent(context.Background(), userB, decimal.NewFromInt(25))

	verifiedA, err := svc.VerifyIntent(context.Background(), intentA.ID)
	if err != nil {
		t.Fatalf("VerifyIntent failed: %v", err)
	}
	if verifiedA.Status != deposit.StatusConfirmed {
		t.Fatalf("expected first intent confirmed, got %s", verifiedA.Status)
	}

	// The same on-chain transfer must not credit a second intent.
	verifiedB, err := svc.VerifyIntent(context.Background(), intentB.ID)
	if err != nil {
		t.Fatalf("VerifyIntent failed: %v", err)
	}
	if verifiedB.Status != deposit.StatusPending {
		t.Fatalf("expected second intent to stay pending, got %s", verifiedB.Status)
	}
	if store.ledgerLen != 1 {
		t.Fatalf("expected one ledger entry total, got %d", store.ledgerLen)
	}
}

func TestVerifyIntentProviderError(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	store.addWallet(userID, "TAddr1")

	provider := &fakeProvider{err: errors.New("connection refused")}
	svc := newTestService(store, provider)

	intent, _, _ := svc.CreateIntent(context.Background(), userID, decimal.NewFromInt(25))

	_, err := svc.VerifyIntent(context.Background(), intent.ID)
	if !errors.Is(err, deposit.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}

	// The intent is untouched and retryable.
	current, err := store.GetIntent(context.Background(), intent.ID)
	if err != nil {
		t.Fatalf("GetIntent failed: %v", err)
	}
	if current.Status != deposit.StatusPending {
		t.Fatalf("expected pending after provider failure, got %s", current.Status)
	}
}

func TestVerifyPendingBatchCollectsOutcomes(t *testing.T) {
	store := newFakeStore()
	userA := uuid.New()
	userB := uuid.New()
	store.addWallet(userA, "TAddrA")
	store.addWallet(userB, "TAddrB")

	provider := &fakeProvider{transfers: []tron.Transfer{
		{TxID: "tx-a", To: "TAddrA", Amount: decimal.NewFromInt(30)},
	}}
	svc := newTestService(store, provider)

	intentA, _, _ := svc.CreateIntent(context.Background(), userA, decimal.NewFromInt(25))
	intentB, _, _ := svc.CreateIntent(context.Background(), userB, decimal.NewFromInt(25))

	report, err := svc.VerifyPendingBatch(context.Background())
	if err != nil {
		t.Fatalf("VerifyPendingBatch failed: %v", err)
	}

	if report.Scanned != 2 {
		t.Fatalf("expected 2 scanned, got %d", report.Scanned)
	}
	if report.Confirmed != 1 || report.Pending != 1 {
		t.Fatalf("expected 1 confirmed and 1 pending, got %+v", report)
	}
	if len(report.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(report.Outcomes))
	}

	statuses := map[uuid.UUID]deposit.Status{}
	for _, o := range report.Outcomes {
		statuses[o.IntentID] = o.Status
	}
	if statuses[intentA.ID] != deposit.StatusConfirmed {
		t.Fatalf("expected intent A confirmed, got %s", statuses[intentA.ID])
	}
	if statuses[intentB.ID] != deposit.StatusPending {
		t.Fatalf("expected intent B pending, got %s", statuses[intentB.ID])
	}
}

func TestVerifyPendingBatchContainsPerItemFailures(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	store.addWallet(userID, "TAddr1")

	provider := &fakeProvider{err: errors.New("upstream timeout")}
	svc := newTestService(store, provider)

	svc.CreateIntent(context.Background(), userID, decimal.NewFromInt(25))
	svc.CreateIntent(context.Background(), userID, decimal.NewFromInt(40))

	report, err := svc.VerifyPendingBatch(context.Background())
	if err != nil {
		t.Fatalf("a failing item must not abort the batch: %v", err)
	}
	if report.Scanned != 2 || report.Failed != 2 {
		t.Fatalf("expected both items recorded as failed, got %+v", report)
	}
	for _, o := range report.Outcomes {
		if o.Error == "" {
			t.Fatal("failed outcome must carry its error")
		}
	}
}
