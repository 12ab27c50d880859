package tron_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tokenbay/tokenbay-api/internal/pkg/tron"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *tron.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return tron.NewClient(tron.Config{
		BaseURL:  srv.URL,
		Contract: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
		Timeout:  2 * time.Second,
	})
}

func TestNowBlock(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wallet/getnowblock" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"block_header":{"raw_data":{"number":68123456}}}`))
	})

	height, err := client.NowBlock(context.Background())
	if err != nil {
		t.Fatalf("NowBlock failed: %v", err)
	}
	if height != 68123456 {
		t.Fatalf("expected height 68123456, got %d", height)
	}
}

func TestTokenTransfersScalesAndOrders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("only_to"); got != "true" {
			t.Errorf("expected only_to=true, got %q", got)
		}
		if got := r.URL.Query().Get("min_timestamp"); got == "" {
			t.Error("expected min_timestamp to be set")
		}
		w.Header().Set("Content-Type", "application/json")
		// Newest first, the way TronGrid pages.
		w.Write([]byte(`{"success":true,"data":[
			{"transaction_id":"tx2","block_timestamp":1700000200000,"from":"Ta","to":"Tb","type":"Transfer","value":"30000000","token_info":{"symbol":"USDT","decimals":6}},
			{"transaction_id":"tx1","block_timestamp":1700000100000,"from":"Tc","to":"Tb","type":"Transfer","value":"12500000","token_info":{"symbol":"USDT","decimals":6}},
			{"transaction_id":"tx0","block_timestamp":1700000050000,"from":"Td","to":"Tb","type":"Approval","value":"1","token_info":{"symbol":"USDT","decimals":6}}
		]}`))
	})

	transfers, err := client.TokenTransfers(context.Background(), "Tb", time.UnixMilli(1700000000000))
	if err != nil {
		t.Fatalf("TokenTransfers failed: %v", err)
	}

	if len(transfers) != 2 {
		t.Fatalf("expected 2 transfers (non-Transfer events dropped), got %d", len(transfers))
	}
	if transfers[0].TxID != "tx1" || transfers[1].TxID != "tx2" {
		t.Fatalf("expected oldest-first order tx1,tx2; got %s,%s", transfers[0].TxID, transfers[1].TxID)
	}
	if got := transfers[0].Amount.String(); got != "12.5" {
		t.Fatalf("expected amount 12.5 after decimal scaling, got %s", got)
	}
}

func TestTokenTransfersProviderFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	if _, err := client.TokenTransfers(context.Background(), "Tb", time.Now().Add(-time.Hour)); err == nil {
		t.Fatal("expected error on 503 response")
	}
}

func TestTokenTransfersTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.TokenTransfers(ctx, "Tb", time.Now().Add(-time.Hour)); err == nil {
		t.Fatal("expected timeout error")
	}
}
