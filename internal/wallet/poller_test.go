package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPollerKickDeliversUpdate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(BalanceResponse{
			Success:     true,
			USDCBalance: &Balance{Amount: "42", Token: Token{Symbol: "USDC"}},
		})
	}))
	defer srv.Close()

	client := NewClient(DefaultClientConfig(srv.URL), nil)
	poller := NewPoller(client, "w-1", time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)

	updates, unsubscribe := poller.Subscribe()
	defer unsubscribe()

	poller.Kick()

	select {
	case update := <-updates:
		if update.Error != "" {
			t.Fatalf("update carried error %q", update.Error)
		}
		if update.Balance == nil || update.Balance.Amount != "42" {
			t.Fatalf("unexpected balance: %+v", update.Balance)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered after kick")
	}
}

func TestPollerReportsBackendFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(BalanceResponse{Success: false, Error: "wallet not found"})
	}))
	defer srv.Close()

	client := NewClient(DefaultClientConfig(srv.URL), nil)
	poller := NewPoller(client, "w-missing", time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)

	updates, unsubscribe := poller.Subscribe()
	defer unsubscribe()

	poller.Kick()

	select {
	case update := <-updates:
		if update.Error != "wallet not found" {
			t.Fatalf("error = %q, want wallet not found", update.Error)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered after kick")
	}
}

func TestPollerUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	client := NewClient(DefaultClientConfig("http://127.0.0.1:0"), nil)
	poller := NewPoller(client, "w-1", time.Hour, nil)

	updates, unsubscribe := poller.Subscribe()
	unsubscribe()

	select {
	case _, ok := <-updates:
		if ok {
			t.Fatal("expected a closed channel after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}

	// A second cancel must be a no-op.
	unsubscribe()
}
