package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arcwardens/outreach/internal/domain"
)

func TestClientChatDecodesReplyAndCost(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/campaign/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Message != "Target fintech CTOs" {
			t.Errorf("unexpected message %q", req.Message)
		}
		if len(req.ConversationHistory) != 1 {
			t.Errorf("expected full history, got %d messages", len(req.ConversationHistory))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": "I can do that for $25", "cost": 25}`))
	}))
	defer srv.Close()

	client := NewClient(DefaultClientConfig(srv.URL), nil)
	resp, err := client.Chat(context.Background(), Request{
		Message:    "Target fintech CTOs",
		CampaignID: "c1",
		ConversationHistory: []domain.Message{
			{Role: domain.RoleUser, Content: "Target fintech CTOs"},
		},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if got := ReplyText(resp); got != "I can do that for $25" {
		t.Errorf("unexpected reply %q", got)
	}
	if got := Cost(resp); got != 25 {
		t.Errorf("unexpected cost %v", got)
	}
}

func TestClientChatSurfacesBackendRejection(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "campaign quota exceeded"}`))
	}))
	defer srv.Close()

	client := NewClient(DefaultClientConfig(srv.URL), nil)
	_, err := client.Chat(context.Background(), Request{Message: "hi", CampaignID: "c1"})
	if err == nil {
		t.Fatal("expected error")
	}

	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %T: %v", err, err)
	}
	if backendErr.Message != "campaign quota exceeded" {
		t.Errorf("expected verbatim backend message, got %q", backendErr.Message)
	}
}

func TestClientChatTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(DefaultClientConfig(srv.URL), nil)
	_, err := client.Chat(context.Background(), Request{Message: "hi", CampaignID: "c1"})
	if err == nil {
		t.Fatal("expected error")
	}
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		t.Fatalf("transport failure must not be a BackendError: %v", err)
	}
}

func TestClientExecutePaidAction(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/campaign/pay" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req PayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Amount != 25 {
			t.Errorf("unexpected amount %v", req.Amount)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "cost": 10, "requires_payment": true, "message": "Step one done, next step costs $10"}`))
	}))
	defer srv.Close()

	client := NewClient(DefaultClientConfig(srv.URL), nil)
	resp, err := client.ExecutePaidAction(context.Background(), PayRequest{CampaignID: "c1", Amount: 25})
	if err != nil {
		t.Fatalf("ExecutePaidAction failed: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if got := PayCost(resp); got != 10 {
		t.Errorf("unexpected follow-up cost %v", got)
	}
}
