package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/arcwardens/outreach/internal/wallet"
	"github.com/coder/websocket"
)

// BalanceFeedHandler streams wallet balance refreshes to the frontend
// over a WebSocket so moved funds surface without polling from the UI.
type BalanceFeedHandler struct {
	poller        *wallet.Poller
	allowedOrigin string
	isDev         bool
}

// NewBalanceFeedHandler creates a balance feed handler.
func NewBalanceFeedHandler(poller *wallet.Poller, allowedOrigin string, isDev bool) *BalanceFeedHandler {
	return &BalanceFeedHandler{
		poller:        poller,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *BalanceFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "feed closed"); closeErr != nil {
			slog.Debug("WebSocket close error", "error", closeErr)
		}
	}()

	ctx := r.Context()
	updates, cancel := h.poller.Subscribe()
	defer cancel()

	// Reads are discarded; the feed is one-way. CloseRead surfaces the
	// client going away through ctx.
	ctx = ws.CloseRead(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := writeUpdate(ctx, ws, update); err != nil {
				slog.Debug("WebSocket write failed, dropping subscriber", "error", err)
				return
			}
		}
	}
}

func writeUpdate(ctx context.Context, ws *websocket.Conn, update wallet.Update) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, payload)
}

func (h *BalanceFeedHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return h.allowedOrigin == "" || strings.HasPrefix(origin, h.allowedOrigin)
}
