package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/arcwardens/outreach/internal/wallet"
	"github.com/go-chi/chi/v5"
)

// WalletHandler exposes the custodial wallet backend to the frontend.
type WalletHandler struct {
	*Handler
}

// NewWalletHandler creates a new wallet handler.
func NewWalletHandler(base *Handler) *WalletHandler {
	return &WalletHandler{Handler: base}
}

// RegisterRoutes registers wallet routes.
func (h *WalletHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/wallet", func(r chi.Router) {
		r.Get("/balance", h.Balance)
		r.Get("/info", h.Info)
		r.Get("/transactions", h.Transactions)
		r.Post("/send", h.Send)
		r.Post("/faucet", h.Faucet)
	})
}

// Balance returns the wallet's USDC balance.
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	walletID := r.URL.Query().Get("walletId")
	if walletID == "" {
		Error(w, http.StatusBadRequest, "walletId parameter required")
		return
	}

	resp, err := h.wallet.Balance(r.Context(), walletID)
	if err != nil {
		slog.Error("Wallet balance lookup failed", "wallet_id", walletID, "error", err)
		Error(w, http.StatusBadGateway, err.Error())
		return
	}
	JSON(w, http.StatusOK, resp)
}

// Info returns wallet metadata.
func (h *WalletHandler) Info(w http.ResponseWriter, r *http.Request) {
	walletID := r.URL.Query().Get("walletId")
	if walletID == "" {
		Error(w, http.StatusBadRequest, "walletId parameter required")
		return
	}

	resp, err := h.wallet.WalletInfo(r.Context(), walletID)
	if err != nil {
		slog.Error("Wallet info lookup failed", "wallet_id", walletID, "error", err)
		Error(w, http.StatusBadGateway, err.Error())
		return
	}
	JSON(w, http.StatusOK, resp)
}

// Transactions returns recent wallet transaction history.
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	walletID := r.URL.Query().Get("walletId")
	if walletID == "" {
		Error(w, http.StatusBadRequest, "walletId parameter required")
		return
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	resp, err := h.wallet.Transactions(r.Context(), walletID, pageSize)
	if err != nil {
		slog.Error("Wallet transactions lookup failed", "wallet_id", walletID, "error", err)
		Error(w, http.StatusBadGateway, err.Error())
		return
	}
	JSON(w, http.StatusOK, resp)
}

// Send issues a manual funds transfer from the wallet view.
func (h *WalletHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req wallet.SendRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.WalletID == "" || req.ReceiverAddress == "" || req.Amount == "" || req.TokenID == "" {
		Error(w, http.StatusBadRequest, "walletId, receiverAddress, amount and tokenId are required")
		return
	}

	resp, err := h.wallet.Send(r.Context(), req)
	if err != nil {
		slog.Error("Wallet send failed", "wallet_id", req.WalletID, "error", err)
		Error(w, http.StatusBadGateway, err.Error())
		return
	}
	JSON(w, http.StatusOK, resp)
}

// Faucet requests testnet funds for an address.
func (h *WalletHandler) Faucet(w http.ResponseWriter, r *http.Request) {
	var req wallet.FaucetRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Address == "" {
		Error(w, http.StatusBadRequest, "address is required")
		return
	}

	resp, err := h.wallet.Faucet(r.Context(), req.Address, req.Blockchain)
	if err != nil {
		slog.Error("Faucet request failed", "address", req.Address, "error", err)
		Error(w, http.StatusBadGateway, err.Error())
		return
	}
	JSON(w, http.StatusOK, resp)
}
