package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/arcwardens/outreach/internal/session"
	"github.com/go-chi/chi/v5"
)

// CampaignHandler handles campaign session endpoints.
type CampaignHandler struct {
	*Handler
}

// NewCampaignHandler creates a new campaign handler.
func NewCampaignHandler(base *Handler) *CampaignHandler {
	return &CampaignHandler{Handler: base}
}

// RegisterRoutes registers campaign routes.
func (h *CampaignHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/campaigns", h.List)
		r.Get("/campaigns/{campaignID}/analytics", h.Analytics)
		r.Post("/campaign/create", h.Create)
		r.Post("/campaign/chat", h.Chat)
		r.Post("/campaign/pay", h.Pay)
		r.Put("/campaign/update", h.Update)
		r.Delete("/campaign/delete", h.Delete)
	})
}

type chatRequest struct {
	Message    string `json:"message"`
	CampaignID string `json:"campaignId"`
}

type createRequest struct {
	Name string `json:"name"`
}

type updateRequest struct {
	CampaignID string `json:"campaignId"`
	Name       string `json:"name"`
}

type payRequest struct {
	CampaignID string `json:"campaignId"`
}

// List returns all campaigns.
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"campaigns": h.controller.ListCampaigns(),
	})
}

// Create creates a new campaign and makes it active.
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	campaign, err := h.controller.CreateCampaign(r.Context(), req.Name)
	if err != nil {
		slog.Error("Failed to create campaign", "error", err)
		Error(w, http.StatusInternalServerError, "failed to create campaign")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"campaign": campaign,
	})
}

// Chat processes a user message for a campaign. While a payment is
// pending the message is answered with a reminder instead of reaching
// the reasoning backend.
func (h *CampaignHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CampaignID == "" {
		Error(w, http.StatusBadRequest, "campaignId is required")
		return
	}

	result, err := h.controller.SendMessage(r.Context(), req.CampaignID, req.Message)
	if err != nil {
		h.writeControllerError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"message":          result.Reply.Content,
		"cost":             result.PendingCost,
		"requires_payment": result.PaymentPending,
		"blocked":          result.Blocked,
	})
}

// Pay settles the outstanding charge for a campaign.
func (h *CampaignHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CampaignID == "" {
		Error(w, http.StatusBadRequest, "campaignId is required")
		return
	}

	result, err := h.controller.Pay(r.Context(), req.CampaignID)
	if err != nil {
		h.writeControllerError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success":          result.Status == session.PayStatusCompleted || result.Status == session.PayStatusChained,
		"status":           result.Status,
		"message":          result.Narration.Content,
		"cost":             result.PendingCost,
		"requires_payment": result.PendingCost > 0,
	})
}

// Analytics returns a campaign with its delivery metrics.
func (h *CampaignHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	if campaignID == "" {
		Error(w, http.StatusBadRequest, "campaignId is required")
		return
	}

	campaign, analytics, err := h.controller.CampaignAnalytics(r.Context(), campaignID)
	if err != nil {
		h.writeControllerError(w, err)
		return
	}

	body := map[string]interface{}{
		"id":         campaign.ID,
		"name":       campaign.Name,
		"executed":   campaign.Executed,
		"paid":       campaign.Paid,
		"created_at": campaign.CreatedAt,
	}
	if analytics != nil {
		body["analytics"] = analytics
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"campaign": body,
	})
}

// Update renames a campaign.
func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CampaignID == "" {
		Error(w, http.StatusBadRequest, "campaignId is required")
		return
	}

	if err := h.controller.RenameCampaign(r.Context(), req.CampaignID, req.Name); err != nil {
		h.writeControllerError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Campaign " + req.CampaignID + " updated successfully",
	})
}

// Delete removes a campaign.
func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	campaignID := r.URL.Query().Get("campaignId")
	if campaignID == "" {
		Error(w, http.StatusBadRequest, "campaignId is required")
		return
	}

	if err := h.controller.DeleteCampaign(r.Context(), campaignID); err != nil {
		h.writeControllerError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Campaign " + campaignID + " deleted successfully",
	})
}

func (h *CampaignHandler) writeControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrCampaignNotFound):
		Error(w, http.StatusNotFound, "campaign not found")
	case errors.Is(err, session.ErrNoActiveCampaign):
		Error(w, http.StatusBadRequest, "campaignId is required")
	case errors.Is(err, session.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, "message is empty")
	case errors.Is(err, session.ErrEmptyName):
		Error(w, http.StatusBadRequest, "name is empty")
	case errors.Is(err, session.ErrNoPaymentDue):
		Error(w, http.StatusBadRequest, "no payment due")
	case errors.Is(err, session.ErrOperationInFlight):
		Error(w, http.StatusConflict, "operation already in progress")
	case errors.Is(err, session.ErrCampaignSwitched):
		Error(w, http.StatusConflict, "campaign changed during request")
	default:
		slog.Error("Campaign operation failed", "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
	}
}
