package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/arcwardens/outreach/internal/domain"
)

// RemoteStore implements Repository against the campaign persistence
// backend's REST API. Used when campaign records live in a separate
// service instead of the local database.
type RemoteStore struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewRemote creates a repository backed by the remote campaign API.
func NewRemote(baseURL string, logger *slog.Logger) Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteStore{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		logger:     logger,
	}
}

type remoteCampaign struct {
	ID          string           `json:"campaignId"`
	Name        string           `json:"name"`
	Messages    []domain.Message `json:"messages"`
	Paid        bool             `json:"paid"`
	Executed    bool             `json:"executed"`
	PendingCost float64          `json:"pendingCost"`
	CreatedAt   int64            `json:"createdAt,omitempty"`
	UpdatedAt   int64            `json:"updatedAt,omitempty"`
}

type remoteListResponse struct {
	Success   bool             `json:"success"`
	Campaigns []remoteCampaign `json:"campaigns"`
	Error     string           `json:"error,omitempty"`
}

type remoteStatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type remoteUpdateRequest struct {
	CampaignID  string            `json:"campaignId"`
	Name        *string           `json:"name,omitempty"`
	Messages    *[]domain.Message `json:"messages,omitempty"`
	PendingCost *float64          `json:"pendingCost,omitempty"`
	Paid        *bool             `json:"paid,omitempty"`
	Executed    *bool             `json:"executed,omitempty"`
}

// ListCampaigns retrieves all campaigns from the remote backend.
func (s *RemoteStore) ListCampaigns(ctx context.Context) ([]*domain.Campaign, error) {
	var resp remoteListResponse
	if err := s.request(ctx, http.MethodGet, "/campaigns", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("list campaigns: %s", resp.Error)
	}

	campaigns := make([]*domain.Campaign, 0, len(resp.Campaigns))
	for _, rc := range resp.Campaigns {
		campaigns = append(campaigns, fromRemote(rc))
	}
	return campaigns, nil
}

// GetCampaign retrieves a campaign by listing and filtering; the remote
// API has no single-campaign read.
func (s *RemoteStore) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	campaigns, err := s.ListCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range campaigns {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

// CreateCampaign persists a new campaign in the remote backend.
func (s *RemoteStore) CreateCampaign(ctx context.Context, campaign *domain.Campaign) error {
	body := remoteCampaign{
		ID:       campaign.ID,
		Name:     campaign.Name,
		Messages: campaign.Messages,
	}
	var resp remoteStatusResponse
	if err := s.request(ctx, http.MethodPost, "/campaign/create", body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("create campaign %s: %s", campaign.ID, resp.Error)
	}
	return nil
}

// UpdateCampaign applies a partial update in the remote backend.
func (s *RemoteStore) UpdateCampaign(ctx context.Context, id string, update CampaignUpdate) error {
	body := remoteUpdateRequest{
		CampaignID:  id,
		Name:        update.Name,
		Messages:    update.Messages,
		PendingCost: update.PendingCost,
		Paid:        update.Paid,
		Executed:    update.Executed,
	}
	var resp remoteStatusResponse
	if err := s.request(ctx, http.MethodPut, "/campaign/update", body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("update campaign %s: %s", id, resp.Error)
	}
	return nil
}

// DeleteCampaign removes a campaign from the remote backend.
func (s *RemoteStore) DeleteCampaign(ctx context.Context, id string) error {
	path := "/campaign/delete?" + url.Values{"campaignId": {id}}.Encode()
	var resp remoteStatusResponse
	if err := s.request(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("delete campaign %s: %s", id, resp.Error)
	}
	return nil
}

type remoteAnalyticsCampaign struct {
	Analytics *domain.Analytics `json:"analytics,omitempty"`
}

type remoteAnalyticsResponse struct {
	Success  bool                     `json:"success"`
	Campaign *remoteAnalyticsCampaign `json:"campaign,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

type remoteAnalyticsRequest struct {
	CampaignID string `json:"campaignId"`
	domain.Analytics
}

// GetAnalytics retrieves delivery metrics from the remote backend.
// A campaign without recorded metrics yields (nil, nil).
func (s *RemoteStore) GetAnalytics(ctx context.Context, campaignID string) (*domain.Analytics, error) {
	var resp remoteAnalyticsResponse
	path := "/campaigns/" + url.PathEscape(campaignID) + "/analytics"
	if err := s.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("get analytics for %s: %s", campaignID, resp.Error)
	}
	if resp.Campaign == nil {
		return nil, nil
	}
	return resp.Campaign.Analytics, nil
}

// UpsertAnalytics records delivery metrics in the remote backend.
func (s *RemoteStore) UpsertAnalytics(ctx context.Context, campaignID string, analytics domain.Analytics) error {
	body := remoteAnalyticsRequest{CampaignID: campaignID, Analytics: analytics}
	var resp remoteStatusResponse
	if err := s.request(ctx, http.MethodPost, "/campaign/analytics", body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("upsert analytics for %s: %s", campaignID, resp.Error)
	}
	return nil
}

// Ping verifies the remote backend is reachable.
func (s *RemoteStore) Ping(ctx context.Context) error {
	var resp remoteListResponse
	return s.request(ctx, http.MethodGet, "/campaigns", nil, &resp)
}

// Close is a no-op for the remote store.
func (s *RemoteStore) Close() error {
	return nil
}

func (s *RemoteStore) request(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("campaign backend unreachable: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("campaign backend: HTTP %d: %s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func fromRemote(rc remoteCampaign) *domain.Campaign {
	campaign := &domain.Campaign{
		ID:          rc.ID,
		Name:        rc.Name,
		Messages:    rc.Messages,
		Paid:        rc.Paid,
		Executed:    rc.Executed,
		PendingCost: rc.PendingCost,
	}
	if rc.CreatedAt > 0 {
		campaign.CreatedAt = time.Unix(rc.CreatedAt, 0)
	}
	if rc.UpdatedAt > 0 {
		campaign.UpdatedAt = time.Unix(rc.UpdatedAt, 0)
	}
	return campaign
}
