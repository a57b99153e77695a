// Package store provides campaign persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/arcwardens/outreach/internal/domain"
)

// CampaignUpdate describes a partial campaign update. Nil fields are
// left unchanged.
type CampaignUpdate struct {
	Name        *string
	Messages    *[]domain.Message
	PendingCost *float64
	Paid        *bool
	Executed    *bool
}

// Repository defines the interface for persisting campaign records.
type Repository interface {
	// ListCampaigns retrieves all stored campaigns.
	ListCampaigns(ctx context.Context) ([]*domain.Campaign, error)

	// GetCampaign retrieves a campaign by id. Returns (nil, nil) when
	// the campaign does not exist.
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)

	// CreateCampaign persists a new campaign record.
	CreateCampaign(ctx context.Context, campaign *domain.Campaign) error

	// UpdateCampaign applies a partial update to a campaign record.
	UpdateCampaign(ctx context.Context, id string, update CampaignUpdate) error

	// DeleteCampaign removes a campaign record.
	DeleteCampaign(ctx context.Context, id string) error

	// GetAnalytics retrieves stored delivery metrics for a campaign.
	// Returns (nil, nil) when none have been recorded.
	GetAnalytics(ctx context.Context, campaignID string) (*domain.Analytics, error)

	// UpsertAnalytics records delivery metrics for a campaign,
	// replacing any previous record.
	UpsertAnalytics(ctx context.Context, campaignID string, analytics domain.Analytics) error

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases storage resources.
	Close() error
}
