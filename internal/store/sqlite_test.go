package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/arcwardens/outreach/internal/domain"
)

func newTestSQLite(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "campaigns.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("close failed: %v", err)
		}
	})
	return repo
}

func TestSQLiteCampaignRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestSQLite(t)
	ctx := context.Background()

	now := time.Now()
	campaign := &domain.Campaign{
		ID:   "c-1",
		Name: "Fintech Outreach",
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "Target fintech CTOs"},
			{Role: domain.RoleAssistant, Content: "I can run that for $25"},
		},
		PendingCost: 25,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.CreateCampaign(ctx, campaign); err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}

	got, err := repo.GetCampaign(ctx, "c-1")
	if err != nil {
		t.Fatalf("GetCampaign failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetCampaign returned nil for a stored campaign")
	}
	if got.Name != "Fintech Outreach" || got.PendingCost != 25 {
		t.Errorf("got name=%q pendingCost=%v", got.Name, got.PendingCost)
	}
	if len(got.Messages) != 2 || got.Messages[1].Role != domain.RoleAssistant {
		t.Errorf("messages did not survive the round trip: %+v", got.Messages)
	}
	if got.Paid || got.Executed {
		t.Error("flags must default to false")
	}
}

func TestSQLiteGetMissingCampaign(t *testing.T) {
	t.Parallel()

	repo := newTestSQLite(t)
	got, err := repo.GetCampaign(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetCampaign failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for a missing campaign, got %+v", got)
	}
}

func TestSQLitePartialUpdate(t *testing.T) {
	t.Parallel()

	repo := newTestSQLite(t)
	ctx := context.Background()

	now := time.Now()
	campaign := &domain.Campaign{
		ID:          "c-2",
		Name:        "Draft",
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
		PendingCost: 25,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.CreateCampaign(ctx, campaign); err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}

	// Settle the charge without touching the message log.
	zero := 0.0
	paid := true
	executed := true
	err := repo.UpdateCampaign(ctx, "c-2", CampaignUpdate{
		PendingCost: &zero,
		Paid:        &paid,
		Executed:    &executed,
	})
	if err != nil {
		t.Fatalf("UpdateCampaign failed: %v", err)
	}

	got, err := repo.GetCampaign(ctx, "c-2")
	if err != nil {
		t.Fatalf("GetCampaign failed: %v", err)
	}
	if got.PendingCost != 0 || !got.Paid || !got.Executed {
		t.Errorf("settled state not applied: %+v", got)
	}
	if got.Name != "Draft" || len(got.Messages) != 1 {
		t.Errorf("untouched fields changed: name=%q messages=%d", got.Name, len(got.Messages))
	}
}

func TestSQLiteDeleteCampaign(t *testing.T) {
	t.Parallel()

	repo := newTestSQLite(t)
	ctx := context.Background()

	now := time.Now()
	if err := repo.CreateCampaign(ctx, &domain.Campaign{ID: "c-3", Name: "Gone", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}
	if err := repo.DeleteCampaign(ctx, "c-3"); err != nil {
		t.Fatalf("DeleteCampaign failed: %v", err)
	}

	got, err := repo.GetCampaign(ctx, "c-3")
	if err != nil {
		t.Fatalf("GetCampaign failed: %v", err)
	}
	if got != nil {
		t.Error("campaign still present after delete")
	}
}

func TestSQLiteListOrdersByUpdatedAt(t *testing.T) {
	t.Parallel()

	repo := newTestSQLite(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		err := repo.CreateCampaign(ctx, &domain.Campaign{ID: id, Name: id, CreatedAt: ts, UpdatedAt: ts})
		if err != nil {
			t.Fatalf("CreateCampaign %s failed: %v", id, err)
		}
	}

	campaigns, err := repo.ListCampaigns(ctx)
	if err != nil {
		t.Fatalf("ListCampaigns failed: %v", err)
	}
	if len(campaigns) != 3 {
		t.Fatalf("listed %d campaigns, want 3", len(campaigns))
	}
	if campaigns[0].ID != "new" || campaigns[2].ID != "old" {
		t.Errorf("unexpected order: %s, %s, %s", campaigns[0].ID, campaigns[1].ID, campaigns[2].ID)
	}
}

func TestSQLiteAnalyticsRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestSQLite(t)
	ctx := context.Background()

	now := time.Now()
	if err := repo.CreateCampaign(ctx, &domain.Campaign{ID: "c-a", Name: "Metrics", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}

	missing, err := repo.GetAnalytics(ctx, "c-a")
	if err != nil {
		t.Fatalf("GetAnalytics failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil before any record, got %+v", missing)
	}

	first := domain.Analytics{EmailsSent: 1200, EmailsOpened: 300, Replies: 25, BounceRate: 2.4}
	if err := repo.UpsertAnalytics(ctx, "c-a", first); err != nil {
		t.Fatalf("UpsertAnalytics failed: %v", err)
	}
	got, err := repo.GetAnalytics(ctx, "c-a")
	if err != nil {
		t.Fatalf("GetAnalytics failed: %v", err)
	}
	if got == nil || *got != first {
		t.Errorf("got %+v, want %+v", got, first)
	}

	// A second upsert replaces the record instead of adding one.
	second := domain.Analytics{EmailsSent: 4000, EmailsOpened: 900, Replies: 80, BounceRate: 1.1}
	if err := repo.UpsertAnalytics(ctx, "c-a", second); err != nil {
		t.Fatalf("UpsertAnalytics failed: %v", err)
	}
	got, err = repo.GetAnalytics(ctx, "c-a")
	if err != nil {
		t.Fatalf("GetAnalytics failed: %v", err)
	}
	if got == nil || *got != second {
		t.Errorf("got %+v, want %+v", got, second)
	}
}
