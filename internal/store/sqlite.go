package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/arcwardens/outreach/internal/domain"
	"github.com/arcwardens/outreach/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes writes to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS campaigns (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		messages_json TEXT,
		paid INTEGER NOT NULL DEFAULT 0,
		executed INTEGER NOT NULL DEFAULT 0,
		pending_cost REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_campaigns_updated ON campaigns(updated_at);
	CREATE TABLE IF NOT EXISTS analytics (
		campaign_id TEXT PRIMARY KEY,
		emails_sent INTEGER NOT NULL DEFAULT 0,
		emails_opened INTEGER NOT NULL DEFAULT 0,
		replies INTEGER NOT NULL DEFAULT 0,
		bounce_rate REAL NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL,
		FOREIGN KEY (campaign_id) REFERENCES campaigns(id)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListCampaigns retrieves all stored campaigns, most recently updated first.
func (s *SQLiteStore) ListCampaigns(ctx context.Context) ([]*domain.Campaign, error) {
	query := `
		SELECT id, name, messages_json, paid, executed, pending_cost, created_at, updated_at
		FROM campaigns ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*domain.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}
	return campaigns, nil
}

// GetCampaign retrieves a campaign by id.
func (s *SQLiteStore) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	query := `
		SELECT id, name, messages_json, paid, executed, pending_cost, created_at, updated_at
		FROM campaigns WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	campaign, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return campaign, nil
}

// CreateCampaign persists a new campaign record.
func (s *SQLiteStore) CreateCampaign(ctx context.Context, campaign *domain.Campaign) error {
	messagesJSON, err := encodeMessages(campaign.Messages)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO campaigns (id, name, messages_json, paid, executed, pending_cost, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		campaign.ID, campaign.Name, messagesJSON,
		boolToInt(campaign.Paid), boolToInt(campaign.Executed), campaign.PendingCost,
		campaign.CreatedAt.Unix(), campaign.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// UpdateCampaign applies a partial update to a campaign record, retrying
// on SQLite concurrency errors.
func (s *SQLiteStore) UpdateCampaign(ctx context.Context, id string, update CampaignUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().Unix()}

	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Messages != nil {
		messagesJSON, err := encodeMessages(*update.Messages)
		if err != nil {
			return err
		}
		sets = append(sets, "messages_json = ?")
		args = append(args, messagesJSON)
	}
	if update.PendingCost != nil {
		sets = append(sets, "pending_cost = ?")
		args = append(args, *update.PendingCost)
	}
	if update.Paid != nil {
		sets = append(sets, "paid = ?")
		args = append(args, boolToInt(*update.Paid))
	}
	if update.Executed != nil {
		sets = append(sets, "executed = ?")
		args = append(args, boolToInt(*update.Executed))
	}
	args = append(args, id)

	query := "UPDATE campaigns SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.execWithRetry(ctx, query, args...)
}

// DeleteCampaign removes a campaign record.
func (s *SQLiteStore) DeleteCampaign(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execWithRetry(ctx, "DELETE FROM campaigns WHERE id = ?", id)
}

// GetAnalytics retrieves stored delivery metrics for a campaign.
func (s *SQLiteStore) GetAnalytics(ctx context.Context, campaignID string) (*domain.Analytics, error) {
	query := `
		SELECT emails_sent, emails_opened, replies, bounce_rate
		FROM analytics WHERE campaign_id = ?`

	var analytics domain.Analytics
	err := s.db.QueryRowContext(ctx, query, campaignID).Scan(
		&analytics.EmailsSent, &analytics.EmailsOpened,
		&analytics.Replies, &analytics.BounceRate,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan analytics row: %w", err)
	}
	return &analytics, nil
}

// UpsertAnalytics records delivery metrics for a campaign.
func (s *SQLiteStore) UpsertAnalytics(ctx context.Context, campaignID string, analytics domain.Analytics) error {
	query := `
		INSERT INTO analytics (campaign_id, emails_sent, emails_opened, replies, bounce_rate, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(campaign_id) DO UPDATE SET
			emails_sent = excluded.emails_sent,
			emails_opened = excluded.emails_opened,
			replies = excluded.replies,
			bounce_rate = excluded.bounce_rate,
			updated_at = excluded.updated_at`

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execWithRetry(ctx, query,
		campaignID, analytics.EmailsSent, analytics.EmailsOpened,
		analytics.Replies, analytics.BounceRate, time.Now().Unix(),
	)
}

// execWithRetry runs a statement with exponential backoff on SQLITE_BUSY.
func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...any) error {
	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		_, err = s.db.ExecContext(ctx, query, args...)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(baseDelay * time.Duration(1<<i)):
		}
	}
	return fmt.Errorf("exec campaign statement: %w", err)
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*domain.Campaign, error) {
	var campaign domain.Campaign
	var messagesJSON sql.NullString
	var paid, executed int
	var createdAt, updatedAt int64

	err := row.Scan(
		&campaign.ID, &campaign.Name, &messagesJSON,
		&paid, &executed, &campaign.PendingCost,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan campaign row: %w", err)
	}

	if messagesJSON.Valid && messagesJSON.String != "" {
		if err := json.Unmarshal([]byte(messagesJSON.String), &campaign.Messages); err != nil {
			return nil, fmt.Errorf("decode campaign messages: %w", err)
		}
	}
	campaign.Paid = paid != 0
	campaign.Executed = executed != 0
	campaign.CreatedAt = time.Unix(createdAt, 0)
	campaign.UpdatedAt = time.Unix(updatedAt, 0)

	return &campaign, nil
}

func encodeMessages(messages []domain.Message) (string, error) {
	if messages == nil {
		messages = []domain.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("encode campaign messages: %w", err)
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
