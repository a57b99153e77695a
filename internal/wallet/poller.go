package wallet

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Update is a balance refresh result delivered to poller subscribers.
type Update struct {
	Balance *Balance  `json:"balance,omitempty"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// Poller periodically refreshes the wallet balance and fans results out
// to subscribers. It is tied to the context passed to Start, so session
// teardown stops the ticker rather than leaking a global timer.
type Poller struct {
	client   *Client
	walletID string
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	subs   map[int]chan Update
	nextID int
	kick   chan struct{}
}

// NewPoller creates a balance poller for one wallet.
func NewPoller(client *Client, walletID string, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		client:   client,
		walletID: walletID,
		interval: interval,
		logger:   logger,
		subs:     make(map[int]chan Update),
		kick:     make(chan struct{}, 1),
	}
}

// Start runs the poll loop until ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.refresh(ctx)
			case <-p.kick:
				p.refresh(ctx)
			}
		}
	}()
}

// Kick requests an out-of-band refresh, used after a funds transfer to
// surface the updated balance quickly. Best effort: if a refresh is
// already queued the request is dropped.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Subscribe registers a subscriber channel. The returned cancel function
// must be called when the subscriber goes away.
func (p *Poller) Subscribe() (<-chan Update, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	ch := make(chan Update, 4)
	p.subs[id] = ch

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if sub, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(sub)
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	if p.walletID == "" {
		return
	}

	update := Update{At: time.Now()}
	resp, err := p.client.Balance(ctx, p.walletID)
	switch {
	case err != nil:
		p.logger.Debug("balance refresh failed", "wallet_id", p.walletID, "error", err)
		update.Error = err.Error()
	case !resp.Success:
		update.Error = resp.Error
	default:
		update.Balance = resp.USDCBalance
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subs {
		// Slow subscribers are skipped, not blocked on.
		select {
		case ch <- update:
		default:
		}
	}
}
