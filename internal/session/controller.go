package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/arcwardens/outreach/internal/chat"
	"github.com/arcwardens/outreach/internal/domain"
	"github.com/arcwardens/outreach/internal/store"
	"github.com/arcwardens/outreach/internal/wallet"
	"github.com/google/uuid"
)

var (
	// ErrNoActiveCampaign indicates an operation was invoked without a
	// campaign id.
	ErrNoActiveCampaign = errors.New("no campaign specified")
	// ErrCampaignNotFound indicates the campaign id is unknown.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrEmptyName indicates a blank campaign name submission.
	ErrEmptyName = errors.New("campaign name is empty")
	// ErrOperationInFlight indicates another backend call is already
	// running for this campaign.
	ErrOperationInFlight = errors.New("operation already in flight for campaign")
	// ErrNoPaymentDue indicates Pay was called with nothing owed.
	ErrNoPaymentDue = errors.New("no payment due")
	// ErrEmptyMessage indicates a blank message submission.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrCampaignSwitched indicates the active campaign changed while a
	// backend call was in flight; the call's result was discarded.
	ErrCampaignSwitched = errors.New("active campaign changed during call")
)

// ChatBackend is the reasoning backend surface the controller needs.
type ChatBackend interface {
	Chat(ctx context.Context, req chat.Request) (*chat.Response, error)
	ExecutePaidAction(ctx context.Context, req chat.PayRequest) (*chat.PayResponse, error)
}

// FundsSender is the wallet surface the controller needs.
type FundsSender interface {
	Send(ctx context.Context, req wallet.SendRequest) (*wallet.SendResponse, error)
}

// BalanceRefresher receives best-effort refresh requests after a
// successful transfer.
type BalanceRefresher interface {
	Kick()
}

// PaymentConfig identifies the custodial wallet and the merchant
// receiver used for campaign payments.
type PaymentConfig struct {
	WalletID        string
	ReceiverAddress string
	TokenID         string
}

// SendResult is the outcome of a SendMessage call.
type SendResult struct {
	// Reply is the assistant message appended to the log: the backend
	// reply, an error narration, or the payment reminder.
	Reply domain.Message
	// PendingCost is the outstanding charge after this turn.
	PendingCost float64
	// PaymentPending reports whether the gate is awaiting payment.
	PaymentPending bool
	// Blocked is true when the message was redirected to a payment
	// reminder instead of reaching the reasoning backend.
	Blocked bool
}

// PayStatus classifies the outcome of a payment round.
type PayStatus string

const (
	// PayStatusCompleted means funds moved and the action executed with
	// no further charge.
	PayStatusCompleted PayStatus = "completed"
	// PayStatusChained means funds moved, the action executed, and a
	// follow-up charge is now outstanding.
	PayStatusChained PayStatus = "chained"
	// PayStatusTransferFailed means the funds transfer was rejected;
	// the charge is unchanged and Pay may be retried.
	PayStatusTransferFailed PayStatus = "transfer_failed"
	// PayStatusActionFailed means funds moved but the action failed;
	// the charge is cleared and will not be retried automatically.
	PayStatusActionFailed PayStatus = "action_failed"
)

// PayResult is the outcome of a Pay call.
type PayResult struct {
	Status      PayStatus
	Narration   domain.Message
	PendingCost float64
}

// Controller owns the campaign sessions: the keyed campaign store, the
// active selection, the payment gate, and the pay-then-execute flow.
// All campaign mutation goes through it.
type Controller struct {
	repo      store.Repository
	chat      ChatBackend
	funds     FundsSender
	refresher BalanceRefresher
	payCfg    PaymentConfig
	logger    *slog.Logger

	mu        sync.Mutex
	campaigns map[string]*domain.Campaign
	order     []string
	activeID  string
	gate      Gate
	inflight  map[string]bool

	closeOnce sync.Once
	closed    chan struct{}
}

// NewController creates a session controller. refresher may be nil when
// no balance surface is attached.
func NewController(repo store.Repository, chatBackend ChatBackend, funds FundsSender, refresher BalanceRefresher, payCfg PaymentConfig, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		repo:      repo,
		chat:      chatBackend,
		funds:     funds,
		refresher: refresher,
		payCfg:    payCfg,
		logger:    logger,
		campaigns: make(map[string]*domain.Campaign),
		inflight:  make(map[string]bool),
		closed:    make(chan struct{}),
	}
}

// Close stops background refresh scheduling.
func (s *Controller) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// Load hydrates the in-memory campaign set from the repository.
func (s *Controller) Load(ctx context.Context) error {
	campaigns, err := s.repo.ListCampaigns(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range campaigns {
		if _, ok := s.campaigns[c.ID]; ok {
			continue
		}
		s.campaigns[c.ID] = c
		s.order = append(s.order, c.ID)
	}
	return nil
}

// CreateCampaign creates a new empty campaign, makes it active, and
// persists it.
func (s *Controller) CreateCampaign(ctx context.Context, name string) (*domain.Campaign, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "New Campaign"
	}

	now := time.Now()
	campaign := &domain.Campaign{
		ID:        uuid.NewString(),
		Name:      name,
		Messages:  []domain.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.campaigns[campaign.ID] = campaign
	s.order = append([]string{campaign.ID}, s.order...)
	s.activeID = campaign.ID
	s.gate.Clear()
	snapshot := copyCampaign(campaign)
	s.mu.Unlock()

	if err := s.repo.CreateCampaign(ctx, snapshot); err != nil {
		// Persistence failures never block the session flow.
		s.logger.Error("failed to persist new campaign", "campaign_id", campaign.ID, "error", err)
	}
	return snapshot, nil
}

// SelectCampaign makes a campaign active and recomputes the payment
// gate from its stored fields. Gate state never carries over from the
// previously active campaign.
func (s *Controller) SelectCampaign(ctx context.Context, id string) error {
	return s.activate(ctx, id)
}

// activate marks a campaign active and derives the gate from it,
// loading it from the repository if it is not cached yet. Every
// campaign operation goes through it so selection and the operation's
// own lookup cannot disagree on which campaign is addressed.
func (s *Controller) activate(ctx context.Context, id string) error {
	if id == "" {
		return ErrNoActiveCampaign
	}

	s.mu.Lock()
	if campaign, ok := s.campaigns[id]; ok {
		s.activeID = id
		s.gate.Recompute(campaign)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	campaign, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if campaign == nil {
		return ErrCampaignNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[id]; !ok {
		s.campaigns[id] = campaign
		s.order = append(s.order, id)
	}
	s.activeID = id
	s.gate.Recompute(s.campaigns[id])
	return nil
}

// SendMessage processes a user turn for the given campaign, which also
// becomes the active one. While a payment is pending the text is not
// forwarded to the reasoning backend: the turn is answered with a
// payment reminder and persisted, leaving the outstanding cost
// unchanged.
func (s *Controller) SendMessage(ctx context.Context, id, text string) (*SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if err := s.activate(ctx, id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	campaign, ok := s.campaigns[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrCampaignNotFound
	}
	if s.inflight[id] {
		s.mu.Unlock()
		return nil, ErrOperationInFlight
	}

	// Decisions are made on the campaign's own fields so a concurrent
	// selection change cannot redirect this turn.
	if campaign.PaymentPending() {
		cost := campaign.PendingCost
		reminder := paymentReminder(cost)
		campaign.Append(domain.RoleUser, text)
		campaign.Append(domain.RoleAssistant, reminder)
		campaign.UpdatedAt = time.Now()
		messages := campaign.History()
		s.mu.Unlock()

		s.persist(ctx, id, store.CampaignUpdate{Messages: &messages})
		return &SendResult{
			Reply:          domain.Message{Role: domain.RoleAssistant, Content: reminder},
			PendingCost:    cost,
			PaymentPending: true,
			Blocked:        true,
		}, nil
	}

	campaign.Append(domain.RoleUser, text)
	history := campaign.History()
	s.inflight[id] = true
	s.mu.Unlock()

	resp, chatErr := s.chat.Chat(ctx, chat.Request{
		Message:             text,
		CampaignID:          id,
		ConversationHistory: history,
	})

	s.mu.Lock()
	delete(s.inflight, id)
	campaign, ok = s.campaigns[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrCampaignNotFound
	}
	if s.activeID != id {
		// The user switched campaigns mid-call: the reply must not be
		// applied to the now-inactive campaign. Persist the user turn
		// and drop the rest.
		messages := campaign.History()
		s.mu.Unlock()
		s.logger.Info("discarding chat reply for inactive campaign", "campaign_id", id)
		s.persist(ctx, id, store.CampaignUpdate{Messages: &messages})
		return nil, ErrCampaignSwitched
	}

	if chatErr != nil {
		narration := chatErrorNarration(chatErr)
		campaign.Append(domain.RoleAssistant, narration)
		campaign.UpdatedAt = time.Now()
		messages := campaign.History()
		pending := campaign.PaymentPending()
		cost := campaign.PendingCost
		s.mu.Unlock()

		s.logger.Warn("chat backend call failed", "campaign_id", id, "error", chatErr)
		s.persist(ctx, id, store.CampaignUpdate{Messages: &messages})
		return &SendResult{
			Reply:          domain.Message{Role: domain.RoleAssistant, Content: narration},
			PendingCost:    cost,
			PaymentPending: pending,
		}, nil
	}

	reply := chat.ReplyText(resp)
	cost := chat.Cost(resp)
	campaign.Append(domain.RoleAssistant, reply)
	campaign.PendingCost = cost
	campaign.UpdatedAt = time.Now()
	s.gate.ApplyQuote(cost)
	messages := campaign.History()
	s.mu.Unlock()

	s.persist(ctx, id, store.CampaignUpdate{Messages: &messages, PendingCost: &cost})
	return &SendResult{
		Reply:          domain.Message{Role: domain.RoleAssistant, Content: reply},
		PendingCost:    cost,
		PaymentPending: cost > 0,
	}, nil
}

// Pay settles the outstanding charge for the given campaign, which
// also becomes the active one: transfer funds, then execute the paid
// action. Outcomes are folded into the campaign record and narrated in
// its message log before returning.
func (s *Controller) Pay(ctx context.Context, id string) (*PayResult, error) {
	if err := s.activate(ctx, id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	campaign, ok := s.campaigns[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrCampaignNotFound
	}
	if s.inflight[id] {
		s.mu.Unlock()
		return nil, ErrOperationInFlight
	}
	if !campaign.PaymentPending() {
		s.mu.Unlock()
		return nil, ErrNoPaymentDue
	}
	amount := campaign.PendingCost
	s.inflight[id] = true
	s.mu.Unlock()

	sendResp, sendErr := s.funds.Send(ctx, wallet.SendRequest{
		WalletID:        s.payCfg.WalletID,
		ReceiverAddress: s.payCfg.ReceiverAddress,
		Amount:          formatAmount(amount),
		TokenID:         s.payCfg.TokenID,
	})

	if sendErr != nil || !sendResp.Accepted() {
		reason := ""
		switch {
		case sendErr != nil:
			s.logger.Warn("funds transfer failed", "campaign_id", id, "error", sendErr)
			reason = "the wallet service could not be reached"
		case sendResp != nil && sendResp.Error != "":
			reason = sendResp.Error
		}
		narration := transferFailed(reason)
		return s.finishPay(ctx, id, payOutcome{
			status:    PayStatusTransferFailed,
			narration: narration,
			// Transfer rejections are retryable: the charge stands.
			pendingCost: amount,
		})
	}

	// Funds moved; surface the new balance to the user out of band.
	s.scheduleBalanceRefreshes()

	payResp, payErr := s.chat.ExecutePaidAction(ctx, chat.PayRequest{
		CampaignID: id,
		Amount:     amount,
	})

	if payErr != nil || payResp == nil || !payResp.Success {
		reason := ""
		switch {
		case payErr != nil:
			s.logger.Error("paid action failed after transfer", "campaign_id", id, "amount", amount, "error", payErr)
			reason = chatErrorNarration(payErr)
		case payResp != nil && payResp.Error != "":
			reason = payResp.Error
		case payResp != nil && payResp.Message != "":
			reason = payResp.Message
		}
		// Retrying would double-charge, so the gate is cleared. This is
		// a terminal failure that needs manual follow-up.
		return s.finishPay(ctx, id, payOutcome{
			status:      PayStatusActionFailed,
			narration:   actionFailedAfterTransfer(amount, reason),
			pendingCost: 0,
		})
	}

	newCost := chat.PayCost(payResp)
	outcome := payOutcome{
		status:      PayStatusCompleted,
		narration:   payResp.Message,
		pendingCost: newCost,
		paid:        true,
		executed:    true,
	}
	if newCost > 0 {
		outcome.status = PayStatusChained
		if outcome.narration == "" {
			outcome.narration = paymentChained(newCost)
		}
	} else if outcome.narration == "" {
		outcome.narration = paymentCompleted(amount)
	}
	return s.finishPay(ctx, id, outcome)
}

// payOutcome captures how a payment round ended so finishPay can fold
// it into the campaign under one lock acquisition.
type payOutcome struct {
	status      PayStatus
	narration   string
	pendingCost float64
	paid        bool
	executed    bool
}

func (s *Controller) finishPay(ctx context.Context, id string, outcome payOutcome) (*PayResult, error) {
	s.mu.Lock()
	delete(s.inflight, id)
	campaign, ok := s.campaigns[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("campaign deleted while payment was in flight", "campaign_id", id, "status", outcome.status)
		return nil, ErrCampaignNotFound
	}

	campaign.Append(domain.RoleAssistant, outcome.narration)
	campaign.PendingCost = outcome.pendingCost
	if outcome.paid {
		campaign.Paid = true
	}
	if outcome.executed {
		campaign.Executed = true
	}
	campaign.UpdatedAt = time.Now()

	// The gate tracks the active selection only; a campaign switched
	// away mid-payment keeps its stored pendingCost and the gate is
	// recomputed from it on the next select.
	if s.activeID == id {
		s.gate.ApplyQuote(outcome.pendingCost)
	}
	messages := campaign.History()
	s.mu.Unlock()

	update := store.CampaignUpdate{
		Messages:    &messages,
		PendingCost: &outcome.pendingCost,
	}
	if outcome.paid {
		update.Paid = &outcome.paid
	}
	if outcome.executed {
		update.Executed = &outcome.executed
	}
	s.persist(ctx, id, update)

	if outcome.executed {
		// An executed campaign gets delivery metrics for the analytics
		// views. Best effort: reads regenerate the same metrics when the
		// record is missing.
		if err := s.repo.UpsertAnalytics(ctx, id, sampleAnalytics(id)); err != nil {
			s.logger.Error("failed to persist campaign analytics", "campaign_id", id, "error", err)
		}
	}

	return &PayResult{
		Status:      outcome.status,
		Narration:   domain.Message{Role: domain.RoleAssistant, Content: outcome.narration},
		PendingCost: outcome.pendingCost,
	}, nil
}

// CampaignAnalytics returns a campaign snapshot together with its
// delivery metrics. Campaigns that executed but have no stored record
// get regenerated metrics; unexecuted campaigns have none.
func (s *Controller) CampaignAnalytics(ctx context.Context, id string) (*domain.Campaign, *domain.Analytics, error) {
	s.mu.Lock()
	campaign, ok := s.campaigns[id]
	var snapshot *domain.Campaign
	if ok {
		snapshot = copyCampaign(campaign)
	}
	s.mu.Unlock()

	if !ok {
		stored, err := s.repo.GetCampaign(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if stored == nil {
			return nil, nil, ErrCampaignNotFound
		}
		snapshot = stored
	}

	analytics, err := s.repo.GetAnalytics(ctx, id)
	if err != nil {
		s.logger.Warn("analytics lookup failed", "campaign_id", id, "error", err)
		analytics = nil
	}
	if analytics == nil && snapshot.Executed {
		generated := sampleAnalytics(id)
		analytics = &generated
	}
	return snapshot, analytics, nil
}

// RenameCampaign updates a campaign's display name.
func (s *Controller) RenameCampaign(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	s.mu.Lock()
	campaign, ok := s.campaigns[id]
	if !ok {
		s.mu.Unlock()
		return ErrCampaignNotFound
	}
	campaign.Name = name
	campaign.UpdatedAt = time.Now()
	s.mu.Unlock()

	s.persist(ctx, id, store.CampaignUpdate{Name: &name})
	return nil
}

// DeleteCampaign removes a campaign. Local removal is authoritative:
// it proceeds even when the repository delete fails, so the session is
// never stranded on an unreachable backend.
func (s *Controller) DeleteCampaign(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.campaigns[id]; !ok {
		s.mu.Unlock()
		return ErrCampaignNotFound
	}
	delete(s.campaigns, id)
	for i, candidate := range s.order {
		if candidate == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.activeID == id {
		s.activeID = ""
		if len(s.order) > 0 {
			s.activeID = s.order[0]
		}
		s.gate.Recompute(s.campaigns[s.activeID])
	}
	s.mu.Unlock()

	if err := s.repo.DeleteCampaign(ctx, id); err != nil {
		s.logger.Error("remote campaign delete failed, local removal stands", "campaign_id", id, "error", err)
	}
	return nil
}

// ListCampaigns returns snapshots of all campaigns, newest first.
func (s *Controller) ListCampaigns() []*domain.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Campaign, 0, len(s.order))
	for _, id := range s.order {
		if campaign, ok := s.campaigns[id]; ok {
			out = append(out, copyCampaign(campaign))
		}
	}
	return out
}

// ActiveCampaign returns a snapshot of the active campaign, or nil.
func (s *Controller) ActiveCampaign() *domain.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	campaign, ok := s.campaigns[s.activeID]
	if !ok {
		return nil
	}
	return copyCampaign(campaign)
}

// PaymentState returns the gate state for the active campaign.
func (s *Controller) PaymentState() (pending bool, cost float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.Pending(), s.gate.PendingCost()
}

// persist applies a campaign update, logging failures instead of
// propagating them: persistence problems never interrupt the session.
func (s *Controller) persist(ctx context.Context, id string, update store.CampaignUpdate) {
	if err := s.repo.UpdateCampaign(ctx, id, update); err != nil {
		s.logger.Error("failed to persist campaign update", "campaign_id", id, "error", err)
	}
}

// scheduleBalanceRefreshes fires a short series of best-effort balance
// refreshes so the user sees the moved funds. Not required for
// correctness; stops early on controller close.
func (s *Controller) scheduleBalanceRefreshes() {
	if s.refresher == nil {
		return
	}
	s.refresher.Kick()
	go func() {
		for _, delay := range []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second} {
			select {
			case <-s.closed:
				return
			case <-time.After(delay):
				s.refresher.Kick()
			}
		}
	}()
}

func copyCampaign(c *domain.Campaign) *domain.Campaign {
	out := *c
	out.Messages = make([]domain.Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return &out
}
