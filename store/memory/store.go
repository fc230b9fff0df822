// Package memory provides an in-memory Store for tests and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/tally"
	"github.com/xraph/tally/affiliate"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/meter"
	"github.com/xraph/tally/payout"
	"github.com/xraph/tally/subscription"
)

type Store struct {
	mu sync.RWMutex

	// Subscription storage
	subscriptions map[string]*subscription.Subscription

	// Usage events storage
	usageEvents []meter.UsageEvent

	// Affiliate storage
	links       map[string]*affiliate.Link
	linksByCode map[string]string
	clicks      []affiliate.Click
	conversions map[string]*affiliate.Conversion

	// Payout storage
	payouts map[string]*payout.Payout
}

func New() *Store {
	return &Store{
		subscriptions: make(map[string]*subscription.Subscription),
		usageEvents:   make([]meter.UsageEvent, 0),
		links:         make(map[string]*affiliate.Link),
		linksByCode:   make(map[string]string),
		clicks:        make([]affiliate.Click, 0),
		conversions:   make(map[string]*affiliate.Conversion),
		payouts:       make(map[string]*payout.Payout),
	}
}

// Subscription Store implementation
func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID.String()]; exists {
		return tally.ErrAlreadyExists
	}
	for _, existing := range s.subscriptions {
		if existing.UserID == sub.UserID && existing.Status == subscription.StatusActive {
			return tally.ErrSubscriptionExists
		}
	}
	cp := *sub
	s.subscriptions[sub.ID.String()] = &cp
	return nil
}

func (s *Store) GetSubscription(_ context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscriptions[subID.String()]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, tally.ErrSubscriptionNotFound
}

func (s *Store) GetActiveSubscription(_ context.Context, userID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscriptions {
		if sub.UserID == userID && sub.Status == subscription.StatusActive {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, tally.ErrNoActiveSubscription
}

func (s *Store) ListSubscriptions(_ context.Context, userID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Subscription, 0)
	for _, sub := range s.subscriptions {
		if sub.UserID == userID {
			if opts.Status == "" || sub.Status == opts.Status {
				cp := *sub
				result = append(result, &cp)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID.String()]; !exists {
		return tally.ErrSubscriptionNotFound
	}
	cp := *sub
	s.subscriptions[sub.ID.String()] = &cp
	return nil
}

func (s *Store) CancelSubscription(_ context.Context, subID id.SubscriptionID, canceledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, exists := s.subscriptions[subID.String()]; exists {
		sub.Status = subscription.StatusCanceled
		sub.CanceledAt = &canceledAt
		sub.Touch()
		return nil
	}
	return tally.ErrSubscriptionNotFound
}

// Meter Store implementation
func (s *Store) AppendUsage(_ context.Context, event *meter.UsageEvent, window meter.Window, ceiling int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ceiling >= 0 {
		used := s.aggregateLocked(event.UserID, event.Type, window)
		if used+event.Amount > ceiling {
			return &tally.QuotaExceededError{
				Type:      event.Type,
				Ceiling:   ceiling,
				Used:      used,
				Requested: event.Amount,
			}
		}
	}

	s.usageEvents = append(s.usageEvents, *event)
	return nil
}

func (s *Store) AggregateUsage(_ context.Context, userID string, typ meter.UsageType, window meter.Window) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.aggregateLocked(userID, typ, window), nil
}

func (s *Store) aggregateLocked(userID string, typ meter.UsageType, window meter.Window) int64 {
	var total int64
	for i := range s.usageEvents {
		e := &s.usageEvents[i]
		if e.UserID == userID && e.Type == typ && window.Contains(e.Timestamp) {
			total += e.Amount
		}
	}
	return total
}

func (s *Store) SummarizeUsage(_ context.Context, userID string) ([]meter.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[meter.UsageType]*meter.Summary)
	for i := range s.usageEvents {
		e := &s.usageEvents[i]
		if e.UserID != userID {
			continue
		}
		sum, ok := totals[e.Type]
		if !ok {
			sum = &meter.Summary{Type: e.Type}
			totals[e.Type] = sum
		}
		sum.Total += e.Amount
		sum.Count++
	}

	result := make([]meter.Summary, 0, len(totals))
	for _, typ := range meter.Types() {
		if sum, ok := totals[typ]; ok {
			result = append(result, *sum)
		}
	}
	return result, nil
}

func (s *Store) QueryUsage(_ context.Context, userID string, opts meter.QueryOpts) ([]*meter.UsageEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*meter.UsageEvent, 0)
	for i := range s.usageEvents {
		e := s.usageEvents[i]
		if e.UserID != userID {
			continue
		}
		if opts.Type != "" && e.Type != opts.Type {
			continue
		}
		if !opts.Start.IsZero() && e.Timestamp.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && !e.Timestamp.Before(opts.End) {
			continue
		}
		result = append(result, &e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

// Affiliate Store implementation
func (s *Store) CreateLink(_ context.Context, l *affiliate.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.links[l.ID.String()]; exists {
		return tally.ErrAlreadyExists
	}
	if _, exists := s.linksByCode[l.Code]; exists {
		return tally.ErrCodeTaken
	}
	cp := *l
	s.links[l.ID.String()] = &cp
	s.linksByCode[l.Code] = l.ID.String()
	return nil
}

func (s *Store) GetLink(_ context.Context, linkID id.LinkID) (*affiliate.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.links[linkID.String()]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, tally.ErrLinkNotFound
}

func (s *Store) GetLinkByCode(_ context.Context, code string) (*affiliate.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if key, ok := s.linksByCode[code]; ok {
		if l, ok := s.links[key]; ok {
			cp := *l
			return &cp, nil
		}
	}
	return nil, tally.ErrLinkNotFound
}

func (s *Store) ListLinks(_ context.Context, userID string, opts affiliate.ListOpts) ([]*affiliate.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*affiliate.Link, 0)
	for _, l := range s.links {
		if l.UserID == userID {
			cp := *l
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateLink(_ context.Context, l *affiliate.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.links[l.ID.String()]
	if !exists {
		return tally.ErrLinkNotFound
	}
	if existing.Code != l.Code {
		if _, taken := s.linksByCode[l.Code]; taken {
			return tally.ErrCodeTaken
		}
		delete(s.linksByCode, existing.Code)
		s.linksByCode[l.Code] = l.ID.String()
	}
	cp := *l
	s.links[l.ID.String()] = &cp
	return nil
}

func (s *Store) CreateClick(_ context.Context, c *affiliate.Click) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clicks = append(s.clicks, *c)
	return nil
}

func (s *Store) CountClicks(_ context.Context, linkID id.LinkID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for i := range s.clicks {
		if s.clicks[i].LinkID == linkID {
			count++
		}
	}
	return count, nil
}

func (s *Store) CreateConversion(_ context.Context, c *affiliate.Conversion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversions[c.ID.String()]; exists {
		return tally.ErrAlreadyExists
	}
	cp := *c
	s.conversions[c.ID.String()] = &cp
	return nil
}

func (s *Store) GetConversion(_ context.Context, convID id.ConversionID) (*affiliate.Conversion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.conversions[convID.String()]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, tally.ErrConversionNotFound
}

func (s *Store) ListConversions(_ context.Context, linkID id.LinkID, opts affiliate.ListOpts) ([]*affiliate.Conversion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*affiliate.Conversion, 0)
	for _, c := range s.conversions {
		if c.LinkID == linkID {
			if opts.Status == "" || c.Status == opts.Status {
				cp := *c
				result = append(result, &cp)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) SettleConversion(_ context.Context, convID id.ConversionID, status affiliate.ConversionStatus, settledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversions[convID.String()]
	if !ok {
		return tally.ErrConversionNotFound
	}
	if c.Status.Terminal() {
		return tally.ErrConversionSettled
	}
	c.Status = status
	c.SettledAt = &settledAt
	c.Touch()
	return nil
}

func (s *Store) SumSettledCommission(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, c := range s.conversions {
		if c.Status != affiliate.ConversionCompleted {
			continue
		}
		if l, ok := s.links[c.LinkID.String()]; ok && l.UserID == userID {
			total += c.CommissionAmount.Amount
		}
	}
	return total, nil
}

// Payout Store implementation
func (s *Store) CreatePayout(_ context.Context, p *payout.Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payouts[p.ID.String()]; exists {
		return tally.ErrAlreadyExists
	}
	cp := *p
	s.payouts[p.ID.String()] = &cp
	return nil
}

func (s *Store) GetPayout(_ context.Context, payoutID id.PayoutID) (*payout.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.payouts[payoutID.String()]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, tally.ErrPayoutNotFound
}

func (s *Store) ListPayouts(_ context.Context, opts payout.ListOpts) ([]*payout.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*payout.Payout, 0)
	for _, p := range s.payouts {
		if opts.UserID != "" && p.UserID != opts.UserID {
			continue
		}
		if opts.Status != "" && p.Status != opts.Status {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) SetPayoutStatus(_ context.Context, payoutID id.PayoutID, status payout.Status, processedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payouts[payoutID.String()]
	if !ok {
		return tally.ErrPayoutNotFound
	}
	if p.Status.Terminal() {
		return tally.ErrPayoutFinalized
	}
	if !payout.CanTransition(p.Status, status) {
		return tally.ErrInvalidTransition
	}
	p.Status = status
	p.ProcessedAt = processedAt
	p.Touch()
	return nil
}

func (s *Store) SumReservedPayouts(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, p := range s.payouts {
		if p.UserID == userID && p.Status.Reserved() {
			total += p.Amount.Amount
		}
	}
	return total, nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

// Helper functions
func paginate[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
