package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tally/affiliate"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/meter"
	"github.com/xraph/tally/payout"
	"github.com/xraph/tally/plan"
	"github.com/xraph/tally/subscription"
	"github.com/xraph/tally/types"
)

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:tally_subscriptions"`

	ID                 string            `grove:"id,pk"`
	UserID             string            `grove:"user_id"`
	Tier               string            `grove:"tier"`
	Status             string            `grove:"status"`
	CurrentPeriodStart time.Time         `grove:"current_period_start"`
	CurrentPeriodEnd   time.Time         `grove:"current_period_end"`
	CanceledAt         *time.Time        `grove:"canceled_at"`
	Metadata           map[string]string `grove:"metadata,type:json"`
	CreatedAt          time.Time         `grove:"created_at"`
	UpdatedAt          time.Time         `grove:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:                 s.ID.String(),
		UserID:             s.UserID,
		Tier:               string(s.Tier),
		Status:             string(s.Status),
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		CanceledAt:         s.CanceledAt,
		Metadata:           s.Metadata,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, err
	}

	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                 subID,
		UserID:             m.UserID,
		Tier:               plan.Tier(m.Tier),
		Status:             subscription.Status(m.Status),
		CurrentPeriodStart: m.CurrentPeriodStart,
		CurrentPeriodEnd:   m.CurrentPeriodEnd,
		CanceledAt:         m.CanceledAt,
		Metadata:           m.Metadata,
	}, nil
}

// ==================== Usage event models ====================

type usageEventModel struct {
	grove.BaseModel `grove:"table:tally_usage_events"`

	ID        string            `grove:"id,pk"`
	UserID    string            `grove:"user_id"`
	Type      string            `grove:"type"`
	Amount    int64             `grove:"amount"`
	Timestamp time.Time         `grove:"timestamp"`
	Metadata  map[string]string `grove:"metadata,type:json"`
	CreatedAt time.Time         `grove:"created_at"`
}

func fromUsageEventModel(m *usageEventModel) (*meter.UsageEvent, error) {
	eventID, err := id.ParseUsageEventID(m.ID)
	if err != nil {
		return nil, err
	}

	return &meter.UsageEvent{
		ID:        eventID,
		UserID:    m.UserID,
		Type:      meter.UsageType(m.Type),
		Amount:    m.Amount,
		Timestamp: m.Timestamp,
		Metadata:  m.Metadata,
	}, nil
}

// ==================== Affiliate models ====================

type linkModel struct {
	grove.BaseModel `grove:"table:tally_links"`

	ID             string    `grove:"id,pk"`
	UserID         string    `grove:"user_id"`
	Code           string    `grove:"code"`
	Description    string    `grove:"description"`
	CommissionRate float64   `grove:"commission_rate"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toLinkModel(l *affiliate.Link) *linkModel {
	return &linkModel{
		ID:             l.ID.String(),
		UserID:         l.UserID,
		Code:           l.Code,
		Description:    l.Description,
		CommissionRate: l.CommissionRate,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func fromLinkModel(m *linkModel) (*affiliate.Link, error) {
	linkID, err := id.ParseLinkID(m.ID)
	if err != nil {
		return nil, err
	}

	return &affiliate.Link{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             linkID,
		UserID:         m.UserID,
		Code:           m.Code,
		Description:    m.Description,
		CommissionRate: m.CommissionRate,
	}, nil
}

type clickModel struct {
	grove.BaseModel `grove:"table:tally_clicks"`

	ID        string            `grove:"id,pk"`
	LinkID    string            `grove:"link_id"`
	Timestamp time.Time         `grove:"timestamp"`
	Metadata  map[string]string `grove:"metadata,type:json"`
	CreatedAt time.Time         `grove:"created_at"`
}

func toClickModel(c *affiliate.Click) *clickModel {
	return &clickModel{
		ID:        c.ID.String(),
		LinkID:    c.LinkID.String(),
		Timestamp: c.Timestamp,
		Metadata:  c.Metadata,
		CreatedAt: c.Timestamp,
	}
}

type conversionModel struct {
	grove.BaseModel `grove:"table:tally_conversions"`

	ID              string     `grove:"id,pk"`
	LinkID          string     `grove:"link_id"`
	ReferredUserID  string     `grove:"referred_user_id"`
	AmountCents     int64      `grove:"amount_cents"`
	Currency        string     `grove:"currency"`
	CommissionRate  float64    `grove:"commission_rate"`
	CommissionCents int64      `grove:"commission_cents"`
	Status          string     `grove:"status"`
	SettledAt       *time.Time `grove:"settled_at"`
	CreatedAt       time.Time  `grove:"created_at"`
	UpdatedAt       time.Time  `grove:"updated_at"`
}

func toConversionModel(c *affiliate.Conversion) *conversionModel {
	return &conversionModel{
		ID:              c.ID.String(),
		LinkID:          c.LinkID.String(),
		ReferredUserID:  c.ReferredUserID,
		AmountCents:     c.Amount.Amount,
		Currency:        c.Amount.Currency,
		CommissionRate:  c.CommissionRate,
		CommissionCents: c.CommissionAmount.Amount,
		Status:          string(c.Status),
		SettledAt:       c.SettledAt,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func fromConversionModel(m *conversionModel) (*affiliate.Conversion, error) {
	convID, err := id.ParseConversionID(m.ID)
	if err != nil {
		return nil, err
	}
	linkID, err := id.ParseLinkID(m.LinkID)
	if err != nil {
		return nil, err
	}

	return &affiliate.Conversion{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:               convID,
		LinkID:           linkID,
		ReferredUserID:   m.ReferredUserID,
		Amount:           types.Money{Amount: m.AmountCents, Currency: m.Currency},
		CommissionRate:   m.CommissionRate,
		CommissionAmount: types.Money{Amount: m.CommissionCents, Currency: m.Currency},
		Status:           affiliate.ConversionStatus(m.Status),
		SettledAt:        m.SettledAt,
	}, nil
}

// ==================== Payout models ====================

type payoutModel struct {
	grove.BaseModel `grove:"table:tally_payouts"`

	ID          string            `grove:"id,pk"`
	UserID      string            `grove:"user_id"`
	AmountCents int64             `grove:"amount_cents"`
	Currency    string            `grove:"currency"`
	Status      string            `grove:"status"`
	Method      string            `grove:"method"`
	Details     map[string]string `grove:"details,type:json"`
	ProcessedAt *time.Time        `grove:"processed_at"`
	CreatedAt   time.Time         `grove:"created_at"`
	UpdatedAt   time.Time         `grove:"updated_at"`
}

func toPayoutModel(p *payout.Payout) *payoutModel {
	return &payoutModel{
		ID:          p.ID.String(),
		UserID:      p.UserID,
		AmountCents: p.Amount.Amount,
		Currency:    p.Amount.Currency,
		Status:      string(p.Status),
		Method:      p.Method,
		Details:     p.Details,
		ProcessedAt: p.ProcessedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func fromPayoutModel(m *payoutModel) (*payout.Payout, error) {
	payoutID, err := id.ParsePayoutID(m.ID)
	if err != nil {
		return nil, err
	}

	return &payout.Payout{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          payoutID,
		UserID:      m.UserID,
		Amount:      types.Money{Amount: m.AmountCents, Currency: m.Currency},
		Status:      payout.Status(m.Status),
		Method:      m.Method,
		Details:     m.Details,
		ProcessedAt: m.ProcessedAt,
	}, nil
}
