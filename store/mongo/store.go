// Package mongo provides a Store backed by MongoDB via Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/tally"
	"github.com/xraph/tally/affiliate"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/meter"
	"github.com/xraph/tally/payout"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/subscription"
)

// Collection name constants.
const (
	colSubscriptions = "tally_subscriptions"
	colUsageEvents   = "tally_usage_events"
	colLinks         = "tally_links"
	colClicks        = "tally_clicks"
	colConversions   = "tally_conversions"
	colPayouts       = "tally_payouts"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all tally collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tally/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tally.ErrSubscriptionExists
		}
		return fmt.Errorf("tally/mongo: create subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": subID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) GetActiveSubscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{
			"user_id": userID,
			"status":  string(subscription.StatusActive),
		}).
		Sort(bson.D{{Key: "created_at", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrNoActiveSubscription
		}
		return nil, fmt.Errorf("tally/mongo: get active subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) ListSubscriptions(ctx context.Context, userID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel

	filter := bson.M{"user_id": userID}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tally/mongo: list subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: update subscription: %w", err)
	}
	return nil
}

func (s *Store) CancelSubscription(ctx context.Context, subID id.SubscriptionID, canceledAt time.Time) error {
	res, err := s.mdb.NewUpdate((*subscriptionModel)(nil)).
		Filter(bson.M{"_id": subID.String()}).
		Set("status", string(subscription.StatusCanceled)).
		Set("canceled_at", canceledAt).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: cancel subscription: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tally.ErrSubscriptionNotFound
	}
	return nil
}

// ==================== Meter Store ====================

// AppendUsage checks the window aggregate and inserts the event. MongoDB
// has no single-document conditional insert across a collection, so the
// check and the write here are two operations; the engine serializes
// calls per (user, type), which makes that gap safe for a single engine
// instance. Multi-writer deployments should prefer the SQL stores for
// strict ceiling enforcement.
func (s *Store) AppendUsage(ctx context.Context, event *meter.UsageEvent, window meter.Window, ceiling int64) error {
	if ceiling >= 0 {
		used, err := s.AggregateUsage(ctx, event.UserID, event.Type, window)
		if err != nil {
			return err
		}
		if used+event.Amount > ceiling {
			return &tally.QuotaExceededError{
				Type:      event.Type,
				Ceiling:   ceiling,
				Used:      used,
				Requested: event.Amount,
			}
		}
	}

	m := toUsageEventModel(event)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: append usage: %w", err)
	}
	return nil
}

func (s *Store) AggregateUsage(ctx context.Context, userID string, typ meter.UsageType, window meter.Window) (int64, error) {
	pipeline := bson.A{
		bson.M{
			"$match": bson.M{
				"user_id":   userID,
				"type":      string(typ),
				"timestamp": bson.M{"$gte": window.Start, "$lt": window.End},
			},
		},
		bson.M{
			"$group": bson.M{
				"_id":   nil,
				"total": bson.M{"$sum": "$amount"},
			},
		},
	}

	cursor, err := s.mdb.Collection(colUsageEvents).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("tally/mongo: aggregate usage: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("tally/mongo: aggregate decode: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

func (s *Store) SummarizeUsage(ctx context.Context, userID string) ([]meter.Summary, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{"user_id": userID}},
		bson.M{
			"$group": bson.M{
				"_id":   "$type",
				"total": bson.M{"$sum": "$amount"},
				"count": bson.M{"$sum": 1},
			},
		},
		bson.M{"$sort": bson.M{"_id": 1}},
	}

	cursor, err := s.mdb.Collection(colUsageEvents).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("tally/mongo: summarize usage: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Type  string `bson:"_id"`
		Total int64  `bson:"total"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("tally/mongo: summarize decode: %w", err)
	}

	result := make([]meter.Summary, len(rows))
	for i, r := range rows {
		result[i] = meter.Summary{
			Type:  meter.UsageType(r.Type),
			Total: r.Total,
			Count: r.Count,
		}
	}
	return result, nil
}

func (s *Store) QueryUsage(ctx context.Context, userID string, opts meter.QueryOpts) ([]*meter.UsageEvent, error) {
	var models []usageEventModel

	filter := bson.M{"user_id": userID}
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}
	ts := bson.M{}
	if !opts.Start.IsZero() {
		ts["$gte"] = opts.Start
	}
	if !opts.End.IsZero() {
		ts["$lt"] = opts.End
	}
	if len(ts) > 0 {
		filter["timestamp"] = ts
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "timestamp", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tally/mongo: query usage: %w", err)
	}

	result := make([]*meter.UsageEvent, len(models))
	for i := range models {
		evt, err := fromUsageEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = evt
	}
	return result, nil
}

// ==================== Affiliate Store ====================

func (s *Store) CreateLink(ctx context.Context, l *affiliate.Link) error {
	m := toLinkModel(l)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tally.ErrCodeTaken
		}
		return fmt.Errorf("tally/mongo: create link: %w", err)
	}
	return nil
}

func (s *Store) GetLink(ctx context.Context, linkID id.LinkID) (*affiliate.Link, error) {
	var m linkModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": linkID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrLinkNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get link: %w", err)
	}
	return fromLinkModel(&m)
}

func (s *Store) GetLinkByCode(ctx context.Context, code string) (*affiliate.Link, error) {
	var m linkModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"code": code}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrLinkNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get link by code: %w", err)
	}
	return fromLinkModel(&m)
}

func (s *Store) ListLinks(ctx context.Context, userID string, opts affiliate.ListOpts) ([]*affiliate.Link, error) {
	var models []linkModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{"user_id": userID}).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tally/mongo: list links: %w", err)
	}

	result := make([]*affiliate.Link, len(models))
	for i := range models {
		l, err := fromLinkModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}

func (s *Store) UpdateLink(ctx context.Context, l *affiliate.Link) error {
	m := toLinkModel(l)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tally.ErrCodeTaken
		}
		return fmt.Errorf("tally/mongo: update link: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tally.ErrLinkNotFound
	}
	return nil
}

func (s *Store) CreateClick(ctx context.Context, c *affiliate.Click) error {
	m := toClickModel(c)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: create click: %w", err)
	}
	return nil
}

func (s *Store) CountClicks(ctx context.Context, linkID id.LinkID) (int64, error) {
	count, err := s.mdb.Collection(colClicks).CountDocuments(ctx, bson.M{"link_id": linkID.String()})
	if err != nil {
		return 0, fmt.Errorf("tally/mongo: count clicks: %w", err)
	}
	return count, nil
}

func (s *Store) CreateConversion(ctx context.Context, c *affiliate.Conversion) error {
	m := toConversionModel(c)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: create conversion: %w", err)
	}
	return nil
}

func (s *Store) GetConversion(ctx context.Context, convID id.ConversionID) (*affiliate.Conversion, error) {
	var m conversionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": convID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrConversionNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get conversion: %w", err)
	}
	return fromConversionModel(&m)
}

func (s *Store) ListConversions(ctx context.Context, linkID id.LinkID, opts affiliate.ListOpts) ([]*affiliate.Conversion, error) {
	var models []conversionModel

	filter := bson.M{"link_id": linkID.String()}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tally/mongo: list conversions: %w", err)
	}

	result := make([]*affiliate.Conversion, len(models))
	for i := range models {
		c, err := fromConversionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// SettleConversion flips a pending conversion atomically; the pending
// filter makes the update a no-op when another caller settled first.
func (s *Store) SettleConversion(ctx context.Context, convID id.ConversionID, status affiliate.ConversionStatus, settledAt time.Time) error {
	res, err := s.mdb.NewUpdate((*conversionModel)(nil)).
		Filter(bson.M{
			"_id":    convID.String(),
			"status": string(affiliate.ConversionPending),
		}).
		Set("status", string(status)).
		Set("settled_at", settledAt).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: settle conversion: %w", err)
	}
	if res.MatchedCount() == 0 {
		if _, gerr := s.GetConversion(ctx, convID); gerr != nil {
			return gerr
		}
		return tally.ErrConversionSettled
	}
	return nil
}

func (s *Store) SumSettledCommission(ctx context.Context, userID string) (int64, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{"status": string(affiliate.ConversionCompleted)}},
		bson.M{
			"$lookup": bson.M{
				"from":         colLinks,
				"localField":   "link_id",
				"foreignField": "_id",
				"as":           "link",
			},
		},
		bson.M{"$unwind": "$link"},
		bson.M{"$match": bson.M{"link.user_id": userID}},
		bson.M{
			"$group": bson.M{
				"_id":   nil,
				"total": bson.M{"$sum": "$commission_cents"},
			},
		},
	}

	cursor, err := s.mdb.Collection(colConversions).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("tally/mongo: sum settled commission: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("tally/mongo: sum settled decode: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

// ==================== Payout Store ====================

func (s *Store) CreatePayout(ctx context.Context, p *payout.Payout) error {
	m := toPayoutModel(p)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: create payout: %w", err)
	}
	return nil
}

func (s *Store) GetPayout(ctx context.Context, payoutID id.PayoutID) (*payout.Payout, error) {
	var m payoutModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": payoutID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrPayoutNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get payout: %w", err)
	}
	return fromPayoutModel(&m)
}

func (s *Store) ListPayouts(ctx context.Context, opts payout.ListOpts) ([]*payout.Payout, error) {
	var models []payoutModel

	filter := bson.M{}
	if opts.UserID != "" {
		filter["user_id"] = opts.UserID
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tally/mongo: list payouts: %w", err)
	}

	result := make([]*payout.Payout, len(models))
	for i := range models {
		p, err := fromPayoutModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// SetPayoutStatus guards the transition in the filter: the document only
// matches while its status may legally move to the target.
func (s *Store) SetPayoutStatus(ctx context.Context, payoutID id.PayoutID, status payout.Status, processedAt *time.Time) error {
	var from []string
	switch status {
	case payout.StatusProcessing:
		from = []string{string(payout.StatusPending)}
	case payout.StatusCompleted, payout.StatusFailed:
		from = []string{string(payout.StatusPending), string(payout.StatusProcessing)}
	default:
		return tally.ErrInvalidTransition
	}

	update := s.mdb.NewUpdate((*payoutModel)(nil)).
		Filter(bson.M{
			"_id":    payoutID.String(),
			"status": bson.M{"$in": from},
		}).
		Set("status", string(status)).
		Set("updated_at", now())

	if processedAt != nil {
		update = update.Set("processed_at", *processedAt)
	}

	res, err := update.Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: set payout status: %w", err)
	}
	if res.MatchedCount() == 0 {
		p, gerr := s.GetPayout(ctx, payoutID)
		if gerr != nil {
			return gerr
		}
		if p.Status.Terminal() {
			return tally.ErrPayoutFinalized
		}
		return tally.ErrInvalidTransition
	}
	return nil
}

func (s *Store) SumReservedPayouts(ctx context.Context, userID string) (int64, error) {
	pipeline := bson.A{
		bson.M{
			"$match": bson.M{
				"user_id": userID,
				"status":  bson.M{"$ne": string(payout.StatusFailed)},
			},
		},
		bson.M{
			"$group": bson.M{
				"_id":   nil,
				"total": bson.M{"$sum": "$amount_cents"},
			},
		},
	}

	cursor, err := s.mdb.Collection(colPayouts).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("tally/mongo: sum reserved payouts: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("tally/mongo: sum reserved decode: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all tally collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colSubscriptions: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{
				Keys: bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": "active"}),
			},
		},
		colUsageEvents: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "type", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
		colLinks: {
			{
				Keys:    bson.D{{Key: "code", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colClicks: {
			{Keys: bson.D{{Key: "link_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		colConversions: {
			{Keys: bson.D{{Key: "link_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "link_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colPayouts: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
}
