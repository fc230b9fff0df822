// Package postgres provides a Store backed by PostgreSQL via Grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/tally"
	"github.com/xraph/tally/affiliate"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/meter"
	"github.com/xraph/tally/payout"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/subscription"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("tally/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tally/postgres: migration failed: %w", err)
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	if err != nil && isUniqueViolation(err) {
		return tally.ErrSubscriptionExists
	}
	return err
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", subID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) GetActiveSubscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.pg.NewSelect(m).
		Where("user_id = $1", userID).
		Where("status = $2", string(subscription.StatusActive)).
		OrderExpr("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrNoActiveSubscription
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) ListSubscriptions(ctx context.Context, userID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.pg.NewSelect(&models).Where("user_id = $1", userID)

	argIdx := 1
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tally.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) CancelSubscription(ctx context.Context, subID id.SubscriptionID, canceledAt time.Time) error {
	res, err := s.pg.NewUpdate((*subscriptionModel)(nil)).
		Set("status = $1", string(subscription.StatusCanceled)).
		Set("canceled_at = $2", canceledAt).
		Set("updated_at = $3", now()).
		Where("id = $4", subID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tally.ErrSubscriptionNotFound
	}
	return nil
}

// ==================== Meter Store ====================

// AppendUsage inserts the event only when the window aggregate plus the
// new amount stays at or under the ceiling. The check and the insert are
// one statement, so concurrent appends for the same user and type cannot
// both slip under the ceiling.
func (s *Store) AppendUsage(ctx context.Context, event *meter.UsageEvent, window meter.Window, ceiling int64) error {
	metadata := "{}"
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return err
		}
		metadata = string(raw)
	}

	var inserted string
	err := s.pg.NewRaw(`
INSERT INTO tally_usage_events (id, user_id, type, amount, timestamp, metadata, created_at)
SELECT $1, $2, $3, $4, $5, $6::jsonb, NOW()
WHERE $7::bigint < 0 OR (
    SELECT COALESCE(SUM(amount), 0) FROM tally_usage_events
    WHERE user_id = $2 AND type = $3 AND timestamp >= $8 AND timestamp < $9
) + $4 <= $7
RETURNING id
`, event.ID.String(), event.UserID, string(event.Type), event.Amount, event.Timestamp,
		metadata, ceiling, window.Start, window.End).Scan(ctx, &inserted)
	if err != nil {
		if isNoRows(err) {
			used, aerr := s.AggregateUsage(ctx, event.UserID, event.Type, window)
			if aerr != nil {
				return aerr
			}
			return &tally.QuotaExceededError{
				Type:      event.Type,
				Ceiling:   ceiling,
				Used:      used,
				Requested: event.Amount,
			}
		}
		return err
	}
	return nil
}

func (s *Store) AggregateUsage(ctx context.Context, userID string, typ meter.UsageType, window meter.Window) (int64, error) {
	var total int64
	err := s.pg.NewRaw(`
		SELECT COALESCE(SUM(amount), 0) FROM tally_usage_events
		WHERE user_id = $1 AND type = $2 AND timestamp >= $3 AND timestamp < $4
	`, userID, string(typ), window.Start, window.End).Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) SummarizeUsage(ctx context.Context, userID string) ([]meter.Summary, error) {
	var models []usageEventModel
	err := s.pg.NewSelect(&models).
		Where("user_id = $1", userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	totals := make(map[meter.UsageType]*meter.Summary)
	for i := range models {
		typ := meter.UsageType(models[i].Type)
		sum, ok := totals[typ]
		if !ok {
			sum = &meter.Summary{Type: typ}
			totals[typ] = sum
		}
		sum.Total += models[i].Amount
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

func (s *Store) QueryUsage(ctx context.Context, userID string, opts meter.QueryOpts) ([]*meter.UsageEvent, error) {
	var models []usageEventModel
	q := s.pg.NewSelect(&models).Where("user_id = $1", userID)

	argIdx := 1
	if opts.Type != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("type = $%d", argIdx), string(opts.Type))
	}
	if !opts.Start.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("timestamp >= $%d", argIdx), opts.Start)
	}
	if !opts.End.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("timestamp < $%d", argIdx), opts.End)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("timestamp DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return tally.ErrCodeTaken
		}
		return err
	}
	return nil
}

func (s *Store) GetLink(ctx context.Context, linkID id.LinkID) (*affiliate.Link, error) {
	m := new(linkModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", linkID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrLinkNotFound
		}
		return nil, err
	}
	return fromLinkModel(m)
}

func (s *Store) GetLinkByCode(ctx context.Context, code string) (*affiliate.Link, error) {
	m := new(linkModel)
	err := s.pg.NewSelect(m).
		Where("code = $1", code).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrLinkNotFound
		}
		return nil, err
	}
	return fromLinkModel(m)
}

func (s *Store) ListLinks(ctx context.Context, userID string, opts affiliate.ListOpts) ([]*affiliate.Link, error) {
	var models []linkModel
	q := s.pg.NewSelect(&models).Where("user_id = $1", userID)

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return tally.ErrCodeTaken
		}
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tally.ErrLinkNotFound
	}
	return nil
}

func (s *Store) CreateClick(ctx context.Context, c *affiliate.Click) error {
	m := toClickModel(c)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) CountClicks(ctx context.Context, linkID id.LinkID) (int64, error) {
	var count int64
	err := s.pg.NewRaw(`
		SELECT COUNT(*) FROM tally_clicks WHERE link_id = $1
	`, linkID.String()).Scan(ctx, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CreateConversion(ctx context.Context, c *affiliate.Conversion) error {
	m := toConversionModel(c)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetConversion(ctx context.Context, convID id.ConversionID) (*affiliate.Conversion, error) {
	m := new(conversionModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", convID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrConversionNotFound
		}
		return nil, err
	}
	return fromConversionModel(m)
}

func (s *Store) ListConversions(ctx context.Context, linkID id.LinkID, opts affiliate.ListOpts) ([]*affiliate.Conversion, error) {
	var models []conversionModel
	q := s.pg.NewSelect(&models).Where("link_id = $1", linkID.String())

	argIdx := 1
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

// SettleConversion flips a pending conversion to its terminal status.
// The status guard lives in the WHERE clause, so a conversion already
// settled by a concurrent caller is left untouched.
func (s *Store) SettleConversion(ctx context.Context, convID id.ConversionID, status affiliate.ConversionStatus, settledAt time.Time) error {
	res, err := s.pg.NewUpdate((*conversionModel)(nil)).
		Set("status = $1", string(status)).
		Set("settled_at = $2", settledAt).
		Set("updated_at = $3", now()).
		Where("id = $4", convID.String()).
		Where("status = $5", string(affiliate.ConversionPending)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Distinguish missing from already settled.
		if _, gerr := s.GetConversion(ctx, convID); gerr != nil {
			return gerr
		}
		return tally.ErrConversionSettled
	}
	return nil
}

func (s *Store) SumSettledCommission(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := s.pg.NewRaw(`
		SELECT COALESCE(SUM(c.commission_cents), 0)
		FROM tally_conversions c
		JOIN tally_links l ON l.id = c.link_id
		WHERE l.user_id = $1 AND c.status = $2
	`, userID, string(affiliate.ConversionCompleted)).Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ==================== Payout Store ====================

func (s *Store) CreatePayout(ctx context.Context, p *payout.Payout) error {
	m := toPayoutModel(p)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetPayout(ctx context.Context, payoutID id.PayoutID) (*payout.Payout, error) {
	m := new(payoutModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", payoutID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrPayoutNotFound
		}
		return nil, err
	}
	return fromPayoutModel(m)
}

func (s *Store) ListPayouts(ctx context.Context, opts payout.ListOpts) ([]*payout.Payout, error) {
	var models []payoutModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.UserID != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("user_id = $%d", argIdx), opts.UserID)
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

// SetPayoutStatus guards the transition in the WHERE clause: the row is
// only updated when its current status may legally move to the target.
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

	res, err := s.pg.NewUpdate((*payoutModel)(nil)).
		Set("status = $1", string(status)).
		Set("processed_at = $2", processedAt).
		Set("updated_at = $3", now()).
		Where("id = $4", payoutID.String()).
		Where(fmt.Sprintf("status IN (%s)", placeholders(5, len(from))), toAnySlice(from)...).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
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
	var total int64
	err := s.pg.NewRaw(`
		SELECT COALESCE(SUM(amount_cents), 0) FROM tally_payouts
		WHERE user_id = $1 AND status != $2
	`, userID, string(payout.StatusFailed)).Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation checks for a PostgreSQL unique constraint error.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// SQLSTATE 23505
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key value")
}

// placeholders renders "$start, $start+1, ..." for n parameters.
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
