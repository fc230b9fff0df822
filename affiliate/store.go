package affiliate

import (
	"context"
	"time"

	"github.com/xraph/tally/id"
)

// Store is the narrow persistence contract for attribution records.
type Store interface {
	// CreateLink inserts the link. The code column carries a unique index;
	// a collision surfaces as an error wrapping ErrCodeTaken so the caller
	// can regenerate and retry.
	CreateLink(ctx context.Context, l *Link) error
	GetLink(ctx context.Context, linkID id.LinkID) (*Link, error)
	GetLinkByCode(ctx context.Context, code string) (*Link, error)
	ListLinks(ctx context.Context, userID string, opts ListOpts) ([]*Link, error)
	UpdateLink(ctx context.Context, l *Link) error

	CreateClick(ctx context.Context, c *Click) error
	CountClicks(ctx context.Context, linkID id.LinkID) (int64, error)

	CreateConversion(ctx context.Context, c *Conversion) error
	GetConversion(ctx context.Context, convID id.ConversionID) (*Conversion, error)
	ListConversions(ctx context.Context, linkID id.LinkID, opts ListOpts) ([]*Conversion, error)

	// SettleConversion moves a pending conversion to completed or failed.
	// Terminal conversions return an error wrapping ErrConversionSettled.
	SettleConversion(ctx context.Context, convID id.ConversionID, status ConversionStatus, settledAt time.Time) error

	// SumSettledCommission sums commission cents over completed conversions
	// attributed to links owned by userID.
	SumSettledCommission(ctx context.Context, userID string) (int64, error)
}
