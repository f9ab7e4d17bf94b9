package services

import (
	"context"
	"time"

	"github.com/nexconsult/gstin-api/internal/models"
)

// GSTINServiceInterface defines the interface for GSTIN verification
type GSTINServiceInterface interface {
	// Lookup returns the cached record or runs the portal automation
	Lookup(ctx context.Context, gstin string) (*LookupResult, error)

	// Resume finishes a lookup suspended on a CAPTCHA
	Resume(ctx context.Context, solution string) (*LookupResult, error)

	// PendingChallenge returns the GSTIN waiting for a CAPTCHA solution, if any
	PendingChallenge() (string, bool)

	// Stats returns lookup counters
	Stats() models.LookupMetrics

	// Health returns service health status
	Health() map[string]interface{}
}

// RecordStore keeps verified records keyed by normalized GSTIN
type RecordStore interface {
	// Get returns ErrNotFound when there is no live entry
	Get(ctx context.Context, gstin string) (*models.CacheEntry, error)

	// Save writes the record stamped with verifiedAt. An existing entry
	// keeps its CreatedAt.
	Save(ctx context.Context, record models.Record, verifiedAt time.Time) (*models.CacheEntry, error)

	// Delete removes an entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, gstin string) error

	// Stats returns store statistics
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Health returns store health status
	Health() map[string]interface{}

	// Close releases the backend
	Close() error
}

// Automation drives lookups against the live portal
type Automation interface {
	Run(ctx context.Context, gstin string) (*Outcome, error)
	Resume(ctx context.Context, solution string) (*Outcome, error)
	Pending() (string, bool)
	Discard()
	Mode() CaptchaMode
}
