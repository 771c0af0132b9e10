package lead

import (
	"context"
	"time"
)

// Repository persists leads and operator settings.
type Repository interface {
	// FindByEmail returns the lead with the exact address, or nil when absent.
	FindByEmail(ctx context.Context, email string) (*Lead, error)
	Insert(ctx context.Context, l Lead) error
	// RecordOutcome applies a send outcome to the lead's status fields.
	RecordOutcome(ctx context.Context, id string, outcome SendOutcome) error
	CountSentSince(ctx context.Context, since time.Time) (int, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]Lead, error)
	// GetSetting returns the operator setting for key, or "" when unset.
	GetSetting(ctx context.Context, key string) (string, error)
}

// Fetcher retrieves the markup of a single page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Discoverer returns candidate prospect URLs for a search query.
type Discoverer interface {
	Discover(ctx context.Context, query string) ([]string, error)
}

// MailSender delivers one outbound message.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Publisher pushes lifecycle events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore archives raw page snapshots and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces lead IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
