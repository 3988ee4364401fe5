package simplemedia

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for the object store gateway.
//
// All operations are idempotent except MintUploadCredential, which must be
// called with a freshly generated, never-before-used key each time.
type BlobStore interface {
	// MintUploadCredential returns a time-limited URL permitting one direct
	// PUT of the given content type to objectKey.
	MintUploadCredential(ctx context.Context, objectKey, contentType string, ttl time.Duration) (*UploadCredential, error)

	// MintDownloadURL returns a time-limited URL for reading objectKey.
	MintDownloadURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error)

	// Upload writes content directly (server-mediated path and variant writes).
	Upload(ctx context.Context, objectKey, contentType string, reader io.Reader) error

	// Download streams an object back for processing.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes an object.
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for a stored object.
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Repository defines the interface for media asset persistence.
//
// The repository is the single source of truth for IsActive. Implementations
// must enforce the single-active-logo invariant atomically: a plain
// check-then-write is not an acceptable guard under concurrent finalize calls.
type Repository interface {
	// CreateAsset inserts a new asset. For single-instance categories the
	// insert fails with ErrActiveLogoExists if the subject already has an
	// active asset of that category; check and insert happen under one
	// critical section.
	CreateAsset(ctx context.Context, asset *MediaAsset) error

	GetAsset(ctx context.Context, id uuid.UUID) (*MediaAsset, error)

	// UpdateAsset persists mutable fields (status, dimensions, variants,
	// display order, timestamps). ObjectKey is never rewritten.
	UpdateAsset(ctx context.Context, asset *MediaAsset) error

	// ListBySubject returns active assets for the subject, optionally
	// filtered by category, ordered by category priority, display order,
	// then creation time. The order is total.
	ListBySubject(ctx context.Context, subjectID uuid.UUID, category *MediaCategory) ([]*MediaAsset, error)

	// Deactivate sets IsActive false. The storage object is not touched;
	// physical reclamation is a separate maintenance concern.
	Deactivate(ctx context.Context, id uuid.UUID) error

	// ReplaceLogo deactivates the subject's current active logo (if any) and
	// activates newMediaID in the same critical section. This is the only
	// sanctioned way to change a subject's logo.
	ReplaceLogo(ctx context.Context, subjectID, newMediaID uuid.UUID) error

	// CountActive returns the number of active assets for subject+category.
	CountActive(ctx context.Context, subjectID uuid.UUID, category MediaCategory) (int, error)
}

// JobHandler processes one dequeued job. A nil return acknowledges the job; an
// error returns it to the queue for redelivery.
type JobHandler func(ctx context.Context, job ProcessingJob) error

// JobQueue defines the interface for the durable, at-least-once processing
// queue. Jobs carry a NotBefore time for delayed retry scheduling.
type JobQueue interface {
	// Enqueue publishes a job. Jobs with NotBefore in the future are not
	// delivered before that time.
	Enqueue(ctx context.Context, job ProcessingJob) error

	// Consume delivers jobs to handler until ctx is cancelled. Safe to call
	// from multiple workers; each job is delivered to one consumer at a time.
	Consume(ctx context.Context, handler JobHandler) error

	Close() error
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}
