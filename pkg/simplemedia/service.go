package simplemedia

import (
	"context"

	"github.com/google/uuid"
)

// Service is the upload coordinator and media registry facade.
//
// Synchronous errors (validation, conflict, not-found) are returned directly
// to the caller; processing errors are never surfaced here and are observable
// only through ProcessingStatus on subsequent reads.
type Service interface {
	// RequestUploadCredential validates the request and mints a time-limited
	// upload credential for a freshly generated storage key. No registry
	// record is created yet.
	RequestUploadCredential(ctx context.Context, req RequestUploadCredentialRequest) (*UploadCredential, error)

	// FinalizeUpload creates the pending registry record for an object the
	// client pushed directly to storage, and enqueues a processing job.
	FinalizeUpload(ctx context.Context, req FinalizeUploadRequest) (*MediaAsset, error)

	// UploadMedia is the server-mediated path: receive bytes, store them,
	// then finalize.
	UploadMedia(ctx context.Context, req UploadMediaRequest) (*MediaAsset, error)

	// GetAsset returns one asset by id.
	GetAsset(ctx context.Context, id uuid.UUID) (*MediaAsset, error)

	// ListBySubject returns the subject's active assets in display order.
	ListBySubject(ctx context.Context, req ListBySubjectRequest) ([]*MediaAsset, error)

	// Deactivate retires an asset without deleting its storage object.
	Deactivate(ctx context.Context, id uuid.UUID) error

	// ReplaceLogo atomically swaps the subject's active logo for newMediaID.
	ReplaceLogo(ctx context.Context, subjectID, newMediaID uuid.UUID) error

	// SetDisplayOrder updates the caller-assigned ordering of an asset.
	SetDisplayOrder(ctx context.Context, id uuid.UUID, displayOrder int) error
}
