package simplemedia

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-media/pkg/simplemedia/objectkey"
)

// service implements the Service interface
type service struct {
	repository     Repository
	blobStore      BlobStore
	queue          JobQueue
	keys           objectkey.Generator
	credentialTTL  time.Duration
	maxUploadBytes int64
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the media registry repository
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the object store gateway
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithQueue sets the processing queue
func WithQueue(queue JobQueue) Option {
	return func(s *service) {
		s.queue = queue
	}
}

// WithKeyGenerator sets the storage key generation strategy
func WithKeyGenerator(gen objectkey.Generator) Option {
	return func(s *service) {
		s.keys = gen
	}
}

// WithCredentialTTL sets the lifetime of minted upload credentials
func WithCredentialTTL(ttl time.Duration) Option {
	return func(s *service) {
		s.credentialTTL = ttl
	}
}

// WithMaxUploadBytes caps declared and received upload sizes. Zero disables
// the check.
func WithMaxUploadBytes(n int64) Option {
	return func(s *service) {
		s.maxUploadBytes = n
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		credentialTTL: time.Hour,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.queue == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if s.keys == nil {
		s.keys = objectkey.NewGitLikeGenerator()
	}

	return s, nil
}

func (s *service) validateUpload(category MediaCategory, contentType string, sizeBytes int64) error {
	if !category.IsValid() {
		return ErrInvalidCategory
	}
	if !category.MimeTypeAllowed(contentType) {
		return ErrInvalidContentType
	}
	if s.maxUploadBytes > 0 && sizeBytes > s.maxUploadBytes {
		return ErrUploadTooLarge
	}
	return nil
}

func (s *service) RequestUploadCredential(ctx context.Context, req RequestUploadCredentialRequest) (*UploadCredential, error) {
	if err := s.validateUpload(req.Category, req.ContentType, req.DeclaredSizeBytes); err != nil {
		return nil, err
	}

	// Advisory conflict check. The authoritative guard is the registry's
	// atomic insert at finalize time; failing here keeps callers from
	// uploading bytes that can never be finalized.
	if req.Category.SingleInstance() {
		n, err := s.repository.CountActive(ctx, req.SubjectID, req.Category)
		if err != nil {
			return nil, fmt.Errorf("failed to check active %s: %w", req.Category, err)
		}
		if n > 0 {
			return nil, ErrActiveLogoExists
		}
	}

	objectKey := s.keys.OriginalKey(string(req.Category), "")

	cred, err := s.blobStore.MintUploadCredential(ctx, objectKey, req.ContentType, s.credentialTTL)
	if err != nil {
		return nil, &StorageError{Key: objectKey, Op: "mint_upload_credential", Err: err}
	}

	return cred, nil
}

func (s *service) FinalizeUpload(ctx context.Context, req FinalizeUploadRequest) (*MediaAsset, error) {
	if err := s.validateUpload(req.Category, req.MimeType, req.SizeBytes); err != nil {
		return nil, err
	}
	if req.ObjectKey == "" {
		return nil, fmt.Errorf("object key is required")
	}

	now := time.Now().UTC()
	asset := &MediaAsset{
		ID:               uuid.New(),
		SubjectID:        req.SubjectID,
		Category:         req.Category,
		ObjectKey:        req.ObjectKey,
		OriginalName:     req.OriginalName,
		MimeType:         req.MimeType,
		SizeBytes:        req.SizeBytes,
		DisplayOrder:     req.DisplayOrder,
		IsActive:         true,
		ProcessingStatus: StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	replacing := req.Replace && req.Category.SingleInstance()
	if replacing {
		// Insert inactive first, then swap activation atomically so the
		// single-active invariant holds at every instant.
		asset.IsActive = false
	}

	if err := s.repository.CreateAsset(ctx, asset); err != nil {
		return nil, err
	}

	if replacing {
		if err := s.repository.ReplaceLogo(ctx, req.SubjectID, asset.ID); err != nil {
			return nil, &MediaError{MediaID: asset.ID, Op: "replace_logo", Err: err}
		}
		asset.IsActive = true
	}

	if url, err := s.blobStore.MintDownloadURL(ctx, asset.ObjectKey, s.credentialTTL); err == nil {
		asset.PublicURL = url
	}

	job := ProcessingJob{MediaID: asset.ID, Category: asset.Category, Attempt: 0}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, &QueueError{Op: "enqueue", Err: err}
	}

	return asset, nil
}

func (s *service) UploadMedia(ctx context.Context, req UploadMediaRequest) (*MediaAsset, error) {
	if err := s.validateUpload(req.Category, req.ContentType, req.SizeBytes); err != nil {
		return nil, err
	}
	if req.Reader == nil {
		return nil, fmt.Errorf("reader is required")
	}

	objectKey := s.keys.OriginalKey(string(req.Category), req.OriginalName)

	if err := s.blobStore.Upload(ctx, objectKey, req.ContentType, req.Reader); err != nil {
		return nil, &StorageError{Key: objectKey, Op: "upload", Err: err}
	}

	return s.FinalizeUpload(ctx, FinalizeUploadRequest{
		ObjectKey:    objectKey,
		SubjectID:    req.SubjectID,
		Category:     req.Category,
		OriginalName: req.OriginalName,
		MimeType:     req.ContentType,
		SizeBytes:    req.SizeBytes,
		DisplayOrder: req.DisplayOrder,
		Replace:      req.Replace,
	})
}

func (s *service) GetAsset(ctx context.Context, id uuid.UUID) (*MediaAsset, error) {
	return s.repository.GetAsset(ctx, id)
}

func (s *service) ListBySubject(ctx context.Context, req ListBySubjectRequest) ([]*MediaAsset, error) {
	if req.Category != nil && !req.Category.IsValid() {
		return nil, ErrInvalidCategory
	}
	return s.repository.ListBySubject(ctx, req.SubjectID, req.Category)
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.repository.Deactivate(ctx, id); err != nil {
		return &MediaError{MediaID: id, Op: "deactivate", Err: err}
	}
	return nil
}

func (s *service) ReplaceLogo(ctx context.Context, subjectID, newMediaID uuid.UUID) error {
	asset, err := s.repository.GetAsset(ctx, newMediaID)
	if err != nil {
		return err
	}
	if asset.Category != CategoryLogo {
		return ErrInvalidCategory
	}
	if asset.SubjectID != subjectID {
		return ErrAssetNotFound
	}

	if err := s.repository.ReplaceLogo(ctx, subjectID, newMediaID); err != nil {
		return &MediaError{MediaID: newMediaID, Op: "replace_logo", Err: err}
	}
	return nil
}

func (s *service) SetDisplayOrder(ctx context.Context, id uuid.UUID, displayOrder int) error {
	asset, err := s.repository.GetAsset(ctx, id)
	if err != nil {
		return err
	}

	asset.DisplayOrder = displayOrder
	asset.UpdatedAt = time.Now().UTC()

	if err := s.repository.UpdateAsset(ctx, asset); err != nil {
		return &MediaError{MediaID: id, Op: "set_display_order", Err: err}
	}
	return nil
}
