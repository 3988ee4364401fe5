package simplemedia

import (
	"time"

	"github.com/google/uuid"
)

// MediaCategory is the closed classification of a media asset. It drives the
// transform policy applied by the processor and the display priority used by
// ListBySubject.
type MediaCategory string

// Media category constants (typed).
const (
	CategoryLogo       MediaCategory = "logo"
	CategoryScreenshot MediaCategory = "screenshot"
	CategoryCover      MediaCategory = "cover"
	CategoryIcon       MediaCategory = "icon"
	CategoryVideo      MediaCategory = "video"
	CategoryDocument   MediaCategory = "document"
)

// categoryPriority is the fixed display ordering consumed by the API layer.
var categoryPriority = map[MediaCategory]int{
	CategoryLogo:       0,
	CategoryScreenshot: 1,
	CategoryCover:      2,
	CategoryIcon:       3,
	CategoryVideo:      4,
	CategoryDocument:   5,
}

// IsValid returns true if the category is one of the known constants.
func (c MediaCategory) IsValid() bool {
	_, ok := categoryPriority[c]
	return ok
}

// Priority returns the display priority for the category. Lower sorts first.
// Unknown categories sort last.
func (c MediaCategory) Priority() int {
	if p, ok := categoryPriority[c]; ok {
		return p
	}
	return len(categoryPriority)
}

// SingleInstance reports whether at most one active asset of this category may
// exist per subject.
func (c MediaCategory) SingleInstance() bool {
	return c == CategoryLogo
}

// ProcessingStatus is the domain type for asset processing lifecycle states.
type ProcessingStatus string

// Processing status constants (typed).
const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusProcessed  ProcessingStatus = "processed"
	StatusFailed     ProcessingStatus = "failed"
)

// IsValid returns true if the status is one of the known constants.
func (s ProcessingStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusProcessed, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the transition s -> next is allowed.
// Allowed: pending -> processing -> {processed, failed}; failed -> processing
// (retry). processed is terminal.
func (s ProcessingStatus) CanTransitionTo(next ProcessingStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusProcessed || next == StatusFailed
	case StatusFailed:
		return next == StatusProcessing
	}
	return false
}

// Variant names produced by the processor, in output order.
const (
	VariantSmall  = "small"
	VariantMedium = "medium"
	VariantLarge  = "large"
)

// Variant is a derived, resized copy of an original upload.
type Variant struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// MediaAsset is the durable record of one uploaded media object and its
// derived variants.
//
// ObjectKey is immutable once set: an asset never points at two different
// original objects over its lifetime. Replacing media means creating a new
// asset and retiring the old one.
type MediaAsset struct {
	ID               uuid.UUID        `json:"id"`
	SubjectID        uuid.UUID        `json:"subject_id"`
	Category         MediaCategory    `json:"category"`
	ObjectKey        string           `json:"object_key"`
	PublicURL        string           `json:"url,omitempty"`
	OriginalName     string           `json:"original_name,omitempty"`
	MimeType         string           `json:"mime_type,omitempty"`
	SizeBytes        int64            `json:"size_bytes,omitempty"`
	Width            *int             `json:"width,omitempty"`
	Height           *int             `json:"height,omitempty"`
	DisplayOrder     int              `json:"display_order"`
	IsActive         bool             `json:"is_active"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	Variants         []Variant        `json:"variants,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// ProcessingJob is the queue payload instructing a worker to derive variants
// for one asset. Ephemeral: it exists only between enqueue and terminal
// completion.
type ProcessingJob struct {
	MediaID   uuid.UUID     `json:"media_id"`
	Category  MediaCategory `json:"category"`
	Attempt   int           `json:"attempt"`
	NotBefore time.Time     `json:"not_before,omitempty"`
}

// UploadCredential is a time-limited, single-use authorization for a direct
// write to object storage. The key is freshly generated per credential and is
// never handed out twice.
type UploadCredential struct {
	UploadURL string    `json:"upload_url"`
	ObjectKey string    `json:"object_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// allowedMimeTypes is the per-category content-type allow-list checked when a
// credential is requested and again at finalize time.
var allowedMimeTypes = map[MediaCategory][]string{
	CategoryLogo:       {"image/jpeg", "image/png", "image/webp"},
	CategoryScreenshot: {"image/jpeg", "image/png", "image/webp"},
	CategoryCover:      {"image/jpeg", "image/png", "image/webp"},
	CategoryIcon:       {"image/jpeg", "image/png", "image/webp"},
	CategoryVideo:      {"video/mp4", "video/webm", "video/quicktime"},
	CategoryDocument:   {"application/pdf"},
}

// MimeTypeAllowed reports whether contentType may be uploaded under the
// category.
func (c MediaCategory) MimeTypeAllowed(contentType string) bool {
	for _, mt := range allowedMimeTypes[c] {
		if mt == contentType {
			return true
		}
	}
	return false
}
