package simplemedia

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrAssetNotFound indicates a media asset was not found
	ErrAssetNotFound = errors.New("media asset not found")

	// ErrInvalidCategory indicates an unknown media category
	ErrInvalidCategory = errors.New("invalid media category")

	// ErrInvalidContentType indicates a content type outside the category allow-list
	ErrInvalidContentType = errors.New("content type not allowed for category")

	// ErrActiveLogoExists indicates a second active logo would violate
	// per-subject logo uniqueness; callers must replace explicitly
	ErrActiveLogoExists = errors.New("logo already exists")

	// ErrInvalidProcessingStatus indicates a disallowed status transition
	ErrInvalidProcessingStatus = errors.New("invalid processing status transition")

	// ErrCredentialExpired indicates an upload credential was used past its TTL
	ErrCredentialExpired = errors.New("upload credential expired")

	// ErrObjectNotFound indicates a storage object was not found
	ErrObjectNotFound = errors.New("object not found")

	// ErrUploadTooLarge indicates a declared or actual size over the configured limit
	ErrUploadTooLarge = errors.New("upload exceeds size limit")

	// ErrAssetNotActive indicates an operation on a deactivated asset
	ErrAssetNotActive = errors.New("media asset is not active")
)

// MediaError represents an error related to media registry operations
type MediaError struct {
	MediaID uuid.UUID
	Op      string
	Err     error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("media operation %s failed for asset %s: %v", e.Op, e.MediaID, e.Err)
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to object store operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// QueueError represents an error related to processing queue operations
type QueueError struct {
	Op  string
	Err error
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("queue operation %s failed: %v", e.Op, e.Err)
}

func (e *QueueError) Unwrap() error {
	return e.Err
}

// PermanentError marks a processing failure that retrying cannot fix, such as
// corrupt or unsupported image data. The worker fails the asset immediately
// instead of backing off.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent processing error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// IsPermanent reports whether err carries a PermanentError anywhere in its
// chain.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
