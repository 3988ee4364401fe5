package simplemedia

import (
	"io"

	"github.com/google/uuid"
)

// RequestUploadCredentialRequest contains parameters for minting a direct
// upload credential. The caller is assumed to be authorized for the subject by
// the external API layer.
type RequestUploadCredentialRequest struct {
	SubjectID   uuid.UUID
	Category    MediaCategory
	ContentType string
	// DeclaredSizeBytes is optional; when set it is validated against the
	// configured upload limit before a credential is minted.
	DeclaredSizeBytes int64
}

// FinalizeUploadRequest confirms that bytes for ObjectKey have been pushed to
// storage and creates the registry record.
type FinalizeUploadRequest struct {
	ObjectKey    string
	SubjectID    uuid.UUID
	Category     MediaCategory
	OriginalName string
	MimeType     string
	SizeBytes    int64
	DisplayOrder int
	// Replace requests atomic replacement of the subject's current active
	// asset for single-instance categories. Without it a second active logo
	// fails with ErrActiveLogoExists.
	Replace bool
}

// UploadMediaRequest is the server-mediated path: the service receives the
// bytes, writes them through the gateway and finalizes in one call.
type UploadMediaRequest struct {
	SubjectID    uuid.UUID
	Category     MediaCategory
	OriginalName string
	ContentType  string
	SizeBytes    int64
	DisplayOrder int
	Replace      bool
	Reader       io.Reader
}

// ListBySubjectRequest filters the active media listing for one subject.
type ListBySubjectRequest struct {
	SubjectID uuid.UUID
	// Category restricts the listing when non-nil.
	Category *MediaCategory
}
