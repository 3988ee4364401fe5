package simplemedia

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaCategoryIsValid(t *testing.T) {
	valid := []MediaCategory{
		CategoryLogo, CategoryScreenshot, CategoryCover,
		CategoryIcon, CategoryVideo, CategoryDocument,
	}
	for _, c := range valid {
		assert.True(t, c.IsValid(), "category %s should be valid", c)
	}

	assert.False(t, MediaCategory("banner").IsValid())
	assert.False(t, MediaCategory("").IsValid())
}

func TestMediaCategoryPriority(t *testing.T) {
	// Logo sorts before everything, documents last.
	assert.Less(t, CategoryLogo.Priority(), CategoryScreenshot.Priority())
	assert.Less(t, CategoryScreenshot.Priority(), CategoryCover.Priority())
	assert.Less(t, CategoryCover.Priority(), CategoryIcon.Priority())
	assert.Less(t, CategoryIcon.Priority(), CategoryVideo.Priority())
	assert.Less(t, CategoryVideo.Priority(), CategoryDocument.Priority())

	// Unknown categories sort after every known one.
	assert.Greater(t, MediaCategory("banner").Priority(), CategoryDocument.Priority())
}

func TestMediaCategorySingleInstance(t *testing.T) {
	assert.True(t, CategoryLogo.SingleInstance())
	assert.False(t, CategoryScreenshot.SingleInstance())
	assert.False(t, CategoryVideo.SingleInstance())
}

func TestMimeTypeAllowed(t *testing.T) {
	assert.True(t, CategoryLogo.MimeTypeAllowed("image/png"))
	assert.True(t, CategoryLogo.MimeTypeAllowed("image/webp"))
	assert.False(t, CategoryLogo.MimeTypeAllowed("video/mp4"))
	assert.False(t, CategoryLogo.MimeTypeAllowed("image/svg+xml"))

	assert.True(t, CategoryVideo.MimeTypeAllowed("video/mp4"))
	assert.False(t, CategoryVideo.MimeTypeAllowed("image/png"))

	assert.True(t, CategoryDocument.MimeTypeAllowed("application/pdf"))
	assert.False(t, CategoryDocument.MimeTypeAllowed("text/plain"))

	assert.False(t, MediaCategory("banner").MimeTypeAllowed("image/png"))
}

func TestProcessingStatusTransitions(t *testing.T) {
	tests := []struct {
		from    ProcessingStatus
		to      ProcessingStatus
		allowed bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusProcessed, false},
		{StatusPending, StatusFailed, false},
		{StatusProcessing, StatusProcessed, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusPending, false},
		{StatusFailed, StatusProcessing, true},
		{StatusFailed, StatusProcessed, false},
		{StatusProcessed, StatusProcessing, false},
		{StatusProcessed, StatusFailed, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestProcessingStatusIsValid(t *testing.T) {
	assert.True(t, StatusPending.IsValid())
	assert.True(t, StatusFailed.IsValid())
	assert.False(t, ProcessingStatus("queued").IsValid())
}
