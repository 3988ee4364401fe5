package processor

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-media/pkg/simplemedia"
	"github.com/tendant/simple-media/pkg/simplemedia/objectkey"
	repomemory "github.com/tendant/simple-media/pkg/simplemedia/repo/memory"
	storagememory "github.com/tendant/simple-media/pkg/simplemedia/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedAsset(t *testing.T, repo *repomemory.Repository, store *storagememory.Backend, category simplemedia.MediaCategory, data []byte) *simplemedia.MediaAsset {
	t.Helper()
	ctx := context.Background()

	objectKey := "media/" + string(category) + "/ab/" + uuid.New().String() + ".png"
	if data != nil {
		require.NoError(t, store.Upload(ctx, objectKey, "image/png", bytes.NewReader(data)))
	}

	now := time.Now().UTC()
	asset := &simplemedia.MediaAsset{
		ID:               uuid.New(),
		SubjectID:        uuid.New(),
		Category:         category,
		ObjectKey:        objectKey,
		MimeType:         "image/png",
		IsActive:         true,
		ProcessingStatus: simplemedia.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, repo.CreateAsset(ctx, asset))
	return asset
}

func TestProcessScreenshot(t *testing.T) {
	repo := repomemory.New()
	store := storagememory.New()
	proc := NewProcessor(repo, store, testLogger())
	ctx := context.Background()

	asset := seedAsset(t, repo, store, simplemedia.CategoryScreenshot, pngBytes(t, 1000, 1000))

	err := proc.Process(ctx, simplemedia.ProcessingJob{MediaID: asset.ID, Category: asset.Category})
	require.NoError(t, err)

	got, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, simplemedia.StatusProcessed, got.ProcessingStatus)
	require.NotNil(t, got.Width)
	require.NotNil(t, got.Height)
	assert.Equal(t, 800, *got.Width)
	assert.Equal(t, 800, *got.Height)

	require.Len(t, got.Variants, 3)
	names := map[string]bool{}
	for _, v := range got.Variants {
		names[v.Name] = true
		assert.NotEmpty(t, v.URL)

		// The variant object exists in storage under the derived key.
		reader, err := store.Download(ctx, objectkey.VariantKey(asset.ObjectKey, v.Name))
		require.NoError(t, err)
		reader.Close()
	}
	assert.True(t, names[simplemedia.VariantSmall])
	assert.True(t, names[simplemedia.VariantMedium])
	assert.True(t, names[simplemedia.VariantLarge])
}

func TestProcessIsIdempotent(t *testing.T) {
	repo := repomemory.New()
	store := storagememory.New()
	proc := NewProcessor(repo, store, testLogger())
	ctx := context.Background()

	asset := seedAsset(t, repo, store, simplemedia.CategoryLogo, pngBytes(t, 256, 256))
	job := simplemedia.ProcessingJob{MediaID: asset.ID, Category: asset.Category}

	require.NoError(t, proc.Process(ctx, job))

	first, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)

	// Duplicate delivery is a no-op.
	require.NoError(t, proc.Process(ctx, job))

	second, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
	assert.Equal(t, first.Variants, second.Variants)
}

func TestProcessMissingAssetIsNoOp(t *testing.T) {
	proc := NewProcessor(repomemory.New(), storagememory.New(), testLogger())

	err := proc.Process(context.Background(), simplemedia.ProcessingJob{MediaID: uuid.New()})
	assert.NoError(t, err)
}

func TestProcessVideoSkipsPixelPipeline(t *testing.T) {
	repo := repomemory.New()
	store := storagememory.New()
	proc := NewProcessor(repo, store, testLogger())
	ctx := context.Background()

	asset := seedAsset(t, repo, store, simplemedia.CategoryVideo, []byte("not pixels"))

	require.NoError(t, proc.Process(ctx, simplemedia.ProcessingJob{MediaID: asset.ID, Category: asset.Category}))

	got, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, simplemedia.StatusProcessed, got.ProcessingStatus)
	assert.Empty(t, got.Variants)
	assert.Nil(t, got.Width)
}

func TestProcessCorruptImageIsPermanent(t *testing.T) {
	repo := repomemory.New()
	store := storagememory.New()
	proc := NewProcessor(repo, store, testLogger())
	ctx := context.Background()

	asset := seedAsset(t, repo, store, simplemedia.CategoryLogo, []byte("garbage"))

	err := proc.Process(ctx, simplemedia.ProcessingJob{MediaID: asset.ID, Category: asset.Category})
	require.Error(t, err)
	assert.True(t, simplemedia.IsPermanent(err))
}

func TestProcessMissingObjectIsTransient(t *testing.T) {
	repo := repomemory.New()
	store := storagememory.New()
	proc := NewProcessor(repo, store, testLogger())
	ctx := context.Background()

	// Registered asset whose bytes never arrived.
	asset := seedAsset(t, repo, store, simplemedia.CategoryLogo, nil)

	err := proc.Process(ctx, simplemedia.ProcessingJob{MediaID: asset.ID, Category: asset.Category})
	require.Error(t, err)
	assert.False(t, simplemedia.IsPermanent(err))
}

func TestFail(t *testing.T) {
	repo := repomemory.New()
	store := storagememory.New()
	proc := NewProcessor(repo, store, testLogger())
	ctx := context.Background()

	asset := seedAsset(t, repo, store, simplemedia.CategoryLogo, []byte("garbage"))

	require.NoError(t, proc.Fail(ctx, asset.ID))

	got, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, simplemedia.StatusFailed, got.ProcessingStatus)
	assert.Empty(t, got.Variants)

	// Failing a vanished asset is harmless.
	assert.NoError(t, proc.Fail(ctx, uuid.New()))
}
