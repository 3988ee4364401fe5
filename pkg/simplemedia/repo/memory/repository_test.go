package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-media/pkg/simplemedia"
)

func newAsset(subjectID uuid.UUID, category simplemedia.MediaCategory) *simplemedia.MediaAsset {
	now := time.Now().UTC()
	return &simplemedia.MediaAsset{
		ID:               uuid.New(),
		SubjectID:        subjectID,
		Category:         category,
		ObjectKey:        "media/" + string(category) + "/ab/" + uuid.New().String(),
		MimeType:         "image/png",
		IsActive:         true,
		ProcessingStatus: simplemedia.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestCreateAndGetAsset(t *testing.T) {
	repo := New()
	ctx := context.Background()

	asset := newAsset(uuid.New(), simplemedia.CategoryScreenshot)
	require.NoError(t, repo.CreateAsset(ctx, asset))

	got, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.ID, got.ID)
	assert.Equal(t, asset.ObjectKey, got.ObjectKey)
	assert.Equal(t, simplemedia.StatusPending, got.ProcessingStatus)

	_, err = repo.GetAsset(ctx, uuid.New())
	assert.ErrorIs(t, err, simplemedia.ErrAssetNotFound)
}

func TestCreateAssetRejectsSecondActiveLogo(t *testing.T) {
	repo := New()
	ctx := context.Background()
	subjectID := uuid.New()

	require.NoError(t, repo.CreateAsset(ctx, newAsset(subjectID, simplemedia.CategoryLogo)))

	err := repo.CreateAsset(ctx, newAsset(subjectID, simplemedia.CategoryLogo))
	assert.ErrorIs(t, err, simplemedia.ErrActiveLogoExists)

	// An inactive logo can always be inserted.
	inactive := newAsset(subjectID, simplemedia.CategoryLogo)
	inactive.IsActive = false
	assert.NoError(t, repo.CreateAsset(ctx, inactive))

	// Other subjects are unaffected.
	assert.NoError(t, repo.CreateAsset(ctx, newAsset(uuid.New(), simplemedia.CategoryLogo)))

	// Multi-instance categories have no limit.
	require.NoError(t, repo.CreateAsset(ctx, newAsset(subjectID, simplemedia.CategoryScreenshot)))
	assert.NoError(t, repo.CreateAsset(ctx, newAsset(subjectID, simplemedia.CategoryScreenshot)))
}

func TestCreateAssetConcurrentLogoRace(t *testing.T) {
	repo := New()
	ctx := context.Background()
	subjectID := uuid.New()

	const attempts = 50
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.CreateAsset(ctx, newAsset(subjectID, simplemedia.CategoryLogo))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, simplemedia.ErrActiveLogoExists)
		}
	}
	assert.Equal(t, 1, succeeded)

	n, err := repo.CountActive(ctx, subjectID, simplemedia.CategoryLogo)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpdateAssetPreservesObjectKey(t *testing.T) {
	repo := New()
	ctx := context.Background()

	asset := newAsset(uuid.New(), simplemedia.CategoryScreenshot)
	require.NoError(t, repo.CreateAsset(ctx, asset))

	modified := *asset
	modified.ObjectKey = "media/other/xy/rewritten"
	modified.ProcessingStatus = simplemedia.StatusProcessed
	require.NoError(t, repo.UpdateAsset(ctx, &modified))

	got, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.ObjectKey, got.ObjectKey)
	assert.Equal(t, simplemedia.StatusProcessed, got.ProcessingStatus)
}

func TestUpdateAssetNotFound(t *testing.T) {
	repo := New()

	asset := newAsset(uuid.New(), simplemedia.CategoryScreenshot)
	err := repo.UpdateAsset(context.Background(), asset)
	assert.ErrorIs(t, err, simplemedia.ErrAssetNotFound)
}

func TestListBySubjectOrdering(t *testing.T) {
	repo := New()
	ctx := context.Background()
	subjectID := uuid.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mk := func(category simplemedia.MediaCategory, displayOrder int, createdAt time.Time) *simplemedia.MediaAsset {
		a := newAsset(subjectID, category)
		a.DisplayOrder = displayOrder
		a.CreatedAt = createdAt
		return a
	}

	// Inserted deliberately out of order.
	shot2 := mk(simplemedia.CategoryScreenshot, 1, base)
	shot1 := mk(simplemedia.CategoryScreenshot, 0, base.Add(time.Hour))
	cover := mk(simplemedia.CategoryCover, 0, base)
	logo := mk(simplemedia.CategoryLogo, 5, base)
	doc := mk(simplemedia.CategoryDocument, 0, base)
	shot0 := mk(simplemedia.CategoryScreenshot, 0, base)

	for _, a := range []*simplemedia.MediaAsset{shot2, shot1, cover, logo, doc, shot0} {
		require.NoError(t, repo.CreateAsset(ctx, a))
	}

	assets, err := repo.ListBySubject(ctx, subjectID, nil)
	require.NoError(t, err)
	require.Len(t, assets, 6)

	// Category priority first, then display order, then creation time.
	assert.Equal(t, logo.ID, assets[0].ID)
	assert.Equal(t, shot0.ID, assets[1].ID)
	assert.Equal(t, shot1.ID, assets[2].ID)
	assert.Equal(t, shot2.ID, assets[3].ID)
	assert.Equal(t, cover.ID, assets[4].ID)
	assert.Equal(t, doc.ID, assets[5].ID)
}

func TestListBySubjectFiltering(t *testing.T) {
	repo := New()
	ctx := context.Background()
	subjectID := uuid.New()

	require.NoError(t, repo.CreateAsset(ctx, newAsset(subjectID, simplemedia.CategoryLogo)))
	require.NoError(t, repo.CreateAsset(ctx, newAsset(subjectID, simplemedia.CategoryScreenshot)))

	inactive := newAsset(subjectID, simplemedia.CategoryScreenshot)
	inactive.IsActive = false
	require.NoError(t, repo.CreateAsset(ctx, inactive))

	require.NoError(t, repo.CreateAsset(ctx, newAsset(uuid.New(), simplemedia.CategoryScreenshot)))

	all, err := repo.ListBySubject(ctx, subjectID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cat := simplemedia.CategoryScreenshot
	shots, err := repo.ListBySubject(ctx, subjectID, &cat)
	require.NoError(t, err)
	require.Len(t, shots, 1)
	assert.Equal(t, simplemedia.CategoryScreenshot, shots[0].Category)

	none, err := repo.ListBySubject(ctx, uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeactivate(t *testing.T) {
	repo := New()
	ctx := context.Background()
	subjectID := uuid.New()

	asset := newAsset(subjectID, simplemedia.CategoryLogo)
	require.NoError(t, repo.CreateAsset(ctx, asset))
	require.NoError(t, repo.Deactivate(ctx, asset.ID))

	got, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	// Deactivating frees the logo slot.
	assert.NoError(t, repo.CreateAsset(ctx, newAsset(subjectID, simplemedia.CategoryLogo)))

	assert.ErrorIs(t, repo.Deactivate(ctx, uuid.New()), simplemedia.ErrAssetNotFound)
}

func TestReplaceLogo(t *testing.T) {
	repo := New()
	ctx := context.Background()
	subjectID := uuid.New()

	current := newAsset(subjectID, simplemedia.CategoryLogo)
	require.NoError(t, repo.CreateAsset(ctx, current))

	next := newAsset(subjectID, simplemedia.CategoryLogo)
	next.IsActive = false
	require.NoError(t, repo.CreateAsset(ctx, next))

	require.NoError(t, repo.ReplaceLogo(ctx, subjectID, next.ID))

	old, err := repo.GetAsset(ctx, current.ID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)

	active, err := repo.GetAsset(ctx, next.ID)
	require.NoError(t, err)
	assert.True(t, active.IsActive)

	n, err := repo.CountActive(ctx, subjectID, simplemedia.CategoryLogo)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReplaceLogoNotFound(t *testing.T) {
	repo := New()
	err := repo.ReplaceLogo(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, simplemedia.ErrAssetNotFound)
}

func TestCountActive(t *testing.T) {
	repo := New()
	ctx := context.Background()
	subjectID := uuid.New()

	n, err := repo.CountActive(ctx, subjectID, simplemedia.CategoryScreenshot)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, repo.CreateAsset(ctx, newAsset(subjectID, simplemedia.CategoryScreenshot)))
	require.NoError(t, repo.CreateAsset(ctx, newAsset(subjectID, simplemedia.CategoryScreenshot)))

	n, err = repo.CountActive(ctx, subjectID, simplemedia.CategoryScreenshot)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
