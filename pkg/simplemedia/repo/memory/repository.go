package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-media/pkg/simplemedia"
)

// Repository implements simplemedia.Repository using in-memory storage.
//
// A single mutex covers every operation, which makes the insert-if-none-active
// and ReplaceLogo critical sections genuinely atomic under concurrent
// finalize calls.
type Repository struct {
	mu     sync.RWMutex
	assets map[uuid.UUID]*simplemedia.MediaAsset
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		assets: make(map[uuid.UUID]*simplemedia.MediaAsset),
	}
}

// activeCountLocked counts active assets for subject+category. Callers hold mu.
func (r *Repository) activeCountLocked(subjectID uuid.UUID, category simplemedia.MediaCategory) int {
	n := 0
	for _, a := range r.assets {
		if a.SubjectID == subjectID && a.Category == category && a.IsActive {
			n++
		}
	}
	return n
}

func (r *Repository) CreateAsset(ctx context.Context, asset *simplemedia.MediaAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if asset.IsActive && asset.Category.SingleInstance() {
		if r.activeCountLocked(asset.SubjectID, asset.Category) > 0 {
			return simplemedia.ErrActiveLogoExists
		}
	}

	// Create a copy to avoid external modifications
	assetCopy := *asset
	r.assets[asset.ID] = &assetCopy

	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*simplemedia.MediaAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, exists := r.assets[id]
	if !exists {
		return nil, simplemedia.ErrAssetNotFound
	}

	// Return a copy to prevent external modifications
	assetCopy := *asset
	return &assetCopy, nil
}

func (r *Repository) UpdateAsset(ctx context.Context, asset *simplemedia.MediaAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.assets[asset.ID]
	if !exists {
		return simplemedia.ErrAssetNotFound
	}

	// ObjectKey is immutable for the lifetime of an asset.
	assetCopy := *asset
	assetCopy.ObjectKey = existing.ObjectKey
	r.assets[asset.ID] = &assetCopy

	return nil
}

func (r *Repository) ListBySubject(ctx context.Context, subjectID uuid.UUID, category *simplemedia.MediaCategory) ([]*simplemedia.MediaAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*simplemedia.MediaAsset{}
	for _, asset := range r.assets {
		if asset.SubjectID != subjectID || !asset.IsActive {
			continue
		}
		if category != nil && asset.Category != *category {
			continue
		}
		assetCopy := *asset
		result = append(result, &assetCopy)
	}

	// Category priority, then caller-assigned order, then creation time. The
	// id comparison keeps the order total when timestamps collide.
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Category.Priority() != b.Category.Priority() {
			return a.Category.Priority() < b.Category.Priority()
		}
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	return result, nil
}

func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	asset, exists := r.assets[id]
	if !exists {
		return simplemedia.ErrAssetNotFound
	}

	asset.IsActive = false
	asset.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) ReplaceLogo(ctx context.Context, subjectID, newMediaID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, exists := r.assets[newMediaID]
	if !exists {
		return simplemedia.ErrAssetNotFound
	}

	now := time.Now().UTC()
	for _, a := range r.assets {
		if a.SubjectID == subjectID && a.Category == simplemedia.CategoryLogo && a.IsActive && a.ID != newMediaID {
			a.IsActive = false
			a.UpdatedAt = now
		}
	}

	next.IsActive = true
	next.UpdatedAt = now
	return nil
}

func (r *Repository) CountActive(ctx context.Context, subjectID uuid.UUID, category simplemedia.MediaCategory) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.activeCountLocked(subjectID, category), nil
}
