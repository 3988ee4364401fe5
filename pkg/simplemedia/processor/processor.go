package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-media/pkg/simplemedia"
	"github.com/tendant/simple-media/pkg/simplemedia/objectkey"
)

// Processor derives variants for one media asset at a time. It is stateless:
// several processors can run in parallel workers with all coordination going
// through the registry and the queue.
type Processor struct {
	repository simplemedia.Repository
	blobStore  simplemedia.BlobStore
	logger     *slog.Logger
	urlTTL     time.Duration
}

// NewProcessor creates a variant generator over the given registry and gateway.
func NewProcessor(repo simplemedia.Repository, store simplemedia.BlobStore, logger *slog.Logger) *Processor {
	return &Processor{
		repository: repo,
		blobStore:  store,
		logger:     logger,
		urlTTL:     24 * time.Hour,
	}
}

// Process runs one job attempt. Re-running a job for an already processed or
// deleted asset is a safe no-op, so duplicate and out-of-order delivery are
// harmless.
//
// Errors are transient unless wrapped in PermanentError; the worker decides
// between retry, failure and discard.
func (p *Processor) Process(ctx context.Context, job simplemedia.ProcessingJob) error {
	asset, err := p.repository.GetAsset(ctx, job.MediaID)
	if err != nil {
		if errors.Is(err, simplemedia.ErrAssetNotFound) {
			p.logger.Info("asset gone, discarding job", "media_id", job.MediaID)
			return nil
		}
		return fmt.Errorf("load asset: %w", err)
	}
	if asset.ProcessingStatus == simplemedia.StatusProcessed {
		return nil
	}

	asset.ProcessingStatus = simplemedia.StatusProcessing
	asset.UpdatedAt = time.Now().UTC()
	if err := p.repository.UpdateAsset(ctx, asset); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	policy := policyFor(asset.Category)
	if policy == nil {
		// No pixel pipeline for this category; the original is the final form.
		return p.complete(ctx, asset, nil)
	}

	reader, err := p.blobStore.Download(ctx, asset.ObjectKey)
	if err != nil {
		return &simplemedia.StorageError{Key: asset.ObjectKey, Op: "download", Err: err}
	}
	src, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return &simplemedia.StorageError{Key: asset.ObjectKey, Op: "download", Err: err}
	}

	result, err := Transform(src, *policy)
	if err != nil {
		return err
	}

	variants := make([]simplemedia.Variant, 0, len(policy.Variants))
	for _, spec := range policy.Variants {
		data, ok := result.Variants[spec.Name]
		if !ok {
			continue
		}
		key := objectkey.VariantKey(asset.ObjectKey, spec.Name)
		if err := p.blobStore.Upload(ctx, key, "image/jpeg", bytes.NewReader(data)); err != nil {
			return &simplemedia.StorageError{Key: key, Op: "upload_variant", Err: err}
		}
		url, err := p.blobStore.MintDownloadURL(ctx, key, p.urlTTL)
		if err != nil {
			return &simplemedia.StorageError{Key: key, Op: "mint_download_url", Err: err}
		}
		variants = append(variants, simplemedia.Variant{Name: spec.Name, URL: url})
	}

	asset.Width = &result.Width
	asset.Height = &result.Height
	return p.complete(ctx, asset, variants)
}

func (p *Processor) complete(ctx context.Context, asset *simplemedia.MediaAsset, variants []simplemedia.Variant) error {
	asset.Variants = variants
	asset.ProcessingStatus = simplemedia.StatusProcessed
	asset.UpdatedAt = time.Now().UTC()
	if err := p.repository.UpdateAsset(ctx, asset); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	p.logger.Info("asset processed",
		"media_id", asset.ID,
		"category", asset.Category,
		"variants", len(variants))
	return nil
}

// Fail marks the asset terminally failed. The asset keeps no variants; callers
// fall back to the original URL.
func (p *Processor) Fail(ctx context.Context, mediaID uuid.UUID) error {
	asset, err := p.repository.GetAsset(ctx, mediaID)
	if err != nil {
		if errors.Is(err, simplemedia.ErrAssetNotFound) {
			return nil
		}
		return err
	}

	asset.ProcessingStatus = simplemedia.StatusFailed
	asset.Variants = nil
	asset.UpdatedAt = time.Now().UTC()
	return p.repository.UpdateAsset(ctx, asset)
}
