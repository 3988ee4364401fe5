package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-media/pkg/simplemedia"
)

// Repository implements simplemedia.Repository using PostgreSQL.
//
// Expected schema (media_asset): a partial unique index on
// (subject_id, category) WHERE is_active backs the single-active-logo
// invariant at the database level; the conditional insert below makes the
// violation a clean conflict error rather than a constraint blowup.
type Repository struct {
	pool *pgxpool.Pool
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "active") {
				return simplemedia.ErrActiveLogoExists
			}
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) CreateAsset(ctx context.Context, asset *simplemedia.MediaAsset) error {
	variants, err := json.Marshal(asset.Variants)
	if err != nil {
		return fmt.Errorf("marshal variants: %w", err)
	}

	// Insert-if-none-active: for an active single-instance asset the insert
	// and the uniqueness check happen in one statement, so two finalize calls
	// racing for the same subject cannot both succeed.
	query := `
		INSERT INTO media_asset (
			id, subject_id, category, object_key, public_url, original_name,
			mime_type, size_bytes, width, height, display_order, is_active,
			processing_status, variants, created_at, updated_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		WHERE NOT (
			$12 AND $17 AND EXISTS (
				SELECT 1 FROM media_asset
				WHERE subject_id = $2 AND category = $3 AND is_active
			)
		)`

	tag, err := r.pool.Exec(ctx, query,
		asset.ID, asset.SubjectID, asset.Category, asset.ObjectKey,
		asset.PublicURL, asset.OriginalName, asset.MimeType, asset.SizeBytes,
		asset.Width, asset.Height, asset.DisplayOrder, asset.IsActive,
		asset.ProcessingStatus, variants, asset.CreatedAt, asset.UpdatedAt,
		asset.Category.SingleInstance())

	if err != nil {
		return r.handlePostgresError("create asset", err)
	}
	if tag.RowsAffected() == 0 {
		return simplemedia.ErrActiveLogoExists
	}

	return nil
}

const assetColumns = `
	id, subject_id, category, object_key, public_url, original_name,
	mime_type, size_bytes, width, height, display_order, is_active,
	processing_status, variants, created_at, updated_at`

func scanAsset(row pgx.Row) (*simplemedia.MediaAsset, error) {
	var asset simplemedia.MediaAsset
	var variants []byte

	err := row.Scan(
		&asset.ID, &asset.SubjectID, &asset.Category, &asset.ObjectKey,
		&asset.PublicURL, &asset.OriginalName, &asset.MimeType, &asset.SizeBytes,
		&asset.Width, &asset.Height, &asset.DisplayOrder, &asset.IsActive,
		&asset.ProcessingStatus, &variants, &asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(variants) > 0 {
		if err := json.Unmarshal(variants, &asset.Variants); err != nil {
			return nil, fmt.Errorf("unmarshal variants: %w", err)
		}
	}

	return &asset, nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*simplemedia.MediaAsset, error) {
	query := `SELECT` + assetColumns + ` FROM media_asset WHERE id = $1`

	asset, err := scanAsset(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplemedia.ErrAssetNotFound
		}
		return nil, r.handlePostgresError("get asset", err)
	}

	return asset, nil
}

func (r *Repository) UpdateAsset(ctx context.Context, asset *simplemedia.MediaAsset) error {
	variants, err := json.Marshal(asset.Variants)
	if err != nil {
		return fmt.Errorf("marshal variants: %w", err)
	}

	// object_key is deliberately absent: it is immutable.
	query := `
		UPDATE media_asset SET
			public_url = $2, original_name = $3, mime_type = $4,
			size_bytes = $5, width = $6, height = $7, display_order = $8,
			is_active = $9, processing_status = $10, variants = $11,
			updated_at = $12
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		asset.ID, asset.PublicURL, asset.OriginalName, asset.MimeType,
		asset.SizeBytes, asset.Width, asset.Height, asset.DisplayOrder,
		asset.IsActive, asset.ProcessingStatus, variants, asset.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("update asset", err)
	}
	if tag.RowsAffected() == 0 {
		return simplemedia.ErrAssetNotFound
	}

	return nil
}

func (r *Repository) ListBySubject(ctx context.Context, subjectID uuid.UUID, category *simplemedia.MediaCategory) ([]*simplemedia.MediaAsset, error) {
	query := `SELECT` + assetColumns + `
		FROM media_asset
		WHERE subject_id = $1 AND is_active
		  AND ($2::text IS NULL OR category = $2)
		ORDER BY
			array_position(
				ARRAY['logo','screenshot','cover','icon','video','document'],
				category),
			display_order ASC, created_at ASC, id ASC`

	var cat *string
	if category != nil {
		s := string(*category)
		cat = &s
	}

	rows, err := r.pool.Query(ctx, query, subjectID, cat)
	if err != nil {
		return nil, r.handlePostgresError("list by subject", err)
	}
	defer rows.Close()

	result := []*simplemedia.MediaAsset{}
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, r.handlePostgresError("list by subject", err)
		}
		result = append(result, asset)
	}

	return result, rows.Err()
}

func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE media_asset SET is_active = FALSE, updated_at = NOW() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return r.handlePostgresError("deactivate", err)
	}
	if tag.RowsAffected() == 0 {
		return simplemedia.ErrAssetNotFound
	}

	return nil
}

func (r *Repository) ReplaceLogo(ctx context.Context, subjectID, newMediaID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return r.handlePostgresError("replace logo", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE media_asset SET is_active = FALSE, updated_at = NOW()
		WHERE subject_id = $1 AND category = 'logo' AND is_active AND id <> $2`,
		subjectID, newMediaID)
	if err != nil {
		return r.handlePostgresError("replace logo", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE media_asset SET is_active = TRUE, updated_at = NOW()
		WHERE id = $1 AND subject_id = $2`,
		newMediaID, subjectID)
	if err != nil {
		return r.handlePostgresError("replace logo", err)
	}
	if tag.RowsAffected() == 0 {
		return simplemedia.ErrAssetNotFound
	}

	return tx.Commit(ctx)
}

func (r *Repository) CountActive(ctx context.Context, subjectID uuid.UUID, category simplemedia.MediaCategory) (int, error) {
	query := `
		SELECT COUNT(*) FROM media_asset
		WHERE subject_id = $1 AND category = $2 AND is_active`

	var n int
	if err := r.pool.QueryRow(ctx, query, subjectID, category).Scan(&n); err != nil {
		return 0, r.handlePostgresError("count active", err)
	}

	return n, nil
}
