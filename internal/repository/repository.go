package repository

import (
	"advertisement-service/internal/domain"
	"advertisement-service/internal/infrastructure/cache"
	"advertisement-service/internal/infrastructure/metrics"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrConflict reports that the row changed since the caller read it.
var ErrConflict = errors.New("advertisement was modified concurrently")

const (
	generationKey = "advertisements:generation"
	defaultTTL    = 10 * time.Minute
)

type AdvertisementRepository interface {
	GetPage(ctx context.Context, limit int, offset int) ([]*domain.Advertisement, error)
	GetByID(ctx context.Context, id int64) (*domain.Advertisement, error)
	Create(ctx context.Context, ad *domain.Advertisement) (*domain.Advertisement, error)
	// Update overwrites title, content and updated_at. When expectedUpdatedAt is set the
	// write only applies if the stored updated_at still matches it.
	Update(ctx context.Context, ad *domain.Advertisement, expectedUpdatedAt *time.Time) (*domain.Advertisement, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

type mysqlAdvertisementRepository struct {
	db      *sql.DB
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.RepositoryMetrics
	tracer  trace.Tracer
}

func NewMysqlAdvertisementRepository(db *sql.DB, cache cache.Cache, ttl time.Duration, metrics *metrics.RepositoryMetrics) AdvertisementRepository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	tracer := otel.Tracer("advertisement-service/repository")
	return &mysqlAdvertisementRepository{
		db:      db,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		tracer:  tracer,
	}
}

func (r *mysqlAdvertisementRepository) observe(query string, startTime time.Time, status *string) {
	duration := time.Since(startTime).Seconds()
	r.metrics.QueryCount.WithLabelValues(query, *status).Inc()
	r.metrics.QueryDuration.WithLabelValues(query, *status).Observe(duration)
}

func (r *mysqlAdvertisementRepository) GetPage(ctx context.Context, limit int, offset int) ([]*domain.Advertisement, error) {
	ctx, span := r.tracer.Start(ctx, "Repository GetPage")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit), attribute.Int("offset", offset))

	startTime := time.Now()
	status := "success"
	defer r.observe("GetPage", startTime, &status)

	cacheKey := fmt.Sprintf("advertisements:v%d:page:%d:%d", r.generation(ctx), limit, offset)

	var cached []*domain.Advertisement
	if r.getCached(ctx, "GetPage", cacheKey, &cached) {
		if cached == nil {
			cached = []*domain.Advertisement{}
		}
		return cached, nil
	}

	query := `
		SELECT id, title, content, created_at, updated_at
		FROM advertisements
		ORDER BY id DESC
		LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		status = "error"
		span.RecordError(err)
		return nil, fmt.Errorf("failed to retrieve advertisements: %w", err)
	}
	defer rows.Close()

	ads := []*domain.Advertisement{}
	for rows.Next() {
		var ad domain.Advertisement
		if err := rows.Scan(&ad.ID, &ad.Title, &ad.Content, &ad.CreatedAt, &ad.UpdatedAt); err != nil {
			status = "error"
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan advertisement: %w", err)
		}
		ads = append(ads, &ad)
	}

	if err := rows.Err(); err != nil {
		status = "error"
		span.RecordError(err)
		return nil, fmt.Errorf("rows error: %w", err)
	}

	r.setCached(ctx, cacheKey, ads)

	return ads, nil
}

func (r *mysqlAdvertisementRepository) GetByID(ctx context.Context, id int64) (*domain.Advertisement, error) {
	ctx, span := r.tracer.Start(ctx, "Repository GetByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("advertisement.id", id))

	startTime := time.Now()
	status := "success"
	defer r.observe("GetByID", startTime, &status)

	// The generation is read before the SELECT so a fill racing a write lands on a
	// key the write has already orphaned.
	cacheKey := recordKey(id, r.recordGeneration(ctx, id))

	var cached domain.Advertisement
	if r.getCached(ctx, "GetByID", cacheKey, &cached) {
		return &cached, nil
	}

	ad, err := r.selectByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			status = "not_found"
			return nil, err
		}
		status = "error"
		span.RecordError(err)
		return nil, fmt.Errorf("failed to fetch advertisement: %w", err)
	}

	r.setCached(ctx, cacheKey, ad)

	return ad, nil
}

func (r *mysqlAdvertisementRepository) Create(ctx context.Context, ad *domain.Advertisement) (*domain.Advertisement, error) {
	ctx, span := r.tracer.Start(ctx, "Repository Create")
	defer span.End()

	span.SetAttributes(attribute.String("advertisement.title", ad.Title))

	startTime := time.Now()
	status := "success"
	defer r.observe("Create", startTime, &status)

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO advertisements (title, content, created_at, updated_at) VALUES (?, ?, ?, ?)",
		ad.Title, ad.Content, ad.CreatedAt, ad.UpdatedAt)
	if err != nil {
		status = "error"
		span.RecordError(err)
		return nil, fmt.Errorf("failed to insert advertisement: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		status = "error"
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	created := *ad
	created.ID = id

	r.invalidateLists(ctx)

	return &created, nil
}

func (r *mysqlAdvertisementRepository) Update(ctx context.Context, ad *domain.Advertisement, expectedUpdatedAt *time.Time) (*domain.Advertisement, error) {
	ctx, span := r.tracer.Start(ctx, "Repository Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("advertisement.id", ad.ID),
		attribute.String("advertisement.title", ad.Title),
		attribute.Bool("advertisement.optimistic", expectedUpdatedAt != nil),
	)

	startTime := time.Now()
	status := "success"
	defer r.observe("Update", startTime, &status)

	query := `
		UPDATE advertisements
		SET title = ?, content = ?, updated_at = ?
		WHERE id = ?`
	args := []interface{}{ad.Title, ad.Content, ad.UpdatedAt, ad.ID}
	if expectedUpdatedAt != nil {
		query += " AND updated_at = ?"
		args = append(args, *expectedUpdatedAt)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		status = "error"
		span.RecordError(err)
		return nil, fmt.Errorf("failed to update advertisement: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		status = "error"
		span.RecordError(err)
		return nil, fmt.Errorf("failed to retrieve rows affected: %w", err)
	}

	if rowsAffected == 0 {
		exists, err := r.exists(ctx, ad.ID)
		if err != nil {
			status = "error"
			span.RecordError(err)
			return nil, err
		}
		if !exists {
			status = "not_found"
			return nil, sql.ErrNoRows
		}
		status = "conflict"
		r.invalidateRecord(ctx, ad.ID)
		return nil, ErrConflict
	}

	updated := *ad

	r.invalidateRecord(ctx, ad.ID)
	r.invalidateLists(ctx)

	return &updated, nil
}

func (r *mysqlAdvertisementRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "Repository Delete")
	defer span.End()

	span.SetAttributes(attribute.Int64("advertisement.id", id))

	startTime := time.Now()
	status := "success"
	defer r.observe("Delete", startTime, &status)

	result, err := r.db.ExecContext(ctx, "DELETE FROM advertisements WHERE id = ?", id)
	if err != nil {
		status = "error"
		span.RecordError(err)
		return fmt.Errorf("failed to delete advertisement: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		status = "error"
		span.RecordError(err)
		return fmt.Errorf("failed to retrieve rows affected: %w", err)
	}

	if rowsAffected == 0 {
		status = "not_found"
		return sql.ErrNoRows
	}

	r.invalidateRecord(ctx, id)
	r.invalidateLists(ctx)

	return nil
}

func (r *mysqlAdvertisementRepository) Count(ctx context.Context) (int, error) {
	ctx, span := r.tracer.Start(ctx, "Repository Count")
	defer span.End()

	startTime := time.Now()
	status := "success"
	defer r.observe("Count", startTime, &status)

	cacheKey := fmt.Sprintf("advertisements:v%d:count", r.generation(ctx))

	var count int
	if r.getCached(ctx, "Count", cacheKey, &count) {
		return count, nil
	}

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM advertisements").Scan(&count)
	if err != nil {
		status = "error"
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count advertisements: %w", err)
	}

	r.setCached(ctx, cacheKey, count)

	return count, nil
}

func (r *mysqlAdvertisementRepository) selectByID(ctx context.Context, id int64) (*domain.Advertisement, error) {
	query := `
		SELECT id, title, content, created_at, updated_at
		FROM advertisements
		WHERE id = ?`

	ad := &domain.Advertisement{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ad.ID,
		&ad.Title,
		&ad.Content,
		&ad.CreatedAt,
		&ad.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ad, nil
}

func (r *mysqlAdvertisementRepository) exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM advertisements WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check advertisement existence: %w", err)
	}
	return true, nil
}

func recordKey(id, generation int64) string {
	return fmt.Sprintf("advertisement:%d:v%d", id, generation)
}

func recordGenerationKey(id int64) string {
	return fmt.Sprintf("advertisement:%d:generation", id)
}

// generation namespaces list and count keys; bumping it orphans every cached page at once.
func (r *mysqlAdvertisementRepository) generation(ctx context.Context) int64 {
	return r.readGeneration(ctx, generationKey)
}

// recordGeneration namespaces the cached copy of a single record. Writes bump it
// instead of deleting the key, so a reader that loaded the row before the write
// cannot put it back under the current key.
func (r *mysqlAdvertisementRepository) recordGeneration(ctx context.Context, id int64) int64 {
	return r.readGeneration(ctx, recordGenerationKey(id))
}

func (r *mysqlAdvertisementRepository) readGeneration(ctx context.Context, key string) int64 {
	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		return 0
	}
	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return gen
}

func (r *mysqlAdvertisementRepository) invalidateLists(ctx context.Context) {
	r.bump(ctx, generationKey)
}

func (r *mysqlAdvertisementRepository) invalidateRecord(ctx context.Context, id int64) {
	gen := r.recordGeneration(ctx, id)
	if !r.bump(ctx, recordGenerationKey(id)) {
		r.dropCached(ctx, recordKey(id, gen))
	}
}

func (r *mysqlAdvertisementRepository) bump(ctx context.Context, key string) bool {
	cacheSpanCtx, cacheSpan := r.tracer.Start(ctx, "Redis Incr")
	defer cacheSpan.End()

	if _, err := r.cache.Incr(cacheSpanCtx, key); err != nil {
		cacheSpan.RecordError(err)
		return false
	}
	return true
}

func (r *mysqlAdvertisementRepository) getCached(ctx context.Context, query, key string, dst interface{}) bool {
	cacheSpanCtx, cacheSpan := r.tracer.Start(ctx, "Redis Get")
	raw, err := r.cache.Get(cacheSpanCtx, key)
	cacheSpan.End()

	if err != nil {
		r.metrics.CacheResults.WithLabelValues(query, "miss").Inc()
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		r.metrics.CacheResults.WithLabelValues(query, "corrupt").Inc()
		return false
	}
	r.metrics.CacheResults.WithLabelValues(query, "hit").Inc()
	return true
}

func (r *mysqlAdvertisementRepository) setCached(ctx context.Context, key string, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	cacheSpanCtx, cacheSpan := r.tracer.Start(ctx, "Redis Set")
	r.cache.Set(cacheSpanCtx, key, string(payload), r.ttl)
	cacheSpan.End()
}

func (r *mysqlAdvertisementRepository) dropCached(ctx context.Context, key string) {
	cacheSpanCtx, cacheSpan := r.tracer.Start(ctx, "Redis Delete")
	r.cache.Delete(cacheSpanCtx, key)
	cacheSpan.End()
}
