package service

import (
	"advertisement-service/internal/domain"
	"advertisement-service/internal/infrastructure/events"
	"advertisement-service/internal/infrastructure/metrics"
	"advertisement-service/internal/repository"
	"advertisement-service/pkg/logger"
	"advertisement-service/pkg/utils"
	"context"
	"database/sql"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrInvalidID = errors.New("invalid advertisement ID")
	ErrNotFound  = errors.New("advertisement not found")
	// ErrConflict is retryable: reload the record and submit again.
	ErrConflict = errors.New("advertisement was changed by someone else, reload and try again")
)

type PaginationResult struct {
	Advertisements []*domain.Advertisement `json:"advertisements"`
	TotalCount     int                     `json:"total_count"`
	CurrentPage    int                     `json:"current_page"`
	PageSize       int                     `json:"page_size"`
	TotalPages     int                     `json:"total_pages"`
	NextPage       int                     `json:"next_page,omitempty"`
	PrevPage       int                     `json:"prev_page,omitempty"`
}

type AdvertisementService interface {
	List(ctx context.Context, page int, pageSize int) (*PaginationResult, error)
	Get(ctx context.Context, id int64) (*domain.Advertisement, error)
	// Create returns domain.ValidationErrors when the input is rejected.
	Create(ctx context.Context, input domain.AdvertisementInput) (*domain.Advertisement, error)
	// Update returns the unchanged stored record together with domain.ValidationErrors
	// when the input is rejected, so the caller can redraw the form.
	Update(ctx context.Context, id int64, input domain.AdvertisementInput) (*domain.Advertisement, error)
	Delete(ctx context.Context, id int64) error
}

type Option func(*advertisementService)

func WithClock(now func() time.Time) Option {
	return func(s *advertisementService) {
		s.now = now
	}
}

type advertisementService struct {
	repository repository.AdvertisementRepository
	paginator  Paginator
	publisher  events.Publisher
	logger     *logger.Loggers
	metrics    *metrics.ServiceMetrics
	tracer     trace.Tracer
	now        func() time.Time
}

func NewAdvertisementService(
	repository repository.AdvertisementRepository,
	paginator Paginator,
	publisher events.Publisher,
	loggers *logger.Loggers,
	metrics *metrics.ServiceMetrics,
	opts ...Option,
) AdvertisementService {
	s := &advertisementService{
		repository: repository,
		paginator:  paginator,
		publisher:  publisher,
		logger:     loggers,
		metrics:    metrics,
		tracer:     otel.Tracer("advertisement-service/service"),
		now:        time.Now,
	}
	if s.publisher == nil {
		s.publisher = events.NoopPublisher{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *advertisementService) observe(method string, startTime time.Time, status *string) {
	duration := time.Since(startTime).Seconds()
	s.metrics.MethodCount.WithLabelValues(method, *status).Inc()
	s.metrics.MethodDuration.WithLabelValues(method, *status).Observe(duration)
}

// timestamp matches the DATETIME(6) column precision so stored and returned values agree.
func (s *advertisementService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *advertisementService) List(ctx context.Context, page int, pageSize int) (*PaginationResult, error) {
	ctx, span := s.tracer.Start(ctx, "List")
	defer span.End()

	startTime := time.Now()
	status := "success"
	defer s.observe("List", startTime, &status)

	totalCount, err := s.repository.Count(ctx)
	if err != nil {
		status = "error"
		span.RecordError(err)
		return nil, err
	}

	p := s.paginator.Paginate(page, pageSize, totalCount)

	span.SetAttributes(
		attribute.Int("advertisements.page", p.Number),
		attribute.Int("advertisements.page_size", p.Size),
		attribute.Int("advertisements.total_count", totalCount),
	)

	ads := []*domain.Advertisement{}
	if p.Number <= p.TotalPages {
		ads, err = s.repository.GetPage(ctx, p.Size, p.Offset)
		if err != nil {
			status = "error"
			span.RecordError(err)
			return nil, err
		}
	}

	return &PaginationResult{
		Advertisements: ads,
		TotalCount:     p.TotalCount,
		CurrentPage:    p.Number,
		PageSize:       p.Size,
		TotalPages:     p.TotalPages,
		NextPage:       p.NextPage,
		PrevPage:       p.PrevPage,
	}, nil
}

func (s *advertisementService) Get(ctx context.Context, id int64) (*domain.Advertisement, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}

	ctx, span := s.tracer.Start(ctx, "Get")
	defer span.End()

	span.SetAttributes(attribute.Int64("advertisement.id", id))

	startTime := time.Now()
	status := "success"
	defer s.observe("Get", startTime, &status)

	ad, err := s.repository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			status = "not_found"
			return nil, ErrNotFound
		}
		status = "error"
		span.RecordError(err)
		return nil, err
	}

	return ad, nil
}

func (s *advertisementService) Create(ctx context.Context, input domain.AdvertisementInput) (*domain.Advertisement, error) {
	ctx, span := s.tracer.Start(ctx, "Create")
	defer span.End()

	startTime := time.Now()
	status := "success"
	defer s.observe("Create", startTime, &status)

	input = input.Normalize()
	if errs := input.Validate(); errs != nil {
		status = "invalid"
		return nil, errs
	}

	now := s.timestamp()
	createdAd, err := s.repository.Create(ctx, &domain.Advertisement{
		Title:     input.Title,
		Content:   input.Content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		status = "error"
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("advertisement.id", createdAd.ID),
		attribute.String("advertisement.title", createdAd.Title),
	)

	s.publish(ctx, events.NewEvent(events.AdvertisementCreated, createdAd, now))

	return createdAd, nil
}

func (s *advertisementService) Update(ctx context.Context, id int64, input domain.AdvertisementInput) (*domain.Advertisement, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}

	ctx, span := s.tracer.Start(ctx, "Update")
	defer span.End()

	span.SetAttributes(attribute.Int64("advertisement.id", id))

	startTime := time.Now()
	status := "success"
	defer s.observe("Update", startTime, &status)

	existing, err := s.repository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			status = "not_found"
			return nil, ErrNotFound
		}
		status = "error"
		span.RecordError(err)
		return nil, err
	}

	input = input.Normalize()
	if errs := input.Validate(); errs != nil {
		status = "invalid"
		return existing, errs
	}

	expected, _ := input.ExpectedVersion()

	now := s.timestamp()
	if now.Before(existing.UpdatedAt) {
		now = existing.UpdatedAt
	}

	changed := *existing
	changed.Title = input.Title
	changed.Content = input.Content
	changed.UpdatedAt = now

	updatedAd, err := s.repository.Update(ctx, &changed, expected)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			status = "not_found"
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrConflict):
			status = "conflict"
			return nil, ErrConflict
		}
		status = "error"
		span.RecordError(err)
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.AdvertisementUpdated, updatedAd, now))

	return updatedAd, nil
}

func (s *advertisementService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}

	ctx, span := s.tracer.Start(ctx, "Delete")
	defer span.End()

	span.SetAttributes(attribute.Int64("advertisement.id", id))

	startTime := time.Now()
	status := "success"
	defer s.observe("Delete", startTime, &status)

	err := s.repository.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			status = "not_found"
			return ErrNotFound
		}
		status = "error"
		span.RecordError(err)
		return err
	}

	s.publish(ctx, events.NewEvent(events.AdvertisementDeleted, &domain.Advertisement{ID: id}, s.timestamp()))

	return nil
}

// publish never fails the caller: the write it announces is already committed.
func (s *advertisementService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.EventFailures.WithLabelValues(event.Type).Inc()
		s.logger.ErrorLogger.Error("failed to publish advertisement event",
			"event", event.Type,
			"advertisement_id", event.AdvertisementID,
			utils.Err(err),
		)
	}
}
