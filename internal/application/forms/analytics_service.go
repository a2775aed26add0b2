package forms

import (
	"context"
	"time"

	"github.com/formbox/backend/internal/application/forms/dto"
	"github.com/formbox/backend/internal/domain/forms"
	"github.com/formbox/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// AnalyticsService computes per-field fill statistics with a short-lived
// cache in front of the database
type AnalyticsService struct {
	forms  *FormService
	repo   forms.SubmissionRepository
	cache  cache.AnalyticsCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(
	formService *FormService,
	repo forms.SubmissionRepository,
	analyticsCache cache.AnalyticsCache,
	ttl time.Duration,
	logger *zap.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		forms:  formService,
		repo:   repo,
		cache:  analyticsCache,
		ttl:    ttl,
		logger: logger,
	}
}

// Stats returns the field statistics for a table, served from cache when a
// fresh entry exists
func (s *AnalyticsService) Stats(ctx context.Context, tableName string) (*dto.AnalyticsResponse, error) {
	schema, err := s.forms.GetSchema(ctx, tableName)
	if err != nil {
		return nil, err
	}

	if stats, ok, err := s.cache.Get(ctx, tableName); err != nil {
		// A broken cache degrades to a database read
		s.logger.Warn("analytics cache read failed",
			zap.String("table", tableName), zap.Error(err))
	} else if ok {
		return dto.ToAnalyticsResponse(tableName, stats), nil
	}

	stats, err := s.repo.Stats(ctx, schema)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, tableName, stats, s.ttl); err != nil {
		s.logger.Warn("analytics cache write failed",
			zap.String("table", tableName), zap.Error(err))
	}

	return dto.ToAnalyticsResponse(tableName, stats), nil
}
