package forms

import (
	"context"
	"net/url"

	"github.com/formbox/backend/internal/application/forms/dto"
	"github.com/formbox/backend/internal/domain/forms"
	"go.uber.org/zap"
)

// AnalyticsInvalidator drops cached analytics for a table after a write
type AnalyticsInvalidator interface {
	Invalidate(ctx context.Context, tableName string) error
}

// SubmissionService handles validated form submission and querying
type SubmissionService struct {
	forms           *FormService
	repo            forms.SubmissionRepository
	invalidator     AnalyticsInvalidator
	defaultPageSize int
	maxPageSize     int
	logger          *zap.Logger
}

// NewSubmissionService creates a new submission service. defaultPageSize is
// the page size used when a request does not ask for one and maxPageSize
// caps explicit page_size requests; zero falls back to the domain defaults.
func NewSubmissionService(
	formService *FormService,
	repo forms.SubmissionRepository,
	invalidator AnalyticsInvalidator,
	defaultPageSize, maxPageSize int,
	logger *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		forms:           formService,
		repo:            repo,
		invalidator:     invalidator,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          logger,
	}
}

// Submit validates a raw payload against the table's schema and stores it.
// Validation failures come back as forms.ValidationErrors so the caller can
// render per-field messages.
func (s *SubmissionService) Submit(ctx context.Context, tableName string, payload url.Values) (*dto.SubmissionResponse, error) {
	schema, err := s.forms.GetSchema(ctx, tableName)
	if err != nil {
		return nil, err
	}

	values, verrs := schema.Validate(payload)
	if len(verrs) > 0 {
		return nil, verrs
	}

	sub, err := s.repo.Insert(ctx, schema, values)
	if err != nil {
		return nil, err
	}

	// Stale analytics are tolerable, a failed submission is not
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, tableName); err != nil {
			s.logger.Warn("failed to invalidate analytics cache",
				zap.String("table", tableName), zap.Error(err))
		}
	}

	s.logger.Info("submission stored",
		zap.String("table", tableName),
		zap.String("id", sub.ID.String()))

	return dto.ToSubmissionResponse(sub), nil
}

// List parses the filter/sort/page parameters against the table's schema and
// returns the matching page. Any malformed filter fails the whole request
// with forms.FilterErrors.
func (s *SubmissionService) List(ctx context.Context, tableName string, params url.Values) (*dto.SubmissionListResponse, error) {
	schema, err := s.forms.GetSchema(ctx, tableName)
	if err != nil {
		return nil, err
	}

	spec, ferrs := schema.ParseQuery(params, s.defaultPageSize, s.maxPageSize)
	if len(ferrs) > 0 {
		return nil, ferrs
	}

	subs, total, err := s.repo.Query(ctx, schema, spec)
	if err != nil {
		return nil, err
	}
	return dto.ToSubmissionListResponse(subs, total, spec.Page, spec.PageSize), nil
}
