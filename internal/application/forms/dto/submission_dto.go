package dto

import (
	"time"

	"github.com/formbox/backend/internal/domain/forms"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubmissionResponse represents one stored submission in API responses
type SubmissionResponse struct {
	ID        uuid.UUID      `json:"id"`
	Values    map[string]any `json:"values"`
	CreatedAt time.Time      `json:"created_at"`
}

// ToSubmissionResponse converts a domain Submission to SubmissionResponse.
// Typed values are rendered back into their wire form: numbers as decimal
// strings, dates as YYYY-MM-DD.
func ToSubmissionResponse(sub *forms.Submission) *SubmissionResponse {
	values := make(map[string]any, len(sub.Values))
	for name, value := range sub.Values {
		values[name] = toWireValue(value)
	}
	return &SubmissionResponse{
		ID:        sub.ID,
		Values:    values,
		CreatedAt: sub.CreatedAt,
	}
}

func toWireValue(value any) any {
	switch v := value.(type) {
	case decimal.Decimal:
		return v.String()
	case time.Time:
		return v.Format(forms.DateLayout)
	default:
		return v
	}
}

// SubmissionListResponse is a filtered, paginated page of submissions
type SubmissionListResponse struct {
	Submissions []SubmissionResponse `json:"submissions"`
	Total       int64                `json:"total"`
	Page        int                  `json:"page"`
	PageSize    int                  `json:"page_size"`
	TotalPages  int                  `json:"total_pages"`
}

// ToSubmissionListResponse creates a SubmissionListResponse from domain submissions
func ToSubmissionListResponse(subs []forms.Submission, total int64, page, pageSize int) *SubmissionListResponse {
	if pageSize <= 0 {
		pageSize = forms.DefaultPageSize
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	out := make([]SubmissionResponse, len(subs))
	for i := range subs {
		out[i] = *ToSubmissionResponse(&subs[i])
	}
	return &SubmissionListResponse{
		Submissions: out,
		Total:       total,
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
	}
}

// AnalyticsResponse reports per-field aggregate counts for a schema
type AnalyticsResponse struct {
	TableName string               `json:"table_name"`
	Total     int64                `json:"total"`
	Fields    map[string]FieldFill `json:"fields"`
}

// FieldFill is the fill statistic of one field
type FieldFill struct {
	Filled   int64   `json:"filled"`
	FillRate float64 `json:"fill_rate"`
}

// ToAnalyticsResponse converts domain FieldStats to AnalyticsResponse
func ToAnalyticsResponse(tableName string, stats *forms.FieldStats) *AnalyticsResponse {
	fields := make(map[string]FieldFill, len(stats.Filled))
	for name, filled := range stats.Filled {
		fill := FieldFill{Filled: filled}
		if stats.Total > 0 {
			fill.FillRate = float64(filled) / float64(stats.Total)
		}
		fields[name] = fill
	}
	return &AnalyticsResponse{
		TableName: tableName,
		Total:     stats.Total,
		Fields:    fields,
	}
}
