package models

import (
	"fmt"
	"time"
)

// Pagination bounds for message queries.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Filter selects a view of the persisted messages. All supplied fields
// combine with logical AND. Filters are query-only and never persisted.
type Filter struct {
	DateFrom       *time.Time
	DateTo         *time.Time
	Sender         string
	SentimentLabel string
	Keyword        string
	Language       string
	JobID          string
	Page           int
	PageSize       int
}

// Normalize applies pagination defaults and validates the filter. It is
// called before any query executes; a failure here is a synchronous
// validation error, never an asynchronous job state.
func (f *Filter) Normalize() error {
	if f.Page == 0 {
		f.Page = 1
	}
	if f.PageSize == 0 {
		f.PageSize = DefaultPageSize
	}
	if f.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrValidation, f.Page)
	}
	if f.PageSize < 1 || f.PageSize > MaxPageSize {
		return fmt.Errorf("%w: page_size must be between 1 and %d, got %d", ErrValidation, MaxPageSize, f.PageSize)
	}
	if f.SentimentLabel != "" && !ValidLabel(f.SentimentLabel) {
		return fmt.Errorf("%w: sentiment_label must be Positive, Negative or Neutral, got %q", ErrValidation, f.SentimentLabel)
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return fmt.Errorf("%w: date_from is after date_to", ErrValidation)
	}
	return nil
}

// Offset is the row offset of the requested page.
func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}
