package utils

import "math"

// PaginationParams contains pagination parameters
type PaginationParams struct {
	Page     int
	PageSize int
	Offset   int
}

// DefaultPageSize is the default number of items per page
const DefaultPageSize = 20

// MaxPageSize is the maximum number of items per page
const MaxPageSize = 100

// NewPaginationParams clamps page and pageSize into the supported range
func NewPaginationParams(page, pageSize int) PaginationParams {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	offset := math.MaxInt
	if page-1 <= math.MaxInt/pageSize {
		offset = (page - 1) * pageSize
	}

	return PaginationParams{
		Page:     page,
		PageSize: pageSize,
		Offset:   offset,
	}
}

// TotalPages returns how many pages of pageSize are needed for total items
func TotalPages(total, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return pages
}

// Window returns the [start, end) bounds of the page inside a slice of length n
func (p PaginationParams) Window(n int) (int, int) {
	start := p.Offset
	if start < 0 || start > n {
		start = n
	}
	end := start + p.PageSize
	if end < start || end > n {
		end = n
	}
	return start, end
}
