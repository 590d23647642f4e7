package shared

import "math"

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"current"`
	PerPage    int `json:"per_page"`
	Count      int `json:"count"`
	Total      int `json:"total_records"`
	TotalPages int `json:"total"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, count, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Count: count, Total: total, TotalPages: totalPages}
}
