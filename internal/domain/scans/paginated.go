package scans

// PaginatedResult represents a paginated response with data and metadata
type PaginatedResult struct {
	Data       []ScanResult `json:"data"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	Total      int64        `json:"totalItems"`
	TotalPages int          `json:"totalPages"`
}

// NewPaginatedResult slices items for the given page. page starts at 1.
func NewPaginatedResult(items []ScanResult, page, pageSize int) PaginatedResult {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	total := len(items)
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}

	// Compare page numbers before multiplying so huge pages cannot overflow.
	start := total
	if page-1 < totalPages {
		start = (page - 1) * pageSize
	}
	end := total
	if pageSize < total-start {
		end = start + pageSize
	}

	data := make([]ScanResult, end-start)
	copy(data, items[start:end])
	return PaginatedResult{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      int64(total),
		TotalPages: totalPages,
	}
}
