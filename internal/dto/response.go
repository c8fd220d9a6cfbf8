package dto

// Response is the envelope every endpoint answers with.
type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Errors     interface{} `json:"errors,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	// Error carries the raw internal error text outside production.
	Error string `json:"error,omitempty"`
}

// Pagination represents the pagination metadata in list responses
type Pagination struct {
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// NewPagination computes page metadata for total items split into pages of limit.
func NewPagination(total int64, page, limit int) *Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int(total) / limit
		if int(total)%limit > 0 {
			totalPages++
		}
	}

	return &Pagination{
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

func OK(data interface{}) Response {
	return Response{Success: true, Data: data}
}

func OKWithMessage(message string, data interface{}) Response {
	return Response{Success: true, Message: message, Data: data}
}
