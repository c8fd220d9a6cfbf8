package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/constants"
)

// PaginationParams holds the pagination parameters
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// NewPaginationParams normalises page and limit: page is at least 1, a missing or
// non-positive limit becomes the default and larger limits are clamped to the maximum.
func NewPaginationParams(page, limit int) PaginationParams {
	if page < constants.MinPage {
		page = constants.MinPage
	}
	if limit < 1 {
		limit = constants.DefaultPageSize
	}
	if limit > constants.MaxPageSize {
		limit = constants.MaxPageSize
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// GetPaginationParams extracts and validates pagination parameters from the request
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(constants.MinPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultPageSize)))

	return NewPaginationParams(page, limit)
}
