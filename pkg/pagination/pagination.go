package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// PageSize is fixed for every dashboard listing.
const PageSize = 25

// Page describes one resolved page of a result set. Number is always within
// [1, TotalPages]: requests beyond the end clamp to the last page.
type Page struct {
	Number     int
	TotalPages int
	TotalItems int
}

// PageNumberFromContext reads the "page" query parameter. Missing or invalid
// values resolve to page 1.
func PageNumberFromContext(c echo.Context) int {
	n, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Resolve clamps a requested page number against the total item count.
func Resolve(requested, totalItems int) Page {
	totalPages := (totalItems + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if requested < 1 {
		requested = 1
	}
	if requested > totalPages {
		requested = totalPages
	}
	return Page{Number: requested, TotalPages: totalPages, TotalItems: totalItems}
}

// Offset returns the SQL offset for this page.
func (p Page) Offset() int {
	return (p.Number - 1) * PageSize
}

// HasNext reports whether a page follows this one.
func (p Page) HasNext() bool {
	return p.Number < p.TotalPages
}

// HasPrevious reports whether a page precedes this one.
func (p Page) HasPrevious() bool {
	return p.Number > 1
}

// Response wraps a paginated API response.
type Response struct {
	Data        interface{} `json:"data"`
	Page        int         `json:"page"`
	TotalPages  int         `json:"total_pages"`
	TotalItems  int         `json:"total_items"`
	HasNext     bool        `json:"has_next"`
	HasPrevious bool        `json:"has_previous"`
}

func NewResponse(data interface{}, p Page) *Response {
	return &Response{
		Data:        data,
		Page:        p.Number,
		TotalPages:  p.TotalPages,
		TotalItems:  p.TotalItems,
		HasNext:     p.HasNext(),
		HasPrevious: p.HasPrevious(),
	}
}
