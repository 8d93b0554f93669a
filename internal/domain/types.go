package domain

// Roles known to the auth layer.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Pagination carries paging params and totals.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

// Offset returns the row offset for the current page (pages start at 1).
func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// TotalPages rounds Total up to whole pages.
func (p Pagination) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// RequestContext carries authenticated user info when available.
type RequestContext struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the caller holds the admin role.
func (r RequestContext) IsAdmin() bool {
	return r.Role == RoleAdmin
}

// Anonymous reports whether no user is attached to the request.
func (r RequestContext) Anonymous() bool {
	return r.UserID == ""
}
