package auth

// Known OAuth scopes used by the analytics service.
const (
	ScopeProductivityWrite = "productivity:write"
	ScopeProductivityRead  = "productivity:read"
	ScopeDashboardRead     = "dashboard:read"
)
