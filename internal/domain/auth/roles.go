package auth

const (
	RoleViewer      = "Viewer"
	RoleManager     = "Manager"
	RoleHR          = "HR"
	RoleSystemAdmin = "SystemAdmin"
)

const UserStatusActive = "active"

// UserContext is the authenticated caller extracted from a bearer token.
type UserContext struct {
	UserID   string
	TenantID string
	RoleID   string
	RoleName string
}
