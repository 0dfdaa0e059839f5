package constants

// Guesthouse permissions
const (
	// Admin permissions
	PermAdminFull = "guesthouse.admin.full-permit"

	// Special permissions
	PermAny = "any"
)

// Permission groups for convenience
var (
	AdminPermissions = []string{
		PermAdminFull,
	}
)
