package constants

const (
	ModerateListings = "moderate_listings"
	ManageUsers      = "manage_users"
	ManageCredits    = "manage_credits"
	ViewAdminData    = "view_admin_data"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ModerateListings: {Admin},
	ManageUsers:      {Admin},
	ManageCredits:    {Admin},
	ViewAdminData:    {Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
