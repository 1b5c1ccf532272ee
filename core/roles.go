package core

// Roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleStaff   = "staff" // hostel, HR, reception, transport
	RoleAdmin   = "admin"
)

var AllRoles = []string{RoleStudent, RoleTeacher, RoleStaff, RoleAdmin}

func IsKnownRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// NormalizeRole lowers and trims `role`. Unknown roles are returned as-is so callers can fall back to defaults.
func NormalizeRole(role string) string {
	return CleanString(role, true /* lower */)
}
