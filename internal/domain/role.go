package domain

// Role names assigned to tenant accounts. Roles are a fixed set; there is no
// per-tenant role table.
const (
	RoleAdmin      = "admin"
	RoleTeacher    = "teacher"
	RoleStudent    = "student"
	RoleParent     = "parent"
	RoleAccountant = "accountant"
)

// Roles lists every assignable role name.
var Roles = []string{RoleAdmin, RoleTeacher, RoleStudent, RoleParent, RoleAccountant}

// ValidRole reports whether name is an assignable role.
func ValidRole(name string) bool {
	for _, r := range Roles {
		if r == name {
			return true
		}
	}
	return false
}
