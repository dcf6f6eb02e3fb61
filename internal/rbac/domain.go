// Package rbac resolves role-based permissions for organization members.
// The resolver is pure and performs no I/O: the tenant middleware fetches
// the member's role once per request and supplies it in.
package rbac

// Role is the privilege level a user holds within one organization.
// A user may hold different roles in different organizations.
type Role string

const (
	// RoleLector has read-only access to reports.
	RoleLector Role = "lector"
	// RoleTesorero can post transactions.
	RoleTesorero Role = "tesorero"
	// RoleContador manages the chart of accounts and catalogs.
	RoleContador Role = "contador"
	// RoleAdmin manages users and everything below.
	RoleAdmin Role = "admin"
)

// Permission tags the guarded operations. The set is closed; adding a
// permission means adding a constant here and a row to minimumRole.
type Permission string

const (
	PermManageUsers      Permission = "manageUsers"
	PermManageCatalog    Permission = "manageCatalog"
	PermPostTransactions Permission = "postTransactions"
	PermViewReports      Permission = "viewReports"
)

// roleRank defines the total order lector < tesorero < contador < admin.
// Unknown roles rank below every known role so they deny everything.
var roleRank = map[Role]int{
	RoleLector:   1,
	RoleTesorero: 2,
	RoleContador: 3,
	RoleAdmin:    4,
}

var minimumRole = map[Permission]Role{
	PermManageUsers:      RoleAdmin,
	PermManageCatalog:    RoleContador,
	PermPostTransactions: RoleTesorero,
	PermViewReports:      RoleLector,
}

// Valid reports whether the role is one of the four known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// HasAtLeast reports whether role ranks at or above required in the role
// order. A missing or unknown role fails every check.
func HasAtLeast(role, required Role) bool {
	rank, ok := roleRank[role]
	if !ok {
		return false
	}
	requiredRank, ok := roleRank[required]
	if !ok {
		return false
	}
	return rank >= requiredRank
}

// Can reports whether the role grants the permission. Unknown permissions
// are denied.
func Can(role Role, perm Permission) bool {
	required, ok := minimumRole[perm]
	if !ok {
		return false
	}
	return HasAtLeast(role, required)
}
