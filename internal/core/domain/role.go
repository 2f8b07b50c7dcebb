package domain

import "fmt"

// Role is a closed set of role identifiers. Using a dedicated type (rather
// than raw strings at call sites) keeps comparisons and matrix lookups from
// drifting apart across the codebase.
type Role string

const (
	// Organization hierarchy, strictly ordered.
	RoleSuperAdmin Role = "super_admin"
	RoleOrgAdmin   Role = "org_admin"
	RoleOrgManager Role = "org_manager"
	RoleOrgMember  Role = "org_member"

	// Flat subscription tiers. They carry their own permission sets but do
	// not participate in the organization hierarchy ordering.
	RoleEnterprise Role = "enterprise"
	RolePro        Role = "pro"
	RoleUser       Role = "user"
	RoleFree       Role = "free"
)

// Permission is a (resource, action) pair, e.g. {users, write}.
type Permission struct {
	Resource string
	Action   string
}

func (p Permission) String() string {
	return p.Resource + ":" + p.Action
}

// Perm is shorthand for constructing a Permission.
func Perm(resource, action string) Permission {
	return Permission{Resource: resource, Action: action}
}

// Well-known permissions referenced by endpoint policies.
var (
	PermUsersRead    = Perm("users", "read")
	PermUsersWrite   = Perm("users", "write")
	PermUsersDelete  = Perm("users", "delete")
	PermOrgsRead     = Perm("organizations", "read")
	PermOrgsWrite    = Perm("organizations", "write")
	PermOrgsDelete   = Perm("organizations", "delete")
	PermAPIKeysRead  = Perm("api_keys", "read")
	PermAPIKeysWrite = Perm("api_keys", "write")
	PermAuditRead    = Perm("audit_logs", "read")
	PermReportsRead  = Perm("reports", "read")
	PermReportsWrite = Perm("reports", "write")
)

// roleLevels orders the organization hierarchy. Flat tiers all sit at level
// zero and are compared by permission set only.
var roleLevels = map[Role]int{
	RoleSuperAdmin: 4,
	RoleOrgAdmin:   3,
	RoleOrgManager: 2,
	RoleOrgMember:  1,
	RoleEnterprise: 0,
	RolePro:        0,
	RoleUser:       0,
	RoleFree:       0,
}

// permissionMatrix is the single source of truth for what each role may do.
// Hierarchy rows are built by accumulation so a higher role always includes
// everything granted below it.
var permissionMatrix = buildMatrix()

func buildMatrix() map[Role]map[Permission]struct{} {
	m := make(map[Role]map[Permission]struct{}, len(roleLevels))

	grant := func(role Role, perms ...Permission) {
		set, ok := m[role]
		if !ok {
			set = make(map[Permission]struct{})
			m[role] = set
		}
		for _, p := range perms {
			set[p] = struct{}{}
		}
	}
	inherit := func(child, parent Role) {
		for p := range m[parent] {
			grant(child, p)
		}
	}

	// Hierarchy, bottom up.
	grant(RoleOrgMember, PermUsersRead, PermReportsRead, PermAPIKeysRead)
	inherit(RoleOrgManager, RoleOrgMember)
	grant(RoleOrgManager, PermAPIKeysWrite, PermReportsWrite)
	inherit(RoleOrgAdmin, RoleOrgManager)
	grant(RoleOrgAdmin, PermUsersWrite, PermOrgsRead, PermOrgsWrite, PermAuditRead)
	inherit(RoleSuperAdmin, RoleOrgAdmin)
	grant(RoleSuperAdmin, PermUsersDelete, PermOrgsDelete)

	// Flat tiers.
	grant(RoleFree, PermReportsRead)
	grant(RoleUser, PermReportsRead, PermAPIKeysRead)
	grant(RolePro, PermReportsRead, PermReportsWrite, PermAPIKeysRead, PermAPIKeysWrite)
	grant(RoleEnterprise, PermReportsRead, PermReportsWrite, PermAPIKeysRead, PermAPIKeysWrite, PermUsersRead)

	// super_admin must cover the flat tiers as well.
	for _, tier := range []Role{RoleEnterprise, RolePro, RoleUser, RoleFree} {
		for p := range m[tier] {
			grant(RoleSuperAdmin, p)
		}
	}

	return m
}

// ParseRole validates a stored role string against the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleLevels[r]; !ok {
		return "", fmt.Errorf("%w: unknown role %q", ErrUnknownRole, s)
	}
	return r, nil
}

// IsValid reports whether r belongs to the closed role set.
func (r Role) IsValid() bool {
	_, ok := roleLevels[r]
	return ok
}

// RoleLevel returns the hierarchy level of a role. Flat tiers and unknown
// roles return zero.
func RoleLevel(r Role) int {
	return roleLevels[r]
}

// HasPermission reports whether the role's matrix row contains the
// permission. Unknown roles hold nothing.
func HasPermission(r Role, p Permission) bool {
	_, ok := permissionMatrix[r][p]
	return ok
}

// SatisfiesRoles reports whether r is one of allowed, or outranks one of
// them within the organization hierarchy.
func SatisfiesRoles(r Role, allowed []Role) bool {
	level := RoleLevel(r)
	for _, a := range allowed {
		if r == a {
			return true
		}
		if level > 0 && RoleLevel(a) > 0 && level >= RoleLevel(a) {
			return true
		}
	}
	return false
}

// Permissions returns a copy of the role's matrix row.
func Permissions(r Role) []Permission {
	row := permissionMatrix[r]
	out := make([]Permission, 0, len(row))
	for p := range row {
		out = append(out, p)
	}
	return out
}

// ValidateMatrix asserts the static invariants of the permission matrix.
// It is called once at startup and must hard-fail the process on violation:
//   - every declared role has a matrix row,
//   - permissions grow monotonically up the organization hierarchy,
//   - super_admin holds a superset of every other role's permissions.
func ValidateMatrix() error {
	for role := range roleLevels {
		if _, ok := permissionMatrix[role]; !ok {
			return fmt.Errorf("permission matrix: role %q has no row", role)
		}
	}

	hierarchy := []Role{RoleOrgMember, RoleOrgManager, RoleOrgAdmin, RoleSuperAdmin}
	for i := 1; i < len(hierarchy); i++ {
		lower, higher := hierarchy[i-1], hierarchy[i]
		for p := range permissionMatrix[lower] {
			if !HasPermission(higher, p) {
				return fmt.Errorf("permission matrix: %q is missing %q granted to lower role %q", higher, p, lower)
			}
		}
	}

	for role, row := range permissionMatrix {
		if role == RoleSuperAdmin {
			continue
		}
		for p := range row {
			if !HasPermission(RoleSuperAdmin, p) {
				return fmt.Errorf("permission matrix: super_admin is missing %q held by %q", p, role)
			}
		}
	}
	return nil
}
