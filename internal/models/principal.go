package models

// Role is the staff role carried by an acting principal. Students and alumni act with RoleNone.
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleModerator Role = "Moderator"
	RoleNone      Role = ""
)

// SystemActorID identifies automatic transitions such as sweeps in the audit log.
const SystemActorID = "system"

// Valid reports whether r is a staff role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleModerator
}

// Principal is the acting identity passed explicitly into every operation.
type Principal struct {
	ID          string      `json:"id"`
	Role        Role        `json:"role,omitempty"`
	AccountType AccountType `json:"accountType"`
}

// SystemPrincipal acts for scheduled sweeps.
func SystemPrincipal() Principal {
	return Principal{ID: SystemActorID, Role: RoleAdmin, AccountType: AccountTypeStaff}
}

// IsStaff reports whether the principal carries a staff role.
func (p Principal) IsStaff() bool {
	return p.Role.Valid()
}

// IsAdmin reports whether the principal is an Admin.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Owns reports whether the principal is the owner of the given account.
func (p Principal) Owns(accountType AccountType, id string) bool {
	return p.ID != "" && p.ID == id && p.AccountType == accountType
}
