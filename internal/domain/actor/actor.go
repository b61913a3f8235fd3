package actor

// Role represents the acting party's role.
type Role string

const (
	RoleCustomer  Role = "CUSTOMER"
	RoleTransport Role = "TRANSPORT"
	RoleManager   Role = "MANAGER"
	RoleSystem    Role = "SYSTEM"
)

// Actor identifies who issued a command. Identity management is external;
// the core only consumes the authenticated identity and role.
type Actor struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// System is the actor attributed to background sweeps.
var System = Actor{UserID: "system", Role: RoleSystem}

func (a Actor) IsManager() bool {
	return a.Role == RoleManager
}

func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem
}

// SameParty reports whether two actors act for the same negotiating side.
// Negotiation alternation is tracked per side, not per individual user.
func (a Actor) SameParty(role Role) bool {
	return a.Role == role
}
