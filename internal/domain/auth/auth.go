package auth

import "errors"

var (
	ErrUnauthorized     = errors.New("auth: not allowed")
	ErrNotAssignedAgent = errors.New("auth: actor is not the assigned delivery agent")
)

// Principal is the authenticated caller. Credentials are verified upstream;
// the lifecycle core trusts these flags as-is.
type Principal struct {
	UserID        int64
	Admin         bool
	DeliveryAgent bool
}

// CanActFor reports whether the principal may operate on resources owned by
// the given user.
func (p Principal) CanActFor(userID int64) bool {
	return p.Admin || p.UserID == userID
}
