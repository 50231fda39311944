package identity

// Identity is the caller as the rest of the system sees it: either an
// authenticated customer with a role, or an anonymous browser session.
type Identity struct {
	CustomerID   string
	Role         string
	SessionToken string
	Anonymous    bool
}

const RoleAdmin = "admin"

func (id Identity) IsAdmin() bool {
	return !id.Anonymous && id.Role == RoleAdmin
}

// Key is the cart/session scope: customer id when signed in, otherwise the
// anonymous session token.
func (id Identity) Key() string {
	if id.Anonymous {
		return id.SessionToken
	}
	return id.CustomerID
}
