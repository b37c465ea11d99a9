package auth

import "fmt"

const RoleAdmin = "admin"

// Authorizer grants or denies access based on the role list carried in a
// configured namespaced claim. Pure function of claims and configuration;
// no I/O.
type Authorizer struct {
	rolesClaim string
}

func NewAuthorizer(rolesClaim string) *Authorizer {
	return &Authorizer{rolesClaim: rolesClaim}
}

// Roles returns the role list from the namespaced claim. An absent or
// malformed claim yields an empty list, not an error.
func (a *Authorizer) Roles(claims *Claims) []string {
	if claims == nil || claims.Custom == nil {
		return nil
	}
	raw, ok := claims.Custom[a.rolesClaim]
	if !ok {
		return nil
	}

	switch values := raw.(type) {
	case []string:
		return values
	case []any:
		roles := make([]string, 0, len(values))
		for _, value := range values {
			if role, ok := value.(string); ok {
				roles = append(roles, role)
			}
		}
		return roles
	default:
		return nil
	}
}

// RequireRole checks case-sensitive exact membership of role in the claim's
// role list and returns ErrForbidden on a miss.
func (a *Authorizer) RequireRole(claims *Claims, role string) error {
	for _, candidate := range a.Roles(claims) {
		if candidate == role {
			return nil
		}
	}
	return fmt.Errorf("%w: missing role %q", ErrForbidden, role)
}

func (a *Authorizer) IsAdmin(claims *Claims) bool {
	return a.RequireRole(claims, RoleAdmin) == nil
}
