package auth

import (
	"strings"

	"github.com/golang-jwt/jwt"

	"github.com/oakmund/eventbook/internal/domain"
)

// roleFromToken derives a role from JWT claims for backends whose user
// payload omits it. The token is decoded unverified: the server owns
// authentication, the client only reads what it was handed.
func roleFromToken(token string) domain.Role {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return domain.RoleUser
	}
	if role, ok := claims["role"].(string); ok && strings.EqualFold(role, string(domain.RoleAdmin)) {
		return domain.RoleAdmin
	}
	roles, ok := claims["roles"].([]any)
	if !ok {
		return domain.RoleUser
	}
	for _, r := range roles {
		entry, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := entry["role_name"].(string); ok && strings.EqualFold(name, string(domain.RoleAdmin)) {
			return domain.RoleAdmin
		}
	}
	return domain.RoleUser
}
