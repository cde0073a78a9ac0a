package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// AdminScope is the only scope the catalog accepts for write routes.
const AdminScope = "catalog:write"

// TokenClaims represents the claims in a catalog admin JWT
type TokenClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}
