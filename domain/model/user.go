package model

import "github.com/golang-jwt/jwt"

// UserClaims is the JWT payload for API callers. Issuer carries the user
// id; everything else is standard.
type UserClaims struct {
	UserName string `json:"user_name"`
	jwt.StandardClaims
}
