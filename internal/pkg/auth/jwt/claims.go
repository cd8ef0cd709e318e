package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims issued to chat users.
type Payload struct {
	// StandardClaims embeds exp, iat, iss and sub at the top level of the token.
	jwt.StandardClaims

	// UserName is the stable account identity the token was issued for.
	UserName string `json:"userName"`
}
