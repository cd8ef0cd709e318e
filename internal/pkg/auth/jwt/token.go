package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// AccessExpiration defines the lifetime of the access token issued on sign-in.
	AccessExpiration = 24 * time.Hour

	// TokenIssuer identifies the issuer of the token.
	TokenIssuer = "roomchat"
)

// GenerateToken creates and signs a new JWT Token string based on the provided Payload struct.
// It returns the token and the instant it expires.
func GenerateToken(payload *Payload, secretKey string, duration time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(duration)

	payload.StandardClaims = jwt.StandardClaims{
		ExpiresAt: expiresAt.Unix(),
		IssuedAt:  now.Unix(),
		Issuer:    TokenIssuer,
		Subject:   payload.UserName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	signed, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, time.Unix(expiresAt.Unix(), 0), nil
}

// ParseToken parses and validates the JWT Token string using the provided secretKey.
func ParseToken(tokenString string, secretKey string) (*Payload, error) {
	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	if claims.UserName == "" {
		return nil, errors.New("token carries no user name")
	}

	return claims, nil
}

// ExpiresAtTime returns the expiry encoded in the payload.
func (p *Payload) ExpiresAtTime() time.Time {
	return time.Unix(p.ExpiresAt, 0)
}
