// Package auth issues and verifies the JWT bearer tokens used by the API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the "role" claim.
const (
	RoleUser  = "user"
	RoleStaff = "staff"
)

// ErrInvalidToken is returned for tokens that fail parsing or verification.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims identifies the token holder.
type Claims struct {
	UserID string
	Phone  string
	Role   string
}

// IssueToken creates a signed HS256 JWT for c that expires after ttl.
func IssueToken(secret string, c Claims, ttl time.Duration) (string, error) {
	if c.UserID == "" {
		return "", fmt.Errorf("issue token: empty subject")
	}
	role := c.Role
	if role == "" {
		role = RoleUser
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   c.UserID,
		"phone": c.Phone,
		"role":  role,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies raw against secret and returns its claims.
func ParseToken(secret, raw string) (*Claims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	c := &Claims{}
	c.UserID, _ = mc["sub"].(string)
	c.Phone, _ = mc["phone"].(string)
	c.Role, _ = mc["role"].(string)
	if c.UserID == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}
