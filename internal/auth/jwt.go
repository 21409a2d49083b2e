package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type StaffRole string

const (
	RoleOwner   StaffRole = "OWNER"
	RoleManager StaffRole = "MANAGER"
	RoleCashier StaffRole = "CASHIER"
)

type Claims struct {
	UserID string    `json:"userId"`
	Role   StaffRole `json:"role"`
	Name   *string   `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ActorID is the numeric staff id recorded on payments and audit rows.
func (c *Claims) ActorID() int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(c.UserID), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func ParseBearerToken(authHeader string) string {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func VerifyAccessToken(tokenString string, secret string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token required")
	}

	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, errors.New("token expired")
	}
	if claims.ActorID() == 0 || !claims.Role.Valid() {
		return nil, errors.New("invalid staff claims")
	}
	return claims, nil
}

// SignAccessToken issues an HS256 staff token. Used by the staff login
// gateway and by tests.
func SignAccessToken(userID string, role StaffRole, secret string, ttl time.Duration) (string, error) {
	if !role.Valid() {
		return "", errors.New("invalid role")
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
