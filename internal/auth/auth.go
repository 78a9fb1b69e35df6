package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/fluxaudio/fluxaudio/internal/apperr"
)

const RoleAdmin = "admin"

// Identity is the verified caller extracted from a bearer token.
type Identity struct {
	SubjectID string
	Username  string
	Role      string
}

func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

type claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// SignToken issues an HS256 token with sub/username/role claims.
func SignToken(subjectID, username, role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// VerifyToken validates a token and returns the caller identity.
// Expired and malformed tokens both map to ErrAuth.
func VerifyToken(token, secret string) (Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token", apperr.ErrAuth)
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", apperr.ErrAuth)
	}
	return Identity{SubjectID: c.Subject, Username: c.Username, Role: c.Role}, nil
}
