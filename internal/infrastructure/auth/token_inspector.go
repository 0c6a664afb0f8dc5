package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/namhsc/tvtl-sub000/domain"
)

// JWTInspector implements domain.TokenInspector by reading the exp claim
// out of the access token. The client holds no signing secret, so the
// token is decoded without signature verification; it is only used for
// local expiry bookkeeping, never as proof of authenticity.
type JWTInspector struct {
	parser *jwt.Parser
}

// NewJWTInspector creates a new JWT inspector
func NewJWTInspector() domain.TokenInspector {
	return &JWTInspector{parser: jwt.NewParser()}
}

// ExpiresAt implements domain.TokenInspector
func (j *JWTInspector) ExpiresAt(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := j.parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, domain.ErrTokenMalformed
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, domain.ErrTokenMalformed
	}

	return exp.Time, nil
}
