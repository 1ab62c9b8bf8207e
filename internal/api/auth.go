package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// defaultTokenTTL is used by GenerateToken when ttl is not positive.
const defaultTokenTTL = 24 * time.Hour

// Token errors.
var (
	// ErrTokenMissing is returned when a protected request carries no token.
	ErrTokenMissing = errors.New("api: token missing")

	// ErrTokenInvalid is returned for a token that fails signature, method
	// or expiry checks.
	ErrTokenInvalid = errors.New("api: token invalid")
)

// Claims are the claims of a local API token.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for subject.
//
// Parameters:
//   - secret: the api.jwt_secret value
//   - subject: who the token identifies (a UI client name)
//   - ttl: lifetime; zero or negative means 24h
func GenerateToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: empty secret", ErrTokenInvalid)
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken validates an HS256 token and returns its claims.
func ParseToken(tokenString, secret string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// tokenFromRequest reads the bearer token from the Authorization header, or
// from the "token" query parameter for WebSocket clients.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// authMiddleware validates bearer tokens on protected routes. With no
// configured secret every request passes.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.JWTSecret == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := ParseToken(tokenFromRequest(r), s.cfg.JWTSecret)
		if err != nil {
			s.logger.Debug("request rejected", "path", r.URL.Path, "error", err)
			if errors.Is(err, ErrTokenMissing) {
				writeUnauthorized(w, "bearer token required")
				return
			}
			writeUnauthorized(w, "invalid or expired token")
			return
		}
		ctx := withSubject(r.Context(), claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
