package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultIssuer = "geocard"

// playerClaims is the claim set of a player token. The subject is the
// player id.
type playerClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// JWTResolver issues and verifies HMAC-signed player tokens.
type JWTResolver struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTResolver returns a resolver for tokens signed with secret.
func NewJWTResolver(secret, issuer string) (*JWTResolver, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &JWTResolver{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Issue mints a token for id valid for ttl.
func (r *JWTResolver) Issue(id Identity, ttl time.Duration) (string, error) {
	if id.PlayerID == "" {
		return "", errors.New("player id is required")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}
	now := r.now()
	claims := playerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    r.issuer,
			Subject:   id.PlayerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name: id.DisplayName,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign player token: %w", err)
	}
	return signed, nil
}

// ResolvePlayer verifies token and returns the identity it carries.
func (r *JWTResolver) ResolvePlayer(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, fmt.Errorf("%w: token is required", ErrUnauthorized)
	}

	var parsed playerClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(r.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil {
		return Identity{}, mapJWTError(err)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}

	name := parsed.Name
	if name == "" {
		name = parsed.Subject
	}
	return Identity{PlayerID: parsed.Subject, DisplayName: name}, nil
}

// mapJWTError translates jwt library errors to ErrUnauthorized.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: token is expired", ErrUnauthorized)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: token signature is invalid", ErrUnauthorized)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: token issuer mismatch", ErrUnauthorized)
	default:
		return fmt.Errorf("%w: token is invalid", ErrUnauthorized)
	}
}
