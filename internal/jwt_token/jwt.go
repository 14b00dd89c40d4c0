package jwttoken

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/platform/middleware/requesttime"
)

// ActorClaims are the claims carried by an actor token. The subject is the
// actor ID; the role decides which verification operations the actor may
// perform.
type ActorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ActorTokenService mints and validates HS256 actor tokens.
type ActorTokenService struct {
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
}

func NewActorTokenService(signingKey, issuer string, tokenTTL time.Duration) *ActorTokenService {
	return &ActorTokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		tokenTTL:   tokenTTL,
	}
}

// Issue signs a token for the actor. Issued-at comes from the request time
// in ctx so tests can mint already-expired tokens.
func (s *ActorTokenService) Issue(ctx context.Context, actorID id.ActorID, role string) (string, error) {
	if actorID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "actor ID cannot be empty")
	}
	role = strings.TrimSpace(role)
	if role == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}

	now := requesttime.Now(ctx)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ActorClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

func (s *ActorTokenService) ValidateToken(tokenString string) (*ActorClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &ActorClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*ActorClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no subject")
	}
	return claims, nil
}
