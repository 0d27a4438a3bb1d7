package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is the capability class of an authenticated actor. Identity and
// onboarding live in an external subsystem; the settlement service only ever
// sees an (actor id, role) pair carried in a signed token.
type Role string

const (
	RoleCollector Role = "collector"
	RoleVendor    Role = "vendor"
	RoleFactory   Role = "factory"
	RoleAdmin     Role = "admin"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrForbidden    = errors.New("actor role does not permit this operation")
)

// Actor is the authenticated caller attached to each request.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Claims carries the actor identity inside the JWT.
type Claims struct {
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Service mints and parses actor tokens.
type Service struct {
	secretKey []byte
	ttl       time.Duration
}

func NewService(secretKey string, ttl time.Duration) *Service {
	return &Service{secretKey: []byte(secretKey), ttl: ttl}
}

// Mint issues a signed token for the given actor.
func (s *Service) Mint(actor Actor) (string, error) {
	claims := Claims{
		ActorID: actor.ID.String(),
		Role:    string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// Parse validates a token string and returns the actor it identifies.
func (s *Service) Parse(tokenString string) (Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return Actor{}, ErrInvalidToken
	}
	actorID, err := uuid.Parse(claims.ActorID)
	if err != nil {
		return Actor{}, ErrInvalidToken
	}
	return Actor{ID: actorID, Role: Role(claims.Role)}, nil
}
