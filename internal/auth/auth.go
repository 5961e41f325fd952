package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aurex/exchange/internal/ledger"
	"github.com/aurex/exchange/internal/models"
)

// AuthService signs users in through the ledger and binds the resulting
// session id to a JWT. Tokens outlive nothing: the session they point at
// is gone after logout or restart, and the token with it.
type AuthService struct {
	Ledger *ledger.Service
	secret []byte
	ttl    time.Duration
}

// NewAuthService creates a new auth service.
func NewAuthService(svc *ledger.Service, secret string, ttl time.Duration) *AuthService {
	return &AuthService{Ledger: svc, secret: []byte(secret), ttl: ttl}
}

// Register runs the signup operation and returns the new account with a
// signed token. Validation errors come back from the ledger before the
// simulated latency.
func (s *AuthService) Register(ctx context.Context, p ledger.SignupParams) (models.Account, string, error) {
	acct, err := s.Ledger.Signup(ctx, p)
	if err != nil {
		return models.Account{}, "", err
	}

	token, err := s.issue(acct.ID)
	if err != nil {
		return models.Account{}, "", err
	}
	return acct, token, nil
}

// Login runs the login operation and returns the demo account with a
// signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (models.Account, string, error) {
	acct, err := s.Ledger.Login(ctx, email, password)
	if err != nil {
		return models.Account{}, "", err
	}

	token, err := s.issue(acct.ID)
	if err != nil {
		return models.Account{}, "", err
	}
	return acct, token, nil
}

// SessionFromToken extracts the session id from a JWT.
func (s *AuthService) SessionFromToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token")
	}

	raw, ok := claims["session_id"].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("missing session claim")
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("malformed session claim: %w", err)
	}
	return id, nil
}

func (s *AuthService) issue(sessionID uuid.UUID) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"session_id": sessionID.String(),
		"exp":        time.Now().Add(s.ttl).Unix(),
	})
	return token.SignedString(s.secret)
}
