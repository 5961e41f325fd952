package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurex/exchange/internal/ledger"
	"github.com/aurex/exchange/internal/market"
	"github.com/aurex/exchange/internal/session"
)

func newTestAuth(secret string, ttl time.Duration) *AuthService {
	store := session.NewStore()
	feed := market.NewFeed()
	svc := ledger.NewService(store, feed, ledger.Latencies{}, 0, nil)
	return NewAuthService(svc, secret, ttl)
}

func TestLogin_TokenRoundTrip(t *testing.T) {
	s := newTestAuth("test-secret", time.Hour)

	acct, token, err := s.Login(context.Background(), "demo@aurex.io", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := s.SessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, id)
}

func TestRegister_ValidationPassesThrough(t *testing.T) {
	s := newTestAuth("test-secret", time.Hour)

	_, _, err := s.Register(context.Background(), ledger.SignupParams{
		Email: "new@aurex.io", Password: "a", Confirm: "b", Phone: "5551234567",
	})
	assert.ErrorIs(t, err, ledger.ErrPasswordMismatch)

	_, token, err := s.Register(context.Background(), ledger.SignupParams{
		Email: "new@aurex.io", Password: "secret12", Confirm: "secret12", Phone: "5551234567",
	})
	require.NoError(t, err)

	id, err := s.SessionFromToken(token)
	require.NoError(t, err)

	acct, err := s.Ledger.Account(id)
	require.NoError(t, err)
	assert.Equal(t, float64(0), acct.Balance)
}

func TestSessionFromToken_Invalid(t *testing.T) {
	s := newTestAuth("test-secret", time.Hour)

	_, err := s.SessionFromToken("not-a-token")
	assert.Error(t, err)
}

func TestSessionFromToken_WrongSecret(t *testing.T) {
	issuer := newTestAuth("secret-one", time.Hour)
	verifier := newTestAuth("secret-two", time.Hour)

	_, token, err := issuer.Login(context.Background(), "demo@aurex.io", "password123")
	require.NoError(t, err)

	_, err = verifier.SessionFromToken(token)
	assert.Error(t, err)
}

func TestSessionFromToken_Expired(t *testing.T) {
	s := newTestAuth("test-secret", -time.Minute)

	_, token, err := s.Login(context.Background(), "demo@aurex.io", "password123")
	require.NoError(t, err)

	_, err = s.SessionFromToken(token)
	assert.Error(t, err)
}

func TestSessionFromToken_MissingClaim(t *testing.T) {
	s := newTestAuth("test-secret", time.Hour)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = s.SessionFromToken(signed)
	assert.Error(t, err)
}

func TestSessionFromToken_TokenOutlivesSession(t *testing.T) {
	s := newTestAuth("test-secret", time.Hour)

	_, token, err := s.Login(context.Background(), "demo@aurex.io", "password123")
	require.NoError(t, err)

	id, err := s.SessionFromToken(token)
	require.NoError(t, err)
	s.Ledger.Logout(id)

	// The token still parses; the session behind it is simply gone.
	got, err := s.SessionFromToken(token)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, got)
	_, err = s.Ledger.Account(got)
	assert.ErrorIs(t, err, ledger.ErrNoSession)
}
