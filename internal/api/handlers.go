package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aurex/exchange/internal/auth"
	"github.com/aurex/exchange/internal/cache"
	"github.com/aurex/exchange/internal/ledger"
	"github.com/aurex/exchange/internal/market"
	"github.com/aurex/exchange/internal/models"
)

type ctxKey int

const sessionIDKey ctxKey = 0

// Handler contains dependencies for HTTP handlers
type Handler struct {
	Ledger *ledger.Service
	Auth   *auth.AuthService
	Feed   *market.Feed
	Cache  *cache.MarketCache
	Logger *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(svc *ledger.Service, authService *auth.AuthService, feed *market.Feed, mc *cache.MarketCache, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Ledger: svc, Auth: authService, Feed: feed, Cache: mc, Logger: logger}
}

// Register handles signup: validation errors come back before the
// simulated latency, success creates a zero-balance session.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
		Phone           string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	acct, token, err := h.Auth.Register(opContext(r), ledger.SignupParams{
		Email:    req.Email,
		Password: req.Password,
		Confirm:  req.ConfirmPassword,
		Phone:    req.Phone,
	})
	if err != nil {
		jsonError(w, err.Error(), errStatus(err))
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]interface{}{
		"token":   token,
		"account": acct,
	})
}

// Login handles login: any non-empty credentials sign in with the demo
// balance.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	acct, token, err := h.Auth.Login(opContext(r), req.Email, req.Password)
	if err != nil {
		jsonError(w, err.Error(), errStatus(err))
		return
	}

	writeJSON(w, map[string]interface{}{
		"token":   token,
		"account": acct,
	})
}

// Logout discards the session and everything it owns.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	h.Ledger.Logout(id)
	writeJSON(w, map[string]string{"message": "Signed out"})
}

// JWTAuthMiddleware verifies JWT tokens and resolves the session id
func (h *Handler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			jsonError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		// Remove "Bearer " prefix if present
		if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
			tokenString = tokenString[7:]
		}

		id, err := h.Auth.SessionFromToken(tokenString)
		if err != nil {
			jsonError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Deposit credits the cash balance.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := h.Ledger.Deposit(opContext(r), id, req.Amount)
	if err != nil {
		jsonError(w, err.Error(), errStatus(err))
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, tx)
}

// Withdraw debits the cash balance toward a destination address.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Amount  float64 `json:"amount"`
		Symbol  string  `json:"symbol"`
		Address string  `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := h.Ledger.Withdraw(opContext(r), id, req.Amount, req.Symbol, req.Address)
	if err != nil {
		jsonError(w, err.Error(), errStatus(err))
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, tx)
}

// Trade executes a simulated buy or sell at the current quote price.
func (h *Handler) Trade(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Symbol string  `json:"symbol"`
		Side   string  `json:"side"`
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	side, ok := models.ParseTradeSide(req.Side)
	if !ok {
		jsonError(w, "Side must be 'buy' or 'sell'", http.StatusBadRequest)
		return
	}

	tx, err := h.Ledger.Trade(opContext(r), id, req.Symbol, side, req.Amount)
	if err != nil {
		jsonError(w, err.Error(), errStatus(err))
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, tx)
}

// GetAccount returns the session's account with its current balance.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	acct, err := h.Ledger.Account(id)
	if err != nil {
		jsonError(w, err.Error(), errStatus(err))
		return
	}
	writeJSON(w, acct)
}

// GetTransactions returns the session's log, newest first.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	txs, err := h.Ledger.Transactions(id)
	if err != nil {
		jsonError(w, err.Error(), errStatus(err))
		return
	}
	writeJSON(w, txs)
}

// GetPortfolio returns derived per-token positions at current prices.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	holdings, err := h.Ledger.Portfolio(id)
	if err != nil {
		jsonError(w, err.Error(), errStatus(err))
		return
	}

	var total float64
	for _, hd := range holdings {
		total += hd.Value
	}
	writeJSON(w, map[string]interface{}{
		"holdings": holdings,
		"value":    total,
	})
}

// GetMarket returns the full quote list, served from the snapshot cache
// between ticks.
func (h *Handler) GetMarket(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.Cache != nil {
		if b, ok := h.Cache.Snapshot(); ok {
			w.Write(b)
			return
		}
	}

	b, err := json.Marshal(h.Feed.Snapshot())
	if err != nil {
		jsonError(w, "Failed to encode market data", http.StatusInternalServerError)
		return
	}
	if h.Cache != nil {
		h.Cache.SetSnapshot(b)
	}
	w.Write(b)
}

// GetQuote returns one symbol's quote.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	quote, ok := h.Feed.Quote(symbol)
	if !ok {
		jsonError(w, "Unknown symbol", http.StatusNotFound)
		return
	}
	writeJSON(w, quote)
}

// opContext detaches the operation from the request's cancellation.
// An in-flight operation settles even if the client drops the connection
// mid-wait; the simulated latency is fire-and-forget.
func opContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func sessionID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(sessionIDKey).(uuid.UUID)
	return id, ok
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrUnknownSymbol):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrEmptyCredentials),
		errors.Is(err, ledger.ErrPasswordMismatch),
		errors.Is(err, ledger.ErrInvalidPhone),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrMissingDestination):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
