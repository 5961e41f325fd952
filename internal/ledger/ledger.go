// Package ledger implements the simulated ledger state machine: login,
// signup, logout, deposit, withdraw and trade against an in-memory session.
// Every operation validates synchronously, then waits a fixed simulated
// network latency, then applies its state transition and appends a
// transaction record. Nothing touches a real backend.
package ledger

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aurex/exchange/internal/market"
	"github.com/aurex/exchange/internal/models"
	"github.com/aurex/exchange/internal/session"
)

// DemoBalance is the cash balance seeded on login. Signup starts at zero.
const DemoBalance = 10000

// Validation errors, surfaced before the latency wait with no state change.
var (
	ErrEmptyCredentials    = errors.New("email and password are required")
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrInvalidPhone        = errors.New("phone number must be at least 7 characters")
	ErrNoSession           = errors.New("no active session")
	ErrInvalidAmount       = errors.New("amount must be a positive number")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrMissingDestination  = errors.New("destination address is required")
	ErrUnknownSymbol       = errors.New("unknown symbol")
)

// ErrDeclined is returned when decline injection fails an operation after
// its latency wait. The transaction is still recorded, with status failed
// and no balance effect.
var ErrDeclined = errors.New("operation declined")

// Latencies are the fixed simulated round-trip delays per operation.
type Latencies struct {
	Login    time.Duration
	Signup   time.Duration
	Deposit  time.Duration
	Withdraw time.Duration
	Trade    time.Duration
}

// Service owns session state transitions. Prices for trades are read from
// the feed exactly once, before the latency wait, so ticks that land during
// the wait never move an already-captured execution price.
type Service struct {
	store       *session.Store
	feed        *market.Feed
	lat         Latencies
	declineRate float64
	logger      *zap.Logger
}

// NewService creates the ledger service. With a declineRate of zero every
// operation settles as completed.
func NewService(store *session.Store, feed *market.Feed, lat Latencies, declineRate float64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, feed: feed, lat: lat, declineRate: declineRate, logger: logger}
}

// Login creates a session with the fixed demo balance and an empty log.
// There is no credential check against anything: the demo has no user
// database, so any non-empty email/password pair signs in.
func (s *Service) Login(ctx context.Context, email, password string) (models.Account, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return models.Account{}, ErrEmptyCredentials
	}

	if err := s.wait(ctx, s.lat.Login); err != nil {
		return models.Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Account{}, err
	}

	acct := s.store.Create(email, string(hash), DemoBalance)
	s.logger.Info("session created", zap.String("session_id", acct.ID.String()), zap.String("op", "login"))
	return acct, nil
}

// SignupParams carries the signup form fields.
type SignupParams struct {
	Email    string
	Password string
	Confirm  string
	Phone    string
}

// Signup creates a session with a zero balance after validating the form.
func (s *Service) Signup(ctx context.Context, p SignupParams) (models.Account, error) {
	if strings.TrimSpace(p.Email) == "" || p.Password == "" {
		return models.Account{}, ErrEmptyCredentials
	}
	if p.Password != p.Confirm {
		return models.Account{}, ErrPasswordMismatch
	}
	if len(strings.TrimSpace(p.Phone)) < 7 {
		return models.Account{}, ErrInvalidPhone
	}

	if err := s.wait(ctx, s.lat.Signup); err != nil {
		return models.Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.Account{}, err
	}

	acct := s.store.Create(p.Email, string(hash), 0)
	s.logger.Info("session created", zap.String("session_id", acct.ID.String()), zap.String("op", "signup"))
	return acct, nil
}

// Logout discards the session and all of its transactions. Synchronous,
// always succeeds, no latency.
func (s *Service) Logout(id uuid.UUID) {
	s.store.Delete(id)
	s.logger.Info("session destroyed", zap.String("session_id", id.String()))
}

// Deposit credits the cash balance and records a deposit transaction
// (token USD, unit price 1).
func (s *Service) Deposit(ctx context.Context, id uuid.UUID, amount float64) (models.Transaction, error) {
	if _, err := s.store.Get(id); err != nil {
		return models.Transaction{}, ErrNoSession
	}
	if !validAmount(amount) {
		return models.Transaction{}, ErrInvalidAmount
	}

	if err := s.wait(ctx, s.lat.Deposit); err != nil {
		return models.Transaction{}, err
	}

	tx := newTx(models.TxDeposit, "USD", 1, amount)
	return s.settle(id, tx, func(acct *models.Account) error {
		acct.Balance += amount
		return nil
	})
}

// Withdraw debits the cash balance and records a first-class withdrawal
// transaction. The destination symbol is decorative; the amount is cash.
func (s *Service) Withdraw(ctx context.Context, id uuid.UUID, amount float64, symbol, address string) (models.Transaction, error) {
	acct, err := s.store.Get(id)
	if err != nil {
		return models.Transaction{}, ErrNoSession
	}
	if !validAmount(amount) {
		return models.Transaction{}, ErrInvalidAmount
	}
	if strings.TrimSpace(address) == "" {
		return models.Transaction{}, ErrMissingDestination
	}
	if amount > acct.Balance {
		return models.Transaction{}, ErrInsufficientBalance
	}

	if err := s.wait(ctx, s.lat.Withdraw); err != nil {
		return models.Transaction{}, err
	}

	token := strings.TrimSpace(symbol)
	if token == "" {
		token = "USD"
	}

	tx := newTx(models.TxWithdrawal, token, 1, amount)
	return s.settle(id, tx, func(acct *models.Account) error {
		// Balance may have moved during the wait.
		if amount > acct.Balance {
			return ErrInsufficientBalance
		}
		acct.Balance = clamp(acct.Balance - amount)
		return nil
	})
}

// Trade executes a simulated buy or sell at the current quote price. The
// price is captured here, before the latency wait. Sells are never checked
// against holdings; buys must be covered by the cash balance.
func (s *Service) Trade(ctx context.Context, id uuid.UUID, symbol string, side models.TradeSide, qty float64) (models.Transaction, error) {
	acct, err := s.store.Get(id)
	if err != nil {
		return models.Transaction{}, ErrNoSession
	}
	if !validAmount(qty) {
		return models.Transaction{}, ErrInvalidAmount
	}
	quote, ok := s.feed.Quote(symbol)
	if !ok {
		return models.Transaction{}, ErrUnknownSymbol
	}

	price := quote.Price
	cost := qty * price
	if side == models.SideBuy && cost > acct.Balance {
		return models.Transaction{}, ErrInsufficientBalance
	}

	if err := s.wait(ctx, s.lat.Trade); err != nil {
		return models.Transaction{}, err
	}

	tx := newTx(side.Kind(), quote.Symbol, price, qty)
	return s.settle(id, tx, func(acct *models.Account) error {
		if side == models.SideBuy {
			if cost > acct.Balance {
				return ErrInsufficientBalance
			}
			acct.Balance = clamp(acct.Balance - cost)
		} else {
			acct.Balance += cost
		}
		return nil
	})
}

// Account returns a copy of the session's account.
func (s *Service) Account(id uuid.UUID) (models.Account, error) {
	acct, err := s.store.Get(id)
	if err != nil {
		return models.Account{}, ErrNoSession
	}
	return acct, nil
}

// Transactions returns the session's log, newest first. The log itself is
// append-only; ordering is reversed at read time.
func (s *Service) Transactions(id uuid.UUID) ([]models.Transaction, error) {
	acct, err := s.store.Get(id)
	if err != nil {
		return nil, ErrNoSession
	}

	out := make([]models.Transaction, len(acct.Transactions))
	for i, tx := range acct.Transactions {
		out[len(out)-1-i] = tx
	}
	return out, nil
}

// Portfolio derives net per-token positions from the completed buy/sell
// history, valued at current quote prices. Positions can go negative
// because sells are unchecked.
func (s *Service) Portfolio(id uuid.UUID) ([]models.Holding, error) {
	acct, err := s.store.Get(id)
	if err != nil {
		return nil, ErrNoSession
	}

	net := make(map[string]float64)
	var order []string
	for _, tx := range acct.Transactions {
		if tx.Status != models.StatusCompleted {
			continue
		}
		switch tx.Kind {
		case models.TxBuy:
			if _, seen := net[tx.Token]; !seen {
				order = append(order, tx.Token)
			}
			net[tx.Token] += tx.Quantity
		case models.TxSell:
			if _, seen := net[tx.Token]; !seen {
				order = append(order, tx.Token)
			}
			net[tx.Token] -= tx.Quantity
		}
	}

	holdings := make([]models.Holding, 0, len(order))
	for _, sym := range order {
		qty := net[sym]
		h := models.Holding{Symbol: sym, Quantity: qty}
		if quote, ok := s.feed.Quote(sym); ok {
			h.Value = qty * quote.Price
		}
		holdings = append(holdings, h)
	}
	return holdings, nil
}

// settle rolls decline injection, then applies the mutation and appends the
// transaction under the store lock. A declined or rejected operation still
// appends the record with status failed and leaves the balance untouched.
func (s *Service) settle(id uuid.UUID, tx models.Transaction, mutate func(acct *models.Account) error) (models.Transaction, error) {
	declined := s.declineRate > 0 && rand.Float64() < s.declineRate

	opErr := s.store.Apply(id, func(acct *models.Account) error {
		if declined {
			tx.Status = models.StatusFailed
			acct.Transactions = append(acct.Transactions, tx)
			return ErrDeclined
		}
		if err := mutate(acct); err != nil {
			return err
		}
		acct.Transactions = append(acct.Transactions, tx)
		return nil
	})

	if errors.Is(opErr, session.ErrNotFound) {
		return models.Transaction{}, ErrNoSession
	}
	if opErr != nil {
		s.logger.Warn("operation failed",
			zap.String("session_id", id.String()),
			zap.String("kind", tx.Kind.String()),
			zap.Error(opErr))
		if declined {
			// The failed record was still appended to the log.
			return tx, opErr
		}
		return models.Transaction{}, opErr
	}

	s.logger.Info("transaction settled",
		zap.String("session_id", id.String()),
		zap.String("tx_id", tx.ID.String()),
		zap.String("kind", tx.Kind.String()),
		zap.String("token", tx.Token),
		zap.Float64("price", tx.Price),
		zap.Float64("amount", tx.Quantity))
	return tx, nil
}

// wait blocks for the simulated latency or until the context is cancelled.
// A cancelled wait abandons the operation with no state change.
func (s *Service) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func newTx(kind models.TxKind, token string, price, qty float64) models.Transaction {
	return models.Transaction{
		ID:        uuid.New(),
		Kind:      kind,
		Token:     token,
		Price:     price,
		Quantity:  qty,
		Timestamp: time.Now().UTC(),
		Status:    models.StatusCompleted,
	}
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func clamp(balance float64) float64 {
	if balance < 0 {
		return 0
	}
	return balance
}
