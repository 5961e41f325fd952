package session

import (
	"errors"
	"sync"
	"time"

	"github.com/aurex/exchange/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no session exists for the given id.
var ErrNotFound = errors.New("session not found")

// Store keeps all live demo accounts in memory, keyed by session id.
// Nothing is persisted: a deleted session and its transactions are gone,
// and a process restart starts from an empty store.
type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*models.Account
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{accounts: make(map[uuid.UUID]*models.Account)}
}

// Create registers a new account and returns a copy of it.
func (st *Store) Create(email, passwordHash string, balance float64) models.Account {
	acct := &models.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Balance:      balance,
		Transactions: []models.Transaction{},
		CreatedAt:    time.Now().UTC(),
	}

	st.mu.Lock()
	st.accounts[acct.ID] = acct
	st.mu.Unlock()

	return snapshot(acct)
}

// Get returns a copy of the account for the given session id.
func (st *Store) Get(id uuid.UUID) (models.Account, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	acct, ok := st.accounts[id]
	if !ok {
		return models.Account{}, ErrNotFound
	}
	return snapshot(acct), nil
}

// Apply runs fn against the live account under the store lock. All balance
// and transaction-log mutations are funneled through here, so a check made
// inside fn cannot be invalidated by a concurrent operation. If fn returns
// an error the account is left untouched by convention: fn must not mutate
// before its checks pass.
func (st *Store) Apply(id uuid.UUID, fn func(acct *models.Account) error) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	acct, ok := st.accounts[id]
	if !ok {
		return ErrNotFound
	}
	return fn(acct)
}

// Delete discards the session and every transaction it owns.
func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	delete(st.accounts, id)
	st.mu.Unlock()
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.accounts)
}

func snapshot(acct *models.Account) models.Account {
	out := *acct
	out.Transactions = make([]models.Transaction, len(acct.Transactions))
	copy(out.Transactions, acct.Transactions)
	return out
}
