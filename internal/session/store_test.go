package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurex/exchange/internal/models"
	"github.com/google/uuid"
)

func TestStore_CreateGetDelete(t *testing.T) {
	st := NewStore()

	acct := st.Create("demo@aurex.io", "hash", 10000)
	assert.NotEqual(t, uuid.Nil, acct.ID)
	assert.Equal(t, float64(10000), acct.Balance)
	assert.NotNil(t, acct.Transactions)
	assert.Equal(t, 1, st.Len())

	got, err := st.Get(acct.ID)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)

	st.Delete(acct.ID)
	assert.Equal(t, 0, st.Len())

	_, err = st.Get(acct.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting twice is a no-op.
	st.Delete(acct.ID)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	st := NewStore()
	acct := st.Create("demo@aurex.io", "hash", 100)

	got, err := st.Get(acct.ID)
	require.NoError(t, err)
	got.Balance = 0
	got.Transactions = append(got.Transactions, models.Transaction{ID: uuid.New()})

	fresh, err := st.Get(acct.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(100), fresh.Balance)
	assert.Empty(t, fresh.Transactions)
}

func TestStore_Apply(t *testing.T) {
	st := NewStore()
	acct := st.Create("demo@aurex.io", "hash", 100)

	err := st.Apply(acct.ID, func(a *models.Account) error {
		a.Balance += 50
		a.Transactions = append(a.Transactions, models.Transaction{ID: uuid.New()})
		return nil
	})
	require.NoError(t, err)

	got, err := st.Get(acct.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(150), got.Balance)
	assert.Len(t, got.Transactions, 1)
}

func TestStore_ApplyErrorLeavesAccountAlone(t *testing.T) {
	st := NewStore()
	acct := st.Create("demo@aurex.io", "hash", 100)
	boom := errors.New("rejected")

	err := st.Apply(acct.ID, func(a *models.Account) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = st.Apply(uuid.New(), func(a *models.Account) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestStore_ConcurrentApply exercises the lock: concurrent mutations must
// all land, none lost.
func TestStore_ConcurrentApply(t *testing.T) {
	st := NewStore()
	acct := st.Create("demo@aurex.io", "hash", 0)

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = st.Apply(acct.ID, func(a *models.Account) error {
				a.Balance++
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := st.Get(acct.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(n), got.Balance)
}
