package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Quote holds simulated market data for one tracked symbol
type Quote struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
	Volume    float64 `json:"volume"`
	MarketCap float64 `json:"market_cap"`
}

// Account is the in-memory record of a signed-in demo user.
// It lives only for the duration of the session and is discarded on logout.
type Account struct {
	ID           uuid.UUID     `json:"id"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Balance      float64       `json:"balance"`
	Transactions []Transaction `json:"transactions"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Transaction records one ledger-affecting event. Immutable once appended.
type Transaction struct {
	ID        uuid.UUID `json:"id"`
	Kind      TxKind    `json:"type"`
	Token     string    `json:"token"` // asset symbol, or "USD" for cash movements
	Price     float64   `json:"price"` // unit price at execution time
	Quantity  float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
	Status    TxStatus  `json:"status"`
}

// TxKind is the closed set of transaction kinds.
type TxKind string

const (
	TxDeposit    TxKind = "deposit"
	TxWithdrawal TxKind = "withdrawal"
	TxBuy        TxKind = "buy"
	TxSell       TxKind = "sell"
)

func (k TxKind) String() string { return string(k) }

func (k TxKind) Valid() bool {
	switch k {
	case TxDeposit, TxWithdrawal, TxBuy, TxSell:
		return true
	default:
		return false
	}
}

// TradeSide is the direction of a trade.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

func (s TradeSide) String() string { return string(s) }

func ParseTradeSide(raw string) (TradeSide, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy":
		return SideBuy, true
	case "sell":
		return SideSell, true
	default:
		return "", false
	}
}

// Kind maps a trade side to its transaction kind.
func (s TradeSide) Kind() TxKind {
	if s == SideBuy {
		return TxBuy
	}
	return TxSell
}

// TxStatus is the settlement status of a transaction. The simulator settles
// everything as completed unless decline injection is enabled; pending exists
// in the model but is never produced by the current operations.
type TxStatus string

const (
	StatusCompleted TxStatus = "completed"
	StatusPending   TxStatus = "pending"
	StatusFailed    TxStatus = "failed"
)

func (s TxStatus) String() string { return string(s) }

// Holding is a derived per-token position, computed from the transaction log.
type Holding struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Value    float64 `json:"value"` // quantity at the current quote price
}
