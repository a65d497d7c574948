package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Account is a user's cash balance and stock holdings.
// Holdings never contain zero or negative counts.
type Account struct {
	Balance  decimal.Decimal
	Holdings map[string]int64
	Trades   []Trade
}

// Clone returns a deep copy safe to hand out of a critical section.
func (a Account) Clone() Account {
	holdings := make(map[string]int64, len(a.Holdings))
	for symbol, qty := range a.Holdings {
		holdings[symbol] = qty
	}

	trades := make([]Trade, len(a.Trades))
	copy(trades, a.Trades)

	return Account{
		Balance:  a.Balance,
		Holdings: holdings,
		Trades:   trades,
	}
}

type Trade struct {
	Side         Side
	Symbol       string
	Quantity     int64
	Price        decimal.Decimal
	Total        decimal.Decimal
	BalanceAfter decimal.Decimal
	At           time.Time
}

type TradeResult struct {
	Side     Side
	Symbol   string
	Quantity int64
	Price    decimal.Decimal
	Balance  decimal.Decimal
	Holding  int64
}
