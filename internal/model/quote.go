package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Quote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	AsOf   time.Time       `json:"as_of"`
}

type PricePoint struct {
	Time  time.Time
	Price decimal.Decimal
}

type Position struct {
	Symbol   string
	Quantity int64
	Price    decimal.Decimal
	Value    decimal.Decimal
}

// PortfolioReport values holdings at current prices. Symbols that could not be
// priced are listed in Skipped and left out of Total.
type PortfolioReport struct {
	Balance   decimal.Decimal
	Positions []Position
	Skipped   []string
	Total     decimal.Decimal
}

type Statement struct {
	FileName string
	Content  []byte
	Link     string
}
