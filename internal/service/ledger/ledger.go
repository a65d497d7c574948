package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/KotFed0t/trading_game_bot/config"
	"github.com/KotFed0t/trading_game_bot/data/store"
	"github.com/KotFed0t/trading_game_bot/internal/model"
	"github.com/KotFed0t/trading_game_bot/internal/service"
	"github.com/KotFed0t/trading_game_bot/utils"
	"github.com/shopspring/decimal"
)

// Ledger applies balance and holdings changes. Every operation runs as one
// critical section of the user's account lock: checks happen before any
// mutation, so a failed operation leaves the account untouched.
type Ledger struct {
	accounts        *store.Keyed[model.Account]
	startingBalance decimal.Decimal
	historyLimit    int
	now             func() time.Time
}

func New(cfg *config.Config, st *store.Store) *Ledger {
	return &Ledger{
		accounts:        st.Accounts,
		startingBalance: cfg.Game.StartingBalance,
		historyLimit:    cfg.Game.TradeHistoryLimit,
		now:             time.Now,
	}
}

func (l *Ledger) EnsureAccount(ctx context.Context, user string) error {
	if user == "" {
		return service.ErrEmptyUser
	}
	return l.accounts.Update(user, func(*model.Account) error { return nil })
}

func (l *Ledger) Exists(user string) bool {
	return l.accounts.Exists(user)
}

func (l *Ledger) Buy(ctx context.Context, user, symbol string, quantity int64, unitPrice decimal.Decimal) (model.TradeResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Ledger.Buy"

	if err := validateTrade(user, symbol, quantity, unitPrice); err != nil {
		return model.TradeResult{}, err
	}

	cost := unitPrice.Mul(decimal.NewFromInt(quantity))

	var res model.TradeResult
	err := l.accounts.Update(user, func(acc *model.Account) error {
		if cost.GreaterThan(acc.Balance) {
			return fmt.Errorf("%w: required %s, available %s", service.ErrInsufficientFunds, cost.StringFixed(2), acc.Balance.StringFixed(2))
		}
		if acc.Holdings[symbol] > math.MaxInt64-quantity {
			return fmt.Errorf("%w: holding of %s would overflow", service.ErrInvalidTrade, symbol)
		}

		acc.Balance = acc.Balance.Sub(cost)
		acc.Holdings[symbol] += quantity
		l.record(acc, model.SideBuy, symbol, quantity, unitPrice, cost)

		res = model.TradeResult{
			Side:     model.SideBuy,
			Symbol:   symbol,
			Quantity: quantity,
			Price:    unitPrice,
			Balance:  acc.Balance,
			Holding:  acc.Holdings[symbol],
		}
		return nil
	})
	if err != nil {
		slog.Warn("buy rejected", slog.String("rqID", rqID), slog.String("op", op), slog.String("user", user), slog.String("err", err.Error()))
		return model.TradeResult{}, err
	}

	slog.Info("buy executed", slog.String("rqID", rqID), slog.String("op", op), slog.String("user", user), slog.String("symbol", symbol), slog.Int64("quantity", quantity), slog.String("price", unitPrice.String()))

	return res, nil
}

func (l *Ledger) Sell(ctx context.Context, user, symbol string, quantity int64, unitPrice decimal.Decimal) (model.TradeResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Ledger.Sell"

	if err := validateTrade(user, symbol, quantity, unitPrice); err != nil {
		return model.TradeResult{}, err
	}

	income := unitPrice.Mul(decimal.NewFromInt(quantity))

	var res model.TradeResult
	err := l.accounts.Update(user, func(acc *model.Account) error {
		held := acc.Holdings[symbol]
		if held < quantity {
			return fmt.Errorf("%w: requested %d %s, held %d", service.ErrInsufficientHoldings, quantity, symbol, held)
		}

		remaining := held - quantity
		if remaining == 0 {
			delete(acc.Holdings, symbol)
		} else {
			acc.Holdings[symbol] = remaining
		}
		acc.Balance = acc.Balance.Add(income)
		l.record(acc, model.SideSell, symbol, quantity, unitPrice, income)

		res = model.TradeResult{
			Side:     model.SideSell,
			Symbol:   symbol,
			Quantity: quantity,
			Price:    unitPrice,
			Balance:  acc.Balance,
			Holding:  remaining,
		}
		return nil
	})
	if err != nil {
		slog.Warn("sell rejected", slog.String("rqID", rqID), slog.String("op", op), slog.String("user", user), slog.String("err", err.Error()))
		return model.TradeResult{}, err
	}

	slog.Info("sell executed", slog.String("rqID", rqID), slog.String("op", op), slog.String("user", user), slog.String("symbol", symbol), slog.Int64("quantity", quantity), slog.String("price", unitPrice.String()))

	return res, nil
}

// Reset restores the starting balance and clears holdings and trade history.
func (l *Ledger) Reset(ctx context.Context, user string) error {
	if user == "" {
		return service.ErrEmptyUser
	}

	slog.Info("reset account", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("op", "Ledger.Reset"), slog.String("user", user))

	return l.accounts.Update(user, func(acc *model.Account) error {
		*acc = model.Account{Balance: l.startingBalance, Holdings: make(map[string]int64)}
		return nil
	})
}

// Snapshot returns a copy of the account. Unknown users get a default account
// which is not stored.
func (l *Ledger) Snapshot(user string) model.Account {
	var snap model.Account
	ok := l.accounts.View(user, func(acc model.Account) {
		snap = acc.Clone()
	})
	if !ok {
		return model.Account{Balance: l.startingBalance, Holdings: make(map[string]int64), Trades: []model.Trade{}}
	}
	return snap
}

func (l *Ledger) History(user string) []model.Trade {
	return l.Snapshot(user).Trades
}

func (l *Ledger) record(acc *model.Account, side model.Side, symbol string, quantity int64, price, total decimal.Decimal) {
	if l.historyLimit <= 0 {
		return
	}

	acc.Trades = append(acc.Trades, model.Trade{
		Side:         side,
		Symbol:       symbol,
		Quantity:     quantity,
		Price:        price,
		Total:        total,
		BalanceAfter: acc.Balance,
		At:           l.now(),
	})
	if over := len(acc.Trades) - l.historyLimit; over > 0 {
		acc.Trades = append([]model.Trade(nil), acc.Trades[over:]...)
	}
}

func validateTrade(user, symbol string, quantity int64, unitPrice decimal.Decimal) error {
	switch {
	case user == "":
		return service.ErrEmptyUser
	case symbol == "":
		return fmt.Errorf("%w: empty symbol", service.ErrInvalidTrade)
	case quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive, got %d", service.ErrInvalidTrade, quantity)
	case !unitPrice.IsPositive():
		return fmt.Errorf("%w: price must be positive, got %s", service.ErrInvalidTrade, unitPrice)
	}
	return nil
}
