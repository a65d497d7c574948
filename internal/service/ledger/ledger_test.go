package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/KotFed0t/trading_game_bot/config"
	"github.com/KotFed0t/trading_game_bot/data/store"
	"github.com/KotFed0t/trading_game_bot/internal/service"
	"github.com/KotFed0t/trading_game_bot/internal/service/ledger"
	"github.com/shopspring/decimal"
)

func newLedger(t *testing.T, startingBalance string) *ledger.Ledger {
	t.Helper()
	cfg := &config.Config{}
	cfg.Game.StartingBalance = decimal.RequireFromString(startingBalance)
	cfg.Game.TradeHistoryLimit = 10
	return ledger.New(cfg, store.New(cfg))
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuyThenSellScenario(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, "10000")

	res, err := l.Buy(ctx, "alice", "AAPL", 10, price("150.00"))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !res.Balance.Equal(price("8500")) {
		t.Fatalf("expected balance 8500, got %s", res.Balance)
	}
	if res.Holding != 10 {
		t.Fatalf("expected holding 10, got %d", res.Holding)
	}

	res, err = l.Sell(ctx, "alice", "AAPL", 10, price("160.00"))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !res.Balance.Equal(price("10100")) {
		t.Fatalf("expected balance 10100, got %s", res.Balance)
	}
	if res.Holding != 0 {
		t.Fatalf("expected holding 0, got %d", res.Holding)
	}

	acc := l.Snapshot("alice")
	if _, ok := acc.Holdings["AAPL"]; ok {
		t.Fatalf("expected AAPL to be removed from holdings, got %v", acc.Holdings)
	}
	if len(acc.Trades) != 2 {
		t.Fatalf("expected 2 trades in history, got %d", len(acc.Trades))
	}
}

func TestBuyInsufficientFundsLeavesAccountUnchanged(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, "100")

	if err := l.EnsureAccount(ctx, "bob"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	before := l.Snapshot("bob")

	_, err := l.Buy(ctx, "bob", "XYZ", 10, price("50.00"))
	if !errors.Is(err, service.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	after := l.Snapshot("bob")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("expected account unchanged, before %+v after %+v", before, after)
	}
	if !after.Balance.Equal(price("100")) {
		t.Fatalf("expected balance 100, got %s", after.Balance)
	}
}

func TestSellMoreThanHeldLeavesAccountUnchanged(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, "10000")

	if _, err := l.Buy(ctx, "carol", "MSFT", 3, price("100")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	before := l.Snapshot("carol")

	_, err := l.Sell(ctx, "carol", "MSFT", 4, price("100"))
	if !errors.Is(err, service.ErrInsufficientHoldings) {
		t.Fatalf("expected ErrInsufficientHoldings, got %v", err)
	}
	_, err = l.Sell(ctx, "carol", "TSLA", 1, price("100"))
	if !errors.Is(err, service.ErrInsufficientHoldings) {
		t.Fatalf("expected ErrInsufficientHoldings for unheld symbol, got %v", err)
	}

	if after := l.Snapshot("carol"); !reflect.DeepEqual(before, after) {
		t.Fatalf("expected account unchanged, before %+v after %+v", before, after)
	}
}

func TestBuyRejectsHoldingOverflow(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, "10000")

	if _, err := l.Buy(ctx, "penny", "PENNY", math.MaxInt64, price("0.000000000000000000000001")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	before := l.Snapshot("penny")

	_, err := l.Buy(ctx, "penny", "PENNY", 2, price("0.000000000000000000000001"))
	if !errors.Is(err, service.ErrInvalidTrade) {
		t.Fatalf("expected ErrInvalidTrade, got %v", err)
	}

	after := l.Snapshot("penny")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("expected account unchanged, before %+v after %+v", before, after)
	}
	if after.Holdings["PENNY"] != math.MaxInt64 {
		t.Fatalf("expected holding %d, got %d", int64(math.MaxInt64), after.Holdings["PENNY"])
	}
}

func TestRoundTripRestoresAccount(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, "10000")

	if _, err := l.Buy(ctx, "dave", "IBM", 2, price("12.34")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	before := l.Snapshot("dave")

	if _, err := l.Buy(ctx, "dave", "AAPL", 7, price("187.31")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if _, err := l.Sell(ctx, "dave", "AAPL", 7, price("187.31")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	after := l.Snapshot("dave")
	if !after.Balance.Equal(before.Balance) {
		t.Fatalf("expected balance %s, got %s", before.Balance, after.Balance)
	}
	if !reflect.DeepEqual(before.Holdings, after.Holdings) {
		t.Fatalf("expected holdings %v, got %v", before.Holdings, after.Holdings)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, "10000")

	if _, err := l.Buy(ctx, "erin", "AAPL", 5, price("99.5")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if err := l.Reset(ctx, "erin"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	acc := l.Snapshot("erin")
	if !acc.Balance.Equal(price("10000")) {
		t.Fatalf("expected balance 10000, got %s", acc.Balance)
	}
	if len(acc.Holdings) != 0 || len(acc.Trades) != 0 {
		t.Fatalf("expected empty holdings and history, got %v %v", acc.Holdings, acc.Trades)
	}

	if err := l.Reset(ctx, "never-seen"); err != nil {
		t.Fatalf("expected reset of unknown user to succeed, got %v", err)
	}
	if !l.Exists("never-seen") {
		t.Fatal("expected reset to create the account")
	}
}

func TestInvalidTrades(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, "10000")

	cases := []struct {
		name     string
		user     string
		symbol   string
		quantity int64
		price    decimal.Decimal
		want     error
	}{
		{"empty user", "", "AAPL", 1, price("1"), service.ErrEmptyUser},
		{"empty symbol", "frank", "", 1, price("1"), service.ErrInvalidTrade},
		{"zero quantity", "frank", "AAPL", 0, price("1"), service.ErrInvalidTrade},
		{"negative quantity", "frank", "AAPL", -3, price("1"), service.ErrInvalidTrade},
		{"zero price", "frank", "AAPL", 1, decimal.Zero, service.ErrInvalidTrade},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := l.Buy(ctx, tc.user, tc.symbol, tc.quantity, tc.price); !errors.Is(err, tc.want) {
				t.Fatalf("buy: expected %v, got %v", tc.want, err)
			}
			if _, err := l.Sell(ctx, tc.user, tc.symbol, tc.quantity, tc.price); !errors.Is(err, tc.want) {
				t.Fatalf("sell: expected %v, got %v", tc.want, err)
			}
		})
	}

	if l.Exists("frank") {
		t.Fatal("expected invalid trades not to create an account")
	}
}

func TestSnapshotDoesNotCreateOrAlias(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, "10000")

	acc := l.Snapshot("ghost")
	if !acc.Balance.Equal(price("10000")) {
		t.Fatalf("expected default balance, got %s", acc.Balance)
	}
	if l.Exists("ghost") {
		t.Fatal("expected snapshot not to create the account")
	}

	if _, err := l.Buy(ctx, "henry", "AAPL", 1, price("10")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	snap := l.Snapshot("henry")
	snap.Holdings["AAPL"] = 1000

	if got := l.Snapshot("henry").Holdings["AAPL"]; got != 1 {
		t.Fatalf("expected stored holding 1, got %d", got)
	}
}

func TestTradeHistoryIsCapped(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, "10000")

	for i := 0; i < 15; i++ {
		if _, err := l.Buy(ctx, "ivy", "AAPL", 1, price("1")); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	}

	history := l.History("ivy")
	if len(history) != 10 {
		t.Fatalf("expected 10 trades, got %d", len(history))
	}
	if !history[len(history)-1].BalanceAfter.Equal(price("9985")) {
		t.Fatalf("expected last balance 9985, got %s", history[len(history)-1].BalanceAfter)
	}
}

func TestConcurrentBuysNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, "1000")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Buy(ctx, "jack", "AAPL", 1, price("100")); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	acc := l.Snapshot("jack")
	if accepted != 10 {
		t.Fatalf("expected 10 accepted buys, got %d", accepted)
	}
	if acc.Balance.IsNegative() {
		t.Fatalf("expected non-negative balance, got %s", acc.Balance)
	}
	if acc.Holdings["AAPL"] != 10 {
		t.Fatalf("expected 10 shares, got %d", acc.Holdings["AAPL"])
	}
}

func TestConcurrentUsersAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, "10000")

	var wg sync.WaitGroup
	for u := 0; u < 8; u++ {
		user := fmt.Sprintf("user-%d", u)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_, _ = l.Buy(ctx, user, "AAPL", 2, price("10"))
				_, _ = l.Sell(ctx, user, "AAPL", 1, price("10"))
			}
		}()
	}
	wg.Wait()

	for u := 0; u < 8; u++ {
		acc := l.Snapshot(fmt.Sprintf("user-%d", u))
		if acc.Holdings["AAPL"] != 20 {
			t.Fatalf("expected 20 shares, got %d", acc.Holdings["AAPL"])
		}
		if !acc.Balance.Equal(price("9800")) {
			t.Fatalf("expected balance 9800, got %s", acc.Balance)
		}
		for symbol, qty := range acc.Holdings {
			if qty <= 0 {
				t.Fatalf("expected positive holding for %s, got %d", symbol, qty)
			}
		}
	}
}
