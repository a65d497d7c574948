package telebotConverter

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/KotFed0t/trading_game_bot/internal/model"
	"github.com/KotFed0t/trading_game_bot/internal/service"
	"github.com/shopspring/decimal"
)

func TestRenderTrade(t *testing.T) {
	reply := model.Reply{
		Kind: model.ReplyTrade,
		Trade: &model.TradeResult{
			Side:     model.SideBuy,
			Symbol:   "AAPL",
			Quantity: 10,
			Price:    decimal.NewFromInt(150),
			Balance:  decimal.NewFromInt(8500),
		},
	}

	text, markdown := Render(reply)
	want := "✅ Bought 10 of AAPL at $150.00 each. 🛒 New balance: $8500.00."
	if text != want || markdown {
		t.Fatalf("expected %q without markdown, got %q (markdown=%v)", want, text, markdown)
	}

	reply.Trade.Side = model.SideSell
	reply.Trade.Balance = decimal.NewFromInt(10100)
	text, _ = Render(reply)
	want = "✅ Sold 10 of AAPL at $150.00 each. New balance: $10100.00."
	if text != want {
		t.Fatalf("expected %q, got %q", want, text)
	}
}

func TestRenderQuoteWithSeries(t *testing.T) {
	at := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	reply := model.Reply{
		Kind:  model.ReplyQuote,
		Quote: &model.Quote{Symbol: "AAPL", Price: decimal.RequireFromString("150.5")},
		Series: []model.PricePoint{
			{Time: at, Price: decimal.NewFromInt(149)},
			{Time: at.Add(time.Minute), Price: decimal.NewFromInt(152)},
			{Time: at.Add(2 * time.Minute), Price: decimal.NewFromInt(148)},
			{Time: at.Add(3 * time.Minute), Price: decimal.RequireFromString("150.5")},
		},
	}

	text, _ := Render(reply)
	if !strings.HasPrefix(text, "The current price of AAPL is $150.50.") {
		t.Fatalf("unexpected quote text %q", text)
	}
	if !strings.Contains(text, "low $148.00, high $152.00") {
		t.Fatalf("expected series range in %q", text)
	}
}

func TestRenderPortfolio(t *testing.T) {
	reply := model.Reply{
		Kind: model.ReplyPortfolio,
		Portfolio: &model.PortfolioReport{
			Balance: decimal.NewFromInt(8500),
			Positions: []model.Position{
				{Symbol: "BRK_B", Quantity: 10, Price: decimal.NewFromInt(160), Value: decimal.NewFromInt(1600)},
			},
			Skipped: []string{"GONE"},
			Total:   decimal.NewFromInt(10100),
		},
	}

	text, markdown := Render(reply)
	if !markdown {
		t.Fatal("expected markdown portfolio")
	}
	for _, want := range []string{
		"BRK\\_B: 10 shares at $160.00 each. Total value: $1600.00",
		"GONE: price unavailable",
		"Total Portfolio Value: $10100.00",
		"Available Balance: $8500.00",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in %q", want, text)
		}
	}
}

func TestErrorText(t *testing.T) {
	tests := []struct {
		name   string
		intent model.Intent
		err    error
		want   string
	}{
		{"unknown symbol", model.IntentBuy, fmt.Errorf("%w: FOO", service.ErrUnknownSymbol), "Invalid stock symbol. ❌"},
		{"oracle down", model.IntentCheckPrice, service.ErrOracleUnavailable, "Invalid stock symbol. ❌"},
		{"funds", model.IntentBuy, service.ErrInsufficientFunds, "Insufficient balance to complete the purchase. 💸"},
		{"holdings", model.IntentSell, service.ErrInsufficientHoldings, "You do not have enough stock to sell. 💸"},
		{"empty portfolio", 0, service.ErrEmptyPortfolio, "Your portfolio is empty. 💸"},
		{"price usage", model.IntentCheckPrice, service.ErrUsage, "Usage: /price SYMBOL"},
		{"buy usage", model.IntentBuy, service.ErrUsage, "Usage: /buy SYMBOL AMOUNT"},
		{"unexpected", 0, fmt.Errorf("boom"), internalErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorText(tt.intent, tt.err); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRenderSurrendered(t *testing.T) {
	text, _ := Render(model.Reply{Kind: model.ReplySurrendered})
	if text != "You do not have a portfolio to surrender." {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestMenu(t *testing.T) {
	markup := Menu()
	if len(markup.InlineKeyboard) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(markup.InlineKeyboard))
	}
	if got := markup.InlineKeyboard[0][0].Unique; got != "buy" {
		t.Fatalf("expected buy callback, got %q", got)
	}
}
