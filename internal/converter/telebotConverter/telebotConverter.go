package telebotConverter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KotFed0t/trading_game_bot/internal/model"
	"github.com/KotFed0t/trading_game_bot/internal/model/tg/tgCallback"
	"github.com/KotFed0t/trading_game_bot/internal/service"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

const (
	ChooseText   = "Please choose:"
	internalErr  = "Something went wrong, please try again later."
	seriesFormat = "15:04"
)

const welcomeText = "🎉 *Welcome to the Trading Game!* 🎉\n\n" +
	"Use the following commands to play:\n" +
	"/buy `SYMBOL AMOUNT` - Buy stocks\n" +
	"/sell `SYMBOL AMOUNT` - Sell stocks\n" +
	"/portfolio - View your portfolio\n" +
	"/price `SYMBOL` - Get the price of a stock\n" +
	"/export - Get your statement as a spreadsheet\n" +
	"/surrender - Reset your portfolio\n\n" +
	"💼 Start trading and grow your wealth! 💰"

// Buttons of the main menu. Handlers are registered on them by unique.
var (
	menu = &tele.ReplyMarkup{}

	BtnBuy       = menu.Data("🛒 Buy Stocks", tgCallback.Buy)
	BtnSell      = menu.Data("💰 Sell Stocks", tgCallback.Sell)
	BtnPortfolio = menu.Data("📈 View Portfolio", tgCallback.Portfolio)
	BtnPrice     = menu.Data("🔍 Check Price", tgCallback.Price)
	BtnSurrender = menu.Data("🏳️ Surrender", tgCallback.Surrender)
	BtnExport    = menu.Data("📄 Export", tgCallback.Export)
)

func Menu() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(BtnBuy, BtnSell),
		markup.Row(BtnPortfolio, BtnPrice),
		markup.Row(BtnSurrender, BtnExport),
	)
	return markup
}

// Render turns a reply into message text. Markdown reports whether the text
// must be sent in Markdown mode.
func Render(reply model.Reply) (text string, markdown bool) {
	switch reply.Kind {
	case model.ReplyWelcome:
		return welcomeText, true
	case model.ReplyChooseCommand:
		return ChooseText, false
	case model.ReplyPromptSymbol:
		return promptSymbol(reply.Intent), false
	case model.ReplyPromptAmount:
		return "Enter the amount:", false
	case model.ReplyQuote:
		return quoteText(reply.Quote, reply.Series), false
	case model.ReplyTrade:
		return tradeText(reply.Trade), false
	case model.ReplyPortfolio:
		return PortfolioText(reply.Portfolio), true
	case model.ReplySurrendered:
		if reply.HadAccount {
			return "You have surrendered. Your portfolio is now empty, and your balance has been reset. 😞", false
		}
		return "You do not have a portfolio to surrender.", false
	case model.ReplyStatement:
		if reply.Statement != nil && reply.Statement.Link != "" {
			return fmt.Sprintf("📄 Your statement is too large to send here, download it: %s", reply.Statement.Link), false
		}
		return "📄 Your statement", false
	case model.ReplyError:
		return ErrorText(reply.Intent, reply.Err), false
	default:
		return internalErr, false
	}
}

func promptSymbol(intent model.Intent) string {
	switch intent {
	case model.IntentBuy:
		return "Enter the symbol for buying:"
	case model.IntentSell:
		return "Enter the symbol for selling:"
	default:
		return "Enter the stock symbol to check price:"
	}
}

func quoteText(quote *model.Quote, series []model.PricePoint) string {
	if quote == nil {
		return internalErr
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("The current price of %s is $%s.", quote.Symbol, quote.Price.StringFixed(2)))

	if len(series) > 1 {
		low, high := series[0].Price, series[0].Price
		for _, p := range series[1:] {
			low = decimal.Min(low, p.Price)
			high = decimal.Max(high, p.Price)
		}
		first, last := series[0], series[len(series)-1]
		sb.WriteString(fmt.Sprintf(
			"\n\n📊 %s–%s: open $%s, low $%s, high $%s, last $%s",
			first.Time.Format(seriesFormat),
			last.Time.Format(seriesFormat),
			first.Price.StringFixed(2),
			low.StringFixed(2),
			high.StringFixed(2),
			last.Price.StringFixed(2),
		))
	}

	return sb.String()
}

func tradeText(res *model.TradeResult) string {
	if res == nil {
		return internalErr
	}

	if res.Side == model.SideSell {
		return fmt.Sprintf("✅ Sold %d of %s at $%s each. New balance: $%s.",
			res.Quantity, res.Symbol, res.Price.StringFixed(2), res.Balance.StringFixed(2))
	}
	return fmt.Sprintf("✅ Bought %d of %s at $%s each. 🛒 New balance: $%s.",
		res.Quantity, res.Symbol, res.Price.StringFixed(2), res.Balance.StringFixed(2))
}

func PortfolioText(report *model.PortfolioReport) string {
	if report == nil {
		return internalErr
	}

	var sb strings.Builder
	sb.WriteString("📈 *Your Portfolio:* 📈\n\n")

	for _, p := range report.Positions {
		sb.WriteString(fmt.Sprintf("%s: %d shares at $%s each. Total value: $%s\n",
			escapeMarkdown(p.Symbol), p.Quantity, p.Price.StringFixed(2), p.Value.StringFixed(2)))
	}
	for _, symbol := range report.Skipped {
		sb.WriteString(fmt.Sprintf("%s: price unavailable\n", escapeMarkdown(symbol)))
	}

	sb.WriteString(fmt.Sprintf("\n💼 *Total Portfolio Value: $%s*\n💰 *Available Balance: $%s*",
		report.Total.StringFixed(2), report.Balance.StringFixed(2)))

	return sb.String()
}

// ErrorText maps service errors to user messages. Unknown errors get a
// generic text so internals never leak to the chat.
func ErrorText(intent model.Intent, err error) string {
	switch {
	case errors.Is(err, service.ErrUnknownSymbol), errors.Is(err, service.ErrOracleUnavailable):
		return "Invalid stock symbol. ❌"
	case errors.Is(err, service.ErrInsufficientFunds):
		return "Insufficient balance to complete the purchase. 💸"
	case errors.Is(err, service.ErrInsufficientHoldings):
		return "You do not have enough stock to sell. 💸"
	case errors.Is(err, service.ErrMalformedQuantity):
		return "Invalid amount format. Please enter a positive whole number. ❌"
	case errors.Is(err, service.ErrInvalidTrade):
		return "Invalid trade. ❌"
	case errors.Is(err, service.ErrEmptyPortfolio):
		return "Your portfolio is empty. 💸"
	case errors.Is(err, service.ErrEmptyUser):
		return "Can't identify you, please try again from a private chat."
	case errors.Is(err, service.ErrStatementTooLarge):
		return "Your statement is too large to send. 📄"
	case errors.Is(err, service.ErrUsage):
		switch intent {
		case model.IntentBuy:
			return "Usage: /buy SYMBOL AMOUNT"
		case model.IntentSell:
			return "Usage: /sell SYMBOL AMOUNT"
		default:
			return "Usage: /price SYMBOL"
		}
	default:
		return internalErr
	}
}

var markdownReplacer = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownReplacer.Replace(s)
}
