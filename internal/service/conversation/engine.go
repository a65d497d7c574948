package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/KotFed0t/trading_game_bot/config"
	"github.com/KotFed0t/trading_game_bot/data/store"
	"github.com/KotFed0t/trading_game_bot/internal/model"
	"github.com/KotFed0t/trading_game_bot/internal/service"
	"github.com/KotFed0t/trading_game_bot/utils"
)

type TradingService interface {
	Start(ctx context.Context, user string) error
	Price(ctx context.Context, symbol string) (model.Quote, []model.PricePoint, error)
	Buy(ctx context.Context, user, symbol string, quantity int64) (model.TradeResult, error)
	Sell(ctx context.Context, user, symbol string, quantity int64) (model.TradeResult, error)
	Reset(ctx context.Context, user string) (hadAccount bool, err error)
	Portfolio(ctx context.Context, user string) (model.PortfolioReport, error)
	Statement(ctx context.Context, user string) (model.Statement, error)
}

// Engine drives each user's session through Idle, AwaitingSymbol and
// AwaitingAmount. Inputs of one user are handled one at a time; inputs of
// different users run in parallel.
type Engine struct {
	sessions   *store.Keyed[model.Session]
	trading    TradingService
	expiration time.Duration
	now        func() time.Time
}

func New(cfg *config.Config, st *store.Store, trading TradingService) *Engine {
	return &Engine{
		sessions:   st.Sessions,
		trading:    trading,
		expiration: cfg.SessionExpiration,
		now:        time.Now,
	}
}

func (e *Engine) Handle(ctx context.Context, user string, in model.Input) model.Reply {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Engine.Handle"

	if user == "" {
		return errorReply(0, service.ErrEmptyUser)
	}

	var reply model.Reply
	_ = e.sessions.Update(user, func(sess *model.Session) error {
		from := stateName(sess.State)
		reply = e.transition(ctx, user, sess, in)
		sess.UpdatedAt = e.now()

		slog.Debug(
			"session transition",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.String("user", user),
			slog.String("from", from),
			slog.String("to", stateName(sess.State)),
		)
		return nil
	})

	return reply
}

// State returns the user's current conversation state.
func (e *Engine) State(user string) model.State {
	var st model.State = model.Idle{}
	e.sessions.View(user, func(sess model.Session) {
		if sess.State != nil {
			st = sess.State
		}
	})
	return st
}

// ExpireSessions drops sessions untouched for longer than the configured
// expiration, discarding any half-collected input.
func (e *Engine) ExpireSessions(ctx context.Context) error {
	if e.expiration <= 0 {
		return nil
	}

	deadline := e.now().Add(-e.expiration)
	removed := e.sessions.DeleteIf(func(_ string, sess model.Session) bool {
		return sess.UpdatedAt.Before(deadline)
	})

	slog.Info("expired sessions", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.Int("removed", removed))

	return nil
}

func (e *Engine) transition(ctx context.Context, user string, sess *model.Session, in model.Input) model.Reply {
	switch in.Command {
	case model.CmdText:
		return e.handleText(ctx, user, sess, in.Text)
	case model.CmdStart:
		sess.State = model.Idle{}
		if err := e.trading.Start(ctx, user); err != nil {
			return errorReply(0, err)
		}
		return model.Reply{Kind: model.ReplyWelcome, ShowMenu: true}
	case model.CmdBuy:
		return e.beginTrade(ctx, user, sess, model.IntentBuy, in.Args)
	case model.CmdSell:
		return e.beginTrade(ctx, user, sess, model.IntentSell, in.Args)
	case model.CmdPrice:
		return e.beginPrice(ctx, sess, in)
	case model.CmdPortfolio:
		sess.State = model.Idle{}
		return e.portfolio(ctx, user)
	case model.CmdSurrender:
		sess.State = model.Idle{}
		hadAccount, err := e.trading.Reset(ctx, user)
		if err != nil {
			return errorReply(0, err)
		}
		return model.Reply{Kind: model.ReplySurrendered, HadAccount: hadAccount, ShowMenu: true}
	case model.CmdExport:
		sess.State = model.Idle{}
		statement, err := e.trading.Statement(ctx, user)
		if err != nil {
			return errorReply(0, err)
		}
		return model.Reply{Kind: model.ReplyStatement, Statement: &statement, ShowMenu: true}
	default:
		// CmdUnknown and anything unrouted
		sess.State = model.Idle{}
		return model.Reply{Kind: model.ReplyChooseCommand, ShowMenu: true}
	}
}

func (e *Engine) handleText(ctx context.Context, user string, sess *model.Session, text string) model.Reply {
	switch st := sess.State.(type) {
	case model.AwaitingSymbol:
		symbol := normalizeSymbol(text)
		if symbol == "" {
			return model.Reply{Kind: model.ReplyPromptSymbol, Intent: st.Intent}
		}
		sess.LastSymbol = symbol

		if st.Intent == model.IntentCheckPrice {
			sess.State = model.Idle{}
			return e.price(ctx, symbol)
		}

		sess.State = model.AwaitingAmount{Intent: st.Intent, Symbol: symbol}
		return model.Reply{Kind: model.ReplyPromptAmount, Intent: st.Intent}
	case model.AwaitingAmount:
		sess.State = model.Idle{}

		quantity, err := parseQuantity(text)
		if err != nil {
			return errorReply(st.Intent, err)
		}
		return e.trade(ctx, user, st.Intent, st.Symbol, quantity)
	case model.Idle, nil:
		sess.State = model.Idle{}
		return model.Reply{Kind: model.ReplyChooseCommand, ShowMenu: true}
	default:
		panic(fmt.Sprintf("unexpected session state %T", st))
	}
}

// beginTrade starts a buy or sell cycle. Arguments typed with the command
// fill the symbol and amount steps in order.
func (e *Engine) beginTrade(ctx context.Context, user string, sess *model.Session, intent model.Intent, args string) model.Reply {
	fields := strings.Fields(args)

	switch len(fields) {
	case 0:
		sess.State = model.AwaitingSymbol{Intent: intent}
		return model.Reply{Kind: model.ReplyPromptSymbol, Intent: intent}
	case 1:
		symbol := normalizeSymbol(fields[0])
		sess.LastSymbol = symbol
		sess.State = model.AwaitingAmount{Intent: intent, Symbol: symbol}
		return model.Reply{Kind: model.ReplyPromptAmount, Intent: intent}
	case 2:
		sess.State = model.Idle{}
		symbol := normalizeSymbol(fields[0])
		sess.LastSymbol = symbol

		quantity, err := parseQuantity(fields[1])
		if err != nil {
			return errorReply(intent, err)
		}
		return e.trade(ctx, user, intent, symbol, quantity)
	default:
		sess.State = model.Idle{}
		return errorReply(intent, fmt.Errorf("%w: too many arguments", service.ErrUsage))
	}
}

// beginPrice asks for a symbol when picked from the menu. A typed price
// command uses its argument, then the symbol being collected, then the last
// symbol the user entered.
func (e *Engine) beginPrice(ctx context.Context, sess *model.Session, in model.Input) model.Reply {
	fields := strings.Fields(in.Args)

	if in.FromMenu && len(fields) == 0 {
		sess.State = model.AwaitingSymbol{Intent: model.IntentCheckPrice}
		return model.Reply{Kind: model.ReplyPromptSymbol, Intent: model.IntentCheckPrice}
	}

	var symbol string
	switch {
	case len(fields) == 1:
		symbol = normalizeSymbol(fields[0])
	case len(fields) > 1:
		sess.State = model.Idle{}
		return errorReply(model.IntentCheckPrice, fmt.Errorf("%w: too many arguments", service.ErrUsage))
	default:
		if pending, ok := sess.State.(model.AwaitingAmount); ok {
			symbol = pending.Symbol
		} else {
			symbol = sess.LastSymbol
		}
	}

	sess.State = model.Idle{}
	if symbol == "" {
		return errorReply(model.IntentCheckPrice, fmt.Errorf("%w: no symbol given", service.ErrUsage))
	}
	sess.LastSymbol = symbol

	return e.price(ctx, symbol)
}

func (e *Engine) price(ctx context.Context, symbol string) model.Reply {
	quote, series, err := e.trading.Price(ctx, symbol)
	if err != nil {
		return errorReply(model.IntentCheckPrice, err)
	}
	return model.Reply{Kind: model.ReplyQuote, Intent: model.IntentCheckPrice, Quote: &quote, Series: series, ShowMenu: true}
}

func (e *Engine) trade(ctx context.Context, user string, intent model.Intent, symbol string, quantity int64) model.Reply {
	var (
		res model.TradeResult
		err error
	)

	switch intent {
	case model.IntentBuy:
		res, err = e.trading.Buy(ctx, user, symbol, quantity)
	case model.IntentSell:
		res, err = e.trading.Sell(ctx, user, symbol, quantity)
	default:
		panic(fmt.Sprintf("trade with intent %s", intent))
	}

	if err != nil {
		return errorReply(intent, err)
	}
	return model.Reply{Kind: model.ReplyTrade, Intent: intent, Trade: &res, ShowMenu: true}
}

func (e *Engine) portfolio(ctx context.Context, user string) model.Reply {
	report, err := e.trading.Portfolio(ctx, user)
	if err != nil {
		return errorReply(0, err)
	}
	return model.Reply{Kind: model.ReplyPortfolio, Portfolio: &report, ShowMenu: true}
}

func errorReply(intent model.Intent, err error) model.Reply {
	return model.Reply{Kind: model.ReplyError, Intent: intent, Err: err, ShowMenu: true}
}

func normalizeSymbol(text string) string {
	return strings.ToUpper(strings.TrimSpace(text))
}

func parseQuantity(text string) (int64, error) {
	quantity, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || quantity <= 0 {
		return 0, fmt.Errorf("%w: %q", service.ErrMalformedQuantity, text)
	}
	return quantity, nil
}

func stateName(st model.State) string {
	switch st := st.(type) {
	case model.AwaitingSymbol:
		return "awaiting_symbol:" + st.Intent.String()
	case model.AwaitingAmount:
		return "awaiting_amount:" + st.Intent.String()
	default:
		return "idle"
	}
}
