package telegram

import (
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/KotFed0t/trading_game_bot/internal/converter/telebotConverter"
	"github.com/KotFed0t/trading_game_bot/internal/model"
	"github.com/KotFed0t/trading_game_bot/utils"
	tele "gopkg.in/telebot.v4"
)

type Engine interface {
	Handle(ctx context.Context, user string, in model.Input) model.Reply
}

type Controller struct {
	engine Engine
}

func NewController(engine Engine) *Controller {
	return &Controller{engine: engine}
}

func (ctrl *Controller) Start(c tele.Context) error {
	return ctrl.command(c, model.CmdStart)
}

func (ctrl *Controller) Buy(c tele.Context) error {
	return ctrl.command(c, model.CmdBuy)
}

func (ctrl *Controller) Sell(c tele.Context) error {
	return ctrl.command(c, model.CmdSell)
}

func (ctrl *Controller) Price(c tele.Context) error {
	return ctrl.command(c, model.CmdPrice)
}

func (ctrl *Controller) Portfolio(c tele.Context) error {
	return ctrl.command(c, model.CmdPortfolio)
}

func (ctrl *Controller) Surrender(c tele.Context) error {
	return ctrl.command(c, model.CmdSurrender)
}

func (ctrl *Controller) Export(c tele.Context) error {
	return ctrl.command(c, model.CmdExport)
}

// Text feeds free-form replies into the pending conversation step.
func (ctrl *Controller) Text(c tele.Context) error {
	return ctrl.handle(c, TextInput(c.Text()))
}

// TextInput classifies a message that matched no route. Unregistered slash
// commands end up here too and must not be taken as a symbol or amount.
func TextInput(text string) model.Input {
	if strings.HasPrefix(strings.TrimSpace(text), "/") {
		return model.Input{Command: model.CmdUnknown, Text: text}
	}
	return model.Input{Command: model.CmdText, Text: text}
}

// Button returns a handler for a menu button bound to cmd.
func (ctrl *Controller) Button(cmd model.Command) tele.HandlerFunc {
	return func(c tele.Context) error {
		_ = c.Respond()
		return ctrl.handle(c, model.Input{Command: cmd, FromMenu: true})
	}
}

func (ctrl *Controller) command(c tele.Context, cmd model.Command) error {
	var args string
	if msg := c.Message(); msg != nil {
		args = msg.Payload
	}
	return ctrl.handle(c, model.Input{Command: cmd, Args: args})
}

func (ctrl *Controller) handle(c tele.Context, in model.Input) error {
	ctx := utils.CreateCtxWithRqID(c)
	reply := ctrl.engine.Handle(ctx, UserID(c.Sender()), in)
	return ctrl.send(ctx, c, reply)
}

func (ctrl *Controller) send(ctx context.Context, c tele.Context, reply model.Reply) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Controller.send"

	if reply.Kind == model.ReplyChooseCommand {
		return c.Send(telebotConverter.ChooseText, telebotConverter.Menu())
	}

	if reply.Kind == model.ReplyStatement && reply.Statement != nil && reply.Statement.Link == "" {
		doc := &tele.Document{
			File:     tele.FromReader(bytes.NewReader(reply.Statement.Content)),
			FileName: reply.Statement.FileName,
		}
		if err := c.Send(doc); err != nil {
			slog.Error("failed to send statement", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}
	} else {
		text, markdown := telebotConverter.Render(reply)
		opts := []interface{}{}
		if markdown {
			opts = append(opts, tele.ModeMarkdown)
		}
		if err := c.Send(text, opts...); err != nil {
			slog.Error("failed to send reply", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}
	}

	if reply.ShowMenu {
		return c.Send(telebotConverter.ChooseText, telebotConverter.Menu())
	}
	return nil
}

// UserID keys accounts by the numeric Telegram id, which survives username
// changes.
func UserID(sender *tele.User) string {
	if sender == nil || sender.ID == 0 {
		return ""
	}
	return strconv.FormatInt(sender.ID, 10)
}
