package tgbot

import (
	"log/slog"

	"github.com/KotFed0t/trading_game_bot/config"
	"github.com/KotFed0t/trading_game_bot/internal/converter/telebotConverter"
	"github.com/KotFed0t/trading_game_bot/internal/model"
	"github.com/KotFed0t/trading_game_bot/internal/transport/telegram"
	customMW "github.com/KotFed0t/trading_game_bot/internal/transport/telegram/middleware"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type TGBot struct {
	bot  *tele.Bot
	ctrl *telegram.Controller
}

func New(cfg *config.Config, ctrl *telegram.Controller) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return &TGBot{bot: b, ctrl: ctrl}
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger())

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/buy", b.ctrl.Buy)
	b.bot.Handle("/sell", b.ctrl.Sell)
	b.bot.Handle("/price", b.ctrl.Price)
	b.bot.Handle("/portfolio", b.ctrl.Portfolio)
	b.bot.Handle("/surrender", b.ctrl.Surrender)
	b.bot.Handle("/reset", b.ctrl.Surrender)
	b.bot.Handle("/export", b.ctrl.Export)

	b.bot.Handle(&telebotConverter.BtnBuy, b.ctrl.Button(model.CmdBuy))
	b.bot.Handle(&telebotConverter.BtnSell, b.ctrl.Button(model.CmdSell))
	b.bot.Handle(&telebotConverter.BtnPortfolio, b.ctrl.Button(model.CmdPortfolio))
	b.bot.Handle(&telebotConverter.BtnPrice, b.ctrl.Button(model.CmdPrice))
	b.bot.Handle(&telebotConverter.BtnSurrender, b.ctrl.Button(model.CmdSurrender))
	b.bot.Handle(&telebotConverter.BtnExport, b.ctrl.Button(model.CmdExport))

	b.bot.Handle(tele.OnText, b.ctrl.Text)
}
