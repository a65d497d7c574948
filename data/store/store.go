package store

import (
	"log/slog"

	"github.com/KotFed0t/trading_game_bot/config"
	"github.com/KotFed0t/trading_game_bot/internal/model"
)

// Store owns all game state. Nothing is written to disk, so accounts and
// sessions are lost when the process stops.
type Store struct {
	Accounts *Keyed[model.Account]
	Sessions *Keyed[model.Session]
}

func New(cfg *config.Config) *Store {
	startingBalance := cfg.Game.StartingBalance
	return &Store{
		Accounts: NewKeyed(func() model.Account {
			return model.Account{Balance: startingBalance, Holdings: make(map[string]int64)}
		}),
		Sessions: NewKeyed(model.NewSession),
	}
}

func (s *Store) Close() {
	slog.Info(
		"dropping in-memory store",
		slog.Int("accounts", s.Accounts.Len()),
		slog.Int("sessions", s.Sessions.Len()),
	)
	s.Sessions.Clear()
	s.Accounts.Clear()
}
