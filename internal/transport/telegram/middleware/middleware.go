package middleware

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"
)

func Logger() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			now := time.Now()

			rqID := uuid.NewString()
			c.Set("rqID", rqID)

			attrs := []any{slog.String("rqID", rqID)}
			if sender := c.Sender(); sender != nil {
				attrs = append(attrs, slog.Int64("userID", sender.ID), slog.String("username", sender.Username))
			}
			if cb := c.Callback(); cb != nil {
				attrs = append(attrs, slog.String("callback", cb.Unique))
			}

			slog.Info("start request", attrs...)

			defer func() {
				slog.Info(
					"request finished",
					slog.String("rqID", rqID),
					slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
				)
			}()

			return next(c)
		}
	}
}
