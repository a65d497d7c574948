package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/KotFed0t/trading_game_bot/config"
	"github.com/KotFed0t/trading_game_bot/internal/model"
	"github.com/KotFed0t/trading_game_bot/utils"
	"github.com/redis/go-redis/v9"
)

const quoteKeyPrefix = "quote:"

var ErrCacheMiss = errors.New("cache miss")

type RedisCache struct {
	redis      redis.Cmdable
	expiration time.Duration
}

func NewRedisCache(redisClient redis.Cmdable, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, expiration: cfg.Cache.QuoteExpiration}
}

func quoteKey(symbol string) string {
	return quoteKeyPrefix + symbol
}

func (r *RedisCache) SetQuote(ctx context.Context, quote model.Quote) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start SetQuote", slog.String("rqID", rqID), slog.String("symbol", quote.Symbol))

	quoteJson, err := json.Marshal(quote)
	if err != nil {
		slog.Error(
			"can't marshall quote in SetQuote",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.Any("quote", quote),
		)
		return errors.New("can't marshall quote")
	}

	err = r.redis.Set(ctx, quoteKey(quote.Symbol), quoteJson, r.expiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("symbol", quote.Symbol))
		return err
	}

	slog.Debug("SetQuote completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuote start", slog.String("rqID", rqID), slog.String("symbol", symbol))

	res, err := r.redis.Get(ctx, quoteKey(symbol)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Quote{}, ErrCacheMiss
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", quoteKey(symbol)))
		return model.Quote{}, err
	}

	quote := model.Quote{}
	err = json.Unmarshal([]byte(res), &quote)
	if err != nil {
		slog.Error(
			"can't unmarshall quote in GetQuote",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.Quote{}, errors.New("can't unmarshall quote")
	}

	slog.Debug("GetQuote finished", slog.String("rqID", rqID))

	return quote, nil
}
