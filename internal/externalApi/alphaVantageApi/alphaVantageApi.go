package alphaVantageApi

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/KotFed0t/trading_game_bot/config"
	"github.com/KotFed0t/trading_game_bot/internal/externalApi"
	"github.com/KotFed0t/trading_game_bot/internal/model"
	"github.com/KotFed0t/trading_game_bot/internal/model/alphaVantageModel"
	"github.com/KotFed0t/trading_game_bot/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	queryPath       = "/query"
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

type AlphaVantageApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *AlphaVantageApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.AlphaVantage.Url).
		SetQueryParam("apikey", cfg.API.AlphaVantage.ApiKey)
	return &AlphaVantageApi{client: client}
}

// GetPrice returns the close of the most recent intraday candle.
func (a *AlphaVantageApi) GetPrice(ctx context.Context, symbol string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AlphaVantageApi.GetPrice"

	slog.Debug("start AlphaVantageApi.GetPrice request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	raw, err := a.fetchIntraday(ctx, symbol)
	if err != nil {
		return model.Quote{}, err
	}

	quote, err := parseQuote(raw, symbol)
	if err != nil {
		slog.Warn("can't parse quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		return model.Quote{}, err
	}

	slog.Debug("AlphaVantageApi.GetPrice request complete", slog.String("rqID", rqID), slog.String("symbol", symbol))

	return quote, nil
}

// GetQuoteWithSeries returns the latest quote and the intraday closes ordered
// by time ascending, both taken from a single request. A series that can't be
// parsed is returned as nil.
func (a *AlphaVantageApi) GetQuoteWithSeries(ctx context.Context, symbol string) (model.Quote, []model.PricePoint, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AlphaVantageApi.GetQuoteWithSeries"

	slog.Debug("start AlphaVantageApi.GetQuoteWithSeries request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	raw, err := a.fetchIntraday(ctx, symbol)
	if err != nil {
		return model.Quote{}, nil, err
	}

	quote, err := parseQuote(raw, symbol)
	if err != nil {
		slog.Warn("can't parse quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		return model.Quote{}, nil, err
	}

	series, err := parseSeries(raw)
	if err != nil {
		slog.Warn("can't parse series", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		series = nil
	}

	slog.Debug("AlphaVantageApi.GetQuoteWithSeries request complete", slog.String("rqID", rqID), slog.String("symbol", symbol), slog.Int("points", len(series)))

	return quote, series, nil
}

func (a *AlphaVantageApi) fetchIntraday(ctx context.Context, symbol string) (alphaVantageModel.RawIntraday, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	params := map[string]string{
		"function": "TIME_SERIES_INTRADAY",
		"symbol":   symbol,
		"interval": "1min",
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(queryPath)
	if err != nil {
		slog.Error("error while dialing AlphaVantageApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return alphaVantageModel.RawIntraday{}, fmt.Errorf("%w: %w", externalApi.ErrUnavailable, err)
	}

	if resp.IsError() {
		slog.Error("AlphaVantageApi responded with error status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		return alphaVantageModel.RawIntraday{}, fmt.Errorf("%w: status %d", externalApi.ErrUnavailable, resp.StatusCode())
	}

	raw := alphaVantageModel.RawIntraday{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		slog.Error("can't unmarshall response into alphaVantageModel.RawIntraday", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return alphaVantageModel.RawIntraday{}, fmt.Errorf("%w: %w", externalApi.ErrUnavailable, err)
	}

	switch {
	case raw.ErrorMessage != "":
		return alphaVantageModel.RawIntraday{}, fmt.Errorf("%w: %s", externalApi.ErrNotFound, raw.ErrorMessage)
	case raw.Note != "":
		slog.Error("AlphaVantageApi rate limited", slog.String("note", raw.Note), slog.String("rqID", rqID))
		return alphaVantageModel.RawIntraday{}, fmt.Errorf("%w: %s", externalApi.ErrUnavailable, raw.Note)
	case raw.Information != "" && raw.MetaData == nil:
		slog.Error("AlphaVantageApi refused request", slog.String("information", raw.Information), slog.String("rqID", rqID))
		return alphaVantageModel.RawIntraday{}, fmt.Errorf("%w: %s", externalApi.ErrUnavailable, raw.Information)
	}

	return raw, nil
}

func parseQuote(raw alphaVantageModel.RawIntraday, symbol string) (model.Quote, error) {
	if raw.MetaData == nil || raw.MetaData.LastRefreshed == "" {
		return model.Quote{}, fmt.Errorf("%w: no last refreshed timestamp", externalApi.ErrNotFound)
	}

	candle, ok := raw.TimeSeries[raw.MetaData.LastRefreshed]
	if !ok {
		return model.Quote{}, fmt.Errorf("%w: no candle at %s", externalApi.ErrNotFound, raw.MetaData.LastRefreshed)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(candle.Close))
	if err != nil || !price.IsPositive() {
		return model.Quote{}, fmt.Errorf("%w: invalid close %q", externalApi.ErrNotFound, candle.Close)
	}

	asOf, err := parseTimestamp(raw.MetaData.LastRefreshed, location(raw.MetaData))
	if err != nil {
		return model.Quote{}, fmt.Errorf("%w: %w", externalApi.ErrNotFound, err)
	}

	if raw.MetaData.Symbol != "" {
		symbol = strings.ToUpper(raw.MetaData.Symbol)
	}

	return model.Quote{Symbol: symbol, Price: price, AsOf: asOf}, nil
}

func parseSeries(raw alphaVantageModel.RawIntraday) ([]model.PricePoint, error) {
	if len(raw.TimeSeries) == 0 {
		return nil, fmt.Errorf("%w: empty time series", externalApi.ErrNotFound)
	}

	loc := location(raw.MetaData)
	series := make([]model.PricePoint, 0, len(raw.TimeSeries))
	for ts, candle := range raw.TimeSeries {
		t, err := parseTimestamp(ts, loc)
		if err != nil {
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(candle.Close))
		if err != nil {
			continue
		}
		series = append(series, model.PricePoint{Time: t, Price: price})
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no valid points in time series", externalApi.ErrNotFound)
	}

	slices.SortFunc(series, func(a, b model.PricePoint) int {
		return cmp.Compare(a.Time.UnixNano(), b.Time.UnixNano())
	})

	return series, nil
}

func location(meta *alphaVantageModel.MetaData) *time.Location {
	if meta == nil || meta.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(meta.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(timestampLayout, s, loc)
	if err == nil {
		return t, nil
	}
	return time.ParseInLocation(dateLayout, s, loc)
}
