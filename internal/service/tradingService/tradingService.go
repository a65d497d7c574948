package tradingService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/KotFed0t/trading_game_bot/config"
	"github.com/KotFed0t/trading_game_bot/internal/externalApi"
	"github.com/KotFed0t/trading_game_bot/internal/model"
	"github.com/KotFed0t/trading_game_bot/internal/service"
	"github.com/KotFed0t/trading_game_bot/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type PriceOracle interface {
	GetPrice(ctx context.Context, symbol string) (model.Quote, error)
	GetQuoteWithSeries(ctx context.Context, symbol string) (model.Quote, []model.PricePoint, error)
}

type Cache interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	SetQuote(ctx context.Context, quote model.Quote) error
}

type Ledger interface {
	EnsureAccount(ctx context.Context, user string) error
	Exists(user string) bool
	Buy(ctx context.Context, user, symbol string, quantity int64, unitPrice decimal.Decimal) (model.TradeResult, error)
	Sell(ctx context.Context, user, symbol string, quantity int64, unitPrice decimal.Decimal) (model.TradeResult, error)
	Reset(ctx context.Context, user string) error
	Snapshot(user string) model.Account
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.PortfolioReport, trades []model.Trade) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
}

type TradingService struct {
	ledger           Ledger
	cache            Cache
	oracle           PriceOracle
	reportGenerator  ReportGenerator
	cloudStorage     CloudStorage
	oracleTimeout    time.Duration
	priceConcurrency int
	fileLimitInBytes int
}

// New builds the service. cache and cloudStorage are optional and may be nil.
func New(cfg *config.Config, ledger Ledger, cache Cache, oracle PriceOracle, reportGenerator ReportGenerator, cloudStorage CloudStorage) *TradingService {
	concurrency := cfg.Game.PortfolioPriceConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &TradingService{
		ledger:           ledger,
		cache:            cache,
		oracle:           oracle,
		reportGenerator:  reportGenerator,
		cloudStorage:     cloudStorage,
		oracleTimeout:    cfg.API.Timeout,
		priceConcurrency: concurrency,
		fileLimitInBytes: cfg.Telegram.FileLimitInBytes,
	}
}

func (s *TradingService) Start(ctx context.Context, user string) error {
	return s.ledger.EnsureAccount(ctx, user)
}

// GetQuote returns the latest price for symbol, served from the cache when
// possible. Oracle failures are reported as service.ErrUnknownSymbol or
// service.ErrOracleUnavailable.
func (s *TradingService) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.GetQuote"

	if s.cache != nil {
		quote, err := s.cache.GetQuote(ctx, symbol)
		if err == nil {
			return quote, nil
		}
		slog.Debug("can't get quote from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return s.freshQuote(ctx, symbol)
}

// freshQuote always asks the oracle. Trades are priced with it.
func (s *TradingService) freshQuote(ctx context.Context, symbol string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.freshQuote"

	slog.Debug("freshQuote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("freshQuote finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	oracleCtx, cancel := s.withOracleTimeout(ctx)
	defer cancel()

	quote, err := s.oracle.GetPrice(oracleCtx, symbol)
	if err != nil {
		return model.Quote{}, s.oracleError(ctx, op, symbol, err)
	}
	quote.Symbol = symbol
	s.fillCache(ctx, quote)

	return quote, nil
}

// Price returns a fresh quote and, when available, the recent intraday series.
// Both come from one oracle call.
func (s *TradingService) Price(ctx context.Context, symbol string) (model.Quote, []model.PricePoint, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.Price"

	slog.Debug("Price start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	oracleCtx, cancel := s.withOracleTimeout(ctx)
	defer cancel()

	quote, series, err := s.oracle.GetQuoteWithSeries(oracleCtx, symbol)
	if err != nil {
		return model.Quote{}, nil, s.oracleError(ctx, op, symbol, err)
	}
	quote.Symbol = symbol
	s.fillCache(ctx, quote)

	return quote, series, nil
}

func (s *TradingService) fillCache(ctx context.Context, quote model.Quote) {
	if s.cache != nil {
		go s.cache.SetQuote(context.WithoutCancel(ctx), quote)
	}
}

func (s *TradingService) Buy(ctx context.Context, user, symbol string, quantity int64) (model.TradeResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.Buy"

	slog.Debug("Buy start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.Int64("quantity", quantity))
	defer func() {
		slog.Debug("Buy finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	quote, err := s.freshQuote(ctx, symbol)
	if err != nil {
		return model.TradeResult{}, err
	}

	return s.ledger.Buy(ctx, user, symbol, quantity, quote.Price)
}

func (s *TradingService) Sell(ctx context.Context, user, symbol string, quantity int64) (model.TradeResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.Sell"

	slog.Debug("Sell start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.Int64("quantity", quantity))
	defer func() {
		slog.Debug("Sell finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	// the ledger checks again atomically, this only saves the price lookup
	if held := s.ledger.Snapshot(user).Holdings[symbol]; held < quantity {
		return model.TradeResult{}, fmt.Errorf("%w: requested %d %s, held %d", service.ErrInsufficientHoldings, quantity, symbol, held)
	}

	quote, err := s.freshQuote(ctx, symbol)
	if err != nil {
		return model.TradeResult{}, err
	}

	return s.ledger.Sell(ctx, user, symbol, quantity, quote.Price)
}

// Reset restores the starting balance. hadAccount reports whether the user
// played before.
func (s *TradingService) Reset(ctx context.Context, user string) (hadAccount bool, err error) {
	hadAccount = s.ledger.Exists(user)
	if err = s.ledger.Reset(ctx, user); err != nil {
		return false, err
	}
	return hadAccount, nil
}

// Portfolio values every holding at its current price. Holdings whose price
// can't be fetched are listed in Skipped and left out of the total.
func (s *TradingService) Portfolio(ctx context.Context, user string) (model.PortfolioReport, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.Portfolio"

	slog.Debug("Portfolio start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("Portfolio finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	acc := s.ledger.Snapshot(user)
	report := model.PortfolioReport{Balance: acc.Balance, Total: acc.Balance}
	if len(acc.Holdings) == 0 {
		return report, service.ErrEmptyPortfolio
	}

	symbols := make([]string, 0, len(acc.Holdings))
	for symbol := range acc.Holdings {
		symbols = append(symbols, symbol)
	}
	slices.Sort(symbols)

	quotes := make([]*model.Quote, len(symbols))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.priceConcurrency)
	for i, symbol := range symbols {
		g.Go(func() error {
			quote, err := s.GetQuote(gCtx, symbol)
			if err != nil {
				return nil
			}
			quotes[i] = &quote
			return nil
		})
	}
	_ = g.Wait()

	for i, symbol := range symbols {
		if quotes[i] == nil {
			report.Skipped = append(report.Skipped, symbol)
			continue
		}
		qty := acc.Holdings[symbol]
		value := quotes[i].Price.Mul(decimal.NewFromInt(qty))
		report.Positions = append(report.Positions, model.Position{
			Symbol:   symbol,
			Quantity: qty,
			Price:    quotes[i].Price,
			Value:    value,
		})
		report.Total = report.Total.Add(value)
	}

	if len(report.Skipped) > 0 {
		slog.Warn("portfolio valued partially", slog.String("rqID", rqID), slog.String("op", op), slog.Any("skipped", report.Skipped))
	}

	return report, nil
}

// Statement renders the portfolio and trade history into a file. Files over
// the transport limit are uploaded to cloud storage and returned as a link.
func (s *TradingService) Statement(ctx context.Context, user string) (model.Statement, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.Statement"

	slog.Debug("Statement start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("Statement finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	report, err := s.Portfolio(ctx, user)
	if err != nil && !errors.Is(err, service.ErrEmptyPortfolio) {
		return model.Statement{}, err
	}

	trades := s.ledger.Snapshot(user).Trades

	fileBytes, ext, err := s.reportGenerator.Generate(ctx, report, trades)
	if err != nil {
		slog.Error("got error from reportGenerator.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Statement{}, err
	}

	statement := model.Statement{
		FileName: fmt.Sprintf("statement_%s%s", time.Now().Format("20060102_150405"), ext),
		Content:  fileBytes,
	}

	if s.fileLimitInBytes <= 0 || len(fileBytes) <= s.fileLimitInBytes {
		return statement, nil
	}

	if s.cloudStorage == nil {
		slog.Warn("statement too large and cloud storage disabled", slog.String("rqID", rqID), slog.String("op", op), slog.Int("size", len(fileBytes)))
		return model.Statement{}, service.ErrStatementTooLarge
	}

	link, err := s.cloudStorage.UploadFile(ctx, bytes.NewReader(fileBytes), statement.FileName)
	if err != nil {
		slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Statement{}, err
	}

	return model.Statement{FileName: statement.FileName, Link: link}, nil
}

func (s *TradingService) withOracleTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.oracleTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.oracleTimeout)
}

func (s *TradingService) oracleError(ctx context.Context, op, symbol string, err error) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	if errors.Is(err, externalApi.ErrNotFound) {
		slog.Warn("symbol not found in price oracle", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
		return fmt.Errorf("%w: %s", service.ErrUnknownSymbol, symbol)
	}

	slog.Error("price oracle failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
	return fmt.Errorf("%w: %s: %w", service.ErrOracleUnavailable, symbol, err)
}
