package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/trading_game_bot/internal/model"
	"github.com/KotFed0t/trading_game_bot/utils"
	"github.com/xuri/excelize/v2"
)

const (
	portfolioSheet = "Portfolio"
	tradesSheet    = "Trades"
	dateTimeFormat = "2006-01-02 15:04:05"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) Generate(ctx context.Context, report model.PortfolioReport, trades []model.Trade) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	// reuse the default sheet for the portfolio
	if err := f.SetSheetName("Sheet1", portfolioSheet); err != nil {
		slog.Error("got error while renaming Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if err := g.fillPortfolioSheet(f, report); err != nil {
		slog.Error("got error while filling portfolio sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if err := g.fillTradesSheet(f, trades); err != nil {
		slog.Error("got error while filling trades sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) fillPortfolioSheet(f *excelize.File, report model.PortfolioReport) error {
	if err := g.title(f, portfolioSheet, "A1", "D1", "Holdings", "#cfe2f3"); err != nil {
		return err
	}

	_ = f.SetCellStr(portfolioSheet, "A2", "symbol")
	_ = f.SetCellStr(portfolioSheet, "B2", "shares")
	_ = f.SetCellStr(portfolioSheet, "C2", "price")
	_ = f.SetCellStr(portfolioSheet, "D2", "value")

	row := 3
	for _, position := range report.Positions {
		_ = f.SetCellStr(portfolioSheet, fmt.Sprintf("A%d", row), position.Symbol)
		_ = f.SetCellInt(portfolioSheet, fmt.Sprintf("B%d", row), position.Quantity)
		_ = f.SetCellValue(portfolioSheet, fmt.Sprintf("C%d", row), position.Price.InexactFloat64())
		_ = f.SetCellValue(portfolioSheet, fmt.Sprintf("D%d", row), position.Value.InexactFloat64())
		row++
	}

	for _, symbol := range report.Skipped {
		_ = f.SetCellStr(portfolioSheet, fmt.Sprintf("A%d", row), symbol)
		_ = f.SetCellStr(portfolioSheet, fmt.Sprintf("C%d", row), "no price")
		row++
	}

	row++
	if err := g.title(f, portfolioSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row), "Summary", "#d9ead3"); err != nil {
		return err
	}
	row++
	_ = f.SetCellStr(portfolioSheet, fmt.Sprintf("A%d", row), "cash balance")
	_ = f.SetCellValue(portfolioSheet, fmt.Sprintf("D%d", row), report.Balance.InexactFloat64())
	row++
	_ = f.SetCellStr(portfolioSheet, fmt.Sprintf("A%d", row), "total value")
	_ = f.SetCellValue(portfolioSheet, fmt.Sprintf("D%d", row), report.Total.InexactFloat64())

	return nil
}

func (g *XLSXGenerator) fillTradesSheet(f *excelize.File, trades []model.Trade) error {
	if _, err := f.NewSheet(tradesSheet); err != nil {
		return err
	}

	if err := g.title(f, tradesSheet, "A1", "G1", "Trade history", "#cccccc"); err != nil {
		return err
	}

	_ = f.SetCellStr(tradesSheet, "A2", "date")
	_ = f.SetCellStr(tradesSheet, "B2", "side")
	_ = f.SetCellStr(tradesSheet, "C2", "symbol")
	_ = f.SetCellStr(tradesSheet, "D2", "shares")
	_ = f.SetCellStr(tradesSheet, "E2", "price")
	_ = f.SetCellStr(tradesSheet, "F2", "total")
	_ = f.SetCellStr(tradesSheet, "G2", "balance after")

	for i, trade := range trades {
		row := i + 3
		_ = f.SetCellStr(tradesSheet, fmt.Sprintf("A%d", row), trade.At.Format(dateTimeFormat))
		_ = f.SetCellStr(tradesSheet, fmt.Sprintf("B%d", row), string(trade.Side))
		_ = f.SetCellStr(tradesSheet, fmt.Sprintf("C%d", row), trade.Symbol)
		_ = f.SetCellInt(tradesSheet, fmt.Sprintf("D%d", row), trade.Quantity)
		_ = f.SetCellValue(tradesSheet, fmt.Sprintf("E%d", row), trade.Price.InexactFloat64())
		_ = f.SetCellValue(tradesSheet, fmt.Sprintf("F%d", row), trade.Total.InexactFloat64())
		_ = f.SetCellValue(tradesSheet, fmt.Sprintf("G%d", row), trade.BalanceAfter.InexactFloat64())
	}

	return nil
}

func (g *XLSXGenerator) title(f *excelize.File, sheet, from, to, text, color string) error {
	if err := f.MergeCell(sheet, from, to); err != nil {
		return err
	}

	_ = f.SetCellStr(sheet, from, text)

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheet, from, from, styleID); err != nil {
		return fmt.Errorf("apply title style: %w", err)
	}

	return nil
}
