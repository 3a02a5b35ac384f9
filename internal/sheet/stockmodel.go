package sheet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/smartvalue/pkg/models"
)

var (
	stockTemplateRe = regexp.MustCompile(`.*Stock_Valuation`)

	// ErrTemplate is returned when the template folder does not hold exactly
	// one stock valuation template.
	ErrTemplate = errors.New("sheet: stock valuation template")
)

// Data sheet rows, one column per period starting at dataFirstCol.
const dataFirstCol = 3

var incomeRows = []struct {
	row   int
	field models.CanonicalField
}{
	{7, models.TotalRevenue},
	{9, models.CostOfRevenue},
	{11, models.SellingGeneralAndAdministration},
	{18, models.InterestExpense},
	{19, models.NetIncomeCommonStockholders},
}

var balanceRows = []struct {
	row   int
	field models.CanonicalField
}{
	{21, models.CurrentAssets},
	{22, models.CurrentLiabilities},
	{23, models.CurrentDebtAndCapitalLeaseObligation},
	{24, models.CurrentCapitalLeaseObligation},
	{25, models.LongTermDebtAndCapitalLeaseObligation},
	{26, models.LongTermCapitalLeaseObligation},
	{28, models.TotalEquityGrossMinorityInterest},
	{29, models.CommonStockEquity},
	{30, models.NetPPE},
}

// Cash flow rows. Outflows are written as positive amounts.
var cashFlowRows = []struct {
	row    int
	field  models.CanonicalField
	negate bool
}{
	{31, models.EndCashPosition, false},
	{37, models.CashDividendsPaid, true},
	{38, models.RepurchaseOfCapitalStock, true},
}

type cellValue struct {
	cell  string
	value any
}

// Pricing is the market data written on every update.
type Pricing struct {
	Price  float64
	FxRate float64
}

// FindTemplate returns the single stock valuation template in dir. Lock
// files left by spreadsheet applications (names containing "~") are
// ignored.
func FindTemplate(dir string) (string, error) {
	found, err := stockFiles(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	if len(found) != 1 {
		return "", fmt.Errorf("%w: want exactly one in %s, found %d", ErrTemplate, dir, len(found))
	}
	return found[0], nil
}

// ModelPath returns the model file for ticker built from template.
func ModelPath(outputDir, ticker, template string) string {
	return filepath.Join(outputDir, ticker+"_"+filepath.Base(template))
}

// ReportUnit picks the unit statements are written in from the digit
// count of a reference value (the latest revenue): units up to 6 digits,
// thousands up to 9, and beyond that a multiple of 1000 per 3 extra digits.
func ReportUnit(v float64) int64 {
	digits := len(decimal.NewFromFloat(v).Abs().Truncate(0).String())
	switch {
	case digits <= 6:
		return 1
	case digits <= 9:
		return 1000
	default:
		return decimal.NewFromFloat(float64(digits-9)/3 + 0.99).IntPart() * 1000
	}
}

// scale divides v by unit, truncating toward zero.
func scale(v null.Float, unit int64, negate bool) int64 {
	if !v.Valid {
		return 0
	}
	d := decimal.NewFromFloat(v.Float64)
	if negate {
		d = d.Neg()
	}
	return d.Div(decimal.NewFromInt(unit)).Truncate(0).IntPart()
}

// ModelWriter creates and updates per-ticker valuation models.
type ModelWriter struct {
	templateDir string
	outputDir   string
	now         func() time.Time
	logger      zerolog.Logger
}

// NewModelWriter creates a writer copying templates from templateDir into
// outputDir.
func NewModelWriter(templateDir, outputDir string, logger zerolog.Logger) *ModelWriter {
	return &ModelWriter{
		templateDir: templateDir,
		outputDir:   outputDir,
		now:         time.Now,
		logger:      logger,
	}
}

// Write creates the model of st's ticker from the template if it does not
// exist yet and updates it. Identity fields and statement data are only
// written into new models; price and fx rate are always refreshed.
func (m *ModelWriter) Write(st *models.Statements, p Pricing) (path string, created bool, err error) {
	tpl, err := FindTemplate(m.templateDir)
	if err != nil {
		return "", false, err
	}
	path = ModelPath(m.outputDir, st.Ticker, tpl)

	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		m.logger.Info().Str("ticker", st.Ticker).Str("path", path).Msg("creating model")
		if err := copyFile(tpl, path); err != nil {
			return "", false, fmt.Errorf("copy template: %w", err)
		}
		created = true
	}

	wb, err := Open(path)
	if err != nil {
		return "", created, err
	}
	defer wb.Close()

	if err := m.writeDashboard(wb, st, p, created); err != nil {
		return "", created, err
	}
	if created {
		unit, err := writeData(wb, st)
		if err != nil {
			return "", created, err
		}
		if err := writeAssetModel(wb, st, unit); err != nil {
			return "", created, err
		}
	}
	if err := wb.Save(); err != nil {
		return "", created, err
	}
	m.logger.Info().Str("ticker", st.Ticker).Bool("created", created).Msg("model updated")
	return path, created, nil
}

func (m *ModelWriter) writeDashboard(wb *Workbook, st *models.Statements, p Pricing, created bool) error {
	if created {
		in := st.Intro
		for _, c := range []cellValue{
			{"C3", st.Ticker},
			{"C4", in.ShortName},
			{"C5", m.now().Format(time.DateOnly)},
			{"I3", in.Exchange},
			{"I5", in.SharesOutstanding.Float64},
			{"I11", in.FinancialCurrency},
		} {
			if err := wb.SetCell(SheetDashboard, c.cell, c.value); err != nil {
				return err
			}
		}
	}
	return UpdateDashboard(wb, p)
}

// UpdateDashboard refreshes the price and fx rate of an existing model.
func UpdateDashboard(wb *Workbook, p Pricing) error {
	if err := wb.SetCell(SheetDashboard, "I4", p.Price); err != nil {
		return err
	}
	return wb.SetCell(SheetDashboard, "I12", p.FxRate)
}

// writeData fills the Data sheet and returns the report unit used.
func writeData(wb *Workbook, st *models.Statements) (int64, error) {
	is := newest(st.IncomeStatement, models.KindIncomeStatement)
	bs := newest(st.BalanceSheet, models.KindBalanceSheet)
	cf := newest(st.CashFlow, models.KindCashFlow)

	unit := ReportUnit(is.Value(models.TotalRevenue, 0).Float64)
	lastFY := st.Intro.LastFiscalYearEnd
	if !lastFY.Valid && is.NumPeriods() > 0 {
		lastFY = null.TimeFrom(is.Periods[0])
	}
	if lastFY.Valid {
		if err := wb.SetCell(SheetData, "C3", lastFY.Time.Format(time.DateOnly)); err != nil {
			return 0, err
		}
	}
	if err := wb.SetCell(SheetData, "C4", unit); err != nil {
		return 0, err
	}

	for col := 0; col < is.NumPeriods(); col++ {
		for _, r := range incomeRows {
			if err := wb.SetCellAt(SheetData, dataFirstCol+col, r.row, scale(is.Value(r.field, col), unit, false)); err != nil {
				return 0, err
			}
		}
	}
	for col := 0; col < bs.NumPeriods(); col++ {
		for _, r := range balanceRows {
			if err := wb.SetCellAt(SheetData, dataFirstCol+col, r.row, scale(bs.Value(r.field, col), unit, false)); err != nil {
				return 0, err
			}
		}
	}
	for col := 0; col < cf.NumPeriods(); col++ {
		for _, r := range cashFlowRows {
			if err := wb.SetCellAt(SheetData, dataFirstCol+col, r.row, scale(cf.Value(r.field, col), unit, r.negate)); err != nil {
				return 0, err
			}
		}
	}
	return unit, nil
}

// writeAssetModel fills the latest-quarter balance sheet figures.
func writeAssetModel(wb *Workbook, st *models.Statements, unit int64) error {
	bs := newest(st.BalanceSheet, models.KindBalanceSheet)
	if bs.NumPeriods() == 0 {
		return nil
	}
	u := decimal.NewFromInt(unit)
	val := func(f models.CanonicalField) decimal.Decimal {
		return decimal.NewFromFloat(bs.Value(f, 0).Float64)
	}
	total, equity, current := val(models.TotalAssets), val(models.TotalEquityGrossMinorityInterest), val(models.CurrentLiabilities)

	mrq := bs.Periods[0]
	if st.Intro.MostRecentQuarter.Valid {
		mrq = st.Intro.MostRecentQuarter.Time
	}
	cells := map[string]any{
		"D3":  equity.Div(u).InexactFloat64(),
		"I3":  val(models.CommonStockEquity).Div(u).InexactFloat64(),
		"D9":  mrq.Format(time.DateOnly),
		"I26": current.Div(u).InexactFloat64(),
		"I42": total.Sub(equity).Sub(current).Div(u).InexactFloat64(),
	}
	for cell, v := range cells {
		if err := wb.SetCell(SheetAssetModel, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func newest(t *models.StatementTable, kind models.StatementKind) *models.StatementTable {
	if t == nil {
		return models.NewStatementTable(kind, nil)
	}
	return t.NewestFirst()
}
