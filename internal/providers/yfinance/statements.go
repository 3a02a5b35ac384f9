package yfinance

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/seenimoa/smartvalue/internal/provider"
	"github.com/seenimoa/smartvalue/pkg/models"
)

// fieldKeys maps each canonical field to the legacy quoteSummary keys whose
// values are summed to produce it. A field is shipped when at least one of
// its keys is present in some column.
type fieldKeys map[models.CanonicalField][]string

var balanceSheetKeys = fieldKeys{
	models.TotalAssets:                           {"totalAssets"},
	models.CurrentAssets:                         {"totalCurrentAssets"},
	models.CurrentLiabilities:                    {"totalCurrentLiabilities"},
	models.CurrentDebtAndCapitalLeaseObligation:  {"shortLongTermDebt"},
	models.LongTermDebtAndCapitalLeaseObligation: {"longTermDebt"},
	models.TotalEquityGrossMinorityInterest:      {"totalStockholderEquity", "minorityInterest"},
	models.CommonStockEquity:                     {"totalStockholderEquity"},
	models.MinorityInterest:                      {"minorityInterest"},
	models.CashAndCashEquivalents:                {"cash"},
	models.OtherShortTermInvestments:             {"shortTermInvestments"},
	models.LongTermEquityInvestment:              {"longTermInvestments"},
	models.NetPPE:                                {"propertyPlantEquipment"},
}

var incomeStatementKeys = fieldKeys{
	models.TotalRevenue:                    {"totalRevenue"},
	models.CostOfRevenue:                   {"costOfRevenue"},
	models.SellingGeneralAndAdministration: {"sellingGeneralAdministrative"},
	models.InterestExpense:                 {"interestExpense"},
	models.NetIncomeCommonStockholders:     {"netIncomeApplicableToCommonShares"},
}

var cashFlowKeys = fieldKeys{
	models.OperatingCashFlow:        {"totalCashFromOperatingActivities"},
	models.InvestingCashFlow:        {"totalCashflowsFromInvestingActivities"},
	models.FinancingCashFlow:        {"totalCashFromFinancingActivities"},
	models.CashDividendsPaid:        {"dividendsPaid"},
	models.RepurchaseOfCapitalStock: {"repurchaseOfStock"},
}

// FetchStatements downloads the three statements and the intro info for
// ticker in a single quoteSummary call.
func (p *Provider) FetchStatements(ctx context.Context, ticker string) (*models.Statements, error) {
	res, err := p.quoteSummary(ctx, ticker, statementModules)
	if err != nil {
		return nil, err
	}

	var bsRaw, isRaw, cfRaw []yfStatement
	if res.BalanceSheetHistoryQuarterly != nil {
		bsRaw = res.BalanceSheetHistoryQuarterly.Statements
	}
	if res.IncomeStatementHistory != nil {
		isRaw = res.IncomeStatementHistory.Statements
	}
	if res.CashflowStatementHistory != nil {
		cfRaw = res.CashflowStatementHistory.Statements
	}
	if len(bsRaw) == 0 && len(isRaw) == 0 && len(cfRaw) == 0 {
		return nil, provider.NewDataUnavailable(providerName, ticker, "no statements returned")
	}

	return &models.Statements{
		Ticker:          ticker,
		Source:          providerName,
		BalanceSheet:    buildTable(models.KindBalanceSheet, bsRaw, balanceSheetKeys),
		IncomeStatement: buildTable(models.KindIncomeStatement, isRaw, incomeStatementKeys),
		CashFlow:        buildTable(models.KindCashFlow, cfRaw, cashFlowKeys),
		Intro:           buildIntro(ticker, res),
	}, nil
}

// buildTable converts raw statement columns into a canonical table, keeping
// Yahoo's column order.
func buildTable(kind models.StatementKind, raw []yfStatement, keys fieldKeys) *models.StatementTable {
	periods := make([]time.Time, len(raw))
	for i, col := range raw {
		periods[i] = unixDate(col["endDate"])
	}
	t := models.NewStatementTable(kind, periods)

	// Iterate fields in a stable order so Set calls are deterministic.
	fields := make([]models.CanonicalField, 0, len(keys))
	for f := range keys {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })

	for _, f := range fields {
		if !shippedAny(raw, keys[f]) {
			continue
		}
		for col, stmt := range raw {
			t.Set(f, col, sumKeys(stmt, keys[f]))
		}
	}
	return t
}

func shippedAny(raw []yfStatement, keys []string) bool {
	for _, stmt := range raw {
		for _, k := range keys {
			if _, ok := stmt[k]; ok {
				return true
			}
		}
	}
	return false
}

// sumKeys adds the raw values of keys. The result is null only when none of
// the keys carries a value.
func sumKeys(stmt yfStatement, keys []string) null.Float {
	var (
		sum   float64
		found bool
	)
	for _, k := range keys {
		v, ok := stmt[k]
		if !ok || v.Raw == nil {
			continue
		}
		sum += *v.Raw
		found = true
	}
	if !found {
		return null.Float{}
	}
	return null.FloatFrom(sum)
}

func unixDate(v yfFinVal) time.Time {
	if v.Raw == nil {
		return time.Time{}
	}
	return time.Unix(int64(*v.Raw), 0).UTC()
}

func finValFloat(v yfFinVal) null.Float {
	if v.Raw == nil {
		return null.Float{}
	}
	return null.FloatFrom(*v.Raw)
}

func finValTime(v yfFinVal) null.Time {
	if v.Raw == nil {
		return null.Time{}
	}
	return null.TimeFrom(unixDate(v))
}

func buildIntro(ticker string, res *yfQuoteSummaryResult) models.IntroInfo {
	in := models.IntroInfo{
		Symbol:       strings.ToUpper(ticker),
		DownloadedAt: time.Now().UTC(),
	}
	if pr := res.Price; pr != nil {
		in.ShortName = coalesce(pr.ShortName, pr.LongName)
		in.Exchange = pr.ExchangeName
		in.PriceCurrency = pr.Currency
		in.Price = finValFloat(pr.RegularMarketPrice)
	}
	if qt := res.QuoteType; qt != nil {
		in.ShortName = coalesce(in.ShortName, qt.ShortName)
		in.Exchange = coalesce(in.Exchange, qt.Exchange)
	}
	if ap := res.AssetProfile; ap != nil {
		in.Sector = ap.Sector
		in.Industry = ap.Industry
	}
	if ks := res.DefaultKeyStatistics; ks != nil {
		in.SharesOutstanding = finValFloat(ks.SharesOutstanding)
		in.LastFiscalYearEnd = finValTime(ks.LastFiscalYearEnd)
		in.MostRecentQuarter = finValTime(ks.MostRecentQuarter)
	}
	if fd := res.FinancialData; fd != nil {
		in.FinancialCurrency = fd.FinancialCurrency
		if !in.Price.Valid {
			in.Price = finValFloat(fd.CurrentPrice)
		}
	}
	return in
}
