package fmp

import (
	"context"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/seenimoa/smartvalue/internal/provider"
	"github.com/seenimoa/smartvalue/pkg/models"
)

// statementLimit is the number of periods requested per statement.
const statementLimit = "5"

var balanceSheetKeys = map[models.CanonicalField]string{
	models.TotalAssets:                           "totalAssets",
	models.CurrentAssets:                         "totalCurrentAssets",
	models.CurrentLiabilities:                    "totalCurrentLiabilities",
	models.CurrentDebtAndCapitalLeaseObligation:  "shortTermDebt",
	models.LongTermDebtAndCapitalLeaseObligation: "longTermDebt",
	models.TotalEquityGrossMinorityInterest:      "totalEquity",
	models.CommonStockEquity:                     "totalStockholdersEquity",
	models.MinorityInterest:                      "minorityInterest",
	models.CashAndCashEquivalents:                "cashAndCashEquivalents",
	models.OtherShortTermInvestments:             "shortTermInvestments",
	models.LongTermEquityInvestment:              "longTermInvestments",
	models.NetPPE:                                "propertyPlantEquipmentNet",
}

var incomeStatementKeys = map[models.CanonicalField]string{
	models.TotalRevenue:                    "revenue",
	models.CostOfRevenue:                   "costOfRevenue",
	models.SellingGeneralAndAdministration: "sellingGeneralAndAdministrativeExpenses",
	models.InterestExpense:                 "interestExpense",
	models.NetIncomeCommonStockholders:     "netIncome",
}

var cashFlowKeys = map[models.CanonicalField]string{
	models.OperatingCashFlow:        "operatingCashFlow",
	models.InvestingCashFlow:        "netCashUsedForInvestingActivites",
	models.FinancingCashFlow:        "netCashUsedProvidedByFinancingActivities",
	models.CashDividendsPaid:        "dividendsPaid",
	models.RepurchaseOfCapitalStock: "commonStockRepurchased",
	models.EndCashPosition:          "cashAtEndOfPeriod",
}

// FetchStatements downloads the quarterly balance sheet, the annual income
// statement and cash flow, and the company profile.
func (p *Provider) FetchStatements(ctx context.Context, ticker string) (*models.Statements, error) {
	symbol := strings.ToUpper(ticker)

	var bsRaw, isRaw, cfRaw []fmpStatement
	if err := p.get(ctx, "/balance-sheet-statement/"+symbol, map[string]string{"period": "quarter", "limit": statementLimit}, &bsRaw); err != nil {
		return nil, provider.Classify(providerName, ticker, err)
	}
	if err := p.get(ctx, "/income-statement/"+symbol, map[string]string{"limit": statementLimit}, &isRaw); err != nil {
		return nil, provider.Classify(providerName, ticker, err)
	}
	if err := p.get(ctx, "/cash-flow-statement/"+symbol, map[string]string{"limit": statementLimit}, &cfRaw); err != nil {
		return nil, provider.Classify(providerName, ticker, err)
	}
	if len(bsRaw) == 0 && len(isRaw) == 0 && len(cfRaw) == 0 {
		return nil, provider.NewDataUnavailable(providerName, ticker, "no statements returned")
	}

	intro, err := p.intro(ctx, symbol)
	if err != nil {
		return nil, provider.Classify(providerName, ticker, err)
	}
	for _, raw := range [][]fmpStatement{isRaw, bsRaw} {
		if intro.FinancialCurrency == "" && len(raw) > 0 {
			intro.FinancialCurrency = raw[0].str("reportedCurrency")
		}
	}
	if len(bsRaw) > 0 {
		if d, err := time.Parse(time.DateOnly, bsRaw[0].str("date")); err == nil {
			intro.MostRecentQuarter = null.TimeFrom(d)
		}
	}
	if len(isRaw) > 0 {
		if d, err := time.Parse(time.DateOnly, isRaw[0].str("date")); err == nil {
			intro.LastFiscalYearEnd = null.TimeFrom(d)
		}
	}

	return &models.Statements{
		Ticker:          ticker,
		Source:          providerName,
		BalanceSheet:    buildTable(models.KindBalanceSheet, bsRaw, balanceSheetKeys),
		IncomeStatement: buildTable(models.KindIncomeStatement, isRaw, incomeStatementKeys),
		CashFlow:        buildTable(models.KindCashFlow, cfRaw, cashFlowKeys),
		Intro:           intro,
	}, nil
}

// buildTable keeps FMP's newest-first column order.
func buildTable(kind models.StatementKind, raw []fmpStatement, keys map[models.CanonicalField]string) *models.StatementTable {
	periods := make([]time.Time, len(raw))
	for i, s := range raw {
		periods[i], _ = time.Parse(time.DateOnly, s.str("date"))
	}
	t := models.NewStatementTable(kind, periods)
	for _, f := range kind.Fields() {
		key, ok := keys[f]
		if !ok {
			continue
		}
		for col, s := range raw {
			v, present := s[key]
			if !present {
				continue
			}
			if n, isNum := v.(float64); isNum {
				t.Set(f, col, null.FloatFrom(n))
			} else {
				t.Set(f, col, null.Float{})
			}
		}
	}
	return t
}

func (p *Provider) intro(ctx context.Context, symbol string) (models.IntroInfo, error) {
	var profiles []fmpProfile
	if err := p.get(ctx, "/profile/"+symbol, nil, &profiles); err != nil {
		return models.IntroInfo{}, err
	}
	var quotes []fmpQuote
	if err := p.get(ctx, "/quote/"+symbol, nil, &quotes); err != nil {
		return models.IntroInfo{}, err
	}

	in := models.IntroInfo{Symbol: symbol, DownloadedAt: time.Now().UTC()}
	if len(profiles) > 0 {
		pr := profiles[0]
		in.ShortName = pr.CompanyName
		in.Sector = pr.Sector
		in.Industry = pr.Industry
		in.Exchange = pr.ExchangeShortName
		in.PriceCurrency = pr.Currency
		if pr.Price > 0 {
			in.Price = null.FloatFrom(pr.Price)
		}
	}
	if len(quotes) > 0 {
		q := quotes[0]
		if q.SharesOutstanding > 0 {
			in.SharesOutstanding = null.FloatFrom(q.SharesOutstanding)
		}
		if q.Price > 0 {
			in.Price = null.FloatFrom(q.Price)
		}
		if in.Exchange == "" {
			in.Exchange = q.Exchange
		}
		if in.ShortName == "" {
			in.ShortName = q.Name
		}
	}
	return in, nil
}

// Quote returns the current price. The report currency comes from the
// latest income statement.
func (p *Provider) Quote(ctx context.Context, ticker string) (*models.Quote, error) {
	symbol := strings.ToUpper(ticker)
	var quotes []fmpQuote
	if err := p.get(ctx, "/quote/"+symbol, nil, &quotes); err != nil {
		return nil, provider.Classify(providerName, ticker, err)
	}
	if len(quotes) == 0 || quotes[0].Price <= 0 {
		return nil, provider.NewDataUnavailable(providerName, ticker, "no quote")
	}
	var profiles []fmpProfile
	if err := p.get(ctx, "/profile/"+symbol, nil, &profiles); err != nil {
		return nil, provider.Classify(providerName, ticker, err)
	}
	var isRaw []fmpStatement
	if err := p.get(ctx, "/income-statement/"+symbol, map[string]string{"limit": "1"}, &isRaw); err != nil {
		return nil, provider.Classify(providerName, ticker, err)
	}

	q := &models.Quote{
		Symbol: symbol,
		Price:  quotes[0].Price,
		AsOf:   time.Now().UTC(),
	}
	if ts := quotes[0].Timestamp; ts > 0 {
		q.AsOf = time.Unix(ts, 0).UTC()
	}
	if len(profiles) > 0 {
		q.PriceCurrency = profiles[0].Currency
	}
	if len(isRaw) > 0 {
		q.ReportCurrency = isRaw[0].str("reportedCurrency")
	}
	if q.ReportCurrency == "" {
		q.ReportCurrency = q.PriceCurrency
	}
	return q, nil
}
