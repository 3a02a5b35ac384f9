package yfinance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/smartvalue/internal/infra"
	"github.com/seenimoa/smartvalue/internal/provider"
	"github.com/seenimoa/smartvalue/internal/providers/yahoo"
	"github.com/seenimoa/smartvalue/pkg/models"
)

const summaryAAPL = `{"quoteSummary":{"result":[{
  "balanceSheetHistoryQuarterly":{"balanceSheetStatements":[
    {"endDate":{"raw":1703980800},"totalAssets":{"raw":353514000000},"totalCurrentAssets":{"raw":143692000000},
     "totalCurrentLiabilities":{"raw":133973000000},"totalStockholderEquity":{"raw":74100000000},
     "minorityInterest":{"raw":100000000},"cash":{"raw":40760000000},"longTermDebt":{"raw":95088000000}},
    {"endDate":{"raw":1696032000},"totalAssets":{"raw":352583000000},"totalCurrentAssets":{"raw":143566000000},
     "totalCurrentLiabilities":{"raw":145308000000},"totalStockholderEquity":{"raw":62146000000},
     "minorityInterest":{},"cash":{"raw":29965000000},"longTermDebt":{"raw":95281000000}}
  ]},
  "incomeStatementHistory":{"incomeStatementHistory":[
    {"endDate":{"raw":1696032000},"totalRevenue":{"raw":383285000000},"costOfRevenue":{"raw":214137000000},
     "sellingGeneralAdministrative":{"raw":24932000000},"netIncomeApplicableToCommonShares":{"raw":96995000000}},
    {"endDate":{"raw":1664496000},"totalRevenue":{"raw":394328000000},"costOfRevenue":{"raw":223546000000},
     "sellingGeneralAdministrative":{"raw":25094000000},"netIncomeApplicableToCommonShares":{"raw":99803000000}}
  ]},
  "cashflowStatementHistory":{"cashflowStatements":[
    {"endDate":{"raw":1696032000},"totalCashFromOperatingActivities":{"raw":110543000000},
     "dividendsPaid":{"raw":-15025000000},"repurchaseOfStock":{"raw":-77550000000}}
  ]},
  "price":{"shortName":"Apple Inc.","exchangeName":"NasdaqGS","currency":"USD","regularMarketPrice":{"raw":189.5}},
  "assetProfile":{"sector":"Technology","industry":"Consumer Electronics"},
  "defaultKeyStatistics":{"sharesOutstanding":{"raw":15550000000},"lastFiscalYearEnd":{"raw":1696032000},
    "mostRecentQuarter":{"raw":1703980800}},
  "financialData":{"financialCurrency":"USD","currentPrice":{"raw":189.5}}
}],"error":null}}`

type fakeYahoo struct {
	summary     map[string]string
	status      map[string]int
	quotePage   string
	crumbCalls  int
	summaryHits int
}

func (f *fakeYahoo) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/crumb", func(w http.ResponseWriter, r *http.Request) {
		f.crumbCalls++
		w.Write([]byte("crumb-1"))
	})
	mux.HandleFunc("/v10/finance/quoteSummary/{ticker}", func(w http.ResponseWriter, r *http.Request) {
		f.summaryHits++
		if r.URL.Query().Get("crumb") != "crumb-1" {
			http.Error(w, "missing crumb", http.StatusUnauthorized)
			return
		}
		tk := r.PathValue("ticker")
		if code, ok := f.status[tk]; ok {
			http.Error(w, "boom", code)
			return
		}
		body, ok := f.summary[tk]
		if !ok {
			w.Write([]byte(`{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found for ticker symbol: ` + tk + `"}}}`))
			return
		}
		w.Write([]byte(body))
	})
	mux.HandleFunc("/quote/{ticker}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(f.quotePage))
	})
	return mux
}

func newTestProvider(t *testing.T, f *fakeYahoo) *Provider {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	client := infra.NewClient(infra.WithRateLimit(0))
	sess := yahoo.NewSession(client, yahoo.WithEndpoints("", srv.URL+"/crumb"))
	return New(sess, WithBaseURL(srv.URL), WithPageURL(srv.URL))
}

func TestProviderInfo(t *testing.T) {
	p := New(nil)
	info := p.Info()
	assert.Equal(t, "yf", info.Name)
	assert.NotEmpty(t, info.Website)
	assert.Empty(t, info.Credentials)
	assert.Equal(t, provider.NewestFirst, info.NativeOrder)
	assert.NoError(t, p.Init(nil))
}

func TestFetchStatements(t *testing.T) {
	f := &fakeYahoo{summary: map[string]string{"AAPL": summaryAAPL}}
	p := newTestProvider(t, f)

	st, err := p.FetchStatements(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "yf", st.Source)
	bs := st.BalanceSheet
	require.Equal(t, 2, bs.NumPeriods())
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), bs.Periods[0])
	assert.True(t, bs.Periods[0].After(bs.Periods[1]), "native order is newest first")

	assert.Equal(t, 353514000000.0, bs.Value(models.TotalAssets, 0).Float64)
	assert.Equal(t, 74100000000.0, bs.Value(models.CommonStockEquity, 0).Float64)
	// Stockholder equity plus minority interest.
	assert.Equal(t, 74200000000.0, bs.Value(models.TotalEquityGrossMinorityInterest, 0).Float64)
	// An empty minority interest object does not null the sum.
	assert.Equal(t, 62146000000.0, bs.Value(models.TotalEquityGrossMinorityInterest, 1).Float64)
	assert.False(t, bs.Value(models.MinorityInterest, 1).Valid)

	assert.True(t, bs.Shipped(models.LongTermDebtAndCapitalLeaseObligation))
	assert.False(t, bs.Shipped(models.NetPPE))
	assert.Contains(t, bs.Missing(), models.CurrentCapitalLeaseObligation)

	is := st.IncomeStatement
	require.Equal(t, 2, is.NumPeriods())
	assert.Equal(t, 383285000000.0, is.Value(models.TotalRevenue, 0).Float64)
	assert.False(t, is.Shipped(models.InterestExpense))

	cf := st.CashFlow
	require.Equal(t, 1, cf.NumPeriods())
	assert.Equal(t, -15025000000.0, cf.Value(models.CashDividendsPaid, 0).Float64)
	assert.False(t, cf.Shipped(models.EndCashPosition))

	in := st.Intro
	assert.Equal(t, "Apple Inc.", in.ShortName)
	assert.Equal(t, "Technology", in.Sector)
	assert.Equal(t, "USD", in.FinancialCurrency)
	assert.Equal(t, 15550000000.0, in.SharesOutstanding.Float64)
	assert.Equal(t, 189.5, in.Price.Float64)
	assert.True(t, in.MostRecentQuarter.Valid)
}

func TestFetchStatementsUnknownTicker(t *testing.T) {
	p := newTestProvider(t, &fakeYahoo{})
	_, err := p.FetchStatements(context.Background(), "NOPE")
	require.Error(t, err)
	assert.True(t, provider.IsDataUnavailable(err))
	assert.False(t, provider.IsRetryable(err))
}

func TestFetchStatementsEmptyStatements(t *testing.T) {
	f := &fakeYahoo{summary: map[string]string{
		"EMPTY": `{"quoteSummary":{"result":[{"price":{"shortName":"Empty"}}],"error":null}}`,
	}}
	p := newTestProvider(t, f)
	_, err := p.FetchStatements(context.Background(), "EMPTY")
	assert.True(t, provider.IsDataUnavailable(err))
}

func TestFetchStatementsServerErrorIsRetryable(t *testing.T) {
	f := &fakeYahoo{status: map[string]int{"AAPL": http.StatusTooManyRequests}}
	p := newTestProvider(t, f)
	_, err := p.FetchStatements(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, provider.IsRetryable(err))
}

func TestUnauthorizedResetsCrumb(t *testing.T) {
	f := &fakeYahoo{status: map[string]int{"AAPL": http.StatusUnauthorized}}
	p := newTestProvider(t, f)

	_, err := p.FetchStatements(context.Background(), "AAPL")
	require.Error(t, err)
	_, _ = p.FetchStatements(context.Background(), "AAPL")
	assert.Equal(t, 2, f.crumbCalls)
}

func TestQuoteFromAPI(t *testing.T) {
	f := &fakeYahoo{summary: map[string]string{"AAPL": summaryAAPL}}
	p := newTestProvider(t, f)

	q, err := p.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 189.5, q.Price)
	assert.Equal(t, "USD", q.PriceCurrency)
	assert.Equal(t, "USD", q.ReportCurrency)
}

func TestQuoteFallsBackToPage(t *testing.T) {
	f := &fakeYahoo{
		summary: map[string]string{
			"0700.HK": `{"quoteSummary":{"result":[{"financialData":{"financialCurrency":"CNY"}}],"error":null}}`,
		},
		quotePage: `<html><body>
<div><span>HKSE - Delayed Quote. Currency in HKD</span></div>
<fin-streamer data-symbol="0700.HK" data-field="regularMarketPrice" data-value="1,312.50">1,312.50</fin-streamer>
</body></html>`,
	}
	p := newTestProvider(t, f)

	q, err := p.Quote(context.Background(), "0700.HK")
	require.NoError(t, err)
	assert.Equal(t, 1312.5, q.Price)
	assert.Equal(t, "HKD", q.PriceCurrency)
	assert.Equal(t, "CNY", q.ReportCurrency)
}

func TestQuotePageWithoutPrice(t *testing.T) {
	f := &fakeYahoo{
		summary:   map[string]string{"XYZ": `{"quoteSummary":{"result":[{}],"error":null}}`},
		quotePage: `<html><body>nothing here</body></html>`,
	}
	p := newTestProvider(t, f)
	_, err := p.Quote(context.Background(), "XYZ")
	assert.True(t, provider.IsDataUnavailable(err))
}

func TestSumKeys(t *testing.T) {
	v := func(f float64) yfFinVal { return yfFinVal{Raw: &f} }
	stmt := yfStatement{"a": v(1), "b": v(2), "c": {}}

	assert.Equal(t, 3.0, sumKeys(stmt, []string{"a", "b"}).Float64)
	assert.Equal(t, 1.0, sumKeys(stmt, []string{"a", "c"}).Float64)
	assert.False(t, sumKeys(stmt, []string{"c", "d"}).Valid)
}
