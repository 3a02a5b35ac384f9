package yfinance

// yfQuoteSummaryResponse wraps the v10 quoteSummary API response.
type yfQuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []yfQuoteSummaryResult `json:"result"`
		Error  *yfError               `json:"error"`
	} `json:"quoteSummary"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yfQuoteSummaryResult struct {
	// Statement modules. Each wraps its list under a different key.
	BalanceSheetHistoryQuarterly *struct {
		Statements []yfStatement `json:"balanceSheetStatements"`
	} `json:"balanceSheetHistoryQuarterly"`
	IncomeStatementHistory *struct {
		Statements []yfStatement `json:"incomeStatementHistory"`
	} `json:"incomeStatementHistory"`
	CashflowStatementHistory *struct {
		Statements []yfStatement `json:"cashflowStatements"`
	} `json:"cashflowStatementHistory"`

	Price                *yfPrice                `json:"price"`
	AssetProfile         *yfAssetProfile         `json:"assetProfile"`
	DefaultKeyStatistics *yfDefaultKeyStatistics `json:"defaultKeyStatistics"`
	FinancialData        *yfFinancialData        `json:"financialData"`
	QuoteType            *yfQuoteType            `json:"quoteType"`
}

// yfStatement is one period column: line item key → value, plus endDate.
type yfStatement map[string]yfFinVal

// yfFinVal is Yahoo's {raw, fmt} number wrapper. Raw is a pointer so that
// an empty object ({}) reads as "no value" rather than 0.
type yfFinVal struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

type yfPrice struct {
	ShortName          string   `json:"shortName"`
	LongName           string   `json:"longName"`
	ExchangeName       string   `json:"exchangeName"`
	Currency           string   `json:"currency"`
	RegularMarketPrice yfFinVal `json:"regularMarketPrice"`
	RegularMarketTime  int64    `json:"regularMarketTime"`
}

type yfAssetProfile struct {
	Industry string `json:"industry"`
	Sector   string `json:"sector"`
}

type yfDefaultKeyStatistics struct {
	SharesOutstanding yfFinVal `json:"sharesOutstanding"`
	LastFiscalYearEnd yfFinVal `json:"lastFiscalYearEnd"`
	MostRecentQuarter yfFinVal `json:"mostRecentQuarter"`
}

type yfFinancialData struct {
	CurrentPrice      yfFinVal `json:"currentPrice"`
	FinancialCurrency string   `json:"financialCurrency"`
}

type yfQuoteType struct {
	Exchange  string `json:"exchange"`
	ShortName string `json:"shortName"`
}
