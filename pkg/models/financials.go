package models

// CanonicalField is a provider-independent name for one financial-statement
// line item. The names follow Yahoo's timeseries vocabulary so that the
// "yq" source maps onto them one-to-one.
type CanonicalField string

// Balance sheet line items.
const (
	TotalAssets                           CanonicalField = "TotalAssets"
	CurrentAssets                         CanonicalField = "CurrentAssets"
	CurrentLiabilities                    CanonicalField = "CurrentLiabilities"
	CurrentDebtAndCapitalLeaseObligation  CanonicalField = "CurrentDebtAndCapitalLeaseObligation"
	CurrentCapitalLeaseObligation         CanonicalField = "CurrentCapitalLeaseObligation"
	LongTermDebtAndCapitalLeaseObligation CanonicalField = "LongTermDebtAndCapitalLeaseObligation"
	LongTermCapitalLeaseObligation        CanonicalField = "LongTermCapitalLeaseObligation"
	TotalEquityGrossMinorityInterest      CanonicalField = "TotalEquityGrossMinorityInterest"
	CommonStockEquity                     CanonicalField = "CommonStockEquity"
	MinorityInterest                      CanonicalField = "MinorityInterest"
	CashAndCashEquivalents                CanonicalField = "CashAndCashEquivalents"
	OtherShortTermInvestments             CanonicalField = "OtherShortTermInvestments"
	InvestmentProperties                  CanonicalField = "InvestmentProperties"
	LongTermEquityInvestment              CanonicalField = "LongTermEquityInvestment"
	InvestmentinFinancialAssets           CanonicalField = "InvestmentinFinancialAssets"
	NetPPE                                CanonicalField = "NetPPE"
)

// Income statement line items.
const (
	TotalRevenue                    CanonicalField = "TotalRevenue"
	CostOfRevenue                   CanonicalField = "CostOfRevenue"
	SellingGeneralAndAdministration CanonicalField = "SellingGeneralAndAdministration"
	InterestExpense                 CanonicalField = "InterestExpense"
	NetIncomeCommonStockholders     CanonicalField = "NetIncomeCommonStockholders"
)

// Cash flow line items.
const (
	OperatingCashFlow        CanonicalField = "OperatingCashFlow"
	InvestingCashFlow        CanonicalField = "InvestingCashFlow"
	FinancingCashFlow        CanonicalField = "FinancingCashFlow"
	CashDividendsPaid        CanonicalField = "CashDividendsPaid"
	RepurchaseOfCapitalStock CanonicalField = "RepurchaseOfCapitalStock"
	EndCashPosition          CanonicalField = "EndCashPosition"
)

// Fields computed from statement values rather than shipped by a provider.
const (
	Ebit            CanonicalField = "Ebit"
	GrossMargin     CanonicalField = "GrossMargin"
	EbitMargin      CanonicalField = "EbitMargin"
	NetMargin       CanonicalField = "NetMargin"
	RevenueGrowth   CanonicalField = "RevenueGrowth"
	EbitGrowth      CanonicalField = "EbitGrowth"
	NetIncomeGrowth CanonicalField = "NetIncomeGrowth"
	LastDividend    CanonicalField = "LastDividend"
	Buyback         CanonicalField = "Buyback"

	// NoncurrentLiability is derived at aggregation time.
	NoncurrentLiability CanonicalField = "NoncurrentLiability"
)

// StatementKind identifies one of the three financial statements.
type StatementKind string

const (
	KindBalanceSheet    StatementKind = "balance_sheet"
	KindIncomeStatement StatementKind = "income_statement"
	KindCashFlow        StatementKind = "cash_flow"
)

var balanceSheetFields = []CanonicalField{
	TotalAssets, CurrentAssets, CurrentLiabilities,
	CurrentDebtAndCapitalLeaseObligation, CurrentCapitalLeaseObligation,
	LongTermDebtAndCapitalLeaseObligation, LongTermCapitalLeaseObligation,
	TotalEquityGrossMinorityInterest, CommonStockEquity, MinorityInterest,
	CashAndCashEquivalents, OtherShortTermInvestments, InvestmentProperties,
	LongTermEquityInvestment, InvestmentinFinancialAssets, NetPPE,
}

var incomeStatementFields = []CanonicalField{
	TotalRevenue, CostOfRevenue, SellingGeneralAndAdministration,
	InterestExpense, NetIncomeCommonStockholders,
}

var cashFlowFields = []CanonicalField{
	OperatingCashFlow, InvestingCashFlow, FinancingCashFlow,
	CashDividendsPaid, RepurchaseOfCapitalStock, EndCashPosition,
}

// Kinds lists the statement kinds in export order.
func Kinds() []StatementKind {
	return []StatementKind{KindBalanceSheet, KindIncomeStatement, KindCashFlow}
}

// Fields returns the canonical index of the statement kind.
func (k StatementKind) Fields() []CanonicalField {
	var src []CanonicalField
	switch k {
	case KindBalanceSheet:
		src = balanceSheetFields
	case KindIncomeStatement:
		src = incomeStatementFields
	case KindCashFlow:
		src = cashFlowFields
	}
	out := make([]CanonicalField, len(src))
	copy(out, src)
	return out
}

// Contains reports whether f belongs to the statement kind's index.
func (k StatementKind) Contains(f CanonicalField) bool {
	for _, c := range k.Fields() {
		if c == f {
			return true
		}
	}
	return false
}

// StatementFields returns every canonical statement field, balance sheet
// first, then income statement, then cash flow.
func StatementFields() []CanonicalField {
	out := make([]CanonicalField, 0, len(balanceSheetFields)+len(incomeStatementFields)+len(cashFlowFields))
	for _, k := range Kinds() {
		out = append(out, k.Fields()...)
	}
	return out
}

// DerivedFields returns the fields computed by the normalizer.
func DerivedFields() []CanonicalField {
	return []CanonicalField{
		Ebit, GrossMargin, EbitMargin, NetMargin,
		RevenueGrowth, EbitGrowth, NetIncomeGrowth,
		LastDividend, Buyback,
	}
}

// PeriodicDerivedFields are the derived fields that exist per period.
// Growth and per-share fields only exist for the current period.
func PeriodicDerivedFields() []CanonicalField {
	return []CanonicalField{Ebit, GrossMargin, EbitMargin, NetMargin}
}
