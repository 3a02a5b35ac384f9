package aggregate

import (
	"github.com/seenimoa/smartvalue/pkg/models"
)

// LayoutVersion is written into every exported row. Bump it whenever the
// column list changes.
const LayoutVersion = "1"

// Identity and pricing columns, in export order.
const (
	ColLayoutVersion     = "layout_version"
	ColTicker            = "ticker"
	ColSource            = "source"
	ColShortName         = "short_name"
	ColSector            = "sector"
	ColIndustry          = "industry"
	ColExchange          = "exchange"
	ColFinancialCurrency = "financial_currency"
	ColPrice             = "price"
	ColPriceCurrency     = "price_currency"
	ColSharesOutstanding = "shares_outstanding"
	ColLastFiscalYearEnd = "last_fiscal_year_end"
	ColMostRecentQuarter = "most_recent_quarter"
)

var identityColumns = []string{
	ColLayoutVersion, ColTicker, ColSource, ColShortName, ColSector, ColIndustry,
	ColExchange, ColFinancialCurrency, ColPrice, ColPriceCurrency,
	ColSharesOutstanding, ColLastFiscalYearEnd, ColMostRecentQuarter,
}

// Layout is the fixed column order of an export.
type Layout struct {
	Version string
	Columns []string
}

// LayoutV1 returns the current layout: identity columns, then every
// canonical statement field for the current and prior period, then the
// normalizer's derived fields, then the aggregate-level derived fields.
func LayoutV1() Layout {
	cols := append([]string(nil), identityColumns...)
	for _, f := range models.StatementFields() {
		cols = append(cols, models.FieldKey(f, 0), models.FieldKey(f, -1))
	}
	for _, f := range models.PeriodicDerivedFields() {
		cols = append(cols, models.FieldKey(f, 0), models.FieldKey(f, -1))
	}
	cols = append(cols,
		models.FieldKey(models.RevenueGrowth, 0),
		models.FieldKey(models.EbitGrowth, 0),
		models.FieldKey(models.NetIncomeGrowth, 0),
		models.FieldKey(models.LastDividend, 0),
		models.FieldKey(models.Buyback, 0),
		models.FieldKey(models.NoncurrentLiability, 0),
		models.FieldKey(models.NoncurrentLiability, -1),
	)
	return Layout{Version: LayoutVersion, Columns: cols}
}

// IsIdentity reports whether col is an identity or pricing column.
func IsIdentity(col string) bool {
	for _, c := range identityColumns {
		if c == col {
			return true
		}
	}
	return false
}

// Index maps each column name to its position.
func (l Layout) Index() map[string]int {
	idx := make(map[string]int, len(l.Columns))
	for i, c := range l.Columns {
		idx[c] = i
	}
	return idx
}
