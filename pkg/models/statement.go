package models

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// StatementTable is a provider-native statement: report dates on one axis,
// canonical line items on the other. Columns keep the order the provider
// returned them in until the normalizer reorders them.
//
// Every field of the kind's canonical index has a row, even when the
// provider never shipped it; such rows hold invalid (null) values.
type StatementTable struct {
	Kind    StatementKind
	Periods []time.Time
	Rows    map[CanonicalField][]null.Float

	shipped map[CanonicalField]bool
}

// NewStatementTable allocates a table covering the full canonical index of
// kind with one null cell per period.
func NewStatementTable(kind StatementKind, periods []time.Time) *StatementTable {
	t := &StatementTable{
		Kind:    kind,
		Periods: append([]time.Time(nil), periods...),
		Rows:    make(map[CanonicalField][]null.Float),
		shipped: make(map[CanonicalField]bool),
	}
	for _, f := range kind.Fields() {
		t.Rows[f] = make([]null.Float, len(periods))
	}
	return t
}

// NumPeriods returns the number of period columns.
func (t *StatementTable) NumPeriods() int {
	if t == nil {
		return 0
	}
	return len(t.Periods)
}

// Set stores v at column col for field f and marks the field as shipped by
// the provider. Fields outside the kind's index and out-of-range columns
// are ignored; the return value reports whether the cell was stored.
func (t *StatementTable) Set(f CanonicalField, col int, v null.Float) bool {
	row, ok := t.Rows[f]
	if !ok || col < 0 || col >= len(row) {
		return false
	}
	row[col] = v
	t.shipped[f] = true
	return true
}

// Value returns the cell for field f at column col. Unknown fields and
// out-of-range columns yield a null value.
func (t *StatementTable) Value(f CanonicalField, col int) null.Float {
	if t == nil {
		return null.Float{}
	}
	row, ok := t.Rows[f]
	if !ok || col < 0 || col >= len(row) {
		return null.Float{}
	}
	return row[col]
}

// Shipped reports whether the provider returned a row for f.
func (t *StatementTable) Shipped(f CanonicalField) bool {
	return t != nil && t.shipped[f]
}

// Missing lists the canonical fields the provider did not return at all,
// in index order.
func (t *StatementTable) Missing() []CanonicalField {
	if t == nil {
		return nil
	}
	var out []CanonicalField
	for _, f := range t.Kind.Fields() {
		if !t.shipped[f] {
			out = append(out, f)
		}
	}
	return out
}

// Reverse flips the column order in place.
func (t *StatementTable) Reverse() {
	n := len(t.Periods)
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		t.Periods[i], t.Periods[j] = t.Periods[j], t.Periods[i]
		for _, row := range t.Rows {
			row[i], row[j] = row[j], row[i]
		}
	}
}

// NewestFirst returns a copy of the table with columns ordered by
// descending report date. Columns with equal dates keep their relative order.
func (t *StatementTable) NewestFirst() *StatementTable {
	idx := make([]int, len(t.Periods))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.Periods[idx[a]].After(t.Periods[idx[b]])
	})

	out := &StatementTable{
		Kind:    t.Kind,
		Periods: make([]time.Time, len(idx)),
		Rows:    make(map[CanonicalField][]null.Float, len(t.Rows)),
		shipped: make(map[CanonicalField]bool, len(t.shipped)),
	}
	for pos, src := range idx {
		out.Periods[pos] = t.Periods[src]
	}
	for f, row := range t.Rows {
		nr := make([]null.Float, len(idx))
		for pos, src := range idx {
			if src < len(row) {
				nr[pos] = row[src]
			}
		}
		out.Rows[f] = nr
	}
	for f, ok := range t.shipped {
		out.shipped[f] = ok
	}
	return out
}

// IntroInfo is the company identity and pricing data returned alongside the
// statements.
type IntroInfo struct {
	Symbol            string     `json:"symbol"`
	ShortName         string     `json:"short_name"`
	Sector            string     `json:"sector"`
	Industry          string     `json:"industry"`
	Exchange          string     `json:"exchange"`
	SharesOutstanding null.Float `json:"shares_outstanding"`
	FinancialCurrency string     `json:"financial_currency"`
	Price             null.Float `json:"price"`
	PriceCurrency     string     `json:"price_currency"`
	LastFiscalYearEnd null.Time  `json:"last_fiscal_year_end"`
	MostRecentQuarter null.Time  `json:"most_recent_quarter"`
	DownloadedAt      time.Time  `json:"downloaded_at"`
}

// Statements bundles one fetch of a ticker: balance sheet, income statement,
// cash flow and intro info.
type Statements struct {
	Ticker          string
	Source          string
	BalanceSheet    *StatementTable
	IncomeStatement *StatementTable
	CashFlow        *StatementTable
	Intro           IntroInfo
}

// Tables returns the three statements in export order.
func (s *Statements) Tables() []*StatementTable {
	return []*StatementTable{s.BalanceSheet, s.IncomeStatement, s.CashFlow}
}

// Quote is the current market price of a ticker together with the
// currency its statements are reported in.
type Quote struct {
	Symbol         string    `json:"symbol"`
	Price          float64   `json:"price"`
	PriceCurrency  string    `json:"price_currency"`
	ReportCurrency string    `json:"report_currency"`
	AsOf           time.Time `json:"as_of"`
}
