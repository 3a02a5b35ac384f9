// Package aggregate merges normalized company records into one table,
// derives the cross-statement fields and exports the result as a flat
// delimited file with a fixed, versioned column order.
package aggregate

import (
	"sort"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"

	"github.com/seenimoa/smartvalue/pkg/models"
)

// Drop reasons.
const (
	ReasonMissingTotalAssets = "missing TotalAssets"
	ReasonMissingCurrency    = "missing reporting currency"
)

// Row is one exported company: its record plus the fields derived here.
type Row struct {
	Record  *models.CompanyRecord
	Derived map[string]null.Float
}

// Value returns the value stored under key, preferring derived fields.
func (r Row) Value(key string) (null.Float, bool) {
	if v, ok := r.Derived[key]; ok {
		return v, true
	}
	return r.Record.Lookup(key)
}

// Drop records a record excluded from the table.
type Drop struct {
	Ticker string
	Reason string
}

// Table is the merged, filtered set of records ordered by ticker.
type Table struct {
	Layout  Layout
	Rows    []Row
	Dropped []Drop
}

// Tickers returns the tickers of the kept rows.
func (t *Table) Tickers() []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Record.Ticker()
	}
	return out
}

// Aggregator builds Tables.
type Aggregator struct {
	layout Layout
	logger zerolog.Logger
}

// New creates an Aggregator using LayoutV1.
func New(logger zerolog.Logger) *Aggregator {
	return &Aggregator{layout: LayoutV1(), logger: logger}
}

// Aggregate merges records keyed by ticker (a later record replaces an
// earlier one), drops records without TotalAssets or reporting currency,
// and derives NoncurrentLiability for the current and prior period.
func (a *Aggregator) Aggregate(records []*models.CompanyRecord) *Table {
	byTicker := make(map[string]*models.CompanyRecord, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		byTicker[r.Ticker()] = r
	}
	tickers := make([]string, 0, len(byTicker))
	for t := range byTicker {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	tbl := &Table{Layout: a.layout}
	for _, t := range tickers {
		rec := byTicker[t]
		if reason := missingMandatory(rec); reason != "" {
			a.logger.Debug().Str("ticker", t).Str("reason", reason).Msg("dropping record from export")
			tbl.Dropped = append(tbl.Dropped, Drop{Ticker: t, Reason: reason})
			continue
		}
		tbl.Rows = append(tbl.Rows, Row{Record: rec, Derived: derive(rec)})
	}
	return tbl
}

func missingMandatory(rec *models.CompanyRecord) string {
	if !rec.Reported(models.TotalAssets, 0) || !rec.Get(models.TotalAssets, 0).Valid {
		return ReasonMissingTotalAssets
	}
	if rec.Intro().FinancialCurrency == "" {
		return ReasonMissingCurrency
	}
	return ""
}

// derive computes NoncurrentLiability = TotalAssets - TotalEquity for each
// period the record carries. A null or unreported operand makes the result
// null.
func derive(rec *models.CompanyRecord) map[string]null.Float {
	out := make(map[string]null.Float, 2)
	for _, off := range []int{0, -1} {
		if !rec.Has(models.TotalAssets, off) {
			continue
		}
		assets := rec.Get(models.TotalAssets, off)
		equity := rec.Get(models.TotalEquityGrossMinorityInterest, off)
		key := models.FieldKey(models.NoncurrentLiability, off)
		if !assets.Valid || !equity.Valid ||
			!rec.Reported(models.TotalAssets, off) || !rec.Reported(models.TotalEquityGrossMinorityInterest, off) {
			out[key] = null.Float{}
			continue
		}
		out[key] = null.FloatFrom(assets.Float64 - equity.Float64)
	}
	return out
}
