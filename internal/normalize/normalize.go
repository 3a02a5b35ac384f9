// Package normalize flattens multi-period statement tables into one
// fixed-width CompanyRecord per ticker.
//
// Columns are first ordered newest-first by report date, whatever order the
// provider used, then sliced to the current period (no suffix) and the
// immediately prior period ("_-1"). A table with a single period yields no
// prior-period keys. Nulls become 0 as the very last step unless
// PreserveNulls is set; the record still marks them unreported so the
// export can tell a missing figure from a reported zero.
package normalize

import (
	"math"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"

	"github.com/seenimoa/smartvalue/pkg/models"
)

// MaxPeriods is the number of most recent periods kept per statement.
const MaxPeriods = 2

// Options tunes normalization.
type Options struct {
	// PreserveNulls keeps unreported values as null instead of 0.
	PreserveNulls bool
}

// Normalizer turns fetched statements into CompanyRecords. It holds no
// per-call state and is safe for concurrent use.
type Normalizer struct {
	opts   Options
	logger zerolog.Logger
}

// New creates a Normalizer.
func New(opts Options, logger zerolog.Logger) *Normalizer {
	return &Normalizer{opts: opts, logger: logger}
}

// SchemaMismatch lists canonical fields a provider omitted entirely from
// one statement.
type SchemaMismatch struct {
	Kind   models.StatementKind
	Fields []models.CanonicalField
}

// Mismatches reports, per statement, the canonical fields the provider did
// not ship at all.
func Mismatches(st *models.Statements) []SchemaMismatch {
	var out []SchemaMismatch
	for i, tbl := range st.Tables() {
		kind := models.Kinds()[i]
		var missing []models.CanonicalField
		if tbl == nil {
			missing = kind.Fields()
		} else {
			missing = tbl.Missing()
		}
		if len(missing) > 0 {
			out = append(out, SchemaMismatch{Kind: kind, Fields: missing})
		}
	}
	return out
}

// Normalize builds the CompanyRecord of st. The record always carries every
// canonical statement field and every derived field at offset 0; offset -1
// keys exist for each statement that reported at least two periods.
func (n *Normalizer) Normalize(st *models.Statements) *models.CompanyRecord {
	for _, m := range Mismatches(st) {
		fields := make([]string, len(m.Fields))
		for i, f := range m.Fields {
			fields[i] = string(f)
		}
		n.logger.Warn().
			Str("ticker", st.Ticker).
			Str("provider", st.Source).
			Str("statement", string(m.Kind)).
			Strs("fields", fields).
			Msg("provider omitted canonical fields")
	}

	values := make(map[string]null.Float)
	periods := make(map[models.StatementKind]int)

	for i, tbl := range st.Tables() {
		kind := models.Kinds()[i]
		if tbl == nil {
			tbl = models.NewStatementTable(kind, nil)
		}
		sorted := tbl.NewestFirst()
		keep := sorted.NumPeriods()
		if keep > MaxPeriods {
			keep = MaxPeriods
		}
		periods[kind] = keep

		for _, f := range kind.Fields() {
			values[models.FieldKey(f, 0)] = numeric(sorted.Value(f, 0))
			if keep == MaxPeriods {
				values[models.FieldKey(f, -1)] = numeric(sorted.Value(f, 1))
			}
		}
	}

	derive(values, periods[models.KindIncomeStatement], st.Intro.SharesOutstanding, n.opts.PreserveNulls)

	var unreported []string
	for k, v := range values {
		if v.Valid {
			continue
		}
		unreported = append(unreported, k)
		if !n.opts.PreserveNulls {
			values[k] = null.FloatFrom(0)
		}
	}

	return models.NewCompanyRecord(st.Ticker, st.Source, st.Intro, values, unreported...)
}

// numeric drops non-finite numbers, which providers occasionally emit for
// unparseable cells.
func numeric(v null.Float) null.Float {
	if v.Valid && (math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0)) {
		return null.Float{}
	}
	return v
}
