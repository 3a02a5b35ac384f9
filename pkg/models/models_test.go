package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// ── Canonical index ──

func TestStatementKindFields(t *testing.T) {
	assert.Len(t, KindBalanceSheet.Fields(), 16)
	assert.Len(t, KindIncomeStatement.Fields(), 5)
	assert.Len(t, KindCashFlow.Fields(), 6)
	assert.Len(t, StatementFields(), 27)

	assert.True(t, KindBalanceSheet.Contains(TotalAssets))
	assert.False(t, KindBalanceSheet.Contains(TotalRevenue))

	// Callers may not mutate the shared index.
	f := KindCashFlow.Fields()
	f[0] = "Broken"
	assert.Equal(t, OperatingCashFlow, KindCashFlow.Fields()[0])
}

func TestFieldKey(t *testing.T) {
	assert.Equal(t, "TotalAssets", FieldKey(TotalAssets, 0))
	assert.Equal(t, "TotalAssets_-1", FieldKey(TotalAssets, -1))
}

// ── StatementTable ──

func TestNewStatementTableCoversIndex(t *testing.T) {
	tbl := NewStatementTable(KindIncomeStatement, []time.Time{day("2023-12-31"), day("2022-12-31")})
	require.Equal(t, 2, tbl.NumPeriods())
	for _, f := range KindIncomeStatement.Fields() {
		row, ok := tbl.Rows[f]
		require.True(t, ok, "row %s missing", f)
		assert.Len(t, row, 2)
		assert.False(t, row[0].Valid)
	}
	assert.Equal(t, KindIncomeStatement.Fields(), tbl.Missing())
}

func TestStatementTableSet(t *testing.T) {
	tbl := NewStatementTable(KindIncomeStatement, []time.Time{day("2023-12-31")})

	assert.True(t, tbl.Set(TotalRevenue, 0, null.FloatFrom(10)))
	assert.False(t, tbl.Set(TotalAssets, 0, null.FloatFrom(1)), "field outside index")
	assert.False(t, tbl.Set(TotalRevenue, 3, null.FloatFrom(1)), "column out of range")

	// A shipped row with a null cell is still shipped.
	assert.True(t, tbl.Set(CostOfRevenue, 0, null.Float{}))

	assert.Equal(t, 10.0, tbl.Value(TotalRevenue, 0).Float64)
	assert.True(t, tbl.Shipped(CostOfRevenue))
	assert.NotContains(t, tbl.Missing(), TotalRevenue)
	assert.NotContains(t, tbl.Missing(), CostOfRevenue)
	assert.Contains(t, tbl.Missing(), InterestExpense)
	assert.False(t, tbl.Value(TotalAssets, 0).Valid)
}

func TestStatementTableReverseAndNewestFirst(t *testing.T) {
	asc := NewStatementTable(KindCashFlow, []time.Time{day("2021-12-31"), day("2022-12-31"), day("2023-12-31")})
	asc.Set(OperatingCashFlow, 0, null.FloatFrom(1))
	asc.Set(OperatingCashFlow, 1, null.FloatFrom(2))
	asc.Set(OperatingCashFlow, 2, null.FloatFrom(3))

	sorted := asc.NewestFirst()
	assert.Equal(t, day("2023-12-31"), sorted.Periods[0])
	assert.Equal(t, 3.0, sorted.Value(OperatingCashFlow, 0).Float64)
	assert.Equal(t, 1.0, sorted.Value(OperatingCashFlow, 2).Float64)
	assert.True(t, sorted.Shipped(OperatingCashFlow))

	// Original untouched.
	assert.Equal(t, 1.0, asc.Value(OperatingCashFlow, 0).Float64)

	asc.Reverse()
	assert.Equal(t, sorted.Periods, asc.Periods)
	assert.Equal(t, sorted.Rows[OperatingCashFlow], asc.Rows[OperatingCashFlow])
}

// ── CompanyRecord ──

func TestCompanyRecordIsImmutable(t *testing.T) {
	values := map[string]null.Float{"TotalAssets": null.FloatFrom(100)}
	r := NewCompanyRecord("AAA", "yq", IntroInfo{FinancialCurrency: "USD"}, values)

	values["TotalAssets"] = null.FloatFrom(1)
	assert.Equal(t, 100.0, r.Float(TotalAssets, 0))
	assert.False(t, r.HasPrior())
	assert.Equal(t, 0.0, r.Float(TotalAssets, -1))
	assert.False(t, r.Has(TotalAssets, -1))
}

func TestCompanyRecordReported(t *testing.T) {
	r := NewCompanyRecord("AAA", "yq", IntroInfo{}, map[string]null.Float{
		"TotalAssets":   null.FloatFrom(0),
		"CurrentAssets": null.FloatFrom(10),
	}, "TotalAssets")

	assert.False(t, r.Reported(TotalAssets, 0), "defaulted value is still unreported")
	assert.True(t, r.Get(TotalAssets, 0).Valid)
	assert.True(t, r.Reported(CurrentAssets, 0))
	assert.False(t, r.Reported(NetPPE, 0), "absent key")
	assert.Equal(t, []string{"TotalAssets"}, r.Unreported())

	data, err := json.Marshal(r)
	require.NoError(t, err)
	var decoded CompanyRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.False(t, decoded.Reported(TotalAssets, 0))
	assert.True(t, decoded.Reported(CurrentAssets, 0))
}

func TestCompanyRecordJSON(t *testing.T) {
	r := NewCompanyRecord("0700.HK", "yf", IntroInfo{
		Symbol:            "0700.HK",
		ShortName:         "TENCENT",
		FinancialCurrency: "CNY",
		SharesOutstanding: null.FloatFrom(9.4e9),
		MostRecentQuarter: null.TimeFrom(day("2023-09-30")),
	}, map[string]null.Float{
		"TotalAssets":    null.FloatFrom(1.5e12),
		"TotalAssets_-1": null.FloatFrom(1.4e12),
		"NetPPE":         {},
	})

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded CompanyRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "0700.HK", decoded.Ticker())
	assert.Equal(t, "yf", decoded.Source())
	assert.Equal(t, "CNY", decoded.Intro().FinancialCurrency)
	assert.Equal(t, r.Keys(), decoded.Keys())
	assert.True(t, decoded.HasPrior())

	v, ok := decoded.Lookup("NetPPE")
	assert.True(t, ok)
	assert.False(t, v.Valid)
}
