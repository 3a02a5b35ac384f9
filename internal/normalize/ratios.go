package normalize

import (
	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/smartvalue/pkg/models"
)

// Every ratio below is 0 when its denominator is 0.

// derive adds the computed fields to values. incomePeriods is the number of
// income statement periods kept (0, 1 or 2). With keepNulls a derived field
// whose inputs were not all reported is null instead of being computed from
// zeros.
func derive(values map[string]null.Float, incomePeriods int, shares null.Float, keepNulls bool) {
	get := func(f models.CanonicalField, offset int) null.Float {
		return values[models.FieldKey(f, offset)]
	}
	known := func(in ...null.Float) bool {
		if !keepNulls {
			return true
		}
		for _, v := range in {
			if !v.Valid {
				return false
			}
		}
		return true
	}
	set := func(f models.CanonicalField, offset int, ok bool, v float64) {
		if !ok {
			values[models.FieldKey(f, offset)] = null.Float{}
			return
		}
		values[models.FieldKey(f, offset)] = null.FloatFrom(v)
	}

	offsets := []int{0}
	if incomePeriods == MaxPeriods {
		offsets = append(offsets, -1)
	}
	for _, off := range offsets {
		rev := get(models.TotalRevenue, off)
		cost := get(models.CostOfRevenue, off)
		sga := get(models.SellingGeneralAndAdministration, off)
		net := get(models.NetIncomeCommonStockholders, off)

		gross := rev.Float64 - cost.Float64
		ebit := gross - sga.Float64

		set(models.Ebit, off, known(rev, cost, sga), ebit)
		set(models.GrossMargin, off, known(rev, cost), Percent(gross, rev.Float64))
		set(models.EbitMargin, off, known(rev, cost, sga), Percent(ebit, rev.Float64))
		set(models.NetMargin, off, known(rev, net), Percent(net.Float64, rev.Float64))
	}

	growth := func(f models.CanonicalField) null.Float {
		if incomePeriods < MaxPeriods {
			return null.Float{}
		}
		rev0, rev1 := get(models.TotalRevenue, 0), get(models.TotalRevenue, -1)
		cur, prev := get(f, 0), get(f, -1)
		if !known(rev0, rev1, cur, prev) {
			return null.Float{}
		}
		// Growth is undefined without revenue in both periods.
		if rev0.Float64 == 0 || rev1.Float64 == 0 {
			return null.FloatFrom(0)
		}
		return null.FloatFrom(Growth(cur.Float64, prev.Float64))
	}
	values[models.FieldKey(models.RevenueGrowth, 0)] = growth(models.TotalRevenue)
	values[models.FieldKey(models.EbitGrowth, 0)] = growth(models.Ebit)
	values[models.FieldKey(models.NetIncomeGrowth, 0)] = growth(models.NetIncomeCommonStockholders)

	// Cash paid out is reported negative; per-share figures are positive.
	div := get(models.CashDividendsPaid, 0)
	buyback := get(models.RepurchaseOfCapitalStock, 0)
	set(models.LastDividend, 0, known(div, shares), PerShare(-div.Float64, shares.Float64))
	set(models.Buyback, 0, known(buyback, shares), PerShare(-buyback.Float64, shares.Float64))
}

// Percent returns num/den*100 rounded to 2 decimals.
func Percent(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	f, _ := decimal.NewFromFloat(num).
		Div(decimal.NewFromFloat(den)).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		Float64()
	return f
}

// Growth returns the change from prev to cur as a percentage of |prev|,
// rounded to 2 decimals.
func Growth(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	f, _ := decimal.NewFromFloat(cur - prev).
		Div(decimal.NewFromFloat(prev).Abs()).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		Float64()
	return f
}

// PerShare divides amount by shares, rounded to 4 decimals.
func PerShare(amount, shares float64) float64 {
	if shares == 0 {
		return 0
	}
	f, _ := decimal.NewFromFloat(amount).
		Div(decimal.NewFromFloat(shares)).
		Round(4).
		Float64()
	return f
}
