package yahooquery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/tidwall/gjson"

	"github.com/seenimoa/smartvalue/internal/infra"
	"github.com/seenimoa/smartvalue/internal/provider"
	"github.com/seenimoa/smartvalue/pkg/models"
)

// timeseriesTypes returns the request types for kind at the given
// frequency prefix. The mapping to canonical fields is the identity.
func timeseriesTypes(kind models.StatementKind, freq string) []string {
	fields := kind.Fields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = freq + string(f)
	}
	return out
}

// statement fetches one statement and returns it newest first.
func (p *Provider) statement(ctx context.Context, ticker string, kind models.StatementKind, freq string) (*models.StatementTable, error) {
	now := p.now()
	url := fmt.Sprintf("%s/ws/fundamentals-timeseries/v1/finance/timeseries/%s", p.baseURL, ticker)
	doc, err := p.getJSON(ctx, ticker, url, map[string]string{
		"symbol":  ticker,
		"type":    strings.Join(timeseriesTypes(kind, freq), ","),
		"period1": strconv.FormatInt(now.Add(-lookback).Unix(), 10),
		"period2": strconv.FormatInt(now.Unix(), 10),
		"merge":   "false",
	})
	if err != nil {
		return nil, err
	}
	if e := doc.Get("timeseries.error"); e.Exists() && e.Type != gjson.Null {
		return nil, provider.NewProviderError(providerName, ticker, fmt.Errorf("timeseries: %s", e.Get("description").String()))
	}

	series := parseSeries(doc.Get("timeseries.result"), freq)
	t := buildTable(kind, series)
	// Yahoo lists observations oldest first.
	t.Reverse()
	return t, nil
}

// observation is one reported value of a line item.
type observation struct {
	date  time.Time
	value null.Float
}

// parseSeries groups the observations of every result by canonical field.
// Null entries, which Yahoo emits for gaps, are skipped.
func parseSeries(results gjson.Result, freq string) map[models.CanonicalField][]observation {
	out := make(map[models.CanonicalField][]observation)
	results.ForEach(func(_, res gjson.Result) bool {
		typ := res.Get("meta.type.0").String()
		if !strings.HasPrefix(typ, freq) {
			return true
		}
		field := models.CanonicalField(strings.TrimPrefix(typ, freq))
		res.Get(gjsonKey(typ)).ForEach(func(_, obs gjson.Result) bool {
			if obs.Type == gjson.Null {
				return true
			}
			d, err := time.Parse(time.DateOnly, obs.Get("asOfDate").String())
			if err != nil {
				return true
			}
			var v null.Float
			if raw := obs.Get("reportedValue.raw"); raw.Exists() && raw.Type == gjson.Number {
				v = null.FloatFrom(raw.Float())
			}
			out[field] = append(out[field], observation{date: d, value: v})
			return true
		})
		return true
	})
	return out
}

// buildTable lays the observations onto the union of their dates, oldest
// first.
func buildTable(kind models.StatementKind, series map[models.CanonicalField][]observation) *models.StatementTable {
	seen := make(map[time.Time]bool)
	var periods []time.Time
	for _, obs := range series {
		for _, o := range obs {
			if !seen[o.date] {
				seen[o.date] = true
				periods = append(periods, o.date)
			}
		}
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })

	col := make(map[time.Time]int, len(periods))
	for i, d := range periods {
		col[d] = i
	}

	t := models.NewStatementTable(kind, periods)
	for _, f := range kind.Fields() {
		obs, ok := series[f]
		if !ok || len(obs) == 0 {
			continue
		}
		for _, o := range obs {
			t.Set(f, col[o.date], o.value)
		}
	}
	return t
}

// gjsonKey escapes characters gjson treats as path syntax.
func gjsonKey(k string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(k)
}

func asStatus(err error) (*infra.StatusError, bool) {
	var se *infra.StatusError
	ok := errors.As(err, &se)
	return se, ok
}
