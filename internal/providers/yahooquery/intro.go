package yahooquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/tidwall/gjson"

	"github.com/seenimoa/smartvalue/internal/provider"
	"github.com/seenimoa/smartvalue/pkg/models"
)

const introModules = "quoteType,assetProfile,financialData,price,defaultKeyStatistics"

// summary fetches quoteSummary modules and returns the first result.
func (p *Provider) summary(ctx context.Context, ticker, modules string) (gjson.Result, error) {
	url := fmt.Sprintf("%s/v10/finance/quoteSummary/%s", p.baseURL, ticker)
	doc, err := p.getJSON(ctx, ticker, url, map[string]string{"modules": modules})
	if err != nil {
		return gjson.Result{}, err
	}
	if e := doc.Get("quoteSummary.error"); e.Exists() && e.Type != gjson.Null {
		if strings.EqualFold(e.Get("code").String(), "Not Found") {
			return gjson.Result{}, provider.NewDataUnavailable(providerName, ticker, e.Get("description").String())
		}
		return gjson.Result{}, provider.NewProviderError(providerName, ticker, fmt.Errorf("quoteSummary: %s", e.Get("description").String()))
	}
	res := doc.Get("quoteSummary.result.0")
	if !res.Exists() {
		return gjson.Result{}, provider.NewDataUnavailable(providerName, ticker, "empty quoteSummary result")
	}
	return res, nil
}

func (p *Provider) intro(ctx context.Context, ticker string) (models.IntroInfo, error) {
	res, err := p.summary(ctx, ticker, introModules)
	if err != nil {
		return models.IntroInfo{}, err
	}

	in := models.IntroInfo{
		Symbol:            strings.ToUpper(ticker),
		ShortName:         firstString(res, "quoteType.shortName", "price.shortName", "quoteType.longName"),
		Sector:            res.Get("assetProfile.sector").String(),
		Industry:          res.Get("assetProfile.industry").String(),
		Exchange:          firstString(res, "quoteType.exchange", "price.exchange"),
		SharesOutstanding: rawFloat(res, "defaultKeyStatistics.sharesOutstanding"),
		FinancialCurrency: res.Get("financialData.financialCurrency").String(),
		Price:             rawFloat(res, "financialData.currentPrice"),
		PriceCurrency:     res.Get("price.currency").String(),
		LastFiscalYearEnd: rawTime(res, "defaultKeyStatistics.lastFiscalYearEnd"),
		MostRecentQuarter: rawTime(res, "defaultKeyStatistics.mostRecentQuarter"),
		DownloadedAt:      time.Now().UTC(),
	}
	if !in.Price.Valid {
		in.Price = rawFloat(res, "price.regularMarketPrice")
	}
	return in, nil
}

// Quote returns the current price with its currency and the report
// currency.
func (p *Provider) Quote(ctx context.Context, ticker string) (*models.Quote, error) {
	res, err := p.summary(ctx, ticker, "price,financialData")
	if err != nil {
		return nil, err
	}
	price := rawFloat(res, "financialData.currentPrice")
	if !price.Valid {
		price = rawFloat(res, "price.regularMarketPrice")
	}
	if !price.Valid {
		return nil, provider.NewDataUnavailable(providerName, ticker, "no price")
	}
	q := &models.Quote{
		Symbol:         strings.ToUpper(ticker),
		Price:          price.Float64,
		PriceCurrency:  res.Get("price.currency").String(),
		ReportCurrency: res.Get("financialData.financialCurrency").String(),
		AsOf:           time.Now().UTC(),
	}
	if ts := res.Get("price.regularMarketTime"); ts.Type == gjson.Number {
		q.AsOf = time.Unix(ts.Int(), 0).UTC()
	}
	if q.ReportCurrency == "" {
		q.ReportCurrency = q.PriceCurrency
	}
	return q, nil
}

// rawFloat reads a {raw, fmt} wrapper. Bare numbers are accepted too.
func rawFloat(res gjson.Result, path string) null.Float {
	v := res.Get(path)
	if v.Type == gjson.Number {
		return null.FloatFrom(v.Float())
	}
	if raw := v.Get("raw"); raw.Type == gjson.Number {
		return null.FloatFrom(raw.Float())
	}
	return null.Float{}
}

func rawTime(res gjson.Result, path string) null.Time {
	f := rawFloat(res, path)
	if !f.Valid {
		return null.Time{}
	}
	return null.TimeFrom(time.Unix(int64(f.Float64), 0).UTC())
}

func firstString(res gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := strings.TrimSpace(res.Get(p).String()); s != "" {
			return s
		}
	}
	return ""
}
