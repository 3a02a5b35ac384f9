package yfinance

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/smartvalue/internal/provider"
	"github.com/seenimoa/smartvalue/pkg/models"
)

var quoteModules = []string{"price", "financialData"}

var currencyRe = regexp.MustCompile(`Currency in ([A-Z]{3})`)

// Quote returns the current price and the report currency of ticker. When
// the API has no price the quote page is scraped instead.
func (p *Provider) Quote(ctx context.Context, ticker string) (*models.Quote, error) {
	res, err := p.quoteSummary(ctx, ticker, quoteModules)
	if err != nil && !provider.IsRetryable(err) {
		return nil, err
	}

	q := &models.Quote{Symbol: strings.ToUpper(ticker), AsOf: time.Now().UTC()}
	if res != nil {
		if pr := res.Price; pr != nil {
			q.PriceCurrency = pr.Currency
			if v := finValFloat(pr.RegularMarketPrice); v.Valid {
				q.Price = v.Float64
			}
			if pr.RegularMarketTime > 0 {
				q.AsOf = time.Unix(pr.RegularMarketTime, 0).UTC()
			}
		}
		if fd := res.FinancialData; fd != nil {
			q.ReportCurrency = fd.FinancialCurrency
			if q.Price == 0 {
				if v := finValFloat(fd.CurrentPrice); v.Valid {
					q.Price = v.Float64
				}
			}
		}
	}
	if q.Price > 0 && q.PriceCurrency != "" {
		if q.ReportCurrency == "" {
			q.ReportCurrency = q.PriceCurrency
		}
		return q, nil
	}

	price, ccy, serr := p.scrapeQuote(ctx, ticker)
	if serr != nil {
		if err != nil {
			return nil, err
		}
		return nil, serr
	}
	q.Price = price
	q.PriceCurrency = coalesce(q.PriceCurrency, ccy)
	q.ReportCurrency = coalesce(q.ReportCurrency, q.PriceCurrency)
	return q, nil
}

// scrapeQuote reads the regular market price and its currency from the
// HTML quote page.
func (p *Provider) scrapeQuote(ctx context.Context, ticker string) (float64, string, error) {
	url := fmt.Sprintf("%s/quote/%s", p.pageURL, ticker)
	body, err := p.session.Client().Get(ctx, url, nil)
	if err != nil {
		return 0, "", provider.Classify(providerName, ticker, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, "", provider.NewProviderError(providerName, ticker, fmt.Errorf("parse quote page: %w", err))
	}

	sel := fmt.Sprintf(`fin-streamer[data-symbol=%q][data-field="regularMarketPrice"]`, ticker)
	node := doc.Find(sel).First()
	if node.Length() == 0 {
		return 0, "", provider.NewDataUnavailable(providerName, ticker, "no price on quote page")
	}
	raw, ok := node.Attr("data-value")
	if !ok {
		raw = node.Text()
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""), 64)
	if err != nil {
		return 0, "", provider.NewDataUnavailable(providerName, ticker, fmt.Sprintf("bad price %q", raw))
	}

	var ccy string
	if m := currencyRe.FindStringSubmatch(doc.Text()); m != nil {
		ccy = m[1]
	}
	return price, ccy, nil
}
