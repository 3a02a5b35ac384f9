// Package utils provides ticker parsing and number formatting helpers for
// the command line.
package utils

import (
	"strings"
	"unicode"
)

// Yahoo exchange suffixes and the market whose risk-free rate applies.
var suffixMarkets = map[string]string{
	"HK": "hk",
	"SS": "cn",
	"SZ": "cn",
	"BJ": "cn",
}

// NormalizeTicker uppercases a user-input ticker and strips whitespace and
// a leading "$". Hong Kong codes are zero-padded to four digits, so
// "700.hk" becomes "0700.HK".
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	ticker = strings.TrimPrefix(ticker, "$")

	code, suffix, ok := strings.Cut(ticker, ".")
	if ok && suffix == "HK" && len(code) < 4 && isDigits(code) {
		ticker = strings.Repeat("0", 4-len(code)) + code + ".HK"
	}
	return ticker
}

// ParseTickers splits a whitespace or comma separated ticker list,
// normalizing each entry and dropping duplicates. Input order is kept.
func ParseTickers(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		t := NormalizeTicker(f)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Market returns the market a ticker trades in: "hk", "cn" or "us".
// Tickers without a known exchange suffix are treated as US listings.
func Market(ticker string) string {
	ticker = NormalizeTicker(ticker)
	if i := strings.LastIndexByte(ticker, '.'); i >= 0 {
		if m, ok := suffixMarkets[ticker[i+1:]]; ok {
			return m
		}
	}
	return "us"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
