package fmp

// --- FMP API response types ---

// fmpQuote is one entry of /quote.
type fmpQuote struct {
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Exchange          string  `json:"exchange"`
	SharesOutstanding float64 `json:"sharesOutstanding"`
	Timestamp         int64   `json:"timestamp"`
}

// fmpProfile is one entry of /profile.
type fmpProfile struct {
	Symbol            string  `json:"symbol"`
	Price             float64 `json:"price"`
	CompanyName       string  `json:"companyName"`
	Currency          string  `json:"currency"`
	Exchange          string  `json:"exchange"`
	ExchangeShortName string  `json:"exchangeShortName"`
	Industry          string  `json:"industry"`
	Sector            string  `json:"sector"`
}

// fmpStatement is one period of a statement endpoint. Line items are kept
// as a generic map so that absent keys stay distinguishable from zeros.
type fmpStatement map[string]any

func (s fmpStatement) str(key string) string {
	v, _ := s[key].(string)
	return v
}

// fmpError is the body FMP returns for rejected keys and exhausted quotas.
type fmpError struct {
	Message string `json:"Error Message"`
}
