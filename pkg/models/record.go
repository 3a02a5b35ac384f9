package models

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/guregu/null/v6"
)

// PriorSuffix tags values of the period one step before the most recent.
const PriorSuffix = "_-1"

// FieldKey returns the record key of field f at the given period offset.
// Offset 0 has no suffix; offset -1 becomes "<field>_-1".
func FieldKey(f CanonicalField, offset int) string {
	if offset == 0 {
		return string(f)
	}
	return string(f) + "_" + strconv.Itoa(offset)
}

// CompanyRecord is the normalized one-row view of a ticker. It is built
// once and never mutated; accessors hand out copies.
type CompanyRecord struct {
	ticker     string
	source     string
	intro      IntroInfo
	values     map[string]null.Float
	unreported map[string]struct{}
}

// NewCompanyRecord builds a record from its parts. The values map is copied.
// unreported lists keys the provider left empty; their values may have been
// defaulted to 0 but Reported still returns false for them.
func NewCompanyRecord(ticker, source string, intro IntroInfo, values map[string]null.Float, unreported ...string) *CompanyRecord {
	cp := make(map[string]null.Float, len(values))
	for k, v := range values {
		cp[k] = v
	}
	r := &CompanyRecord{ticker: ticker, source: source, intro: intro, values: cp}
	r.setUnreported(unreported)
	return r
}

func (r *CompanyRecord) setUnreported(keys []string) {
	r.unreported = nil
	if len(keys) == 0 {
		return
	}
	r.unreported = make(map[string]struct{}, len(keys))
	for _, k := range keys {
		r.unreported[k] = struct{}{}
	}
}

func (r *CompanyRecord) Ticker() string   { return r.ticker }
func (r *CompanyRecord) Source() string   { return r.source }
func (r *CompanyRecord) Intro() IntroInfo { return r.intro }
func (r *CompanyRecord) Len() int         { return len(r.values) }

// Lookup returns the value stored under key and whether the key exists.
func (r *CompanyRecord) Lookup(key string) (null.Float, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Get returns field f at the given period offset. Absent keys are null.
func (r *CompanyRecord) Get(f CanonicalField, offset int) null.Float {
	return r.values[FieldKey(f, offset)]
}

// Float returns field f at offset as a plain number, 0 when null or absent.
func (r *CompanyRecord) Float(f CanonicalField, offset int) float64 {
	return r.Get(f, offset).Float64
}

// Has reports whether the record carries field f at offset.
func (r *CompanyRecord) Has(f CanonicalField, offset int) bool {
	_, ok := r.values[FieldKey(f, offset)]
	return ok
}

// Reported reports whether the provider supplied field f at offset. A key
// that is absent or marked unreported is not reported, whatever its value.
func (r *CompanyRecord) Reported(f CanonicalField, offset int) bool {
	key := FieldKey(f, offset)
	if _, ok := r.values[key]; !ok {
		return false
	}
	_, missing := r.unreported[key]
	return !missing
}

// Unreported returns the keys marked unreported in sorted order.
func (r *CompanyRecord) Unreported() []string {
	keys := make([]string, 0, len(r.unreported))
	for k := range r.unreported {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasPrior reports whether any prior-period key is present.
func (r *CompanyRecord) HasPrior() bool {
	for k := range r.values {
		if len(k) > len(PriorSuffix) && k[len(k)-len(PriorSuffix):] == PriorSuffix {
			return true
		}
	}
	return false
}

// Keys returns every value key in sorted order.
func (r *CompanyRecord) Keys() []string {
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type recordJSON struct {
	Ticker string                `json:"ticker"`
	Source string                `json:"source"`
	Intro  IntroInfo             `json:"intro"`
	Values     map[string]null.Float `json:"values"`
	Unreported []string              `json:"unreported,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r *CompanyRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Ticker: r.ticker,
		Source: r.source,
		Intro:  r.intro,
		Values:     r.values,
		Unreported: r.Unreported(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *CompanyRecord) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Values == nil {
		raw.Values = make(map[string]null.Float)
	}
	r.ticker = raw.Ticker
	r.source = raw.Source
	r.intro = raw.Intro
	r.values = raw.Values
	r.setUnreported(raw.Unreported)
	return nil
}
