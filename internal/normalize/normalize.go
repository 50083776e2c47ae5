// Package normalize provides the canonical transforms that make bank
// statement rows and stored receipts comparable: tax identifiers, locale
// formatted amounts and dates. Every function is pure and total; bad
// input yields a sentinel, never an error.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date layouts tried, in order, after the configured primary layout.
const (
	DateLayoutSlashDMY = "02/01/2006"
	DateLayoutISO      = "2006-01-02"
	DateLayoutDashDMY  = "02-01-2006"
	DateLayoutSlashYMD = "2006/01/02"
)

// FallbackDateLayouts is the fixed fallback list applied when the primary
// layout does not match.
var FallbackDateLayouts = []string{
	DateLayoutSlashDMY,
	DateLayoutISO,
	DateLayoutDashDMY,
	DateLayoutSlashYMD,
}

var (
	taxIDReplacer = strings.NewReplacer("-", "", ".", "", " ", "")
	currencyRe    = regexp.MustCompile(`[$\s]`)
)

// TaxID returns the canonical form of a CUIT/CUIL: hyphens, dots and
// whitespace removed. Blank input maps to the empty string, which
// downstream code treats as "no identifier". Two identifiers are
// comparable iff their canonical forms are equal strings.
//
// The bank side of the original data sometimes embeds the CUIT behind a
// "-" field delimiter; that variant is intentionally not handled here. A
// dash is always treated as a format character and stripped.
func TaxID(raw string) string {
	return taxIDReplacer.Replace(strings.TrimSpace(raw))
}

// Amount parses a currency-formatted string into a decimal. decimalSep
// and thousandsSep describe the source locale; the thousands separator
// is deleted and a comma decimal separator converted to a period before
// parsing. Returns (0, false) when the value cannot be parsed. Callers
// must also treat amounts <= 0 as invalid.
func Amount(raw, decimalSep, thousandsSep string) (decimal.Decimal, bool) {
	s := currencyRe.ReplaceAllString(strings.TrimSpace(raw), "")
	if s == "" {
		return decimal.Zero, false
	}

	if thousandsSep != "" && thousandsSep != decimalSep {
		s = strings.ReplaceAll(s, thousandsSep, "")
	}
	if decimalSep == "," {
		s = strings.ReplaceAll(s, ",", ".")
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

// Date parses a date string, trying the primary layout first and then the
// fixed fallback list. The result is truncated to midnight UTC so day
// deltas are exact. Returns (zero, false) when nothing matches; a record
// without a parsed date never enters the matching pool.
func Date(raw, primary string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	layouts := make([]string, 0, len(FallbackDateLayouts)+1)
	if primary != "" {
		layouts = append(layouts, primary)
	}
	layouts = append(layouts, FallbackDateLayouts...)

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// DayDelta returns the absolute difference in calendar days between two
// dates already truncated to midnight.
func DayDelta(a, b time.Time) int {
	d := int(a.Sub(b).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}
