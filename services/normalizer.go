package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/models"
)

var (
	// ErrNoPrice means the text held nothing parseable as a price.
	ErrNoPrice = errors.New("no parseable price")
	// ErrPriceOutOfRange means a number was parsed but falls outside the
	// adapter's plausible bounds.
	ErrPriceOutOfRange = errors.New("price outside plausible range")
)

// currencyMarkers are stripped before parsing. Longer markers come first so
// "Rs." is removed before "Rs" can match its prefix.
var currencyMarkers = []string{"Rs.", "Rs", "NPR", "रू"}

const (
	// maxNameLength caps listing names before storage and display.
	maxNameLength = 150

	// smallIntegerDigits is the largest digit count still read as a plain
	// integer rupee amount when no decimal point is present. Anything longer
	// is assumed to have lost its decimal marker during extraction.
	smallIntegerDigits = 4
)

// NormalizePrice converts raw scraped price text into a validated numeric
// value. It is pure: no I/O, no panics, same input always yields the same
// output. Returned errors wrap ErrNoPrice or ErrPriceOutOfRange.
//
// The policy, in order:
//  1. blank input fails
//  2. currency markers ("Rs.", "Rs", "NPR") are stripped
//  3. a range like "Rs. 1000 - 2000" keeps only the lower price
//  4. everything but digits, commas and dots is discarded
//  5. with a decimal point, commas are thousands separators and the rest
//     parses directly
//  6. without one, up to four digits parse as an integer price; five or more
//     are read as rupees with the final two digits as paisa, since some sites
//     drop the decimal marker from two-decimal prices
//  7. the result must fall inside b or the candidate is rejected outright
func NormalizePrice(raw string, b models.Bounds) (float64, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, ErrNoPrice
	}

	for _, marker := range currencyMarkers {
		text = strings.ReplaceAll(text, marker, "")
	}
	text = strings.TrimSpace(text)

	// Price ranges quote the lower price first.
	if i := strings.IndexAny(text, "-–"); i >= 0 {
		text = text[:i]
	}

	var sb strings.Builder
	for _, r := range text {
		if unicode.IsDigit(r) || r == ',' || r == '.' {
			sb.WriteRune(r)
		}
	}
	text = sb.String()

	plain := strings.ReplaceAll(text, ",", "")
	if !strings.ContainsFunc(plain, unicode.IsDigit) {
		return 0, ErrNoPrice
	}

	var price float64
	switch {
	case strings.Contains(plain, "."):
		v, err := strconv.ParseFloat(plain, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNoPrice, raw)
		}
		price = v
	case len(plain) <= smallIntegerDigits:
		v, err := strconv.ParseFloat(plain, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNoPrice, raw)
		}
		price = v
	default:
		// Reconstruct the lost decimal marker: last two digits are paisa.
		v, err := strconv.ParseFloat(plain[:len(plain)-2]+"."+plain[len(plain)-2:], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNoPrice, raw)
		}
		price = v
	}

	if !b.Contains(price) {
		return 0, fmt.Errorf("%w: %.2f not in [%.0f, %.0f]", ErrPriceOutOfRange, price, b.Min, b.Max)
	}
	return price, nil
}

// NormalizeName collapses internal whitespace and caps the name at 150
// characters without splitting a multi-byte rune.
func NormalizeName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > maxNameLength {
		s = strings.TrimSpace(string(runes[:maxNameLength]))
	}
	return s
}

// FormatPrice renders a price for display, e.g. "Rs. 1,234.56".
func FormatPrice(price float64) string {
	s := strconv.FormatFloat(price, 'f', 2, 64)
	dot := strings.Index(s, ".")
	intPart, frac := s[:dot], s[dot:]

	var out strings.Builder
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteByte(intPart[i])
	}
	return "Rs. " + out.String() + frac
}
