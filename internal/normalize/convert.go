package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const TimestampLayout = "2006-01-02 15:04:05"

var ouncesPerGram = decimal.RequireFromString("0.035274")

// GramsToOunces converts a decimal gram string into ounces with 3 decimals.
// An empty weight counts as zero.
func GramsToOunces(grams string) (string, error) {
	grams = strings.TrimSpace(grams)
	if grams == "" {
		return decimal.Zero.StringFixed(3), nil
	}
	g, err := decimal.NewFromString(grams)
	if err != nil {
		return "", errors.Wrapf(err, "parse weight %q", grams)
	}
	return g.Mul(ouncesPerGram).StringFixed(3), nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	TimestampLayout,
}

// FormatDate brings a formatted date string to TimestampLayout in UTC.
// Strings in an unknown layout are returned unchanged.
func FormatDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(TimestampLayout)
		}
	}
	return s
}

// FormatEpoch formats epoch seconds in TimestampLayout (UTC). Non-numeric
// input is treated as an already formatted date.
func FormatEpoch(s string) string {
	s = strings.TrimSpace(s)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return FormatDate(s)
	}
	return time.Unix(int64(sec), 0).UTC().Format(TimestampLayout)
}
