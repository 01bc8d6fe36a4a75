package rules

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultValidityMonths is how long a qualification stays valid after the
// governing test was approved.
const DefaultValidityMonths = 6

var unlimitedThickness = decimal.RequireFromString("12.7")

// QualifiedRange derives the thickness or diameter range a test coupon
// qualifies (ASME IX QW-452.1(b) for plates, QW-452.3 for pipes).
func QualifiedRange(baseMetalSpec string, thickness decimal.NullDecimal, diameter *int) string {
	switch {
	case IsPlate(baseMetalSpec) && thickness.Valid:
		if thickness.Decimal.GreaterThanOrEqual(unlimitedThickness) {
			return "unlimited"
		}
		return "max " + thickness.Decimal.Mul(decimal.NewFromInt(2)).StringFixed(1) + " mm"
	case IsPipe(baseMetalSpec) && diameter != nil:
		if *diameter <= 2 {
			return `OD >= 1"`
		}
		return `OD >= 2 7/8"`
	}
	return ""
}

var pNumbers = map[string]string{
	"A-36":  "P1",
	"A-106": "P1",
	"16MO3": "P3",
	"SB536": "P45",
	"A-309": "P8",
	"A-312": "P8",
}

// PNumber returns the ASME P-number grouping of a base metal.
func PNumber(baseMetalSpec string) string {
	return pNumbers[baseMetalSpec]
}

// QualifiedBaseMetalRange follows QW-423.1: any of these groups qualifies
// the whole set.
func QualifiedBaseMetalRange(pNumber string) string {
	if pNumber == "" {
		return ""
	}
	return "P1-P15F, P34, P41-P49"
}

// QualifiedConsumableRange returns the F-numbers a welder qualified with
// fNumber may deposit (QW-433).
func QualifiedConsumableRange(fNumber string) string {
	switch fNumber {
	case "":
		return ""
	case "4":
		return "F1-F4"
	case "3":
		return "F1-F3"
	default:
		return "F" + fNumber
	}
}

// AddMonths moves t forward by months, clamping the day to the end of the
// target month: Aug 31 + 6 months is Feb 28 (or 29).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// ValidUntil is the expiry of a qualification approved on approvedAt.
func ValidUntil(approvedAt time.Time, months int) time.Time {
	if months <= 0 {
		months = DefaultValidityMonths
	}
	return AddMonths(approvedAt, months)
}

// CPNumber is the test coupon identifier printed on the coupon itself.
func CPNumber(requestID uint, year int) string {
	return fmt.Sprintf("M00%d-%d", requestID, year)
}

// CertificateNumber formats the per-company, per-year certificate sequence.
func CertificateNumber(sequence, year int) string {
	return fmt.Sprintf("CQS-%04d/%d", sequence, year)
}
