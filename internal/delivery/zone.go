package delivery

import (
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

// PostalCodeDigits is the length of a complete CEP.
const PostalCodeDigits = 8

var nonDigit = regexp.MustCompile(`[^\d]`)

// Zone is an inclusive CEP range with its fee and estimated time in minutes.
// Ranges are expected not to overlap; that is not checked here.
type Zone struct {
	ID            string          `json:"id"`
	RangeStart    string          `json:"rangeStart"`
	RangeEnd      string          `json:"rangeEnd"`
	Fee           decimal.Decimal `json:"fee"`
	EstimatedTime int             `json:"estimatedTime"`
	Active        bool            `json:"active"`
}

// Result of a lookup. Found=false means "cannot deliver here", never free
// delivery: Fee and Time are zero and Zone is nil.
type Result struct {
	Found bool            `json:"found"`
	Zone  *Zone           `json:"zone"`
	Fee   decimal.Decimal `json:"fee"`
	Time  int             `json:"time"`
}

func notFound() Result {
	return Result{Fee: decimal.Zero}
}

func Digits(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// Resolve returns the first zone, in the given order, whose range contains the
// postal code. Input that does not reduce to exactly 8 digits is not found.
func Resolve(postalCode string, zones []Zone) Result {
	digits := Digits(postalCode)
	if len(digits) != PostalCodeDigits {
		return notFound()
	}
	cep, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return notFound()
	}
	for i := range zones {
		start, err := strconv.ParseInt(Digits(zones[i].RangeStart), 10, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseInt(Digits(zones[i].RangeEnd), 10, 64)
		if err != nil {
			continue
		}
		if cep >= start && cep <= end {
			z := zones[i]
			return Result{Found: true, Zone: &z, Fee: z.Fee, Time: z.EstimatedTime}
		}
	}
	return notFound()
}

// FormatPostalCode renders NNNNN-NNN once more than five digits are present,
// dropping anything past the eighth digit.
func FormatPostalCode(s string) string {
	digits := Digits(s)
	if len(digits) > PostalCodeDigits {
		digits = digits[:PostalCodeDigits]
	}
	if len(digits) <= 5 {
		return digits
	}
	return digits[:5] + "-" + digits[5:]
}
