package domain

import (
	"math"
	"strconv"
	"strings"
)

// Numeric is a float64 that tolerates sloppy JSON input: numbers, numeric
// strings, empty strings, null, or garbage all decode without error, with
// anything unparsable degrading to 0. Ledger figures must never make a
// request fail on a formatting quirk; bad values become zeros instead.
type Numeric float64

func (n *Numeric) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*n = 0
		return nil
	}
	*n = Numeric(v)
	return nil
}

func (n Numeric) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(n), 'f', -1, 64)), nil
}

func (n Numeric) Float() float64 {
	return SafeNumber(float64(n))
}

// SafeNumber coerces NaN and infinities to 0. Every arithmetic input in the
// ledger passes through here so derived figures stay finite.
func SafeNumber(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Round2 rounds to two decimal places for display figures.
func Round2(v float64) float64 {
	return math.Round(SafeNumber(v)*100) / 100
}
