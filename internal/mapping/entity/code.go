package entity

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Code is the canonical form of a Buy Line / manufacturer code.
//
// Two raw cells refer to the same code when their normalized forms are equal.
type Code string

// NormalizeCode maps a raw cell value to its canonical Code.
//
// The boolean is false when the cell carries no code (nil, NaN, blank).
// Numeric-looking values are truncated toward zero and rendered in base 10
// without leading zeros, so 996539.0, "996,539" and "0996539" all become
// "996539". Everything else is returned trimmed with commas removed.
func NormalizeCode(raw any) (Code, bool) {
	s, ok := cellString(raw)
	if !ok {
		return "", false
	}

	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return "", false
	}

	if n, ok := truncateNumber(s); ok {
		return Code(n), true
	}

	return Code(s), true
}

func cellString(raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	case float64:
		if math.IsNaN(v) {
			return "", false
		}
		return formatFloat(v), true
	case float32:
		if math.IsNaN(float64(v)) {
			return "", false
		}
		return formatFloat(float64(v)), true
	case int:
		return strconv.Itoa(v), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case Code:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// truncateNumber returns the base-10 integer form of a decimal literal.
func truncateNumber(s string) (string, bool) {
	intOnly, ok := scanDecimal(s)
	if !ok {
		return "", false
	}

	if intOnly {
		n, ok := new(big.Int).SetString(strings.TrimPrefix(s, "+"), 10)
		if !ok {
			return "", false
		}
		return n.String(), true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return "", false
	}

	n, _ := big.NewFloat(f).Int(nil)
	return n.String(), true
}

// scanDecimal reports whether s is [+-]digits[.digits][(e|E)[+-]digits] and
// whether it has neither a fraction nor an exponent.
func scanDecimal(s string) (intOnly, ok bool) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}

	intOnly = true
	if i < len(s) && s[i] == '.' {
		intOnly = false
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false, false
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		intOnly = false
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for i < len(s) && isDigit(s[i]) {
			i++
			exp++
		}
		if exp == 0 {
			return false, false
		}
	}

	return intOnly, i == len(s)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
