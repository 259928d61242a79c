// Package display renders dashboard numbers the way the front end shows them.
package display

import (
	"fmt"
	"math"
	"strings"
)

// Loading is shown in place of any value before the first successful refresh.
const Loading = "Loading..."

// Unavailable replaces values that cannot be computed (zero divisors, missing prices).
const Unavailable = "unavailable"

// Button labels for the deposit action.
const (
	LabelConnect    = "Connect Wallet"
	LabelProcessing = "Processing..."
	LabelVaultFull  = "Vault is full"
	LabelDeposit    = "Deposit"
)

// USD formats v as "$1,234.56".
func USD(v float64) string {
	return "$" + Fixed(v, 2)
}

// Amount formats a token amount with two decimals, e.g. "1.00 SOL".
func Amount(v float64, symbol string) string {
	return Fixed(v, 2) + " " + symbol
}

// Percent formats v as "12.34%".
func Percent(v float64) string {
	return Fixed(v, 2) + "%"
}

// Fixed formats v with the given decimals and thousands separators.
// NaN and ±Inf render as Unavailable.
func Fixed(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Unavailable
	}
	s := fmt.Sprintf("%.*f", decimals, v)
	if strings.HasPrefix(s, "-") {
		// -0.00 is just 0.00
		if strings.Trim(s[1:], "0.") == "" {
			return addCommas(s[1:])
		}
		return "-" + addCommas(s[1:])
	}
	return addCommas(s)
}

// Compact abbreviates large values: 1.50M, 12.3K.
func Compact(v float64) string {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return Unavailable
	case v >= 1_000_000:
		return fmt.Sprintf("%.2fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", v/1_000)
	}
	return fmt.Sprintf("%.2f", v)
}

// DepositLabel picks the text of the deposit button.
func DepositLabel(connected, processing, vaultFull bool) string {
	switch {
	case !connected:
		return LabelConnect
	case processing:
		return LabelProcessing
	case vaultFull:
		return LabelVaultFull
	}
	return LabelDeposit
}

func addCommas(s string) string {
	parts := strings.SplitN(s, ".", 2)
	intPart := parts[0]
	n := len(intPart)
	if n <= 3 {
		if len(parts) == 2 {
			return intPart + "." + parts[1]
		}
		return intPart
	}
	var result []byte
	for i, c := range intPart {
		if i > 0 && (n-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	if len(parts) == 2 {
		return string(result) + "." + parts[1]
	}
	return string(result)
}
