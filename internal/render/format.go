package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var currencySymbols = map[string]string{
	"RUB": "₽",
	"USD": "$",
	"EUR": "€",
}

// FormatMoney groups thousands with spaces and drops decimals:
// amounts are whole units once lines are rounded. Example: 1234567 RUB -> "1 234 567 ₽".
func FormatMoney(amount float64, currency string) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	result := groupThousands(strconv.FormatFloat(math.Round(amount), 'f', 0, 64))
	if negative && result != "0" {
		result = "-" + result
	}

	code := strings.ToUpper(strings.TrimSpace(currency))
	if symbol, ok := currencySymbols[code]; ok {
		return result + " " + symbol
	}
	if code != "" {
		return result + " " + code
	}
	return result
}

func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatQty prints whole quantities without decimals and fractional ones with two.
func FormatQty(qty float64) string {
	if qty == math.Trunc(qty) {
		return fmt.Sprintf("%.0f", qty)
	}
	return fmt.Sprintf("%.2f", qty)
}

// indent prefixes a name with two spaces per level.
func indent(name string, level int) string {
	if level <= 0 {
		return name
	}
	return strings.Repeat("  ", level) + name
}
