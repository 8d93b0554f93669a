package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatMoney keeps consistent decimal formatting for currency fields.
func FormatMoney(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

// FormatVND renders an integer dong amount with thousand separators.
func FormatVND(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%s VND", sign, formatThousand(amount))
}

// VNDToUSD converts a dong amount with the configured rate, rounded to cents.
func VNDToUSD(amount int64, vndPerUSD float64) string {
	if vndPerUSD <= 0 {
		return FormatMoney(0)
	}
	return FormatMoney(float64(amount) / vndPerUSD)
}

func formatThousand(n int64) string {
	if n == 0 {
		return "0"
	}
	str := strconv.FormatInt(n, 10)
	var out strings.Builder
	for i, c := range str {
		if i != 0 && (len(str)-i)%3 == 0 {
			out.WriteByte('.')
		}
		out.WriteRune(c)
	}
	return out.String()
}
