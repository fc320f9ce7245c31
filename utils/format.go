package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Numeric formatting follows the pt-BR convention used on the dashboard:
// "." groups thousands and "," marks decimals (e.g. 100.000,00 kg).

func FormatKg(val decimal.Decimal) string {
	return formatPtBR(val, 2) + " kg"
}

func FormatM3(val decimal.Decimal) string {
	return formatPtBR(val, 1) + " m³"
}

func formatPtBR(val decimal.Decimal, places int32) string {
	fixed := val.StringFixed(places)

	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart := fixed
	fracPart := ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, fracPart = fixed[:i], fixed[i+1:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteByte(',')
		b.WriteString(fracPart)
	}
	return b.String()
}
