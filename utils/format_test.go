package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFormatKg(t *testing.T) {
	cases := []struct {
		in   decimal.Decimal
		want string
	}{
		{decimal.NewFromInt(100000), "100.000,00 kg"},
		{decimal.NewFromFloat(1234.5), "1.234,50 kg"},
		{decimal.NewFromInt(999), "999,00 kg"},
		{decimal.Zero, "0,00 kg"},
		{decimal.NewFromFloat(-1234.5), "-1.234,50 kg"},
		{decimal.NewFromInt(1000000), "1.000.000,00 kg"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, FormatKg(c.in))
	}
}

func TestFormatM3(t *testing.T) {
	require.Equal(t, "200,0 m³", FormatM3(decimal.NewFromInt(200)))
	require.Equal(t, "8,0 m³", FormatM3(decimal.NewFromInt(8)))
	require.Equal(t, "1.600,0 m³", FormatM3(decimal.NewFromInt(1600)))
}
