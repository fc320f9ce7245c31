package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNormalizeExtractedReportCanonicalLabels(t *testing.T) {
	deductions := NormalizeExtractedReport(map[string]float64{
		"BRITA 0":      2000,
		"AREIA MEDI":   3000,
		"SILO 1":       1200,
		"DESCONHECIDO": 999,
	})

	require.True(t, deductions[MaterialBrita0].Equal(decimal.NewFromInt(2000)))
	require.True(t, deductions[MaterialAreiaMedia].Equal(decimal.NewFromInt(3000)))
	require.True(t, deductions[MaterialSilo1].Equal(decimal.NewFromInt(1200)))
	require.True(t, deductions[MaterialBrita1].IsZero())
	require.True(t, deductions[MaterialAreiaBrita].IsZero())
}

func TestNormalizeExtractedReportFineSandFoldsIntoMediumSand(t *testing.T) {
	deductions := NormalizeExtractedReport(map[string]float64{
		"AREIA MEDI": 3000,
		"AREIA FINA": 500,
	})

	require.True(t, deductions[MaterialAreiaMedia].Equal(decimal.NewFromInt(3500)))
}

func TestNormalizeExtractedReportFineSandAloneStillLands(t *testing.T) {
	deductions := NormalizeExtractedReport(map[string]float64{
		"AREIA FIN": 250,
	})

	require.True(t, deductions[MaterialAreiaMedia].Equal(decimal.NewFromInt(250)))
}

func TestNormalizeExtractedReportFirstNonZeroAliasWins(t *testing.T) {
	deductions := NormalizeExtractedReport(map[string]float64{
		"AREIA MEDI":  0,
		"AREIA MÉDIA": 4000,
	})

	require.True(t, deductions[MaterialAreiaMedia].Equal(decimal.NewFromInt(4000)))
}

func TestNormalizeExtractedReportEmptyInputIsAllZero(t *testing.T) {
	deductions := NormalizeExtractedReport(nil)

	require.Len(t, deductions, len(Materials))
	for _, m := range Materials {
		require.True(t, deductions[m].IsZero(), "expected zero deduction for %s", m)
	}
}

func TestMaterialClassSplitsSilosFromAggregates(t *testing.T) {
	require.Equal(t, ClassCement, MaterialSilo1.Class())
	require.Equal(t, ClassCement, MaterialSilo2.Class())
	require.Equal(t, ClassAggregate, MaterialBrita0.Class())
	require.Equal(t, ClassAggregate, MaterialAreiaBrita.Class())
}

func TestIsLowStockThresholdsByClass(t *testing.T) {
	require.True(t, MaterialBrita0.IsLowStock(decimal.NewFromInt(49999)))
	require.False(t, MaterialBrita0.IsLowStock(decimal.NewFromInt(50000)))
	require.True(t, MaterialSilo1.IsLowStock(decimal.NewFromInt(19999)))
	require.False(t, MaterialSilo1.IsLowStock(decimal.NewFromInt(20000)))
}
