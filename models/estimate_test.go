package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCalculateEstimatesScarcestAggregateBounds(t *testing.T) {
	stock := StockSnapshot{
		MaterialBrita0:     decimal.NewFromInt(100000),
		MaterialBrita1:     decimal.NewFromInt(150000),
		MaterialAreiaMedia: decimal.NewFromInt(200000),
		MaterialAreiaBrita: decimal.NewFromInt(80000),
		MaterialSilo1:      decimal.NewFromInt(40000),
		MaterialSilo2:      decimal.NewFromInt(35000),
	}

	// BRITA 1 is the scarcest: 150000/6000 = 25 loads.
	est := CalculateEstimates(stock)
	require.Equal(t, int64(25), est.MaxLoads)
	require.Equal(t, int64(200), est.TotalM3)
}

func TestCalculateEstimatesFractionalLoadsFloor(t *testing.T) {
	stock := StockSnapshot{
		MaterialBrita0:     decimal.NewFromInt(100000),
		MaterialBrita1:     decimal.NewFromInt(100000),
		MaterialAreiaMedia: decimal.NewFromInt(5999),
		MaterialAreiaBrita: decimal.NewFromInt(80000),
	}

	// 5999/6000 is just short of one full load.
	est := CalculateEstimates(stock)
	require.Equal(t, int64(0), est.MaxLoads)
	require.Equal(t, int64(0), est.TotalM3)
}

func TestCalculateEstimatesMissingAggregateReadsZero(t *testing.T) {
	stock := StockSnapshot{
		MaterialBrita0: decimal.NewFromInt(100000),
	}

	est := CalculateEstimates(stock)
	require.Equal(t, int64(0), est.MaxLoads)
}

func TestCalculateEstimatesNeverNegative(t *testing.T) {
	stock := StockSnapshot{
		MaterialBrita0:     decimal.NewFromInt(-500),
		MaterialBrita1:     decimal.NewFromInt(150000),
		MaterialAreiaMedia: decimal.NewFromInt(200000),
		MaterialAreiaBrita: decimal.NewFromInt(80000),
	}

	est := CalculateEstimates(stock)
	require.Equal(t, int64(0), est.MaxLoads)
	require.Equal(t, int64(0), est.TotalM3)
}

func TestCalculateEstimatesCementDoesNotBound(t *testing.T) {
	stock := StockSnapshot{
		MaterialBrita0:     decimal.NewFromInt(100000),
		MaterialBrita1:     decimal.NewFromInt(150000),
		MaterialAreiaMedia: decimal.NewFromInt(200000),
		MaterialAreiaBrita: decimal.NewFromInt(80000),
		MaterialSilo1:      decimal.Zero,
		MaterialSilo2:      decimal.Zero,
	}

	// Empty silos must not zero the estimate.
	est := CalculateEstimates(stock)
	require.Equal(t, int64(25), est.MaxLoads)
}

func TestCalculateEstimatesTotalIsLoadMultiple(t *testing.T) {
	stock := StockSnapshot{
		MaterialBrita0:     decimal.NewFromInt(7000),
		MaterialBrita1:     decimal.NewFromInt(21000),
		MaterialAreiaMedia: decimal.NewFromInt(21000),
		MaterialAreiaBrita: decimal.NewFromInt(4550),
	}

	est := CalculateEstimates(stock)
	require.Equal(t, int64(3), est.MaxLoads)
	require.Equal(t, est.MaxLoads*LoadVolumeM3, est.TotalM3)
}
