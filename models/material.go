package models

import (
	"github.com/shopspring/decimal"
)

// Material is one of the six tracked raw-material buckets. The britas and
// areias are aggregates; the silos hold cement. The class decides which
// low-stock threshold applies and whether the material limits production.
type Material string

const (
	MaterialBrita0     Material = "BRITA 0"
	MaterialBrita1     Material = "BRITA 1"
	MaterialAreiaMedia Material = "AREIA MÉDIA"
	MaterialAreiaBrita Material = "AREIA DE BRITA"
	MaterialSilo1      Material = "SILO 1"
	MaterialSilo2      Material = "SILO 2"
)

var Materials = []Material{
	MaterialBrita0,
	MaterialBrita1,
	MaterialAreiaMedia,
	MaterialAreiaBrita,
	MaterialSilo1,
	MaterialSilo2,
}

func ValidMaterial(name string) bool {
	for _, m := range Materials {
		if string(m) == name {
			return true
		}
	}
	return false
}

type MaterialClass string

const (
	ClassAggregate MaterialClass = "agregado"
	ClassCement    MaterialClass = "cimento"
)

func (m Material) Class() MaterialClass {
	switch m {
	case MaterialSilo1, MaterialSilo2:
		return ClassCement
	default:
		return ClassAggregate
	}
}

// Consumption per 8m³ load, in kg. Cement is dosed from the silos and does
// not bound capacity, so it carries no per-load ratio here.
var ConsumptionPerLoad = map[Material]decimal.Decimal{
	MaterialBrita0:     decimal.NewFromInt(2000),
	MaterialBrita1:     decimal.NewFromInt(6000),
	MaterialAreiaMedia: decimal.NewFromInt(6000),
	MaterialAreiaBrita: decimal.NewFromInt(1300),
}

// LoadVolumeM3 is the fixed volume of one truck load.
const LoadVolumeM3 = 8

var (
	lowStockThresholdAggregate = decimal.NewFromInt(50000)
	lowStockThresholdCement    = decimal.NewFromInt(20000)
)

func (m Material) LowStockThreshold() decimal.Decimal {
	if m.Class() == ClassCement {
		return lowStockThresholdCement
	}
	return lowStockThresholdAggregate
}

func (m Material) IsLowStock(quantity decimal.Decimal) bool {
	return quantity.LessThan(m.LowStockThreshold())
}

// extractedAliases maps each canonical material to the labels the report
// extractor is known to emit, in the order the dashboard resolved them.
// The first alias with a reading wins; AREIA FINA is handled separately
// because it folds additively into AREIA MÉDIA.
var extractedAliases = map[Material][]string{
	MaterialBrita0:     {"BRITA 0"},
	MaterialBrita1:     {"BRITA 1"},
	MaterialAreiaMedia: {"AREIA MEDI", "AREIA MÉDIA", "AREIA MEDIA"},
	MaterialAreiaBrita: {"AREIA BRIT", "AREIA DE BRITA"},
	MaterialSilo1:      {"SILO 1"},
	MaterialSilo2:      {"SILO 2"},
}

var fineSandAliases = []string{"AREIA FINA", "AREIA FIN"}

// NormalizeExtractedReport folds the raw label->kg readings of an extracted
// "Relatório de Carga Sintético" into deductions keyed by canonical material.
// Unknown labels are dropped. The fine-sand reading, which has no bucket of
// its own, is added to the medium-sand deduction before any subtraction.
func NormalizeExtractedReport(extracted map[string]float64) map[Material]decimal.Decimal {
	deductions := make(map[Material]decimal.Decimal, len(Materials))

	firstReading := func(labels []string) decimal.Decimal {
		for _, label := range labels {
			if v, ok := extracted[label]; ok && v != 0 {
				return decimal.NewFromFloat(v)
			}
		}
		return decimal.Zero
	}

	for _, m := range Materials {
		deductions[m] = firstReading(extractedAliases[m])
	}
	deductions[MaterialAreiaMedia] = deductions[MaterialAreiaMedia].Add(firstReading(fineSandAliases))

	return deductions
}
