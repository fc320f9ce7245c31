package models

import "github.com/shopspring/decimal"

// Estimates is the production capacity derived from one usina's stock.
type Estimates struct {
	MaxLoads int64 `json:"max_loads"`
	TotalM3  int64 `json:"total_m3"`
}

// CalculateEstimates computes how many full 8m³ loads the current stock
// supports. Each aggregate yields quantity/consumption loads; the scarcest
// aggregate bounds the plant. Cement (silo) stock never enters the ratio.
// Total and deterministic: missing keys read as zero and the result is
// never negative.
func CalculateEstimates(stock StockSnapshot) Estimates {
	minLoads := decimal.Decimal{}
	first := true
	for material, consumption := range ConsumptionPerLoad {
		loads := stock[material].Div(consumption)
		if first || loads.LessThan(minLoads) {
			minLoads = loads
			first = false
		}
	}

	maxLoads := minLoads.Floor().IntPart()
	if maxLoads < 0 {
		maxLoads = 0
	}
	return Estimates{
		MaxLoads: maxLoads,
		TotalM3:  maxLoads * LoadVolumeM3,
	}
}
