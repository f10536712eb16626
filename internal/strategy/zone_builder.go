package strategy

import "sessioncore/internal/types"

// evaluateZone derives a DecisionZone from the first N bars collected after
// zoneStart. The opening bar's [low, high] range is the zone candidate;
// the remaining bars are the choppiness test against that candidate — this
// is the only reading of "inferred from the first N bars" that lets the
// CHOPPY predicate ever fire, since a zone built from the min/max of all N
// bars could never have a source bar close outside it by construction.
func evaluateZone(sourceBars []types.Candle, cfg MachineConfig, definedAt, premarketPrice int64) types.DecisionZone {
	opening := sourceBars[0]
	support := opening.Low
	resistance := opening.High
	spread := resistance - support
	mid := (support + resistance) / 2

	zone := types.DecisionZone{
		Support:        support,
		Resistance:     resistance,
		Spread:         spread,
		DefinedAt:      definedAt,
		SourceBars:     append([]types.Candle(nil), sourceBars...),
		PremarketPrice: premarketPrice,
	}

	spreadPercent := 0.0
	if mid != 0 {
		spreadPercent = float64(spread) / float64(mid) * 100
	}
	if spread < cfg.MinZoneSpreadCents || spreadPercent > cfg.MaxZoneSpreadPercent {
		zone.Status = types.ZoneDegenerate
		return zone
	}

	for _, bar := range sourceBars {
		if bar.Close < support || bar.Close > resistance {
			zone.Status = types.ZoneChoppy
			return zone
		}
	}

	zone.Status = types.ZoneDefined
	return zone
}
