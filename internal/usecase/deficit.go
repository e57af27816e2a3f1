package usecase

import (
	"tradelens/config"
	"tradelens/internal/adapter/artifact"
	"tradelens/internal/domain"
)

// ComputeDeficits writes the per-country deficit mapping onto every trade
// record: deficit = import − export over the union of country keys, a
// missing side defaulting to zero. Positive means a US trade deficit.
// The transform is idempotent; existing deficit data is recomputed.
func ComputeDeficits(trade map[string]*domain.TradeRecord) {
	for _, record := range trade {
		deficit := make(map[string]int64)
		for country, exportVal := range record.ExportValue {
			deficit[country] = -exportVal
		}
		for country, importVal := range record.ImportValue {
			deficit[country] += importVal
		}
		record.Deficit = deficit
	}
}

// BuildChinaIndex extracts each record's deficit with China, keeping only
// strictly positive values. The exact "CHINA" key matches the country
// naming the trade API uses in the deficit mapping.
func BuildChinaIndex(trade map[string]*domain.TradeRecord) domain.ChinaIndex {
	index := make(domain.ChinaIndex)
	for hs6, record := range trade {
		if deficit := record.Deficit["CHINA"]; deficit > 0 {
			index[hs6] = deficit
		}
	}
	return index
}

// RunDeficit loads the trade artifact, computes deficits, and saves the
// augmented records back in place. Returns the record count.
func RunDeficit(paths config.Paths) (int, error) {
	trade, err := artifact.LoadTrade(paths.TradeDeficit)
	if err != nil {
		return 0, err
	}
	ComputeDeficits(trade)
	if err := artifact.SaveJSON(paths.TradeDeficit, trade); err != nil {
		return 0, err
	}
	return len(trade), nil
}

// RunChinaIndex derives and persists the China index from the deficit-
// augmented trade artifact.
func RunChinaIndex(paths config.Paths) (domain.ChinaIndex, error) {
	trade, err := artifact.LoadTrade(paths.TradeDeficit)
	if err != nil {
		return nil, err
	}
	index := BuildChinaIndex(trade)
	if err := artifact.SaveJSON(paths.ChinaIndex, index); err != nil {
		return nil, err
	}
	return index, nil
}
