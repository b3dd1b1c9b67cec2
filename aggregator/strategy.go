package aggregator

import (
	"fmt"
	"math"
	"slices"

	"staffing-estimator/config"
	"staffing-estimator/errors"
)

// Strategy reduces the per-date totals that share a row and hour to the
// demand used for that cell.
type Strategy interface {
	Name() string
	Reduce(values []float64) float64
}

// StrategyFor returns the strategy selected by agg.
func StrategyFor(agg config.Aggregation) (Strategy, error) {
	switch agg.Strategy {
	case config.StrategySum, "":
		return sumStrategy{}, nil
	case config.StrategyMean:
		return meanStrategy{}, nil
	case config.StrategyPeak:
		return peakStrategy{}, nil
	case config.StrategyPercentile:
		if agg.Percentile <= 0 || agg.Percentile > 100 {
			return nil, &errors.ConfigError{Field: "aggregation.percentile", Reason: fmt.Sprintf("must be in (0, 100] (got %v)", agg.Percentile)}
		}
		return percentileStrategy{p: agg.Percentile}, nil
	default:
		return nil, &errors.ConfigError{Field: "aggregation.strategy", Reason: fmt.Sprintf("unknown strategy %q", agg.Strategy)}
	}
}

type sumStrategy struct{}

func (sumStrategy) Name() string { return config.StrategySum }

func (sumStrategy) Reduce(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

type meanStrategy struct{}

func (meanStrategy) Name() string { return config.StrategyMean }

func (meanStrategy) Reduce(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sumStrategy{}.Reduce(values) / float64(len(values))
}

type peakStrategy struct{}

func (peakStrategy) Name() string { return config.StrategyPeak }

func (peakStrategy) Reduce(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return slices.Max(values)
}

// percentileStrategy uses the nearest-rank method.
type percentileStrategy struct {
	p float64
}

func (s percentileStrategy) Name() string {
	return fmt.Sprintf("%s(p%g)", config.StrategyPercentile, s.p)
}

func (s percentileStrategy) Reduce(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	rank := int(math.Ceil(s.p / 100 * float64(len(sorted))))
	rank = max(1, min(rank, len(sorted)))
	return sorted[rank-1]
}
