package history

import (
	"fmt"
	"math"
	"time"
)

// BuildTrendReport turns runs of one sample, oldest first, into per-run deltas
// and a moving average of the diffusion indicator over window.
func BuildTrendReport(sample string, runs []Run, window time.Duration) (TrendReport, error) {
	if len(runs) == 0 {
		return TrendReport{}, fmt.Errorf("no runs recorded for %q", sample)
	}

	points := make([]TrendPoint, 0, len(runs))
	for i, current := range runs {
		point := TrendPoint{
			Timestamp: current.Timestamp,
			Version:   current.Version,
			Modules:   current.Modules,
			Elements:  current.Elements,
			Indicator: current.DiffusionIndicator,
		}
		if i > 0 {
			prev := runs[i-1]
			point.DeltaModules = current.Modules - prev.Modules
			point.DeltaElements = current.Elements - prev.Elements
			point.DeltaIndicator = round2(current.DiffusionIndicator - prev.DiffusionIndicator)
			if prev.DiffusionIndicator != 0 {
				point.IndicatorPct = round2((current.DiffusionIndicator - prev.DiffusionIndicator) / prev.DiffusionIndicator * 100)
			}
		}
		point.AvgIndicator = round2(movingAverage(runs, i, window))
		point.WindowHours = round2(window.Hours())
		points = append(points, point)
	}

	return TrendReport{
		Sample:   sample,
		Since:    runs[0].Timestamp,
		Until:    runs[len(runs)-1].Timestamp,
		Window:   window.String(),
		RunCount: len(points),
		Points:   points,
	}, nil
}

func movingAverage(runs []Run, index int, window time.Duration) float64 {
	if window <= 0 {
		return runs[index].DiffusionIndicator
	}

	cutoff := runs[index].Timestamp.Add(-window)
	total := 0.0
	count := 0
	for i := index; i >= 0; i-- {
		if runs[i].Timestamp.Before(cutoff) {
			break
		}
		total += runs[i].DiffusionIndicator
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
