package trend

import (
	"math"

	"github.com/vitaltrace-ai/platform/pkg/common/models"
)

const nanosPerDay = float64(24 * 60 * 60 * 1e9)

// ComputeStats derives the per-series aggregate. Degenerate inputs resolve
// to zero, never NaN: std is 0 for n<2, the slope is 0 when the time
// variance vanishes, and the z-score is 0 when std is 0.
func ComputeStats(s models.Series) models.Stats {
	stats := models.Stats{Code: s.Code, Count: len(s.Points)}
	if len(s.Points) == 0 {
		return stats
	}

	values := make([]float64, len(s.Points))
	var sum float64
	stats.Min = s.Points[0].Value
	stats.Max = s.Points[0].Value
	for i, p := range s.Points {
		values[i] = p.Value
		sum += p.Value
		if p.Value < stats.Min {
			stats.Min = p.Value
		}
		if p.Value > stats.Max {
			stats.Max = p.Value
		}
	}
	n := float64(len(values))
	stats.Mean = sum / n
	stats.Median = median(values)

	if len(values) >= 2 {
		var sq float64
		for _, v := range values {
			d := v - stats.Mean
			sq += d * d
		}
		stats.Std = math.Sqrt(sq / (n - 1))
	}

	last := s.Points[len(s.Points)-1]
	stats.LatestValue = last.Value
	stats.LatestAt = last.Timestamp

	stats.SlopePerDay = slopePerDay(s.Points)

	if stats.Std != 0 {
		stats.ZScoreOfLatest = (stats.LatestValue - stats.Mean) / stats.Std
	}

	return stats
}

// slopePerDay is the ordinary least-squares slope of value against elapsed
// days since the first point.
func slopePerDay(points []models.Point) float64 {
	if len(points) < 2 {
		return 0
	}
	first := points[0].Timestamp
	n := float64(len(points))

	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		x := float64(p.Timestamp.Sub(first)) / nanosPerDay
		sumX += x
		sumY += p.Value
		sumXY += x * p.Value
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
