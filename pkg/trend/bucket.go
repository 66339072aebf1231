package trend

import (
	"sort"
	"time"

	"github.com/vitaltrace-ai/platform/pkg/common/models"
)

type Frequency string

const (
	FreqAuto   Frequency = "auto"
	FreqHourly Frequency = "hourly"
	FreqDaily  Frequency = "daily"
	FreqWeekly Frequency = "weekly"
)

// autoBucketThreshold is the point count above which auto resolves to daily.
const autoBucketThreshold = 200

// Resample collapses a series into fixed-width UTC buckets, one point per
// non-empty bucket carrying the median of the bucket's values. Auto leaves
// small series untouched.
func Resample(s models.Series, freq Frequency) models.Series {
	if freq == FreqAuto || freq == "" {
		if len(s.Points) <= autoBucketThreshold {
			return s
		}
		freq = FreqDaily
	}

	buckets := make(map[time.Time][]float64)
	for _, p := range s.Points {
		key := bucketStart(p.Timestamp.UTC(), freq)
		buckets[key] = append(buckets[key], p.Value)
	}

	keys := make([]time.Time, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	points := make([]models.Point, 0, len(keys))
	for _, k := range keys {
		points = append(points, models.Point{Timestamp: k, Value: median(buckets[k])})
	}

	out := s
	out.Points = points
	return out
}

func bucketStart(ts time.Time, freq Frequency) time.Time {
	switch freq {
	case FreqHourly:
		return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), 0, 0, 0, time.UTC)
	case FreqWeekly:
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		return day.AddDate(0, 0, -int(day.Weekday()))
	default: // daily
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// median sorts a copy of the values ascending; an even count yields the
// mean of the two middle values.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
