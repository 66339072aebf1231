package trend

import (
	"github.com/vitaltrace-ai/platform/pkg/common/models"
)

// Engine reduces raw observation bundles to per-code series, statistics and
// advisory flags. It holds no mutable state; every run recomputes from the
// input alone.
type Engine struct {
	freq Frequency
}

func NewEngine(freq Frequency) *Engine {
	if freq == "" {
		freq = FreqAuto
	}
	return &Engine{freq: freq}
}

// Build runs the full normalize → bucket → stats → flag sequence.
func (e *Engine) Build(bundle *models.Bundle, requested []string) models.Trends {
	trends := models.Trends{}
	if bundle == nil {
		return trends
	}
	trends.FetchedCount = len(bundle.Entries)

	series := Normalize(bundle.Entries, requested)
	trends.Series = make([]models.Series, 0, len(series))
	trends.Stats = make([]models.Stats, 0, len(series))
	for _, s := range series {
		resampled := Resample(s, e.freq)
		trends.Series = append(trends.Series, resampled)
		trends.Stats = append(trends.Stats, ComputeStats(resampled))
	}
	trends.Flags = EvaluateFlags(trends.Stats)
	return trends
}
