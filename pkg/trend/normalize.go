package trend

import (
	"math"
	"sort"
	"time"

	"github.com/vitaltrace-ai/platform/pkg/common/models"
	"github.com/vitaltrace-ai/platform/pkg/terminology"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizedPoint is one accepted record: a finite value, a valid instant
// and a canonical code. Rejected records simply never produce one.
type NormalizedPoint struct {
	Code    string
	Display string
	Unit    string
	Point   models.Point
}

// NormalizeRecord reduces a raw record to a point, or rejects it. A record
// survives only with a finite numeric value and a parseable timestamp.
func NormalizeRecord(rec models.ObservationRecord) (NormalizedPoint, bool) {
	value, ok := numericValue(rec)
	if !ok {
		return NormalizedPoint{}, false
	}
	ts, ok := recordTimestamp(rec)
	if !ok {
		return NormalizedPoint{}, false
	}
	return NormalizedPoint{
		Code:    canonicalCode(rec),
		Display: displayOf(rec),
		Unit:    unitOf(rec),
		Point:   models.Point{Timestamp: ts, Value: value},
	}, true
}

// Normalize groups the surviving records into one Series per canonical code,
// points sorted ascending by timestamp. When requested is non-empty, series
// whose code matches neither the bare nor the LOINC-prefixed form of any
// requested code are dropped.
func Normalize(records []models.ObservationRecord, requested []string) []models.Series {
	byCode := make(map[string]*models.Series)
	var order []string

	for _, rec := range records {
		np, ok := NormalizeRecord(rec)
		if !ok {
			continue
		}
		s, exists := byCode[np.Code]
		if !exists {
			s = &models.Series{Code: np.Code, Display: np.Display, Unit: np.Unit}
			byCode[np.Code] = s
			order = append(order, np.Code)
		}
		s.Points = append(s.Points, np.Point)
	}

	wanted := requestedSet(requested)

	out := make([]models.Series, 0, len(order))
	for _, code := range order {
		s := byCode[code]
		if len(wanted) > 0 {
			_, full := wanted[code]
			_, bare := wanted[terminology.BareCode(code)]
			if !full && !bare {
				continue
			}
		}
		sort.SliceStable(s.Points, func(i, j int) bool {
			return s.Points[i].Timestamp.Before(s.Points[j].Timestamp)
		})
		out = append(out, *s)
	}
	return out
}

// requestedSet indexes each requested code under both its bare and its
// canonical LOINC-prefixed form.
func requestedSet(requested []string) map[string]struct{} {
	if len(requested) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(requested)*2)
	for _, code := range requested {
		if code == "" {
			continue
		}
		set[terminology.BareCode(code)] = struct{}{}
		set[terminology.Canonical(code)] = struct{}{}
	}
	return set
}

func numericValue(rec models.ObservationRecord) (float64, bool) {
	var v *float64
	if rec.Value != nil {
		v = rec.Value
	} else if rec.ValueQuantity != nil && rec.ValueQuantity.Value != nil {
		v = rec.ValueQuantity.Value
	}
	if v == nil {
		return 0, false
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

func recordTimestamp(rec models.ObservationRecord) (time.Time, bool) {
	for _, raw := range []string{rec.When, rec.EffectiveDateTime, rec.Issued} {
		if raw == "" {
			continue
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

func canonicalCode(rec models.ObservationRecord) string {
	if rec.Code != nil && rec.Code.System != "" && rec.Code.Code != "" {
		return rec.Code.System + "|" + rec.Code.Code
	}
	if rec.LOINC != "" {
		return terminology.LOINCSystem + "|" + rec.LOINC
	}
	if rec.Code != nil && rec.Code.Code != "" {
		return rec.Code.Code
	}
	return "unknown"
}

func displayOf(rec models.ObservationRecord) string {
	if rec.Code != nil {
		return rec.Code.Display
	}
	return ""
}

func unitOf(rec models.ObservationRecord) string {
	if rec.Unit != "" {
		return rec.Unit
	}
	if rec.ValueQuantity != nil {
		return rec.ValueQuantity.Unit
	}
	return ""
}
