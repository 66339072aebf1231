package models

import (
	"time"
)

// Query routing
type Route string

const (
	RouteFetch     Route = "fetch"
	RouteMetrics   Route = "metrics"
	RouteSummarize Route = "summarize"
	RouteAlert     Route = "alert"
	RouteUnknown   Route = "unknown"
)

func (r Route) Valid() bool {
	switch r {
	case RouteFetch, RouteMetrics, RouteSummarize, RouteAlert, RouteUnknown:
		return true
	}
	return false
}

// Params carries the structured query parameters extracted from free text
// or proposed by the route classifier. A zero field means "not present";
// merging never lets an absent field erase an existing value.
type Params struct {
	PatientID string   `json:"patient_id,omitempty"`
	Codes     []string `json:"codes,omitempty"`
	Since     string   `json:"since,omitempty"`
	Until     string   `json:"until,omitempty"`
	Count     int      `json:"count,omitempty"`
	MaxItems  int      `json:"max_items,omitempty"`
}

// Quantity mirrors the FHIR valueQuantity sub-object.
type Quantity struct {
	Value *float64 `json:"value,omitempty"`
	Unit  string   `json:"unit,omitempty"`
}

// Coding mirrors the FHIR code sub-object.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// ObservationRecord is one raw record returned by the retrieval service.
// Every field is optional; normalization rejects records it cannot use.
type ObservationRecord struct {
	ID                string    `json:"id,omitempty"`
	Value             *float64  `json:"value,omitempty"`
	Unit              string    `json:"unit,omitempty"`
	ValueQuantity     *Quantity `json:"valueQuantity,omitempty"`
	Code              *Coding   `json:"code,omitempty"`
	LOINC             string    `json:"loinc,omitempty"`
	When              string    `json:"when,omitempty"`
	EffectiveDateTime string    `json:"effectiveDateTime,omitempty"`
	Issued            string    `json:"issued,omitempty"`
	Status            string    `json:"status,omitempty"`
	Category          string    `json:"category,omitempty"`
}

// Bundle wraps the raw records fetched for one run.
type Bundle struct {
	Entries       []ObservationRecord `json:"entries"`
	TotalReturned int                 `json:"total_returned"`
}

// Point is one time-value sample inside a Series.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Series is the ordered history for one canonical code.
type Series struct {
	Code    string  `json:"code"`
	Display string  `json:"display,omitempty"`
	Unit    string  `json:"unit,omitempty"`
	Points  []Point `json:"points"`
}

// Stats is the per-series aggregate, recomputed on every engine run.
type Stats struct {
	Code           string    `json:"code"`
	Count          int       `json:"count"`
	Mean           float64   `json:"mean"`
	Median         float64   `json:"median"`
	Std            float64   `json:"std"`
	Min            float64   `json:"min"`
	Max            float64   `json:"max"`
	SlopePerDay    float64   `json:"slope_per_day"`
	LatestValue    float64   `json:"latest_value"`
	LatestAt       time.Time `json:"latest_at"`
	ZScoreOfLatest float64   `json:"zscore_of_latest"`
}

type Severity string

const (
	SeverityInfo Severity = "info"
	SeverityWarn Severity = "warn"
	SeverityCrit Severity = "crit"
)

// Flag is a rule-triggered advisory annotation, never a diagnosis.
type Flag struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Evidence string   `json:"evidence"`
}

// Trends is the complete output of one engine run. Series and Stats are
// paired 1:1 by code.
type Trends struct {
	Series       []Series `json:"series"`
	Stats        []Stats  `json:"stats"`
	Flags        []Flag   `json:"flags"`
	FetchedCount int      `json:"fetched_count"`
}

// SessionState is the aggregate threaded through the pipeline. Each stage
// derives a new state from its input; nothing mutates an earlier copy.
type SessionState struct {
	Query   string  `json:"query"`
	Params  Params  `json:"params"`
	Route   Route   `json:"route,omitempty"`
	Bundle  *Bundle `json:"bundle,omitempty"`
	Trends  *Trends `json:"trends,omitempty"`
	Summary string  `json:"summary,omitempty"`
}

// Pipeline invocation contract
type QueryRequest struct {
	Query    string  `json:"query"`
	Params   *Params `json:"params,omitempty"`
	ThreadID string  `json:"thread_id,omitempty"`
}

type Chart struct {
	Kind    string `json:"kind"`
	Bytes   []byte `json:"bytes,omitempty"`
	Caption string `json:"caption,omitempty"`
}

type QueryResponse struct {
	Summary string  `json:"summary"`
	Route   Route   `json:"route"`
	Trends  *Trends `json:"trends,omitempty"`
	Chart   *Chart  `json:"chart,omitempty"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // flag.raised, query.completed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

const (
	EventFlagRaised     = "flag.raised"
	EventQueryCompleted = "query.completed"
)
