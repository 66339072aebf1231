package router

import (
	"context"
	"strings"

	"github.com/vitaltrace-ai/platform/pkg/common/logger"
	"github.com/vitaltrace-ai/platform/pkg/common/models"
)

// Router decides the next route and a conservative params patch. The
// classifier is consulted only for queries the deterministic pre-check does
// not settle; any classifier failure resolves to the deterministic fallback
// and is never surfaced to the caller.
type Router struct {
	classifier Classifier
}

func New(classifier Classifier) *Router {
	return &Router{classifier: classifier}
}

// Decide always produces a valid route.
func (r *Router) Decide(ctx context.Context, state models.SessionState) (models.Route, models.Params) {
	if wantsMetricsTable(state.Query) {
		return models.RouteMetrics, state.Params
	}

	decision, err := r.classifier.Classify(ctx, state.Query, state.Params)
	if err != nil {
		logger.Log.WithError(err).Warn("route classification failed, using fallback")
		return fallbackRoute(state.Params), state.Params
	}

	route := decision.Route
	if route == models.RouteFetch && len(decision.Missing) > 0 {
		// A fetch with unresolved required fields cannot be executed safely.
		route = models.RouteUnknown
	}

	return route, MergeParams(state.Params, decision.ParamsPatch)
}

func wantsMetricsTable(query string) bool {
	lowered := strings.ToLower(query)
	return strings.Contains(lowered, "metrics") || strings.Contains(lowered, "table")
}

// fallbackRoute is total: fetch when the current params can support one,
// summarize otherwise. It never consults the classifier again.
func fallbackRoute(params models.Params) models.Route {
	if params.PatientID != "" && len(params.Codes) > 0 {
		return models.RouteFetch
	}
	return models.RouteSummarize
}
