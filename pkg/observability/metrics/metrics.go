package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/vitaltrace-ai/platform/pkg/common/models"
)

var (
	queriesTotal    atomic.Int64
	routeFetch      atomic.Int64
	routeMetrics    atomic.Int64
	routeSummarize  atomic.Int64
	routeAlert      atomic.Int64
	routeUnknown    atomic.Int64
	flagsRaised     atomic.Int64
	fetchFailures   atomic.Int64
	noDataResponses atomic.Int64
)

func Init() {}

func ObserveQuery(route models.Route) {
	queriesTotal.Add(1)
	switch route {
	case models.RouteFetch:
		routeFetch.Add(1)
	case models.RouteMetrics:
		routeMetrics.Add(1)
	case models.RouteSummarize:
		routeSummarize.Add(1)
	case models.RouteAlert:
		routeAlert.Add(1)
	default:
		routeUnknown.Add(1)
	}
}

func ObserveFlags(count int) {
	flagsRaised.Add(int64(count))
}

func ObserveFetchFailure() {
	fetchFailures.Add(1)
}

func ObserveNoData() {
	noDataResponses.Add(1)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP vitaltrace_pipeline_queries_total Number of pipeline invocations processed.\n")
	fmt.Fprintf(w, "# TYPE vitaltrace_pipeline_queries_total counter\n")
	fmt.Fprintf(w, "vitaltrace_pipeline_queries_total %d\n", queriesTotal.Load())

	fmt.Fprintf(w, "# HELP vitaltrace_pipeline_route_total Number of runs per terminal route.\n")
	fmt.Fprintf(w, "# TYPE vitaltrace_pipeline_route_total counter\n")
	fmt.Fprintf(w, "vitaltrace_pipeline_route_total{route=\"fetch\"} %d\n", routeFetch.Load())
	fmt.Fprintf(w, "vitaltrace_pipeline_route_total{route=\"metrics\"} %d\n", routeMetrics.Load())
	fmt.Fprintf(w, "vitaltrace_pipeline_route_total{route=\"summarize\"} %d\n", routeSummarize.Load())
	fmt.Fprintf(w, "vitaltrace_pipeline_route_total{route=\"alert\"} %d\n", routeAlert.Load())
	fmt.Fprintf(w, "vitaltrace_pipeline_route_total{route=\"unknown\"} %d\n", routeUnknown.Load())

	fmt.Fprintf(w, "# HELP vitaltrace_pipeline_flags_raised_total Number of advisory flags raised.\n")
	fmt.Fprintf(w, "# TYPE vitaltrace_pipeline_flags_raised_total counter\n")
	fmt.Fprintf(w, "vitaltrace_pipeline_flags_raised_total %d\n", flagsRaised.Load())

	fmt.Fprintf(w, "# HELP vitaltrace_pipeline_fetch_failures_total Number of observation fetches that aborted a run.\n")
	fmt.Fprintf(w, "# TYPE vitaltrace_pipeline_fetch_failures_total counter\n")
	fmt.Fprintf(w, "vitaltrace_pipeline_fetch_failures_total %d\n", fetchFailures.Load())

	fmt.Fprintf(w, "# HELP vitaltrace_pipeline_no_data_responses_total Number of runs that produced the explicit no-data message.\n")
	fmt.Fprintf(w, "# TYPE vitaltrace_pipeline_no_data_responses_total counter\n")
	fmt.Fprintf(w, "vitaltrace_pipeline_no_data_responses_total %d\n", noDataResponses.Load())
}
