package pipeline

import (
	"context"
	"fmt"

	"github.com/vitaltrace-ai/platform/pkg/common/logger"
	"github.com/vitaltrace-ai/platform/pkg/common/models"
	"github.com/vitaltrace-ai/platform/pkg/compose"
	"github.com/vitaltrace-ai/platform/pkg/fhir"
	"github.com/vitaltrace-ai/platform/pkg/intake"
	"github.com/vitaltrace-ai/platform/pkg/observability/metrics"
	"github.com/vitaltrace-ai/platform/pkg/router"
	"github.com/vitaltrace-ai/platform/pkg/session"
	"github.com/vitaltrace-ai/platform/pkg/trend"
)

const unknownRouteMessage = "Unable to route this query. Provide a patient identifier " +
	`(for example "patient 1234") and at least one vital sign such as ` +
	`"blood pressure", "heart rate" or "spo2".`

// FlagPublisher receives warn/crit flags raised during a run. Publication is
// best-effort and never blocks the response.
type FlagPublisher interface {
	PublishFlag(ctx context.Context, threadID, patientID string, flag models.Flag) error
}

// AuditEntry records one completed run.
type AuditEntry struct {
	ThreadID     string
	Query        string
	Route        models.Route
	Params       models.Params
	FetchedCount int
	FlagCount    int
}

type AuditSink interface {
	RecordRun(ctx context.Context, entry AuditEntry) error
}

type stageFunc func(ctx context.Context, threadID string, state models.SessionState) (models.SessionState, error)

// Orchestrator sequences intake → routing → fetch → trend analytics →
// composition. Each stage derives a new SessionState from its input; the
// transition table is keyed by Route and validated at construction.
type Orchestrator struct {
	parser   *intake.Parser
	router   *router.Router
	registry *session.Registry
	engine   *trend.Engine
	narrator *compose.Narrator

	store     *session.Store // optional
	publisher FlagPublisher  // optional
	audit     AuditSink      // optional

	stages map[models.Route]stageFunc
}

type Options struct {
	Parser    *intake.Parser
	Router    *router.Router
	Registry  *session.Registry
	Engine    *trend.Engine
	Narrator  *compose.Narrator
	Store     *session.Store
	Publisher FlagPublisher
	Audit     AuditSink
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Parser == nil || opts.Router == nil || opts.Registry == nil ||
		opts.Engine == nil || opts.Narrator == nil {
		return nil, fmt.Errorf("pipeline: parser, router, registry, engine and narrator are required")
	}

	o := &Orchestrator{
		parser:    opts.Parser,
		router:    opts.Router,
		registry:  opts.Registry,
		engine:    opts.Engine,
		narrator:  opts.Narrator,
		store:     opts.Store,
		publisher: opts.Publisher,
		audit:     opts.Audit,
	}

	o.stages = map[models.Route]stageFunc{
		models.RouteFetch:     o.stageFetch,
		models.RouteMetrics:   o.stageMetrics,
		models.RouteSummarize: o.stageSummarize,
		models.RouteAlert:     o.stageAlert,
		models.RouteUnknown:   o.stageUnknown,
	}
	for _, route := range []models.Route{
		models.RouteFetch, models.RouteMetrics, models.RouteSummarize,
		models.RouteAlert, models.RouteUnknown,
	} {
		if o.stages[route] == nil {
			return nil, fmt.Errorf("pipeline: no stage bound for route %q", route)
		}
	}

	return o, nil
}

// Run executes one pipeline invocation. Retrieval failures abort the run;
// classification and narrative failures degrade quietly inside the stages.
func (o *Orchestrator) Run(ctx context.Context, req models.QueryRequest) (models.QueryResponse, error) {
	parsed := o.parser.Parse(req.Query)

	state := models.SessionState{Query: req.Query, Params: parsed.Params}
	if req.Params != nil {
		// Explicit caller params win over anything parsed from text.
		state.Params = router.MergeParams(state.Params, *req.Params)
	}

	if o.store != nil {
		if prev, err := o.store.Load(ctx, req.ThreadID); err == nil && prev.Bundle != nil {
			state.Bundle = prev.Bundle
		}
	}

	route, params := o.router.Decide(ctx, state)
	state.Route = route
	state.Params = params

	state, err := o.stages[route](ctx, req.ThreadID, state)
	if err != nil {
		metrics.ObserveFetchFailure()
		return models.QueryResponse{}, err
	}

	o.finish(ctx, req, route, state)

	return models.QueryResponse{
		Summary: state.Summary,
		Route:   route,
		Trends:  state.Trends,
	}, nil
}

// finish handles the best-effort tail of a run: flag publication, audit and
// session checkpointing.
func (o *Orchestrator) finish(ctx context.Context, req models.QueryRequest, route models.Route, state models.SessionState) {
	metrics.ObserveQuery(route)
	if state.Summary == compose.NoDataMessage {
		metrics.ObserveNoData()
	}

	flagCount := 0
	if state.Trends != nil {
		flagCount = len(state.Trends.Flags)
		metrics.ObserveFlags(flagCount)
		if o.publisher != nil {
			for _, flag := range state.Trends.Flags {
				if flag.Severity == models.SeverityInfo {
					continue
				}
				if err := o.publisher.PublishFlag(ctx, req.ThreadID, state.Params.PatientID, flag); err != nil {
					logger.Log.WithError(err).Warn("failed to publish flag event")
				}
			}
		}
	}

	if o.audit != nil {
		entry := AuditEntry{
			ThreadID:  req.ThreadID,
			Query:     req.Query,
			Route:     route,
			Params:    state.Params,
			FlagCount: flagCount,
		}
		if state.Trends != nil {
			entry.FetchedCount = state.Trends.FetchedCount
		}
		if err := o.audit.RecordRun(ctx, entry); err != nil {
			logger.Log.WithError(err).Warn("failed to record query audit entry")
		}
	}

	if o.store != nil {
		if err := o.store.Save(ctx, req.ThreadID, state); err != nil {
			logger.Log.WithError(err).Warn("failed to checkpoint session state")
		}
	}
}

func (o *Orchestrator) fetch(ctx context.Context, threadID string, state models.SessionState) (models.SessionState, error) {
	client := o.registry.Get(threadID)
	bundle, err := client.SearchObservations(ctx, fhir.SearchRequest{
		PatientID: state.Params.PatientID,
		Codes:     state.Params.Codes,
		Since:     state.Params.Since,
		Until:     state.Params.Until,
		Count:     state.Params.Count,
		MaxItems:  state.Params.MaxItems,
	})
	if err != nil {
		return state, fmt.Errorf("observation retrieval failed: %w", err)
	}
	next := state
	next.Bundle = bundle
	return next, nil
}

// ensureBundle reuses a checkpointed bundle when present and fetches fresh
// data otherwise, provided the params can support a search.
func (o *Orchestrator) ensureBundle(ctx context.Context, threadID string, state models.SessionState) (models.SessionState, error) {
	if state.Bundle != nil && len(state.Bundle.Entries) > 0 {
		return state, nil
	}
	if state.Params.PatientID == "" {
		return state, nil
	}
	return o.fetch(ctx, threadID, state)
}

func (o *Orchestrator) analyze(state models.SessionState) models.SessionState {
	trends := o.engine.Build(state.Bundle, state.Params.Codes)
	next := state
	next.Trends = &trends
	return next
}

func (o *Orchestrator) stageFetch(ctx context.Context, threadID string, state models.SessionState) (models.SessionState, error) {
	state, err := o.fetch(ctx, threadID, state)
	if err != nil {
		return state, err
	}
	state = o.analyze(state)
	state.Summary = o.narrator.Summarize(ctx, state.Trends)
	return state, nil
}

func (o *Orchestrator) stageSummarize(ctx context.Context, threadID string, state models.SessionState) (models.SessionState, error) {
	state, err := o.ensureBundle(ctx, threadID, state)
	if err != nil {
		return state, err
	}
	state = o.analyze(state)
	state.Summary = o.narrator.Summarize(ctx, state.Trends)
	return state, nil
}

func (o *Orchestrator) stageMetrics(ctx context.Context, threadID string, state models.SessionState) (models.SessionState, error) {
	state, err := o.ensureBundle(ctx, threadID, state)
	if err != nil {
		return state, err
	}
	state = o.analyze(state)
	state.Summary = compose.RenderMetricsTable(state.Bundle)
	return state, nil
}

func (o *Orchestrator) stageAlert(ctx context.Context, threadID string, state models.SessionState) (models.SessionState, error) {
	state, err := o.ensureBundle(ctx, threadID, state)
	if err != nil {
		return state, err
	}
	state = o.analyze(state)
	state.Summary = compose.RenderFlagSummary(state.Trends)
	return state, nil
}

func (o *Orchestrator) stageUnknown(ctx context.Context, threadID string, state models.SessionState) (models.SessionState, error) {
	next := state
	next.Summary = unknownRouteMessage
	return next, nil
}
