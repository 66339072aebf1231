package router

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/vitaltrace-ai/platform/pkg/common/logger"
	"github.com/vitaltrace-ai/platform/pkg/common/models"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type stubClassifier struct {
	decision Decision
	err      error
	calls    int
}

func (s *stubClassifier) Classify(ctx context.Context, query string, params models.Params) (Decision, error) {
	s.calls++
	return s.decision, s.err
}

func TestMetricsPreCheckSkipsClassifier(t *testing.T) {
	stub := &stubClassifier{err: errors.New("must not be called")}
	r := New(stub)

	route, params := r.Decide(context.Background(), models.SessionState{
		Query:  "show me the metrics table",
		Params: models.Params{PatientID: "p1"},
	})
	if route != models.RouteMetrics {
		t.Fatalf("expected metrics route, got %q", route)
	}
	if stub.calls != 0 {
		t.Fatalf("classifier consulted %d times for metrics query", stub.calls)
	}
	if params.PatientID != "p1" {
		t.Fatalf("params must pass through unchanged, got %+v", params)
	}
}

func TestClassifierErrorFallsBackToFetch(t *testing.T) {
	stub := &stubClassifier{err: errors.New("upstream timeout")}
	r := New(stub)

	state := models.SessionState{
		Query:  "how is the patient doing",
		Params: models.Params{PatientID: "p1", Codes: []string{"http://loinc.org|8480-6"}},
	}
	route, params := r.Decide(context.Background(), state)
	if route != models.RouteFetch {
		t.Fatalf("expected fetch fallback with patient and codes, got %q", route)
	}
	if !reflect.DeepEqual(params, state.Params) {
		t.Fatalf("fallback must not mutate params, got %+v", params)
	}
}

func TestClassifierErrorFallsBackToSummarize(t *testing.T) {
	stub := &stubClassifier{err: errors.New("upstream timeout")}
	r := New(stub)

	route, _ := r.Decide(context.Background(), models.SessionState{
		Query:  "how is the patient doing",
		Params: models.Params{PatientID: "p1"},
	})
	if route != models.RouteSummarize {
		t.Fatalf("expected summarize fallback without codes, got %q", route)
	}
}

func TestFetchWithMissingFieldsDowngradesToUnknown(t *testing.T) {
	stub := &stubClassifier{decision: Decision{
		Route:   models.RouteFetch,
		Missing: []string{"patientId"},
	}}
	r := New(stub)

	route, _ := r.Decide(context.Background(), models.SessionState{Query: "fetch readings"})
	if route != models.RouteUnknown {
		t.Fatalf("expected unknown for incomplete fetch, got %q", route)
	}
}

func TestDecisionPatchIsMerged(t *testing.T) {
	stub := &stubClassifier{decision: Decision{
		Route:       models.RouteFetch,
		ParamsPatch: models.Params{Codes: []string{"8867-4"}},
	}}
	r := New(stub)

	route, params := r.Decide(context.Background(), models.SessionState{
		Query:  "pulse for the same patient",
		Params: models.Params{PatientID: "p1", Since: "2024-01-01T00:00:00.000Z"},
	})
	if route != models.RouteFetch {
		t.Fatalf("expected fetch, got %q", route)
	}
	if params.PatientID != "p1" || params.Since != "2024-01-01T00:00:00.000Z" {
		t.Fatalf("patch must not erase base fields, got %+v", params)
	}
	if len(params.Codes) != 1 || params.Codes[0] != "http://loinc.org|8867-4" {
		t.Fatalf("patched codes must be canonicalized, got %v", params.Codes)
	}
}

func TestMergeParamsPatchWins(t *testing.T) {
	base := models.Params{PatientID: "p1", Since: "2024-01-01T00:00:00.000Z", Count: 100}
	patch := models.Params{PatientID: "p2", Count: 10}

	out := MergeParams(base, patch)
	if out.PatientID != "p2" {
		t.Fatalf("patch patient must win, got %q", out.PatientID)
	}
	if out.Count != 10 {
		t.Fatalf("patch count must win, got %d", out.Count)
	}
	if out.Since != base.Since {
		t.Fatalf("absent patch field must not erase base, got %q", out.Since)
	}
}

func TestNormalizeCodesDedupesAndSorts(t *testing.T) {
	out := NormalizeCodes([]string{"8867-4", "http://loinc.org|8480-6", "8867-4", ""})

	want := []string{"http://loinc.org|8480-6", "http://loinc.org|8867-4"}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("expected %v, got %v", want, out)
	}
}

func TestParseDecisionToleratesSurroundingText(t *testing.T) {
	content := "Sure, here is the decision:\n```json\n{\"route\":\"summarize\",\"rationale\":\"trend question\"}\n```"

	decision, err := parseDecision(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Route != models.RouteSummarize {
		t.Fatalf("expected summarize, got %q", decision.Route)
	}
}

func TestParseDecisionRejectsInvalidRoute(t *testing.T) {
	if _, err := parseDecision(`{"route":"escalate"}`); err == nil {
		t.Fatal("expected error for invalid route")
	}
	if _, err := parseDecision("no json here"); err == nil {
		t.Fatal("expected error for missing JSON")
	}
}
