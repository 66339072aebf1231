package query

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/vitaltrace-ai/platform/pkg/common/logger"
	"github.com/vitaltrace-ai/platform/pkg/common/models"
	"github.com/vitaltrace-ai/platform/pkg/compose"
	"github.com/vitaltrace-ai/platform/pkg/fhir"
	"github.com/vitaltrace-ai/platform/pkg/intake"
	"github.com/vitaltrace-ai/platform/pkg/pipeline"
	"github.com/vitaltrace-ai/platform/pkg/router"
	"github.com/vitaltrace-ai/platform/pkg/session"
	"github.com/vitaltrace-ai/platform/pkg/terminology"
	"github.com/vitaltrace-ai/platform/pkg/trend"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type staticClassifier struct{ route models.Route }

func (s staticClassifier) Classify(ctx context.Context, query string, params models.Params) (router.Decision, error) {
	return router.Decision{Route: s.route}, nil
}

type staticSearcher struct{ bundle *models.Bundle }

func (s staticSearcher) SearchObservations(ctx context.Context, req fhir.SearchRequest) (*models.Bundle, error) {
	return s.bundle, nil
}

func newTestRouter(t *testing.T, route models.Route, bundle *models.Bundle) *mux.Router {
	t.Helper()
	catalog := terminology.DefaultCatalog()
	orchestrator, err := pipeline.New(pipeline.Options{
		Parser:   intake.NewParser(catalog),
		Router:   router.New(staticClassifier{route: route}),
		Registry: session.NewRegistry(func() fhir.Searcher { return staticSearcher{bundle: bundle} }),
		Engine:   trend.NewEngine(trend.FreqAuto),
		Narrator: compose.NewNarrator(nil, catalog),
	})
	if err != nil {
		t.Fatalf("pipeline construction: %v", err)
	}
	r := mux.NewRouter()
	NewHTTPHandler(orchestrator, 1<<20).Register(r)
	return r
}

func TestHandleQuery(t *testing.T) {
	r := newTestRouter(t, models.RouteSummarize, &models.Bundle{})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"how is patient p1"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Thread-ID") == "" {
		t.Fatal("expected a generated thread id header")
	}
	if !strings.Contains(rec.Body.String(), `"route":"summarize"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandleQueryThreadHeaderWins(t *testing.T) {
	r := newTestRouter(t, models.RouteSummarize, &models.Bundle{})

	body := strings.NewReader(`{"query":"how is patient p1","thread_id":"body-thread"}`)
	req := httptest.NewRequest(http.MethodPost, "/query", body)
	req.Header.Set("X-Thread-ID", "header-thread")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Thread-ID"); got != "header-thread" {
		t.Fatalf("header thread id must win, got %q", got)
	}
}

func TestHandleQueryRejectsEmptyQuery(t *testing.T) {
	r := newTestRouter(t, models.RouteSummarize, &models.Bundle{})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":""}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleQueryRejectsInvalidJSON(t *testing.T) {
	r := newTestRouter(t, models.RouteSummarize, &models.Bundle{})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
