package fhir

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestSearchObservationsBuildsQuery(t *testing.T) {
	var gotQuery map[string]string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/observations" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"items": []interface{}{}, "totalReturned": 0})
	})

	client := NewClient(Options{BaseURL: server.URL, Timeout: 5 * time.Second})
	bundle, err := client.SearchObservations(context.Background(), SearchRequest{
		PatientID: "p1",
		Codes:     []string{"http://loinc.org|8480-6", "http://loinc.org|8462-4"},
		Since:     "2024-01-01T00:00:00.000Z",
		Count:     50,
		MaxItems:  120,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle == nil || bundle.TotalReturned != 0 {
		t.Fatalf("unexpected bundle: %+v", bundle)
	}

	if gotQuery["patientId"] != "p1" {
		t.Fatalf("patientId missing, got %v", gotQuery)
	}
	if gotQuery["code"] != "http://loinc.org|8480-6,http://loinc.org|8462-4" {
		t.Fatalf("codes must be comma-joined, got %q", gotQuery["code"])
	}
	if gotQuery["since"] != "2024-01-01T00:00:00.000Z" {
		t.Fatalf("since missing, got %v", gotQuery)
	}
	if gotQuery["count"] != "50" || gotQuery["maxItems"] != "120" {
		t.Fatalf("numeric params wrong: %v", gotQuery)
	}
	if _, ok := gotQuery["until"]; ok {
		t.Fatalf("absent until must not be sent, got %v", gotQuery)
	}
}

func TestSearchObservationsClampsLimits(t *testing.T) {
	var gotQuery map[string]string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"count":    r.URL.Query().Get("count"),
			"maxItems": r.URL.Query().Get("maxItems"),
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"items": []interface{}{}})
	})

	client := NewClient(Options{BaseURL: server.URL, Timeout: 5 * time.Second, MaxItemsCap: 100})
	if _, err := client.SearchObservations(context.Background(), SearchRequest{
		PatientID: "p1",
		Count:     9999,
		MaxItems:  9999,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery["count"] != "200" {
		t.Fatalf("count must clamp to 200, got %q", gotQuery["count"])
	}
	if gotQuery["maxItems"] != "100" {
		t.Fatalf("maxItems must clamp to the cap, got %q", gotQuery["maxItems"])
	}
}

func TestSearchObservationsRequiresPatient(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://unused", Timeout: time.Second})
	if _, err := client.SearchObservations(context.Background(), SearchRequest{}); err == nil {
		t.Fatal("expected error without patient id")
	}
}

func TestSearchObservationsErrorStatus(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	client := NewClient(Options{BaseURL: server.URL, Timeout: time.Second})
	if _, err := client.SearchObservations(context.Background(), SearchRequest{PatientID: "p1"}); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestSearchObservationsDecodesItems(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]interface{}{
				{"value": 120.5, "when": "2024-05-01T10:00:00Z", "loinc": "8480-6"},
			},
			"totalReturned": 1,
		})
	})

	client := NewClient(Options{BaseURL: server.URL, Timeout: time.Second})
	bundle, err := client.SearchObservations(context.Background(), SearchRequest{PatientID: "p1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bundle.Entries) != 1 || bundle.TotalReturned != 1 {
		t.Fatalf("unexpected bundle: %+v", bundle)
	}
	rec := bundle.Entries[0]
	if rec.Value == nil || *rec.Value != 120.5 || rec.LOINC != "8480-6" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}
