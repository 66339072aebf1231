package terminology

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestMatchQueryBloodPressure(t *testing.T) {
	codes := DefaultCatalog().MatchQuery("show me the Blood Pressure history")

	want := []string{"http://loinc.org|8462-4", "http://loinc.org|8480-6"}
	if !reflect.DeepEqual(codes, want) {
		t.Fatalf("expected both BP codes sorted, got %v", codes)
	}
}

func TestMatchQueryNoConcept(t *testing.T) {
	if codes := DefaultCatalog().MatchQuery("hello there"); len(codes) != 0 {
		t.Fatalf("expected no codes, got %v", codes)
	}
}

func TestCanonicalAndBare(t *testing.T) {
	if got := Canonical("8480-6"); got != "http://loinc.org|8480-6" {
		t.Fatalf("unexpected canonical form %q", got)
	}
	if got := Canonical("http://snomed.info/sct|271649006"); got != "http://snomed.info/sct|271649006" {
		t.Fatalf("prefixed codes must pass through, got %q", got)
	}
	if got := BareCode("http://loinc.org|8867-4"); got != "8867-4" {
		t.Fatalf("unexpected bare form %q", got)
	}
	if got := BareCode("8867-4"); got != "8867-4" {
		t.Fatalf("bare codes must pass through, got %q", got)
	}
}

func TestDisplayResolvesEitherForm(t *testing.T) {
	catalog := DefaultCatalog()
	if got := catalog.Display("http://loinc.org|8867-4"); got != "Heart rate" {
		t.Fatalf("unexpected display %q", got)
	}
	if got := catalog.Display("8867-4"); got != "Heart rate" {
		t.Fatalf("unexpected display for bare code %q", got)
	}
	if got := catalog.Display("0000-0"); got != "" {
		t.Fatalf("unknown codes must resolve empty, got %q", got)
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	content := `concepts:
  mean-arterial-pressure:
    display: Mean arterial pressure
    loinc: 8478-0
    unit: mm[Hg]
    synonyms: ["map", "mean arterial pressure"]
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	catalog, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	concept, ok := catalog.Lookup("mean-arterial-pressure")
	if !ok || concept.LOINC != "8478-0" {
		t.Fatalf("unexpected concept: %+v ok=%v", concept, ok)
	}
	codes := catalog.MatchQuery("latest MAP reading")
	if len(codes) != 1 || codes[0] != "http://loinc.org|8478-0" {
		t.Fatalf("override catalog should match, got %v", codes)
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	catalog, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := catalog.Lookup("heart-rate"); !ok {
		t.Fatal("default catalog expected")
	}
}
