package terminology

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const LOINCSystem = "http://loinc.org"

type Concept struct {
	Display  string   `yaml:"display" json:"display"`
	LOINC    string   `yaml:"loinc" json:"loinc"`
	Unit     string   `yaml:"unit,omitempty" json:"unit,omitempty"`
	Synonyms []string `yaml:"synonyms" json:"synonyms"`
}

type Catalog struct {
	Concepts map[string]Concept `yaml:"concepts" json:"concepts"`
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Concepts) == 0 {
		return Catalog{}, fmt.Errorf("terminology catalog empty")
	}
	return cat, nil
}

func (c Catalog) Lookup(key string) (Concept, bool) {
	if c.Concepts == nil {
		return Concept{}, false
	}
	concept, ok := c.Concepts[strings.ToLower(key)]
	if ok {
		return concept, true
	}
	for k, v := range c.Concepts {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return Concept{}, false
}

// MatchQuery returns the canonical codes of every concept whose name or
// synonym appears as a case-insensitive substring of the query. Results are
// sorted and de-duplicated.
func (c Catalog) MatchQuery(query string) []string {
	lowered := strings.ToLower(query)
	seen := make(map[string]struct{})
	for name, concept := range c.Concepts {
		terms := append([]string{name}, concept.Synonyms...)
		for _, term := range terms {
			if term == "" {
				continue
			}
			if strings.Contains(lowered, strings.ToLower(term)) {
				seen[Canonical(concept.LOINC)] = struct{}{}
				break
			}
		}
	}
	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Display resolves a human-readable name for a canonical or bare code.
func (c Catalog) Display(code string) string {
	bare := BareCode(code)
	for _, concept := range c.Concepts {
		if concept.LOINC == bare {
			return concept.Display
		}
	}
	return ""
}

// Canonical normalizes a bare code to "<system>|<code>". Codes that already
// carry a system are returned unchanged.
func Canonical(code string) string {
	if code == "" {
		return ""
	}
	if strings.Contains(code, "|") {
		return code
	}
	return LOINCSystem + "|" + code
}

// BareCode strips the system prefix from a canonical code.
func BareCode(code string) string {
	if idx := strings.LastIndex(code, "|"); idx >= 0 {
		return code[idx+1:]
	}
	return code
}

// Well-known LOINC codes used by the flagging rules.
const (
	LOINCSystolic    = "8480-6"
	LOINCDiastolic   = "8462-4"
	LOINCHeartRate   = "8867-4"
	LOINCSpO2        = "59408-5"
	LOINCSpO2Art     = "2708-6"
	LOINCBodyWeight  = "29463-7"
	LOINCBodyHeight  = "8302-2"
	LOINCBodyTemp    = "8310-5"
	LOINCRespRate    = "9279-1"
	LOINCGlucose     = "2339-0"
)

func DefaultCatalog() Catalog {
	return Catalog{Concepts: map[string]Concept{
		"systolic-blood-pressure": {
			Display:  "Systolic blood pressure",
			LOINC:    LOINCSystolic,
			Unit:     "mm[Hg]",
			Synonyms: []string{"systolic", "blood pressure", "bp"},
		},
		"diastolic-blood-pressure": {
			Display:  "Diastolic blood pressure",
			LOINC:    LOINCDiastolic,
			Unit:     "mm[Hg]",
			Synonyms: []string{"diastolic", "blood pressure", "bp"},
		},
		"heart-rate": {
			Display:  "Heart rate",
			LOINC:    LOINCHeartRate,
			Unit:     "/min",
			Synonyms: []string{"heart rate", "pulse"},
		},
		"oxygen-saturation": {
			Display:  "Oxygen saturation",
			LOINC:    LOINCSpO2,
			Unit:     "%",
			Synonyms: []string{"spo2", "oxygen saturation", "o2 sat"},
		},
		"body-weight": {
			Display:  "Body weight",
			LOINC:    LOINCBodyWeight,
			Unit:     "kg",
			Synonyms: []string{"weight"},
		},
		"body-height": {
			Display:  "Body height",
			LOINC:    LOINCBodyHeight,
			Unit:     "cm",
			Synonyms: []string{"height"},
		},
		"body-temperature": {
			Display:  "Body temperature",
			LOINC:    LOINCBodyTemp,
			Unit:     "Cel",
			Synonyms: []string{"temperature", "temp", "fever"},
		},
		"respiratory-rate": {
			Display:  "Respiratory rate",
			LOINC:    LOINCRespRate,
			Unit:     "/min",
			Synonyms: []string{"respiratory rate", "breathing rate"},
		},
		"blood-glucose": {
			Display:  "Blood glucose",
			LOINC:    LOINCGlucose,
			Unit:     "mg/dL",
			Synonyms: []string{"glucose", "blood sugar"},
		},
	}}
}
