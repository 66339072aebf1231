package intake

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vitaltrace-ai/platform/pkg/common/models"
	"github.com/vitaltrace-ai/platform/pkg/terminology"
)

const (
	DefaultCount    = 100
	DefaultMaxItems = 200
)

// Result is the structured outcome of parsing one free-text query. The
// route hint is advisory; the router makes the final call.
type Result struct {
	Params    models.Params
	RouteHint models.Route
}

type Parser struct {
	catalog terminology.Catalog
}

func NewParser(cat terminology.Catalog) *Parser {
	return &Parser{catalog: cat}
}

var (
	patientRegex  = regexp.MustCompile(`(?i)\b(?:patient(?:\s*id)?|pid)[:\s-]*([a-z0-9][a-z0-9\-._]*)`)
	loincRegex    = regexp.MustCompile(`\b\d{1,6}-\d\b`)
	sinceRegex    = regexp.MustCompile(`(?i)\b(?:since|after)\s+([0-9a-z,/\- ]{1,40})`)
	untilRegex    = regexp.MustCompile(`(?i)\b(?:until|through|before)\s+([0-9a-z,/\- ]{1,40})`)
	countRegex    = regexp.MustCompile(`(?i)\bcount\s*[:=]?\s*(\d+)`)
	maxItemsRegex = regexp.MustCompile(`(?i)\bmax[_\s]?items\s*[:=]?\s*(\d+)`)
)

// Parse never fails: fields it cannot extract stay absent.
func (p *Parser) Parse(query string) Result {
	params := models.Params{
		Count:    DefaultCount,
		MaxItems: DefaultMaxItems,
	}

	if m := patientRegex.FindStringSubmatch(query); len(m) == 2 {
		params.PatientID = strings.ToLower(m[1])
	}

	codes := p.extractCodes(query)
	if len(codes) > 0 {
		params.Codes = codes
	}

	temporalFound := false
	if m := sinceRegex.FindStringSubmatch(query); len(m) == 2 {
		if iso, ok := parseDatePhrase(m[1]); ok {
			params.Since = iso
			temporalFound = true
		}
	}
	if m := untilRegex.FindStringSubmatch(query); len(m) == 2 {
		if iso, ok := parseDatePhrase(m[1]); ok {
			params.Until = iso
			temporalFound = true
		}
	}

	if m := countRegex.FindStringSubmatch(query); len(m) == 2 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			params.Count = n
		}
	}
	if m := maxItemsRegex.FindStringSubmatch(query); len(m) == 2 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			params.MaxItems = n
		}
	}

	hint := models.RouteUnknown
	switch {
	case params.PatientID != "" && len(params.Codes) > 0:
		hint = models.RouteFetch
	case temporalFound && len(params.Codes) == 0:
		hint = models.RouteSummarize
	}

	return Result{Params: params, RouteHint: hint}
}

// extractCodes unions explicit LOINC-style tokens with catalog synonym hits.
func (p *Parser) extractCodes(query string) []string {
	seen := make(map[string]struct{})

	for _, loc := range loincRegex.FindAllStringIndex(query, -1) {
		// Reject tokens embedded in date-like sequences such as 2024-01-01:
		// a genuine LOINC token is never followed by another -digit pair.
		if loc[1]+1 < len(query) && query[loc[1]] == '-' && isDigit(query[loc[1]+1]) {
			continue
		}
		seen[terminology.Canonical(query[loc[0]:loc[1]])] = struct{}{}
	}

	for _, code := range p.catalog.MatchQuery(query) {
		seen[code] = struct{}{}
	}

	if len(seen) == 0 {
		return nil
	}
	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

var dateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2006",
	"Jan 2006",
}

// parseDatePhrase tries progressively shorter word prefixes of the captured
// phrase against the permissive layout list. The result is a UTC instant in
// ISO-8601 form; failure yields ok=false, never an error.
func parseDatePhrase(phrase string) (string, bool) {
	phrase = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(phrase), "/"))
	if phrase == "" {
		return "", false
	}
	words := strings.Fields(phrase)
	if len(words) > 3 {
		words = words[:3]
	}
	for n := len(words); n >= 1; n-- {
		candidate := strings.TrimSuffix(strings.Join(words[:n], " "), "/")
		candidate = strings.TrimRight(candidate, ",.")
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, candidate); err == nil {
				return ts.UTC().Format("2006-01-02T15:04:05.000Z"), true
			}
		}
	}
	return "", false
}
