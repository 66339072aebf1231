package router

import (
	"sort"

	"github.com/vitaltrace-ai/platform/pkg/common/models"
	"github.com/vitaltrace-ai/platform/pkg/terminology"
)

// MergeParams overlays patch on base. A field moves only when the patch
// carries an explicit value; absent patch fields never erase base values.
func MergeParams(base, patch models.Params) models.Params {
	out := base
	if patch.PatientID != "" {
		out.PatientID = patch.PatientID
	}
	if len(patch.Codes) > 0 {
		out.Codes = NormalizeCodes(patch.Codes)
	}
	if patch.Since != "" {
		out.Since = patch.Since
	}
	if patch.Until != "" {
		out.Until = patch.Until
	}
	if patch.Count > 0 {
		out.Count = patch.Count
	}
	if patch.MaxItems > 0 {
		out.MaxItems = patch.MaxItems
	}
	return out
}

// NormalizeCodes canonicalizes, de-duplicates and sorts a code list.
func NormalizeCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if code == "" {
			continue
		}
		seen[terminology.Canonical(code)] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
