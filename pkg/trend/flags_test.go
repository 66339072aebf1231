package trend

import (
	"strings"
	"testing"

	"github.com/vitaltrace-ai/platform/pkg/common/models"
)

func bpStats(sys, dia float64) []models.Stats {
	return []models.Stats{
		{Code: "http://loinc.org|8480-6", Count: 1, LatestValue: sys},
		{Code: "http://loinc.org|8462-4", Count: 1, LatestValue: dia},
	}
}

func findFlag(flags []models.Flag, rule string) (models.Flag, bool) {
	for _, f := range flags {
		if f.Rule == rule {
			return f, true
		}
	}
	return models.Flag{}, false
}

func TestHypertensiveCrisisFlag(t *testing.T) {
	flags := EvaluateFlags(bpStats(185, 80))

	flag, ok := findFlag(flags, RuleHypertensiveCrisis)
	if !ok {
		t.Fatalf("expected crisis flag, got %v", flags)
	}
	if flag.Severity != models.SeverityCrit {
		t.Fatalf("expected crit severity, got %q", flag.Severity)
	}
	if !strings.Contains(flag.Evidence, "185") || !strings.Contains(flag.Evidence, "80") {
		t.Fatalf("evidence must mention both values, got %q", flag.Evidence)
	}
	if _, warn := findFlag(flags, RuleVeryHighBP); warn {
		t.Fatal("crit and warn BP flags must not coexist")
	}
}

func TestVeryHighBPFlag(t *testing.T) {
	flags := EvaluateFlags(bpStats(165, 95))

	flag, ok := findFlag(flags, RuleVeryHighBP)
	if !ok {
		t.Fatalf("expected very-high flag, got %v", flags)
	}
	if flag.Severity != models.SeverityWarn {
		t.Fatalf("expected warn severity, got %q", flag.Severity)
	}
}

func TestNormalBPNoFlag(t *testing.T) {
	flags := EvaluateFlags(bpStats(120, 75))
	if len(flags) != 0 {
		t.Fatalf("expected no flags, got %v", flags)
	}
}

func TestSystolicAloneEvaluatesIndependently(t *testing.T) {
	stats := []models.Stats{{Code: "http://loinc.org|8480-6", Count: 1, LatestValue: 182}}

	flags := EvaluateFlags(stats)
	flag, ok := findFlag(flags, RuleHypertensiveCrisis)
	if !ok {
		t.Fatalf("expected crisis flag from systolic alone, got %v", flags)
	}
	if !strings.Contains(flag.Evidence, "182") {
		t.Fatalf("evidence must mention the systolic value, got %q", flag.Evidence)
	}
}

func TestSystolicSlopeFlag(t *testing.T) {
	stats := []models.Stats{{Code: "http://loinc.org|8480-6", Count: 5, LatestValue: 130, SlopePerDay: 2.5}}

	flags := EvaluateFlags(stats)
	flag, ok := findFlag(flags, RuleSystolicRising)
	if !ok {
		t.Fatalf("expected rising flag, got %v", flags)
	}
	if flag.Severity != models.SeverityInfo {
		t.Fatalf("expected info severity, got %q", flag.Severity)
	}
}

func TestHeartRateFlags(t *testing.T) {
	high := []models.Stats{{Code: "http://loinc.org|8867-4", Count: 1, LatestValue: 135}}
	if _, ok := findFlag(EvaluateFlags(high), RuleHROutOfRange); !ok {
		t.Fatal("expected HR flag at 135")
	}

	low := []models.Stats{{Code: "http://loinc.org|8867-4", Count: 1, LatestValue: 38}}
	if _, ok := findFlag(EvaluateFlags(low), RuleHROutOfRange); !ok {
		t.Fatal("expected HR flag at 38")
	}

	nominal := []models.Stats{{Code: "http://loinc.org|8867-4", Count: 1, LatestValue: 72}}
	if flags := EvaluateFlags(nominal); len(flags) != 0 {
		t.Fatalf("expected no HR flag at 72, got %v", flags)
	}
}

func TestSpO2Flags(t *testing.T) {
	mk := func(v float64) []models.Stats {
		return []models.Stats{{Code: "http://loinc.org|59408-5", Count: 1, LatestValue: v}}
	}

	if flag, ok := findFlag(EvaluateFlags(mk(89)), RuleLowSpO2); !ok || flag.Severity != models.SeverityCrit {
		t.Fatalf("expected crit SpO2 flag at 89")
	}
	if flag, ok := findFlag(EvaluateFlags(mk(92)), RuleBorderlineSpO2); !ok || flag.Severity != models.SeverityWarn {
		t.Fatalf("expected warn SpO2 flag at 92")
	}
	if flags := EvaluateFlags(mk(95)); len(flags) != 0 {
		t.Fatalf("expected no SpO2 flag at 95, got %v", flags)
	}
}

func TestEmptySeriesAreIgnored(t *testing.T) {
	stats := []models.Stats{{Code: "http://loinc.org|59408-5", Count: 0, LatestValue: 0}}
	if flags := EvaluateFlags(stats); len(flags) != 0 {
		t.Fatalf("series without points must not flag, got %v", flags)
	}
}
