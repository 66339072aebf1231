package trend

import (
	"fmt"

	"github.com/vitaltrace-ai/platform/pkg/common/models"
	"github.com/vitaltrace-ai/platform/pkg/terminology"
)

// Rule labels are part of the output contract.
const (
	RuleHypertensiveCrisis = "Hypertensive crisis candidate"
	RuleVeryHighBP         = "Very high blood pressure"
	RuleSystolicRising     = "Systolic rising fast"
	RuleHROutOfRange       = "HR out of nominal range"
	RuleLowSpO2            = "Low SpO2"
	RuleBorderlineSpO2     = "Borderline SpO2"
)

// Thresholds are exact contracts, not tunables.
const (
	sysCrit      = 180.0
	diaCrit      = 120.0
	sysWarn      = 160.0
	diaWarn      = 100.0
	sysSlopeInfo = 2.0
	hrHigh       = 130.0
	hrLow        = 40.0
	spo2Crit     = 90.0
	spo2Warn     = 93.0
)

// EvaluateFlags applies the threshold rules over the per-series stats.
// Flags suggest review; they are never a diagnosis.
func EvaluateFlags(stats []models.Stats) []models.Flag {
	var flags []models.Flag

	byBare := make(map[string]models.Stats)
	for _, st := range stats {
		if st.Count == 0 {
			continue
		}
		byBare[terminology.BareCode(st.Code)] = st
	}

	flags = append(flags, bloodPressureFlags(byBare)...)

	if sys, ok := byBare[terminology.LOINCSystolic]; ok && sys.SlopePerDay >= sysSlopeInfo {
		flags = append(flags, models.Flag{
			Code:     sys.Code,
			Severity: models.SeverityInfo,
			Rule:     RuleSystolicRising,
			Evidence: fmt.Sprintf("systolic rising %.1f per day; suggest review", sys.SlopePerDay),
		})
	}

	if hr, ok := byBare[terminology.LOINCHeartRate]; ok {
		if hr.LatestValue > hrHigh || hr.LatestValue < hrLow {
			flags = append(flags, models.Flag{
				Code:     hr.Code,
				Severity: models.SeverityWarn,
				Rule:     RuleHROutOfRange,
				Evidence: fmt.Sprintf("latest heart rate %g; suggest review", hr.LatestValue),
			})
		}
	}

	if spo2, ok := spo2Stats(byBare); ok {
		switch {
		case spo2.LatestValue < spo2Crit:
			flags = append(flags, models.Flag{
				Code:     spo2.Code,
				Severity: models.SeverityCrit,
				Rule:     RuleLowSpO2,
				Evidence: fmt.Sprintf("latest SpO2 %g%%; suggest review", spo2.LatestValue),
			})
		case spo2.LatestValue < spo2Warn:
			flags = append(flags, models.Flag{
				Code:     spo2.Code,
				Severity: models.SeverityWarn,
				Rule:     RuleBorderlineSpO2,
				Evidence: fmt.Sprintf("latest SpO2 %g%%; suggest review", spo2.LatestValue),
			})
		}
	}

	return flags
}

// bloodPressureFlags combines systolic and diastolic when both series have a
// latest value; with only one present, that value is evaluated on its own.
func bloodPressureFlags(byBare map[string]models.Stats) []models.Flag {
	sys, hasSys := byBare[terminology.LOINCSystolic]
	dia, hasDia := byBare[terminology.LOINCDiastolic]
	if !hasSys && !hasDia {
		return nil
	}

	code := sys.Code
	if !hasSys {
		code = dia.Code
	}

	var evidence string
	switch {
	case hasSys && hasDia:
		evidence = fmt.Sprintf("latest systolic %g, diastolic %g; suggest review", sys.LatestValue, dia.LatestValue)
	case hasSys:
		evidence = fmt.Sprintf("latest systolic %g; suggest review", sys.LatestValue)
	default:
		evidence = fmt.Sprintf("latest diastolic %g; suggest review", dia.LatestValue)
	}

	crit := (hasSys && sys.LatestValue >= sysCrit) || (hasDia && dia.LatestValue >= diaCrit)
	warn := (hasSys && sys.LatestValue >= sysWarn) || (hasDia && dia.LatestValue >= diaWarn)

	switch {
	case crit:
		return []models.Flag{{Code: code, Severity: models.SeverityCrit, Rule: RuleHypertensiveCrisis, Evidence: evidence}}
	case warn:
		return []models.Flag{{Code: code, Severity: models.SeverityWarn, Rule: RuleVeryHighBP, Evidence: evidence}}
	}
	return nil
}

func spo2Stats(byBare map[string]models.Stats) (models.Stats, bool) {
	if st, ok := byBare[terminology.LOINCSpO2]; ok {
		return st, true
	}
	if st, ok := byBare[terminology.LOINCSpO2Art]; ok {
		return st, true
	}
	return models.Stats{}, false
}
