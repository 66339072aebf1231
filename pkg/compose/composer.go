package compose

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vitaltrace-ai/platform/pkg/common/models"
	"github.com/vitaltrace-ai/platform/pkg/terminology"
	"github.com/vitaltrace-ai/platform/pkg/trend"
)

const NoDataMessage = "No observation data is available for this query."

const (
	maxRowsPerCode = 5
	maxTotalRows   = 25
)

type tableRow struct {
	Code      string
	Display   string
	Value     float64
	Unit      string
	Timestamp string
	Status    string
	Category  string
	ID        string
}

// RenderMetricsTable renders the surviving raw observations as a fixed-column
// table: at most 5 most-recent rows per code, 25 rows overall, sorted by
// timestamp descending then code ascending.
func RenderMetricsTable(bundle *models.Bundle) string {
	if bundle == nil || len(bundle.Entries) == 0 {
		return NoDataMessage
	}

	byCode := make(map[string][]tableRow)
	for _, rec := range bundle.Entries {
		np, ok := trend.NormalizeRecord(rec)
		if !ok {
			continue
		}
		byCode[np.Code] = append(byCode[np.Code], tableRow{
			Code:      terminology.BareCode(np.Code),
			Display:   np.Display,
			Value:     np.Point.Value,
			Unit:      np.Unit,
			Timestamp: np.Point.Timestamp.Format("2006-01-02T15:04:05Z"),
			Status:    rec.Status,
			Category:  rec.Category,
			ID:        rec.ID,
		})
	}
	if len(byCode) == 0 {
		return NoDataMessage
	}

	var rows []tableRow
	for _, group := range byCode {
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Timestamp != group[j].Timestamp {
				return group[i].Timestamp > group[j].Timestamp
			}
			return group[i].Code < group[j].Code
		})
		if len(group) > maxRowsPerCode {
			group = group[:maxRowsPerCode]
		}
		rows = append(rows, group...)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Timestamp != rows[j].Timestamp {
			return rows[i].Timestamp > rows[j].Timestamp
		}
		return rows[i].Code < rows[j].Code
	})
	if len(rows) > maxTotalRows {
		rows = rows[:maxTotalRows]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-28s %10s %-8s %-20s %-10s %-12s %s\n",
		"CODE", "DISPLAY", "VALUE", "UNIT", "TIMESTAMP", "STATUS", "CATEGORY", "ID")
	for _, row := range rows {
		fmt.Fprintf(&b, "%-10s %-28s %10.2f %-8s %-20s %-10s %-12s %s\n",
			row.Code, row.Display, row.Value, row.Unit, row.Timestamp, row.Status, row.Category, row.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderFlagSummary renders only the advisory flags of a run. It never
// returns an empty string.
func RenderFlagSummary(trends *models.Trends) string {
	if trends == nil || len(trends.Series) == 0 {
		return NoDataMessage
	}
	if len(trends.Flags) == 0 {
		return "No advisory flags raised for the current data."
	}
	var b strings.Builder
	for _, flag := range trends.Flags {
		fmt.Fprintf(&b, "[%s] %s: %s\n", flag.Severity, flag.Rule, flag.Evidence)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderTrendSummary is the deterministic composition: coverage counts, one
// line per flag and one latest-value line per series. It never returns an
// empty string.
func RenderTrendSummary(trends *models.Trends, catalog terminology.Catalog) string {
	if trends == nil || len(trends.Series) == 0 {
		return NoDataMessage
	}

	total := 0
	for _, s := range trends.Series {
		total += len(s.Points)
	}
	if total == 0 {
		return NoDataMessage
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Coverage: %d points across %d codes.\n", total, len(trends.Series))

	for _, flag := range trends.Flags {
		fmt.Fprintf(&b, "[%s] %s: %s\n", flag.Severity, flag.Rule, flag.Evidence)
	}

	for i, s := range trends.Series {
		if len(s.Points) == 0 {
			continue
		}
		st := trends.Stats[i]
		name := s.Display
		if name == "" {
			name = catalog.Display(s.Code)
		}
		if name == "" {
			name = terminology.BareCode(s.Code)
		}
		line := fmt.Sprintf("%s: latest %g", name, st.LatestValue)
		if s.Unit != "" {
			line += " " + s.Unit
		}
		line += fmt.Sprintf(" at %s", st.LatestAt.Format("2006-01-02T15:04:05Z"))
		b.WriteString(line + "\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
