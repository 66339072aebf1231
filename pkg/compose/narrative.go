package compose

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/vitaltrace-ai/platform/pkg/common/logger"
	"github.com/vitaltrace-ai/platform/pkg/common/models"
	"github.com/vitaltrace-ai/platform/pkg/llm"
	"github.com/vitaltrace-ai/platform/pkg/terminology"
)

const narrativeSystemPrompt = `You summarize vital-sign trend data for a clinician.
Write 2-4 short sentences in plain language. Mention each advisory flag with
"suggest review" phrasing. Never diagnose, never invent values, never omit a
critical flag. Use only the numbers provided.`

// Narrator enriches the deterministic summary with generated prose. The
// deterministic path is authoritative: any failure falls back to it.
type Narrator struct {
	client  *llm.Client
	catalog terminology.Catalog
}

func NewNarrator(client *llm.Client, catalog terminology.Catalog) *Narrator {
	return &Narrator{client: client, catalog: catalog}
}

// Summarize never returns an empty string.
func (n *Narrator) Summarize(ctx context.Context, trends *models.Trends) string {
	deterministic := RenderTrendSummary(trends, n.catalog)
	if deterministic == NoDataMessage || n.client == nil {
		return deterministic
	}

	payload, err := json.Marshal(map[string]interface{}{
		"series": trends.Series,
		"stats":  trends.Stats,
		"flags":  trends.Flags,
	})
	if err != nil {
		return deterministic
	}

	narrative, err := n.client.Complete(ctx, narrativeSystemPrompt, string(payload))
	if err != nil {
		logger.Log.WithError(err).Debug("narrative generation unavailable, using deterministic summary")
		return deterministic
	}
	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		return deterministic
	}

	return narrative + "\n\n" + deterministic
}
