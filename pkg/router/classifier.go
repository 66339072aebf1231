package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vitaltrace-ai/platform/pkg/common/models"
	"github.com/vitaltrace-ai/platform/pkg/llm"
)

// Decision is the structured classification returned by the text-generation
// service, validated before use.
type Decision struct {
	Route       models.Route  `json:"route"`
	Rationale   string        `json:"rationale"`
	ParamsPatch models.Params `json:"params_patch"`
	Missing     []string      `json:"missing"`
}

// Classifier is the collaborator boundary for route classification. Errors
// are recoverable by design: the router owns the fallback.
type Classifier interface {
	Classify(ctx context.Context, query string, params models.Params) (Decision, error)
}

const classifySystemPrompt = `You are a clinical query router. Classify the user query into exactly one route:
- "fetch": retrieve observations for a patient
- "metrics": tabular listing of raw observations
- "summarize": narrative trend summary over available data
- "alert": evaluate safety flags only
- "unknown": the query cannot be served

Never invent patient identifiers, codes or dates. Propose only a minimal,
safe params patch containing values literally present in the query. List any
required field that is missing for the chosen route in "missing".

Respond with a single JSON object:
{"route": "...", "rationale": "...", "params_patch": {...}, "missing": [...]}`

type LLMClassifier struct {
	client *llm.Client
}

func NewLLMClassifier(client *llm.Client) *LLMClassifier {
	return &LLMClassifier{client: client}
}

func (c *LLMClassifier) Classify(ctx context.Context, query string, params models.Params) (Decision, error) {
	input := map[string]interface{}{
		"query":          query,
		"current_params": params,
	}
	inputBytes, err := json.Marshal(input)
	if err != nil {
		return Decision{}, err
	}

	content, err := c.client.Complete(ctx, classifySystemPrompt, string(inputBytes))
	if err != nil {
		return Decision{}, err
	}

	return parseDecision(content)
}

// parseDecision extracts and validates the JSON decision, tolerating fenced
// or surrounded output.
func parseDecision(content string) (Decision, error) {
	raw := extractJSON(content)
	if raw == "" {
		return Decision{}, fmt.Errorf("no JSON object in classifier output")
	}

	var decision Decision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return Decision{}, fmt.Errorf("invalid classifier output: %w", err)
	}
	if !decision.Route.Valid() {
		return Decision{}, fmt.Errorf("classifier returned invalid route %q", decision.Route)
	}
	return decision, nil
}

func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
