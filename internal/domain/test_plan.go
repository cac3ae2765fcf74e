package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TestPlan is the persisted output of a plan-generate job. Plan is the JSON
// object extracted from the model reply, stored and served as-is; Document is
// the typed view of the same object and is never serialized.
type TestPlan struct {
	ID        string            `json:"id"`
	ProjectID string            `json:"project_id"`
	JobID     string            `json:"job_id"`
	CreatedAt time.Time         `json:"created_at"`
	Plan      json.RawMessage   `json:"plan"`
	Document  *TestPlanDocument `json:"-"`
}

// TestPlanDocument is the structured plan returned by the generative provider
type TestPlanDocument struct {
	ProjectOverview string     `json:"project_overview"`
	Tests           []TestCase `json:"tests"`
}

// TestCase is one ranked test in a plan. Sources cite the chunks that justify it.
type TestCase struct {
	ID            string   `json:"id"`
	Priority      string   `json:"priority"`
	Title         string   `json:"title"`
	Type          string   `json:"type"`
	Preconditions []string `json:"preconditions"`
	Steps         []string `json:"steps"`
	Expected      []string `json:"expected"`
	Tags          []string `json:"tags"`
	Sources       []string `json:"sources"`
}

// ParseTestPlanDocument decodes raw into a plan. The object must carry a
// "tests" array; an empty array is accepted.
func ParseTestPlanDocument(raw []byte) (*TestPlanDocument, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	tests, ok := probe["tests"]
	if !ok {
		return nil, fmt.Errorf("missing \"tests\" key")
	}
	if len(tests) == 0 || tests[0] != '[' {
		return nil, fmt.Errorf("\"tests\" must be an array")
	}

	var doc TestPlanDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("plan does not match expected structure: %w", err)
	}
	if doc.Tests == nil {
		doc.Tests = []TestCase{}
	}
	return &doc, nil
}
