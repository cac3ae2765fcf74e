package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/cloo-solutions/testcopilot/internal/telemetry"
	"github.com/google/uuid"
)

// PlanContextQuery is the broad query used to gather context for a test plan.
const PlanContextQuery = "requirements, user flows, API endpoints, error cases, auth, validation"

const planSchemaHint = `{
  "project_overview": "string",
  "tests": [
    {
      "id": "T001",
      "priority": "P0|P1|P2",
      "title": "string",
      "type": "api|ui|integration",
      "preconditions": ["string"],
      "steps": ["string"],
      "expected": ["string"],
      "tags": ["string"],
      "sources": ["doc chunk ids or short citations"]
    }
  ]
}`

const planInstructions = `You are an expert QA/SDET and software engineer.
Create a practical test plan for the project based ONLY on the context below.

Output STRICT JSON (no markdown) with this shape (keys must exist):
%s

Rules:
- Prefer high-value tests: auth, validation, error handling, rate limits, permissions, idempotency, boundary cases.
- Include a mix of API, UI, and integration tests if the context supports it.
- Each test MUST include a 'sources' array referencing chunk ids (e.g., 'Chunk <uuid>') that justify the test.
- Keep steps actionable and specific.

CONTEXT:
%s
`

// ChunkSearcher is the retrieval path shared by search and plan generation.
type ChunkSearcher interface {
	Search(ctx context.Context, projectID, query string, k int) (*domain.RetrievalResult, error)
}

// BuildPlanPrompt renders the generation prompt around the retrieved chunks.
func BuildPlanPrompt(chunks []domain.RetrievedChunk) string {
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = fmt.Sprintf("[Chunk %s / doc %s idx %d]\n%s", c.ChunkID, c.DocumentID, c.Idx, c.Text)
	}
	return fmt.Sprintf(planInstructions, planSchemaHint, strings.Join(blocks, "\n\n"))
}

// PlanPipeline generates and stores a test plan for a project.
type PlanPipeline struct {
	projects  ProjectRepository
	retriever ChunkSearcher
	generator Generator
	plans     TestPlanRepository
	topK      int
	now       Clock
	newID     func() string
}

func NewPlanPipeline(projects ProjectRepository, retriever ChunkSearcher, generator Generator, plans TestPlanRepository, topK int) *PlanPipeline {
	return &PlanPipeline{
		projects:  projects,
		retriever: retriever,
		generator: generator,
		plans:     plans,
		topK:      topK,
		now:       utcNow,
		newID:     uuid.NewString,
	}
}

// Run retrieves context, calls the generator once and persists the parsed plan.
// Nothing is stored when the output cannot be parsed.
func (p *PlanPipeline) Run(ctx context.Context, jobID string, args domain.PlanGenerateArgs) (*domain.PlanGenerateResult, error) {
	if args.ProjectID == "" {
		return nil, domain.ErrInvalidProjectID
	}
	if _, err := p.projects.GetByID(ctx, args.ProjectID); err != nil {
		return nil, err
	}

	attrs := telemetry.SpanAttributes{ProjectID: args.ProjectID, JobID: jobID}

	spanCtx, span := telemetry.StartSpan(ctx, "plan.retrieve", attrs)
	retrieved, err := p.retriever.Search(spanCtx, args.ProjectID, PlanContextQuery, p.topK)
	span.SetError(err)
	span.End()
	if err != nil {
		return nil, err
	}

	spanCtx, span = telemetry.StartSpan(ctx, "plan.generate", attrs)
	out, err := p.generator.Generate(spanCtx, BuildPlanPrompt(retrieved.Results))
	span.SetError(err)
	span.End()
	if err != nil {
		return nil, err
	}

	raw, doc, err := parsePlanOutput(out)
	if err != nil {
		return nil, err
	}

	unknown := UnknownSources(doc, retrieved.Results)
	if len(unknown) > 0 {
		slog.WarnContext(ctx, "plan cites chunks outside the retrieved context",
			"project_id", args.ProjectID, "count", len(unknown), "sources", unknown)
	}

	plan := &domain.TestPlan{
		ID:        p.newID(),
		ProjectID: args.ProjectID,
		JobID:     jobID,
		CreatedAt: p.now(),
		Plan:      raw,
		Document:  doc,
	}
	if err := p.plans.Create(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to store test plan: %w", err)
	}

	slog.InfoContext(ctx, "test plan generated",
		"project_id", args.ProjectID, "plan_id", plan.ID, "tests", len(doc.Tests))

	return &domain.PlanGenerateResult{
		ProjectID:      args.ProjectID,
		PlanID:         plan.ID,
		Plan:           raw,
		Tests:          len(doc.Tests),
		UnknownSources: len(unknown),
	}, nil
}

// parsePlanOutput extracts the plan object from a model reply and validates
// it. The extracted bytes are returned unchanged next to the typed view.
func parsePlanOutput(out string) (json.RawMessage, *domain.TestPlanDocument, error) {
	obj, err := ExtractJSONObject(out)
	if err != nil {
		return nil, nil, domain.ErrPlanParse.Wrap(err)
	}
	raw := json.RawMessage(obj)
	doc, err := domain.ParseTestPlanDocument(raw)
	if err != nil {
		return nil, nil, domain.ErrPlanParse.Wrap(err)
	}
	return raw, doc, nil
}

// UnknownSources returns the citations that name none of the retrieved chunks.
func UnknownSources(doc *domain.TestPlanDocument, context []domain.RetrievedChunk) []string {
	var unknown []string
	for _, tc := range doc.Tests {
		for _, src := range tc.Sources {
			if !citesAny(src, context) {
				unknown = append(unknown, src)
			}
		}
	}
	return unknown
}

func citesAny(source string, context []domain.RetrievedChunk) bool {
	for _, c := range context {
		if c.ChunkID != "" && strings.Contains(source, c.ChunkID) {
			return true
		}
	}
	return false
}
