//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/api/handlers"
	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/cloo-solutions/testcopilot/internal/jobs"
	"github.com/cloo-solutions/testcopilot/internal/repository"
	"github.com/cloo-solutions/testcopilot/internal/server"
	"github.com/cloo-solutions/testcopilot/internal/service"
	"github.com/cloo-solutions/testcopilot/internal/testutil"
	"github.com/cloo-solutions/testcopilot/internal/vectorstore"
	"github.com/jackc/pgx/v5/pgxpool"
)

const fakeDim = 16

// fakeModel embeds by hashing words into a fixed number of buckets and
// answers Generate with whatever reply is currently set.
type fakeModel struct {
	mu    sync.Mutex
	reply string
}

func (m *fakeModel) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, fakeDim)
		for _, w := range strings.Fields(strings.ToLower(t)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			v[h.Sum32()%fakeDim]++
		}
		v[0] += 0.001
		out[i] = v
	}
	return out, nil
}

func (m *fakeModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reply, nil
}

func (m *fakeModel) SetReply(reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reply = reply
}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	Worker     *jobs.Worker
	Model      *fakeModel
	BinaryDir  string
	HTTPClient *http.Client
}

// SetupE2EEnv starts Postgres, the API and an in-process worker.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	model := &fakeModel{}

	projectRepo := repository.NewProjectRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool, vectorstore.Cosine)
	jobRepo := repository.NewJobRepository(pool)
	planRepo := repository.NewTestPlanRepository(pool)
	blobRepo := repository.NewBlobRepository(pool)
	txRunner := repository.NewTxRunner(pool, vectorstore.Cosine)

	queue := jobs.NewPostgresQueue(jobRepo)
	orchestrator := jobs.NewOrchestrator(jobRepo, queue)
	batcher := service.NewEmbeddingBatcher(model, service.BatcherConfig{BatchSize: 16, Concurrency: 2, Dimensions: fakeDim})

	projects := service.NewProjectService(projectRepo)
	documents := service.NewDocumentService(projectRepo, documentRepo, blobRepo, orchestrator)
	retriever := service.NewRetriever(batcher, chunkRepo, 8)
	plans := service.NewPlanService(projects, planRepo, orchestrator)

	ingest := service.NewIngestPipeline(documentRepo, blobRepo, batcher, txRunner, service.DefaultChunkConfig())
	plan := service.NewPlanPipeline(projectRepo, retriever, model, planRepo, 8)

	processor := jobs.NewProcessor(queue, jobRepo, map[domain.JobKind]jobs.Handler{
		domain.JobKindIngest:       jobs.IngestHandler(ingest),
		domain.JobKindPlanGenerate: jobs.PlanHandler(plan),
	})
	worker := jobs.NewWorker(processor, 50*time.Millisecond, 2)
	go worker.Start(ctx)

	router := server.NewRouter(server.RouterConfig{
		ProjectHandler:  handlers.NewProjectHandler(projects),
		DocumentHandler: handlers.NewDocumentHandler(documents, 10<<20),
		SearchHandler:   handlers.NewSearchHandler(projects, retriever),
		PlanHandler:     handlers.NewPlanHandler(plans),
		JobHandler:      handlers.NewJobHandler(orchestrator),
	})

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		Server:     httptest.NewServer(router),
		Worker:     worker,
		Model:      model,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup stops the server and worker. The database goes away with t.
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Worker != nil {
		e.Worker.Stop()
	}
	if e.BinaryDir != "" {
		_ = os.RemoveAll(e.BinaryDir)
	}
}

type APIResponse struct {
	Status int
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
}

func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.do(http.MethodGet, path, nil, "")
}

func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	return e.do(http.MethodPost, path, reader, "application/json")
}

func (e *E2ETestEnv) Upload(projectID, filename, contentType string, content []byte) (*APIResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return e.do(http.MethodPost, "/projects/"+projectID+"/documents", &buf, mw.FormDataContentType())
}

func (e *E2ETestEnv) do(method, path string, body io.Reader, contentType string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(e.Ctx, method, e.Server.URL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{Status: resp.StatusCode}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, apiResp); err != nil {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, raw)
		}
	}
	if resp.StatusCode >= 400 {
		return apiResp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}
	return apiResp, nil
}

// CreateProject creates a project through the API and returns its ID.
func (e *E2ETestEnv) CreateProject(name string) string {
	resp, err := e.Post("/projects", map[string]string{"name": name})
	if err != nil {
		e.T.Fatalf("failed to create project: %v", err)
	}
	var project domain.Project
	if err := json.Unmarshal(resp.Data, &project); err != nil {
		e.T.Fatalf("failed to parse project: %v", err)
	}
	return project.ID
}

// WaitForJob polls the job endpoint until the job is terminal.
func (e *E2ETestEnv) WaitForJob(jobID string, timeout time.Duration) domain.JobSnapshot {
	deadline := time.Now().Add(timeout)
	for {
		resp, err := e.Get("/jobs/" + jobID)
		if err != nil {
			e.T.Fatalf("failed to get job: %v", err)
		}
		var snap domain.JobSnapshot
		if err := json.Unmarshal(resp.Data, &snap); err != nil {
			e.T.Fatalf("failed to parse job: %v", err)
		}
		if snap.State.IsTerminal() {
			return snap
		}
		if time.Now().After(deadline) {
			e.T.Fatalf("job %s still %s after %s", jobID, snap.State, timeout)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// BuildCLI compiles the copilot client into a temp dir.
func (e *E2ETestEnv) BuildCLI() {
	tmpDir, err := os.MkdirTemp("", "copilot-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "copilot"), "./cmd/copilot")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build copilot: %v\n%s", err, out)
	}
}

// RunCLI runs the client with its config isolated to a temp home.
func (e *E2ETestEnv) RunCLI(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "copilot"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		"COPILOT_API_URL="+e.Server.URL,
		"HOME="+workDir,
		"XDG_CONFIG_HOME="+filepath.Join(workDir, ".config"),
		"COPILOT_CONFIG="+filepath.Join(workDir, ".config", "testcopilot", "config.json"),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
