package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestPlanHandler_Generate(t *testing.T) {
	svc := new(MockPlanService)
	h := NewPlanHandler(svc)
	svc.On("Request", mock.Anything, "p-1").Return(&domain.Job{ID: "j-1", State: domain.JobStatePending}, nil)

	w := httptest.NewRecorder()
	h.Generate(w, withURLParams(httptest.NewRequest(http.MethodPost, "/", nil), map[string]string{"projectID": "p-1"}))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"data":{"job_id":"j-1"}}`, w.Body.String())
}

func TestPlanHandler_Latest(t *testing.T) {
	svc := new(MockPlanService)
	h := NewPlanHandler(svc)
	svc.On("Latest", mock.Anything, "p-1").Return(&domain.TestPlan{
		ID:        "tp-1",
		ProjectID: "p-1",
		JobID:     "j-1",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Plan:      json.RawMessage(`{"project_overview":"shop","tests":[],"risks":["none"]}`),
	}, nil)

	w := httptest.NewRecorder()
	h.Latest(w, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"projectID": "p-1"}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"tp-1"`)
	assert.Contains(t, w.Body.String(), `"plan":{"project_overview":"shop","tests":[],"risks":["none"]}`)
}

func TestPlanHandler_Latest_NoPlans(t *testing.T) {
	svc := new(MockPlanService)
	h := NewPlanHandler(svc)
	svc.On("Latest", mock.Anything, "p-1").Return(nil, domain.ErrTestPlanNotFound)

	w := httptest.NewRecorder()
	h.Latest(w, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"projectID": "p-1"}))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"no test plans yet"}`, w.Body.String())
}

func TestJobHandler_Get(t *testing.T) {
	jobs := new(MockJobStatusReader)
	h := NewJobHandler(jobs)
	jobs.On("Status", mock.Anything, "j-1").Return(&domain.JobSnapshot{
		JobID: "j-1", Kind: domain.JobKindIngest, State: domain.JobStateFailure, Error: "boom",
	}, nil)
	jobs.On("Status", mock.Anything, "j-2").Return(nil, domain.ErrJobNotFound)

	w := httptest.NewRecorder()
	h.Get(w, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"jobID": "j-1"}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"job_id":"j-1","kind":"ingest","state":"FAILURE","error":"boom"}}`, w.Body.String())

	w = httptest.NewRecorder()
	h.Get(w, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"jobID": "j-2"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
