package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/cloo-solutions/testcopilot/internal/pagination"
	"github.com/cloo-solutions/testcopilot/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
)

func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) Create(ctx context.Context, name string) (*domain.Project, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) List(ctx context.Context) ([]*domain.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Project), args.Error(1)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, in service.UploadInput) (*service.IngestTicket, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestTicket), args.Error(1)
}

func (m *MockDocumentService) Reingest(ctx context.Context, projectID, documentID string) (*service.IngestTicket, error) {
	args := m.Called(ctx, projectID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestTicket), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, projectID string, limit int, cursor string) (*pagination.PageResult[*domain.Document], error) {
	args := m.Called(ctx, projectID, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[*domain.Document]), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, projectID, documentID string) error {
	return m.Called(ctx, projectID, documentID).Error(0)
}

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, projectID, query string, k int) (*domain.RetrievalResult, error) {
	args := m.Called(ctx, projectID, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RetrievalResult), args.Error(1)
}

type MockPlanService struct {
	mock.Mock
}

func (m *MockPlanService) Request(ctx context.Context, projectID string) (*domain.Job, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockPlanService) Latest(ctx context.Context, projectID string) (*domain.TestPlan, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TestPlan), args.Error(1)
}

type MockJobStatusReader struct {
	mock.Mock
}

func (m *MockJobStatusReader) Status(ctx context.Context, id string) (*domain.JobSnapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JobSnapshot), args.Error(1)
}
