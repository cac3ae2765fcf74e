package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/cloo-solutions/testcopilot/internal/pagination"
	"github.com/cloo-solutions/testcopilot/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestDocumentHandler_Upload(t *testing.T) {
	svc := new(MockDocumentService)
	h := NewDocumentHandler(svc, 1024)

	svc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
		return in.ProjectID == "p-1" && in.Filename == "requirements.txt" && string(in.Data) == "login flow"
	})).Return(&service.IngestTicket{DocumentID: "d-1", JobID: "j-1", Status: domain.DocumentStatusIngesting}, nil)

	body, contentType := multipartUpload(t, "file", "requirements.txt", []byte("login flow"))
	req := httptest.NewRequest(http.MethodPost, "/projects/p-1/documents", body)
	req.Header.Set("Content-Type", contentType)
	req = withURLParams(req, map[string]string{"projectID": "p-1"})

	w := httptest.NewRecorder()
	h.Upload(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"data":{"document_id":"d-1","job_id":"j-1","status":"ingesting"}}`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestDocumentHandler_Upload_MissingFile(t *testing.T) {
	h := NewDocumentHandler(new(MockDocumentService), 1024)

	body, contentType := multipartUpload(t, "other", "requirements.txt", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/projects/p-1/documents", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	h.Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_Upload_TooLarge(t *testing.T) {
	svc := new(MockDocumentService)
	h := NewDocumentHandler(svc, 4)

	body, contentType := multipartUpload(t, "file", "big.txt", []byte("more than four bytes"))
	req := httptest.NewRequest(http.MethodPost, "/projects/p-1/documents", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	h.Upload(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	svc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestDocumentHandler_Upload_EmptyFile(t *testing.T) {
	svc := new(MockDocumentService)
	h := NewDocumentHandler(svc, 1024)
	svc.On("Upload", mock.Anything, mock.Anything).Return(nil, domain.ErrEmptyUpload)

	body, contentType := multipartUpload(t, "file", "empty.txt", nil)
	req := httptest.NewRequest(http.MethodPost, "/projects/p-1/documents", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	h.Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_List(t *testing.T) {
	svc := new(MockDocumentService)
	h := NewDocumentHandler(svc, 1024)
	svc.On("List", mock.Anything, "p-1", 10, "abc").Return(&pagination.PageResult[*domain.Document]{
		Items: []*domain.Document{},
	}, nil)

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/projects/p-1/documents?limit=10&cursor=abc", nil),
		map[string]string{"projectID": "p-1"})
	w := httptest.NewRecorder()
	h.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"items":[],"has_more":false}}`, w.Body.String())
}

func TestDocumentHandler_List_BadLimit(t *testing.T) {
	h := NewDocumentHandler(new(MockDocumentService), 1024)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/projects/p-1/documents?limit=abc", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_Delete(t *testing.T) {
	svc := new(MockDocumentService)
	h := NewDocumentHandler(svc, 1024)
	svc.On("Delete", mock.Anything, "p-1", "d-1").Return(nil)
	svc.On("Delete", mock.Anything, "p-1", "d-2").Return(domain.ErrDocumentNotFound)

	w := httptest.NewRecorder()
	h.Delete(w, withURLParams(httptest.NewRequest(http.MethodDelete, "/", nil),
		map[string]string{"projectID": "p-1", "documentID": "d-1"}))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	h.Delete(w, withURLParams(httptest.NewRequest(http.MethodDelete, "/", nil),
		map[string]string{"projectID": "p-1", "documentID": "d-2"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_Reingest(t *testing.T) {
	svc := new(MockDocumentService)
	h := NewDocumentHandler(svc, 1024)
	svc.On("Reingest", mock.Anything, "p-1", "d-1").
		Return(&service.IngestTicket{DocumentID: "d-1", JobID: "j-2", Status: domain.DocumentStatusIngesting}, nil)

	w := httptest.NewRecorder()
	h.Reingest(w, withURLParams(httptest.NewRequest(http.MethodPost, "/", nil),
		map[string]string{"projectID": "p-1", "documentID": "d-1"}))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"job_id":"j-2"`)
}
