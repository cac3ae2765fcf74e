package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText_PlainText(t *testing.T) {
	text, err := ExtractText([]byte("openapi: 3.0.0\npaths: {}"), "application/yaml", "api.yaml")
	require.NoError(t, err)
	assert.Equal(t, "openapi: 3.0.0\npaths: {}", text)
}

func TestExtractText_DropsInvalidUTF8(t *testing.T) {
	data := []byte{'a', 0xff, 'b', 0xfe, 'c'}
	text, err := ExtractText(data, "text/plain", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "abc", text)
}

func TestExtractText_DropsNUL(t *testing.T) {
	// UTF-16LE "id,name" as some spreadsheet exports write it
	data := []byte{'i', 0, 'd', 0, ',', 0, 'n', 0, 'a', 0, 'm', 0, 'e', 0}
	text, err := ExtractText(data, "text/csv", "users.csv")
	require.NoError(t, err)
	assert.Equal(t, "id,name", text)
	assert.NotContains(t, text, "\x00")
}

func TestExtractText_MalformedPDF(t *testing.T) {
	_, err := ExtractText([]byte("definitely not a pdf"), "application/pdf", "requirements.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdf")
}

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF("application/pdf", "x"))
	assert.True(t, isPDF("", "SPEC.PDF"))
	assert.False(t, isPDF("text/plain", "requirements.md"))
}
