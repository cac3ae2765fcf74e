package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText turns uploaded bytes into plain text. PDFs are parsed page by
// page; anything else is read as UTF-8 with invalid bytes dropped. NUL bytes
// are removed from both since Postgres text columns reject them.
func ExtractText(data []byte, contentType, filename string) (string, error) {
	if isPDF(contentType, filename) {
		text, err := extractPDF(data)
		if err != nil {
			return "", err
		}
		return stripNUL(text), nil
	}
	return stripNUL(strings.ToValidUTF8(string(data), "")), nil
}

func stripNUL(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

func isPDF(contentType, filename string) bool {
	return strings.Contains(strings.ToLower(contentType), "pdf") ||
		strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

func extractPDF(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse pdf: %w", err)
	}

	parts := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		parts = append(parts, pageText)
	}
	return strings.Join(parts, "\n"), nil
}
