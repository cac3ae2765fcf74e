package service

import (
	"regexp"
	"strings"
)

// ChunkConfig controls how document text is split before embedding.
type ChunkConfig struct {
	MaxSize int
	Overlap int
	MinLen  int
}

// DefaultChunkConfig provides the deployment defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxSize: 1200,
		Overlap: 200,
		MinLen:  40,
	}
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLineRun    = regexp.MustCompile(`\n{3,}`)
)

// boundaryRatio is the fraction of the window after which a soft boundary is preferred over the hard edge.
const boundaryRatio = 0.6

// NormalizeText unifies line endings, collapses horizontal whitespace and
// runs of blank lines, and trims the result.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// ChunkText splits text into overlapping spans of at most cfg.MaxSize characters.
// Lengths are counted in runes. Output is deterministic for a given input and config.
func ChunkText(text string, cfg ChunkConfig) []string {
	if cfg.MaxSize <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}

	runes := []rune(NormalizeText(text))
	n := len(runes)
	if n == 0 {
		return nil
	}

	threshold := int(float64(cfg.MaxSize) * boundaryRatio)

	var spans []string
	start := 0
	for start < n {
		end := start + cfg.MaxSize
		if end > n {
			end = n
		}

		if cut := lastBoundary(runes[start:end]); cut > threshold {
			end = start + cut + 1
		}

		spans = append(spans, strings.TrimSpace(string(runes[start:end])))
		if end >= n {
			break
		}

		next := end - cfg.Overlap
		if next < 0 {
			next = 0
		}
		if next <= start {
			next = end
		}
		start = next
	}

	minLen := cfg.MinLen
	if minLen <= 0 {
		minLen = DefaultChunkConfig().MinLen
	}
	chunks := spans[:0]
	for _, s := range spans {
		if len([]rune(s)) >= minLen {
			chunks = append(chunks, s)
		}
	}
	return chunks
}

// lastBoundary returns the offset of the rightmost newline, or of the
// punctuation mark in ". ", "; " or ", ", within window. -1 if none.
func lastBoundary(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '\n':
			return i
		case '.', ';', ',':
			if i+1 < len(window) && window[i+1] == ' ' {
				return i
			}
		}
	}
	return -1
}
