// Package vectorstore holds what the vector store adapters share: distance
// metrics and validation of chunk replacements.
package vectorstore

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cloo-solutions/testcopilot/internal/domain"
)

// Metric is a vector distance function. Smaller is closer for every metric.
type Metric string

const (
	Cosine       Metric = "cosine"
	L2           Metric = "l2"
	InnerProduct Metric = "inner_product"
)

var (
	ErrUnknownMetric   = errors.New("unknown distance metric")
	ErrInvalidChunkSet = errors.New("invalid chunk set")
)

// ParseMetric accepts the configured metric name; empty means cosine.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "", Cosine:
		return Cosine, nil
	case L2:
		return L2, nil
	case InnerProduct:
		return InnerProduct, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}

// Operator returns the pgvector operator for the metric.
func (m Metric) Operator() string {
	switch m {
	case L2:
		return "<->"
	case InnerProduct:
		return "<#>"
	default:
		return "<=>"
	}
}

// Distance computes the metric in the same sense as pgvector: cosine distance,
// euclidean distance, or negative inner product.
func (m Metric) Distance(a, b []float32) float64 {
	n := min(len(a), len(b))
	switch m {
	case L2:
		var sum float64
		for i := 0; i < n; i++ {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	case InnerProduct:
		return -dot(a[:n], b[:n])
	default:
		na, nb := norm(a[:n]), norm(b[:n])
		if na == 0 || nb == 0 {
			return 1
		}
		return 1 - dot(a[:n], b[:n])/(na*nb)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(a []float32) float64 {
	return math.Sqrt(dot(a, a))
}

// ValidateChunkSet checks that every chunk belongs to the replaced document
// and that indexes run densely from 0.
func ValidateChunkSet(r domain.ChunkReplace) error {
	if r.ProjectID == "" || r.DocumentID == "" {
		return fmt.Errorf("%w: project and document are required", ErrInvalidChunkSet)
	}
	for i, c := range r.Chunks {
		if c.Idx != i {
			return fmt.Errorf("%w: chunk %d has idx %d", ErrInvalidChunkSet, i, c.Idx)
		}
		if c.DocumentID != r.DocumentID || c.ProjectID != r.ProjectID {
			return fmt.Errorf("%w: chunk %d belongs to another document", ErrInvalidChunkSet, i)
		}
		if len(c.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %d has no embedding", ErrInvalidChunkSet, i)
		}
	}
	return nil
}
