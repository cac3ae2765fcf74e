package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const DefaultEmbedBatchSize = 64

var (
	// ErrEmbeddingMisaligned is returned when a provider returns a different number of vectors than texts.
	ErrEmbeddingMisaligned = errors.New("embedding provider returned a different number of vectors than inputs")
	// ErrWrongDimensions is returned when a vector does not have the configured dimension.
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// EmbeddingProvider embeds an ordered batch of texts in a single call.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// BatcherConfig controls batching against the embedding provider.
type BatcherConfig struct {
	BatchSize   int
	Concurrency int
	Dimensions  int
}

// EmbeddingBatcher turns ordered texts into order-aligned vectors, calling
// the provider once per fixed-size batch. Any failed batch fails the call.
type EmbeddingBatcher struct {
	provider EmbeddingProvider
	cfg      BatcherConfig
}

func NewEmbeddingBatcher(provider EmbeddingProvider, cfg BatcherConfig) *EmbeddingBatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultEmbedBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &EmbeddingBatcher{provider: provider, cfg: cfg}
}

// Embed returns one vector per input text, in input order. Empty input
// returns an empty result without calling the provider.
func (b *EmbeddingBatcher) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Concurrency)

	for start := 0; start < len(texts); start += b.cfg.BatchSize {
		end := min(start+b.cfg.BatchSize, len(texts))
		g.Go(func() error {
			vecs, err := b.provider.EmbedTexts(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(vecs) != end-start {
				return fmt.Errorf("%w: batch [%d:%d) got %d", ErrEmbeddingMisaligned, start, end, len(vecs))
			}
			for i, v := range vecs {
				if b.cfg.Dimensions > 0 && len(v) != b.cfg.Dimensions {
					return fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, b.cfg.Dimensions, len(v))
				}
				out[start+i] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedOne embeds a single text through the batch path.
func (b *EmbeddingBatcher) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := b.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
