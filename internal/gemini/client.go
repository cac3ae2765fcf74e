// Package gemini adapts Google's Gemini API to the embedding and generation
// interfaces used by the pipelines.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	DefaultEmbeddingModel = "text-embedding-004"
	DefaultChatModel      = "gemini-1.5-flash"
)

var (
	ErrNoAPIKey      = errors.New("GEMINI_API_KEY is not set")
	ErrEmptyResponse = errors.New("gemini returned an empty response")
)

// API is the narrow surface of the genai SDK this package needs.
type API interface {
	BatchEmbed(ctx context.Context, model string, texts []string) ([][]float32, error)
	GenerateText(ctx context.Context, model, prompt string) (string, error)
	Close() error
}

type Config struct {
	APIKey         string
	EmbeddingModel string
	ChatModel      string
}

type Client struct {
	api        API
	embedModel string
	chatModel  string
}

func NewClient(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	opts = append(opts, option.WithAPIKey(cfg.APIKey))
	sdk, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newClientWithAPI(&sdkAPI{client: sdk}, cfg), nil
}

func newClientWithAPI(api API, cfg Config) *Client {
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	return &Client{api: api, embedModel: cfg.EmbeddingModel, chatModel: cfg.ChatModel}
}

func (c *Client) Close() error {
	return c.api.Close()
}

// EmbedTexts embeds texts with one batch request, one vector per input in order.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	slog.DebugContext(ctx, "embedding batch", "model", c.embedModel, "count", len(texts))

	vecs, err := c.api.BatchEmbed(ctx, c.embedModel, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed batch: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("gemini returned an empty embedding at position %d", i)
		}
	}
	return vecs, nil
}

func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := c.api.GenerateText(ctx, c.chatModel, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

type sdkAPI struct {
	client *genai.Client
}

func (a *sdkAPI) BatchEmbed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	em := a.client.EmbeddingModel(model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}
	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		if e != nil {
			out[i] = e.Values
		}
	}
	return out, nil
}

func (a *sdkAPI) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	res, err := a.client.GenerativeModel(model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, cand := range res.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break
	}
	return sb.String(), nil
}

func (a *sdkAPI) Close() error {
	return a.client.Close()
}
