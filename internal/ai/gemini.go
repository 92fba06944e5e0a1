// Package ai wraps the Gemini API behind the two narrow calls the rest of
// the application needs: embedding text and generating an answer.
package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/rborin01/truepress/internal/config"
	"github.com/rborin01/truepress/internal/errors"
)

// Client talks to the Gemini API.
type Client struct {
	client        *genai.Client
	embedModel    string
	generateModel string
}

// NewClient builds a Gemini client from configuration. Fails when no API
// key is available.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	key := cfg.APIKey()
	if key == "" {
		return nil, errors.NewInvalidRequest("gemini api key is not configured (set GEMINI_API_KEY or gemini_api_key in config.json)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{
		client:        client,
		embedModel:    cfg.EmbedModel,
		generateModel: cfg.GenerateModel,
	}, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewInvalidRequest("text to embed must not be empty")
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.embedModel,
		genai.Text(text), &genai.EmbedContentConfig{})
	if err != nil {
		return nil, errors.NewEmbeddingFailed(err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.NewEmbeddingFailed(fmt.Errorf("empty embedding response"))
	}
	return resp.Embeddings[0].Values, nil
}

// Generate produces a text completion for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.generateModel,
		genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return resp.Text(), nil
}
