package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const (
	DefaultRegion = "europe-west1"
	DefaultModel  = "gemini-2.5-flash"
)

// Config selects the VertexAI project and model.
type Config struct {
	ProjectID string
	Region    string
	Model     string
}

// Client extracts puzzles from photos with Gemini on VertexAI.
type Client struct {
	client    *genai.Client
	modelName string
}

// NewClient authenticates with Application Default Credentials
// (GOOGLE_APPLICATION_CREDENTIALS points at the service account key).
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("gemini: project id is required")
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.ProjectID,
		Location: cfg.Region,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{client: client, modelName: cfg.Model}, nil
}

// Model returns the model used for extraction.
func (c *Client) Model() string { return c.modelName }

// Close is a no-op; the genai client holds no closable resources.
func (c *Client) Close() error {
	return nil
}
