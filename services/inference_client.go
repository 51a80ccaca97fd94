package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ErrInferenceUnavailable means no inference server is configured.
var ErrInferenceUnavailable = errors.New("inference server not configured")

// InferenceClient talks to the Ollama server that hosts model weights.
type InferenceClient struct {
	BaseURL string
	Client  *http.Client
}

type InstalledModel struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
	ModifiedAt time.Time `json:"modified_at"`
}

func NewInferenceClient(baseURL string) *InferenceClient {
	return &InferenceClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// InstalledModels lists the models the inference server can run.
func (c *InferenceClient) InstalledModels(ctx context.Context) ([]InstalledModel, error) {
	if c == nil || c.BaseURL == "" {
		return nil, ErrInferenceUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference server unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("[Inference] /api/tags returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("inference server returned %d", resp.StatusCode)
	}

	var out struct {
		Models []InstalledModel `json:"models"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	return out.Models, nil
}
