package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ctlst/telegramollamabot/internal/models"
)

// Model management uses Ollama's REST API directly; eino only covers
// inference.

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	} `json:"models"`
}

// ListModels returns the runtime's current model listing, in listing
// order.
func (s *Service) ListModels(ctx context.Context) ([]models.ModelDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build tags request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list models: runtime returned %s", resp.Status)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}
	descriptors := make([]models.ModelDescriptor, 0, len(tags.Models))
	for _, m := range tags.Models {
		descriptors = append(descriptors, models.ModelDescriptor{Name: m.Name, SizeBytes: m.Size})
	}
	return descriptors, nil
}

// PullModel asks the runtime to download the named model. The call
// blocks until the pull completes.
func (s *Service) PullModel(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("model name is required")
	}
	body, err := json.Marshal(map[string]any{"name": name, "stream": false})
	if err != nil {
		return fmt.Errorf("encode pull request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pull %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pull %s: runtime returned %s: %s", name, resp.Status, bytes.TrimSpace(detail))
	}
	return nil
}
