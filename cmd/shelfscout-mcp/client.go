package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/use-agent/shelfscout/models"
	"github.com/use-agent/shelfscout/retry"
)

// apiClient talks to a running shelfscout service.
type apiClient struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	pollEach time.Duration
}

func (a *apiClient) do(ctx context.Context, method, path string, payload any, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.apiKey != "" {
		req.Header.Set("X-API-Key", a.apiKey)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	var decodeErr error
	if out != nil {
		decodeErr = json.Unmarshal(raw, out)
	}
	if resp.StatusCode >= 400 {
		var e models.ErrorResponse
		if json.Unmarshal(raw, &e) == nil && e.Error != nil {
			return resp.StatusCode, fmt.Errorf("[%s] %s", e.Error.Code, e.Error.Message)
		}
		return resp.StatusCode, fmt.Errorf("API returned %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return resp.StatusCode, fmt.Errorf("parse response: %w", decodeErr)
	}
	return resp.StatusCode, nil
}

// retrieve starts a retrieval job and polls it until it leaves the
// running state.
func (a *apiClient) retrieve(ctx context.Context, req models.RetrieveRequest) (*models.RetrieveJob, error) {
	var job models.RetrieveJob
	if _, err := a.do(ctx, http.MethodPost, "/api/v1/retrieve", req, &job); err != nil {
		return nil, err
	}
	if job.ID == "" {
		return nil, fmt.Errorf("retrieval job creation failed")
	}

	for job.Status == models.JobRunning {
		if err := retry.Sleep(ctx, a.pollEach); err != nil {
			return nil, err
		}
		if _, err := a.do(ctx, http.MethodGet, "/api/v1/retrieve/"+job.ID, nil, &job); err != nil {
			return nil, err
		}
	}
	return &job, nil
}

func (a *apiClient) extract(ctx context.Context, req models.ExtractRequest) (*models.ExtractResponse, error) {
	var resp models.ExtractResponse
	if _, err := a.do(ctx, http.MethodPost, "/api/v1/extract", req, &resp); err != nil && resp.Error == nil {
		return nil, err
	}
	return &resp, nil
}
