package modelstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/okian/sprinkler/internal/domain/features"
	"github.com/okian/sprinkler/internal/domain/inference"
)

const (
	modelPath    = "/v1/model"
	predictPath  = "/v1/predict"
	maxErrorBody = 512
)

type remoteDescriptor struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	InputDimension  int    `json:"input_dimension"`
	OutputDimension int    `json:"output_dimension"`
}

type predictRequest struct {
	Features []float64 `json:"features"`
}

type predictResponse struct {
	Labels []int `json:"labels"`
}

// RemoteModel delegates prediction to an inference service over HTTP. The
// descriptor is fetched once at load time and never refreshed.
type RemoteModel struct {
	baseURL string
	client  *http.Client
	desc    remoteDescriptor
}

var _ inference.Model = (*RemoteModel)(nil)

// LoadRemote fetches the model descriptor from baseURL.
func LoadRemote(ctx context.Context, baseURL string, client *http.Client) (*RemoteModel, error) {
	if client == nil {
		client = &http.Client{Timeout: defaultRemoteTimeout}
	}
	m := &RemoteModel{baseURL: strings.TrimRight(baseURL, "/"), client: client}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+modelPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	if err := json.NewDecoder(resp.Body).Decode(&m.desc); err != nil {
		return nil, fmt.Errorf("%w: decode descriptor: %w", ErrRemote, err)
	}
	if m.desc.InputDimension <= 0 || m.desc.OutputDimension <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %dx%d",
			ErrInvalidArtifact, m.desc.InputDimension, m.desc.OutputDimension)
	}
	return m, nil
}

// Predict posts the features and returns the labels as received. Shape and
// label checks are left to the caller.
func (m *RemoteModel) Predict(ctx context.Context, v features.Vector) ([]int, error) {
	body, err := json.Marshal(predictRequest{Features: v.Values()})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+predictPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode labels: %w", ErrRemote, err)
	}
	return out.Labels, nil
}

func (m *RemoteModel) InputDimension() int  { return m.desc.InputDimension }
func (m *RemoteModel) OutputDimension() int { return m.desc.OutputDimension }

func (m *RemoteModel) Info() inference.ModelInfo {
	return inference.ModelInfo{
		Name:    m.desc.Name,
		Version: m.desc.Version,
		Source:  "remote:" + m.baseURL,
	}
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%w: %s: %s", ErrRemote, resp.Status, strings.TrimSpace(string(snippet)))
}
