// Package workflow submits jobs to a Cromwell-compatible workflow engine.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 60 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 30 * time.Second

	workflowsPath = "/api/workflows/v1"
	// maxResponseSize bounds how much of an engine response is read.
	maxResponseSize = 1 << 20
)

var (
	// ErrEngine is returned when the engine is unreachable or answers non-2xx.
	ErrEngine = errors.New("workflow engine error")
	// ErrJobNotFound is returned when the engine does not know a job id.
	ErrJobNotFound = errors.New("workflow job not found")
)

// Status is the engine's view of a job.
type Status struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Client talks to the workflow engine REST API.
type Client struct {
	baseURL     string
	workflowDir string
	httpClient  *http.Client
}

// NewHTTPClient creates an HTTP client with engine-appropriate timeouts.
// Redirects are not followed.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// NewClient creates a Client. Workflow sources are read from workflowDir.
// A nil httpClient uses NewHTTPClient.
func NewClient(baseURL, workflowDir string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		workflowDir: workflowDir,
		httpClient:  httpClient,
	}
}

// Submit uploads the workflow source for def together with inputs and
// returns the engine's acknowledgement. Every call creates a new job.
func (c *Client) Submit(ctx context.Context, def Definition, inputs map[string]any) (*Status, error) {
	source, err := os.ReadFile(filepath.Join(c.workflowDir, def.Source))
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow source: %w", err)
	}

	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow inputs: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := writePart(mw, "workflowSource", filepath.Base(def.Source), source); err != nil {
		return nil, err
	}
	if err := writePart(mw, "workflowInputs", def.Namespace+"_inputs.json", inputsJSON); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+workflowsPath, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var status Status
	if err := c.do(req, &status); err != nil {
		return nil, err
	}
	if status.ID == "" {
		return nil, fmt.Errorf("%w: response has no job id", ErrEngine)
	}
	return &status, nil
}

// Status fetches the current status of jobID.
func (c *Client) Status(ctx context.Context, jobID string) (*Status, error) {
	endpoint := c.baseURL + workflowsPath + "/" + url.PathEscape(jobID) + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var status Status
	if err := c.do(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEngine, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrEngine, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrJobNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", ErrEngine, resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrEngine, err)
	}
	return nil
}

func writePart(mw *multipart.Writer, field, filename string, content []byte) error {
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("failed to write %s part: %w", field, err)
	}
	return nil
}
