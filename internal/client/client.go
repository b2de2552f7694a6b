// Package client provides a typed HTTP client for the iris server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iris-analytics/iris/internal/conversation"
	"github.com/iris-analytics/iris/internal/models"
	"github.com/iris-analytics/iris/internal/realtime"
)

const (
	defaultEndpoint = "http://localhost:8686"
	defaultTimeout  = 60 * time.Second

	callerHeader = "X-Iris-Caller"
)

// Client talks to a running iris server over its JSON API.
type Client struct {
	endpoint   string
	caller     string
	httpClient *http.Client
}

// New creates a client for the given endpoint. An empty endpoint falls
// back to IRIS_SERVER_URL, then to the default local address. The
// request timeout can be overridden via IRIS_CLIENT_TIMEOUT.
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("IRIS_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	endpoint = strings.TrimSuffix(endpoint, "/")

	timeout := defaultTimeout
	if v := os.Getenv("IRIS_CLIENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			timeout = d
		}
	}

	return &Client{
		endpoint:   endpoint,
		caller:     "iris-cli",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetCaller overrides the caller name reported to the server.
func (c *Client) SetCaller(name string) {
	c.caller = name
}

type apiError struct {
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// do issues a JSON request and decodes the response into result. Error
// responses are unwrapped into plain errors carrying the server message.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(callerHeader, c.caller)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			if apiErr.ErrorKind != "" {
				return fmt.Errorf("server returned %d (%s): %s", resp.StatusCode, apiErr.ErrorKind, apiErr.Error)
			}
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Health reports the server status and uptime.
type Health struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// AgentReport mirrors the server's agent initialization report.
type AgentReport struct {
	Models []struct {
		Kind      string        `json:"kind"`
		Available bool          `json:"available"`
		Error     string        `json:"error,omitempty"`
		Elapsed   time.Duration `json:"elapsed"`
	} `json:"models"`
	Agents  map[models.AgentKind]bool `json:"agents"`
	Elapsed time.Duration             `json:"elapsed"`
}

func (c *Client) Agents(ctx context.Context) (*AgentReport, error) {
	var report AgentReport
	if err := c.do(ctx, http.MethodGet, "/agents", nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	var stats map[string]any
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// AddDataset registers a CSV file with the server. The path is resolved
// on the server's filesystem.
func (c *Client) AddDataset(ctx context.Context, path, name string) (*models.Dataset, error) {
	body := map[string]string{"path": path, "name": name}
	var ds models.Dataset
	if err := c.do(ctx, http.MethodPost, "/datasets", body, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (c *Client) Datasets(ctx context.Context) ([]*models.Dataset, error) {
	var resp struct {
		Datasets []*models.Dataset `json:"datasets"`
	}
	if err := c.do(ctx, http.MethodGet, "/datasets", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Datasets, nil
}

func (c *Client) Dataset(ctx context.Context, id string) (*models.Dataset, error) {
	var ds models.Dataset
	if err := c.do(ctx, http.MethodGet, "/datasets/"+url.PathEscape(id), nil, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// SubmitAnalysis starts an analysis job for the dataset and returns the
// job ID. Submitting while another job for the same dataset is live
// returns that job's ID without error on the server side.
func (c *Client) SubmitAnalysis(ctx context.Context, datasetID string) (string, error) {
	body := map[string]string{"dataset_id": datasetID}
	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/analyses", body, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

func (c *Client) Jobs(ctx context.Context) ([]*models.AnalysisJob, error) {
	var resp struct {
		Jobs []*models.AnalysisJob `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, "/jobs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (c *Client) Job(ctx context.Context, jobID string) (*models.JobView, error) {
	var view models.JobView
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodDelete, "/jobs/"+url.PathEscape(jobID), nil, nil)
}

// WaitForJob polls until the job reaches a terminal status or ctx ends.
func (c *Client) WaitForJob(ctx context.Context, jobID string, interval time.Duration) (*models.JobView, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		view, err := c.Job(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if view.Job.Status.Terminal() {
			return view, nil
		}
		select {
		case <-ctx.Done():
			return view, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) Results(ctx context.Context, jobID string) ([]*models.AgentResult, error) {
	var resp struct {
		Results []*models.AgentResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID)+"/results", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) Result(ctx context.Context, jobID string, kind models.AgentKind) (*models.AgentResult, error) {
	var result models.AgentResult
	path := "/jobs/" + url.PathEscape(jobID) + "/results/" + url.PathEscape(string(kind))
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ask sends a question about a dataset. An empty sessionID starts a new
// conversation; the returned answer carries the session to resume.
func (c *Client) Ask(ctx context.Context, sessionID, datasetID, question string) (*conversation.Answer, error) {
	body := map[string]string{
		"session_id": sessionID,
		"dataset_id": datasetID,
		"question":   question,
	}
	var answer conversation.Answer
	if err := c.do(ctx, http.MethodPost, "/ask", body, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

func (c *Client) History(ctx context.Context, sessionID string) ([]*models.Message, error) {
	var resp struct {
		Messages []*models.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(sessionID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// StreamRequest configures a simulated realtime stream. Interval is a
// duration string like "250ms".
type StreamRequest struct {
	Name      string  `json:"name"`
	Interval  string  `json:"interval,omitempty"`
	Seed      int64   `json:"seed,omitempty"`
	Baseline  float64 `json:"baseline,omitempty"`
	Amplitude float64 `json:"amplitude,omitempty"`
	Period    int     `json:"period,omitempty"`
	Noise     float64 `json:"noise,omitempty"`
	SpikeProb float64 `json:"spike_prob,omitempty"`
	SpikeMag  float64 `json:"spike_mag,omitempty"`
}

func (c *Client) StartStream(ctx context.Context, req StreamRequest) error {
	return c.do(ctx, http.MethodPost, "/realtime/streams", req, nil)
}

func (c *Client) StopStream(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/realtime/streams/"+url.PathEscape(name), nil, nil)
}

func (c *Client) Streams(ctx context.Context) ([]string, error) {
	var resp struct {
		Streams []string `json:"streams"`
	}
	if err := c.do(ctx, http.MethodGet, "/realtime/streams", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Streams, nil
}

// Feed subscribes to the realtime point feed over a websocket and
// invokes onPoint for every point until ctx is cancelled, the server
// closes the connection, or onPoint returns an error.
func (c *Client) Feed(ctx context.Context, onPoint func(realtime.Point) error) error {
	wsURL, err := websocketURL(c.endpoint, "/realtime/feed")
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set(callerHeader, c.caller)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connecting to feed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("connecting to feed: %w", err)
	}
	defer conn.Close()

	// Unblocks the read loop when ctx ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var point realtime.Point
		if err := conn.ReadJSON(&point); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("reading feed: %w", err)
		}
		if err := onPoint(point); err != nil {
			if errors.Is(err, ErrStopFeed) {
				return nil
			}
			return err
		}
	}
}

// ErrStopFeed can be returned from a Feed callback to end the
// subscription without reporting an error.
var ErrStopFeed = errors.New("stop feed")

func websocketURL(endpoint, path string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String(), nil
}
