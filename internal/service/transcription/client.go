// Package transcription turns stored audio into text through an
// AssemblyAI-compatible job API: submit a job, then poll it until it
// completes, fails or the attempt budget runs out.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"thoughtbox/internal/config"
	"thoughtbox/internal/domain"

	"github.com/jonboulle/clockwork"
)

// ErrTranscriptionTimeout is returned once every poll attempt found the
// job still running.
var ErrTranscriptionTimeout = errors.New("transcription did not finish in time")

const serviceName = "transcription"

// Job statuses reported by the API.
const (
	statusQueued     = "queued"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusError      = "error"
)

type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	clock        clockwork.Clock
	pollInterval time.Duration
	maxAttempts  int
	logger       *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPolling overrides the poll interval and attempt budget.
func WithPolling(interval time.Duration, attempts int) Option {
	return func(c *Client) {
		c.pollInterval = interval
		c.maxAttempts = attempts
	}
}

func NewClient(baseURL, apiKey string, clock clockwork.Clock, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		clock:        clock,
		pollInterval: config.TranscriptionPollInterval,
		maxAttempts:  config.TranscriptionMaxAttempts,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type submitRequest struct {
	AudioURL string `json:"audio_url"`
}

type job struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe submits audioURL and waits for the transcript. The job is
// polled every poll interval, at most maxAttempts times.
func (c *Client) Transcribe(ctx context.Context, audioURL string) (string, error) {
	if strings.TrimSpace(audioURL) == "" {
		return "", fmt.Errorf("%w: audio_url is required", domain.ErrValidation)
	}
	if c.apiKey == "" {
		return "", &domain.UpstreamError{Service: serviceName, Err: errors.New("no API key configured")}
	}

	submitted, err := c.submit(ctx, audioURL)
	if err != nil {
		return "", err
	}
	c.logger.Info("transcription submitted", "job_id", submitted.ID)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-c.clock.After(c.pollInterval):
		}

		j, err := c.get(ctx, submitted.ID)
		if err != nil {
			return "", err
		}
		switch j.Status {
		case statusCompleted:
			c.logger.Info("transcription completed", "job_id", j.ID, "attempts", attempt)
			return j.Text, nil
		case statusError:
			return "", &domain.UpstreamError{Service: serviceName, Err: fmt.Errorf("job %s failed: %s", j.ID, j.Error)}
		case statusQueued, statusProcessing:
			c.logger.Debug("transcription pending", "job_id", j.ID, "status", j.Status, "attempt", attempt)
		default:
			return "", &domain.UpstreamError{Service: serviceName, Err: fmt.Errorf("job %s has unknown status %q", j.ID, j.Status)}
		}
	}

	c.logger.Warn("transcription timed out", "job_id", submitted.ID, "attempts", c.maxAttempts)
	return "", &domain.UpstreamError{Service: serviceName, Err: ErrTranscriptionTimeout}
}

func (c *Client) submit(ctx context.Context, audioURL string) (*job, error) {
	body, err := json.Marshal(submitRequest{AudioURL: audioURL})
	if err != nil {
		return nil, fmt.Errorf("encode transcription request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, id string) (*job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("build transcription poll: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*job, error) {
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &domain.UpstreamError{Service: serviceName, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.UpstreamError{Service: serviceName, Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))}
	}

	var j job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, &domain.UpstreamError{Service: serviceName, Err: fmt.Errorf("decode response: %w", err)}
	}
	if j.ID == "" {
		return nil, &domain.UpstreamError{Service: serviceName, Err: errors.New("response has no job id")}
	}
	return &j, nil
}
