package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aiforedu/sound-trainer/internal/logging"
)

// Protocol constants
const (
	// DefaultEndpoint is the production model collection endpoint
	DefaultEndpoint = "https://scratch-sound-model-dot-ai-for-edu.appspot.com/models"

	ContentTypeJSON   = "application/json"
	ContentTypeBinary = "application/octet-stream"

	DefaultTimeout = 60 * time.Second

	// maxResponseBody bounds how much of a key-assignment response is read
	maxResponseBody = 1 << 20
)

// ErrKeyNotAssigned is returned when the endpoint answers with success=false
var ErrKeyNotAssigned = errors.New("model key was not assigned")

// Handler persists model artifacts and returns the key they are reachable under.
type Handler interface {
	Save(ctx context.Context, artifacts *Artifacts) (string, error)
}

// TransportError reports a failed network step of the save protocol.
type TransportError struct {
	Op         string // "assign key", "upload weights", "upload model"
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s returned HTTP %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// KeyAssignment is the collection endpoint's response
type KeyAssignment struct {
	Success    bool   `json:"success"`
	Key        string `json:"key"`
	ModelURL   string `json:"modelUrl"`
	WeightsURL string `json:"weightsUrl"`
}

// Client talks to the model collection endpoint and the signed locations it hands out.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for protocol failures
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates an upload client for the given collection endpoint
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the collection endpoint URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Save runs the full protocol. The key is returned only after both the weights
// and the model document were written.
func (c *Client) Save(ctx context.Context, artifacts *Artifacts) (string, error) {
	if artifacts == nil {
		return "", fmt.Errorf("no model artifacts to save")
	}

	doc, err := artifacts.Document()
	if err != nil {
		return "", err
	}

	assignment, err := c.AssignKey(ctx)
	if err != nil {
		return "", err
	}

	if err := c.put(ctx, "upload weights", assignment.WeightsURL, ContentTypeBinary, artifacts.WeightData); err != nil {
		return "", err
	}
	if err := c.put(ctx, "upload model", assignment.ModelURL, ContentTypeJSON, doc); err != nil {
		return "", err
	}

	c.logger.InfoContext(ctx, "Model uploaded.", slog.String("key", assignment.Key))
	return assignment.Key, nil
}

// AssignKey requests a unique key and signed write locations.
func (c *Client) AssignKey(ctx context.Context) (*KeyAssignment, error) {
	const op = "assign key"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build key request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(ctx, &TransportError{Op: op, URL: c.endpoint, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(ctx, &TransportError{Op: op, URL: c.endpoint, StatusCode: resp.StatusCode})
	}

	var assignment KeyAssignment
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&assignment); err != nil {
		return nil, c.fail(ctx, &TransportError{Op: op, URL: c.endpoint, Err: fmt.Errorf("invalid response body: %w", err)})
	}

	if !assignment.Success {
		return nil, c.fail(ctx, ErrKeyNotAssigned)
	}
	if assignment.Key == "" || assignment.ModelURL == "" || assignment.WeightsURL == "" {
		return nil, c.fail(ctx, fmt.Errorf("%w: incomplete response", ErrKeyNotAssigned))
	}

	return &assignment, nil
}

// put writes content to a pre-signed location
func (c *Client) put(ctx context.Context, op, url, contentType string, content []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(content))
	if err != nil {
		return c.fail(ctx, &TransportError{Op: op, URL: url, Err: err})
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(ctx, &TransportError{Op: op, URL: url, Err: err})
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(ctx, &TransportError{Op: op, URL: url, StatusCode: resp.StatusCode})
	}
	return nil
}

// fail logs a protocol failure and returns it unchanged
func (c *Client) fail(ctx context.Context, err error) error {
	logging.Error(ctx, c.logger, "Model upload failed.", err)
	return err
}
