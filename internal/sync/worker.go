// Package sync owns sync-task configuration, submission of copy jobs to
// the external worker, the job status callback, and the schedule loop.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ErrWorkerUnavailable is the sentinel all upstream submission failures
// match.
var ErrWorkerUnavailable = errors.New("sync worker unavailable")

// UpstreamKind classifies a failed worker submission.
type UpstreamKind string

const (
	// UpstreamTimeout: the submission timed out. Retryable.
	UpstreamTimeout UpstreamKind = "timeout"
	// UpstreamUnreachable: dial refused or DNS failure. Retryable.
	UpstreamUnreachable UpstreamKind = "unreachable"
	// UpstreamServerError: the worker answered 5xx. Retryable.
	UpstreamServerError UpstreamKind = "server_error"
	// UpstreamRejected: the worker rejected the job (4xx). Not retryable;
	// the configuration needs fixing.
	UpstreamRejected UpstreamKind = "rejected"
)

// UpstreamError is returned when the worker cannot accept a job.
type UpstreamError struct {
	Kind       UpstreamKind
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sync worker %s (status %d): %v", e.Kind, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("sync worker %s: %v", e.Kind, e.Cause)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// Is matches ErrWorkerUnavailable for the kinds where the worker could
// not be reached or answered 5xx. A rejection is not unavailability.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrWorkerUnavailable && e.Kind != UpstreamRejected
}

// Retryable reports whether the caller should try again later rather than
// fix the configuration.
func (e *UpstreamError) Retryable() bool {
	return e.Kind != UpstreamRejected
}

// ConnectionParams is one side of a copy job, credentials decrypted.
type ConnectionParams struct {
	Engine     string `json:"engine"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Database   string `json:"database"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	SSLEnabled bool   `json:"ssl_enabled"`
}

// TriggerRequest is the job description submitted to the worker.
type TriggerRequest struct {
	TaskID string           `json:"taskId"`
	Source ConnectionParams `json:"source"`
	Target ConnectionParams `json:"target"`
	Tables []string         `json:"tables"`
}

// WorkerClient submits jobs over the worker's task-submission protocol.
type WorkerClient struct {
	baseURL string
	client  *http.Client
}

// NewWorkerClient creates a client with the given submission timeout.
func NewWorkerClient(baseURL string, timeout time.Duration) *WorkerClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WorkerClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// TriggerSync POSTs a job to the worker. Status 200 and 202 mean accepted;
// everything else maps to a classified UpstreamError.
func (c *WorkerClient) TriggerSync(ctx context.Context, req TriggerRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode trigger payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/trigger_sync", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build trigger request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted:
		return nil
	case resp.StatusCode >= 500:
		return &UpstreamError{
			Kind:       UpstreamServerError,
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("worker reported a server error"),
		}
	default:
		return &UpstreamError{
			Kind:       UpstreamRejected,
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("worker rejected the job"),
		}
	}
}

func classifyTransportError(err error) *UpstreamError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &UpstreamError{Kind: UpstreamTimeout, Cause: err}
	}
	return &UpstreamError{Kind: UpstreamUnreachable, Cause: err}
}
