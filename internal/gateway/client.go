package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dshills/sqlgate/internal/review"
)

// ErrTimeout is returned when the gateway reports a linter timeout.
var ErrTimeout = errors.New("lint gateway timed out")

// ToolingError is returned when the gateway reports a linter failure.
type ToolingError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *ToolingError) Error() string {
	msg := fmt.Sprintf("lint gateway tooling error (status %d): %s", e.StatusCode, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Client calls a lint gateway. It implements review.Reviewer.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the gateway at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return "gateway" }

// Review sends one snippet to POST /lint. A hard block is a normal result;
// timeouts, tooling failures and unexpected replies are errors. No retries.
func (c *Client) Review(ctx context.Context, req review.Request) (review.Result, error) {
	payload, err := json.Marshal(LintRequest{Text: req.Text, Dialect: req.Dialect})
	if err != nil {
		return review.Result{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/lint", bytes.NewReader(payload))
	if err != nil {
		return review.Result{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return review.Result{}, fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return review.Result{}, fmt.Errorf("reading response: %w", err)
	}

	var resp LintResponse
	decodeErr := json.Unmarshal(respBody, &resp)

	switch code := httpResp.StatusCode; {
	case code == http.StatusOK:
		if decodeErr != nil {
			return review.Result{}, fmt.Errorf("parsing response: %w", decodeErr)
		}
		if resp.Security == nil || resp.Syntax == nil {
			return review.Result{}, fmt.Errorf("incomplete gateway response: %s", truncate(respBody))
		}
		return review.Result{Security: resp.Security, Syntax: resp.Syntax}, nil
	case code == http.StatusBadRequest && decodeErr == nil && resp.Security != nil:
		return review.Result{Blocked: true, Security: resp.Security}, nil
	case code == http.StatusGatewayTimeout:
		return review.Result{}, ErrTimeout
	case code >= 500:
		te := &ToolingError{StatusCode: code, Message: string(truncate(respBody))}
		if decodeErr == nil {
			te.Message = resp.Message
			te.Detail = resp.Stderr + resp.Raw
		}
		return review.Result{}, te
	default:
		return review.Result{}, fmt.Errorf("gateway error (status %d): %s", code, truncate(respBody))
	}
}

func truncate(b []byte) []byte {
	const limit = 512
	if len(b) > limit {
		return b[:limit]
	}
	return b
}
