package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/sqlgate/internal/config"
)

// ReviewRequest is one snippet sent to a generative reviewer.
type ReviewRequest struct {
	Text    string
	Path    string
	Dialect string
}

// ReviewResponse is the reviewer's Markdown report.
type ReviewResponse struct {
	Content string
}

// Reviewer is the provider abstraction interface.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) (ReviewResponse, error)
	Name() string
}

// ErrEmptyReport is returned when a reviewer replies without report text.
var ErrEmptyReport = errors.New("reviewer returned an empty report")

// New creates the provider named by cfg.Generative.Provider.
func New(cfg config.Config) (Reviewer, error) {
	g := cfg.Generative
	switch g.Provider {
	case "dify":
		return NewDify(g)
	case "openai":
		return NewOpenAI(g, PromptFromConfig(cfg))
	case "ollama", "lmstudio":
		return NewOllama(g, PromptFromConfig(cfg))
	default:
		return nil, fmt.Errorf("unknown provider: %s", g.Provider)
	}
}

type authError struct {
	message string
}

func (e *authError) Error() string {
	return "authentication error: " + e.message
}

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	var ae *authError
	return errors.As(err, &ae)
}

type serverError struct {
	statusCode int
	body       string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.statusCode, e.body)
}

// IsServerError checks if an error is a 5xx reply from the provider.
func IsServerError(err error) bool {
	var se *serverError
	return errors.As(err, &se)
}

// statusError maps a non-200 status to an error.
func statusError(code int, body []byte) error {
	switch {
	case code == 401 || code == 403:
		return &authError{message: string(body)}
	case code >= 500:
		return &serverError{statusCode: code, body: string(body)}
	default:
		return fmt.Errorf("API error (status %d): %s", code, string(body))
	}
}
