package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dshills/sqlgate/internal/config"
)

// Dify runs a Dify workflow in blocking mode and returns its Markdown report.
type Dify struct {
	apiKey  string
	user    string
	baseURL string
	client  *http.Client
}

// NewDify creates a Dify workflow provider.
func NewDify(cfg config.GenerativeConfig) (*Dify, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("DIFY_API_KEY environment variable is not set")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	user := cfg.User
	if user == "" {
		user = "github-sql-review"
	}
	return &Dify{
		apiKey:  cfg.APIKey,
		user:    user,
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + "/workflows/run",
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (d *Dify) Name() string { return "dify" }

func (d *Dify) Review(ctx context.Context, req ReviewRequest) (ReviewResponse, error) {
	payload, err := json.Marshal(difyRequest{
		Inputs: difyInputs{
			SQLCode:  req.Text,
			FileName: req.Path,
			Dialect:  req.Dialect,
		},
		ResponseMode: "blocking",
		User:         d.user,
	})
	if err != nil {
		return ReviewResponse{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, bytes.NewReader(payload))
	if err != nil {
		return ReviewResponse{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)

	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		return ReviewResponse{}, fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return ReviewResponse{}, fmt.Errorf("reading response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return ReviewResponse{}, statusError(httpResp.StatusCode, respBody)
	}

	var result difyResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return ReviewResponse{}, fmt.Errorf("parsing response: %w", err)
	}
	if result.Data.Status != "" && result.Data.Status != "succeeded" {
		return ReviewResponse{}, fmt.Errorf("workflow %s: %s", result.Data.Status, result.Data.Error)
	}

	report := extractReport(result.Data.Outputs)
	if strings.TrimSpace(report) == "" {
		return ReviewResponse{}, ErrEmptyReport
	}
	return ReviewResponse{Content: report}, nil
}

// reportKeys are the workflow output variables checked, in order.
var reportKeys = []string{"markdown_report", "report", "text"}

// extractReport returns the first non-empty report output. Each output may
// be a plain string or an object carrying the text in "value".
func extractReport(outputs map[string]json.RawMessage) string {
	for _, key := range reportKeys {
		raw, ok := outputs[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		var obj struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && len(obj.Value) > 0 {
			if err := json.Unmarshal(obj.Value, &s); err == nil {
				if s != "" {
					return s
				}
				continue
			}
			if v := strings.TrimSpace(string(obj.Value)); v != "null" {
				return v
			}
		}
	}
	return ""
}

type difyRequest struct {
	Inputs       difyInputs `json:"inputs"`
	ResponseMode string     `json:"response_mode"`
	User         string     `json:"user"`
}

type difyInputs struct {
	SQLCode  string `json:"sql_code"`
	FileName string `json:"file_name,omitempty"`
	Dialect  string `json:"dialect,omitempty"`
}

type difyResponse struct {
	WorkflowRunID string   `json:"workflow_run_id"`
	Data          difyData `json:"data"`
}

type difyData struct {
	Status  string                     `json:"status"`
	Error   string                     `json:"error"`
	Outputs map[string]json.RawMessage `json:"outputs"`
}
