package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dshills/sqlgate/internal/config"
)

func newTestDify(t *testing.T, handler http.HandlerFunc) *Dify {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	d, err := NewDify(config.GenerativeConfig{APIKey: "app-test", BaseURL: server.URL + "/v1/", User: "octocat"})
	if err != nil {
		t.Fatalf("NewDify error: %v", err)
	}
	return d
}

func TestDify_Review(t *testing.T) {
	var got difyRequest
	d := newTestDify(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/workflows/run" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer app-test" {
			t.Error("Missing or wrong Authorization header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(`{"workflow_run_id":"r1","data":{"status":"succeeded","outputs":{"markdown_report":"## 상태: **승인**"}}}`))
	})

	resp, err := d.Review(context.Background(), ReviewRequest{Text: "SELECT 1", Path: "db/q.sql"})
	if err != nil {
		t.Fatalf("Review error: %v", err)
	}
	if resp.Content != "## 상태: **승인**" {
		t.Errorf("Content = %q", resp.Content)
	}
	if got.Inputs.SQLCode != "SELECT 1" || got.Inputs.FileName != "db/q.sql" {
		t.Errorf("inputs = %+v", got.Inputs)
	}
	if got.ResponseMode != "blocking" || got.User != "octocat" {
		t.Errorf("response_mode = %q, user = %q", got.ResponseMode, got.User)
	}
}

func TestExtractReport(t *testing.T) {
	tests := []struct {
		name    string
		outputs string
		want    string
	}{
		{"markdown_report string", `{"markdown_report":"a","report":"b"}`, "a"},
		{"falls through empty", `{"markdown_report":"","report":"b"}`, "b"},
		{"object with value", `{"report":{"value":"from object"}}`, "from object"},
		{"text fallback", `{"other":"x","text":"t"}`, "t"},
		{"non-string value", `{"text":{"value":42}}`, "42"},
		{"null value", `{"text":{"value":null}}`, ""},
		{"nothing", `{}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var outputs map[string]json.RawMessage
			if err := json.Unmarshal([]byte(tt.outputs), &outputs); err != nil {
				t.Fatal(err)
			}
			if got := extractReport(outputs); got != tt.want {
				t.Errorf("extractReport = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDify_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"empty report", 200, `{"data":{"status":"succeeded","outputs":{"markdown_report":"   "}}}`, func(err error) bool { return errors.Is(err, ErrEmptyReport) }},
		{"no outputs", 200, `{"data":{}}`, func(err error) bool { return errors.Is(err, ErrEmptyReport) }},
		{"workflow failed", 200, `{"data":{"status":"failed","error":"node crashed"}}`, func(err error) bool { return strings.Contains(err.Error(), "node crashed") }},
		{"malformed", 200, `<html>`, func(err error) bool { return strings.Contains(err.Error(), "parsing response") }},
		{"unauthorized", 401, `{"code":"unauthorized"}`, IsAuthError},
		{"server error", 500, `{"code":"internal"}`, IsServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			d := newTestDify(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := d.Review(context.Background(), ReviewRequest{Text: "SELECT 1"})
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
			if calls != 1 {
				t.Errorf("calls = %d, want exactly 1", calls)
			}
		})
	}
}

func TestNewDify_RequiresKey(t *testing.T) {
	if _, err := NewDify(config.GenerativeConfig{BaseURL: "http://x"}); err == nil {
		t.Error("expected error without DIFY_API_KEY")
	}
}

func TestNew(t *testing.T) {
	cfg := config.Default()
	cfg.Generative.APIKey = "app-key"

	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if r.Name() != "dify" {
		t.Errorf("Name = %q", r.Name())
	}

	for _, name := range []string{"ollama", "lmstudio"} {
		cfg.Generative.Provider = name
		r, err := New(cfg)
		if err != nil {
			t.Fatalf("New(%q) error: %v", name, err)
		}
		if r.Name() != "ollama" {
			t.Errorf("New(%q).Name() = %q", name, r.Name())
		}
	}

	cfg.Generative.Provider = "anthropic"
	if _, err := New(cfg); err == nil {
		t.Error("expected error for unknown provider")
	}
}
