package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the sqlgate configuration. It is built once per process
// by [Load] and passed by value to every component.
type Config struct {
	Reviewer   string `yaml:"reviewer" env:"SQLGATE_REVIEWER"`
	Dialect    string `yaml:"dialect" env:"SQLGATE_DIALECT"`
	Format     string `yaml:"format" env:"SQLGATE_FORMAT"`
	ReportPath string `yaml:"reportPath" env:"SQLGATE_REPORT_PATH"`
	LogLevel   string `yaml:"logLevel" env:"SQLGATE_LOG_LEVEL"`
	LogFormat  string `yaml:"logFormat" env:"SQLGATE_LOG_FORMAT"`

	Files      FilesConfig      `yaml:"files"`
	Window     WindowConfig     `yaml:"window"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Generative GenerativeConfig `yaml:"generative"`
	Lint       LintConfig       `yaml:"lint"`
	Policy     PolicyConfig     `yaml:"policy"`
	Privacy    PrivacyConfig    `yaml:"privacy"`
}

// FilesConfig controls which changed files become candidates.
type FilesConfig struct {
	Extensions   []string `yaml:"extensions" env:"SQLGATE_EXTENSIONS"`
	DenyPrefixes []string `yaml:"denyPrefixes" env:"SQLGATE_DENY_PREFIXES"`
}

// WindowConfig controls diff-context windowing of large files.
type WindowConfig struct {
	Padding           int `yaml:"padding" env:"SQLGATE_WINDOW_PADDING"`
	FullScanThreshold int `yaml:"fullScanThreshold" env:"SQLGATE_FULL_SCAN_THRESHOLD"`
}

// GatewayConfig configures both the lint gateway server and its client.
type GatewayConfig struct {
	URL     string        `yaml:"url" env:"SQLGATE_GATEWAY_URL"`
	Addr    string        `yaml:"addr" env:"SQLGATE_GATEWAY_ADDR"`
	Timeout time.Duration `yaml:"timeout" env:"SQLGATE_GATEWAY_TIMEOUT"`
}

// GenerativeConfig configures the generative reviewer.
type GenerativeConfig struct {
	Provider string        `yaml:"provider" env:"SQLGATE_GENERATIVE_PROVIDER"`
	BaseURL  string        `yaml:"baseURL" env:"DIFY_API_BASE"`
	APIKey   string        `yaml:"-" env:"DIFY_API_KEY"`
	Model    string        `yaml:"model" env:"SQLGATE_GENERATIVE_MODEL"`
	User     string        `yaml:"user" env:"GITHUB_ACTOR"`
	Timeout  time.Duration `yaml:"timeout" env:"SQLGATE_GENERATIVE_TIMEOUT"`

	OpenAIKey     string `yaml:"-" env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `yaml:"openaiBaseURL,omitempty" env:"SQLGATE_OPENAI_BASE_URL"`
	OllamaHost    string `yaml:"ollamaHost,omitempty" env:"OLLAMA_HOST"`
	OllamaKey     string `yaml:"-" env:"SQLGATE_OLLAMA_API_KEY"`

	// Focus lists review areas appended to the prompt of chat providers.
	Focus []string `yaml:"focus,omitempty" env:"SQLGATE_GENERATIVE_FOCUS"`
}

// LintConfig configures the external syntax linter.
type LintConfig struct {
	Command string        `yaml:"command" env:"SQLGATE_LINT_COMMAND"`
	Timeout time.Duration `yaml:"timeout" env:"SQLGATE_LINT_TIMEOUT"`
}

// PolicyConfig is the rejection predicate applied to every verdict.
type PolicyConfig struct {
	Version              string   `yaml:"version"`
	RejectOnBlocked      bool     `yaml:"rejectOnBlocked"`
	RejectSeverity       string   `yaml:"rejectSeverity" env:"SQLGATE_REJECT_SEVERITY"`
	RejectOnSyntaxErrors bool     `yaml:"rejectOnSyntaxErrors" env:"SQLGATE_REJECT_ON_SYNTAX_ERRORS"`
	RejectMarkers        []string `yaml:"rejectMarkers" env:"SQLGATE_REJECT_MARKERS"`
	ConditionalMarkers   []string `yaml:"conditionalMarkers"`
	ConditionalPasses    bool     `yaml:"conditionalPasses" env:"SQLGATE_CONDITIONAL_PASSES"`
	PassMarkers          []string `yaml:"passMarkers"`
	RequirePassMarker    bool     `yaml:"requirePassMarker"`
}

// PrivacyConfig controls masking beyond the always-on PII masking.
type PrivacyConfig struct {
	RedactSecrets bool     `yaml:"redactSecrets" env:"SQLGATE_REDACT_SECRETS"`
	RedactPaths   []string `yaml:"redactPaths"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Reviewer:   "gateway",
		Dialect:    "ansi",
		Format:     "markdown",
		ReportPath: "sql_review_report.md",
		LogLevel:   "info",
		LogFormat:  "console",
		Files: FilesConfig{
			Extensions:   []string{".sql", ".java", ".kt", ".xml", ".py"},
			DenyPrefixes: []string{"vendor/", "node_modules/", "build/", "target/"},
		},
		Window: WindowConfig{
			Padding:           10,
			FullScanThreshold: 200,
		},
		Gateway: GatewayConfig{
			URL:     "http://localhost:8000",
			Addr:    "127.0.0.1:8000",
			Timeout: 30 * time.Second,
		},
		Generative: GenerativeConfig{
			Provider: "dify",
			BaseURL:  "http://localhost:5001",
			User:     "github-sql-review",
			Timeout:  90 * time.Second,
		},
		Lint: LintConfig{
			Command: "sqlfluff",
			Timeout: 10 * time.Second,
		},
		Policy: PolicyConfig{
			Version:              "1",
			RejectOnBlocked:      true,
			RejectSeverity:       "high",
			RejectOnSyntaxErrors: true,
			RejectMarkers:        []string{"**반려**", "**REJECTED**"},
			ConditionalMarkers:   []string{"**조건부 승인**", "**CONDITIONALLY APPROVED**"},
			ConditionalPasses:    true,
			PassMarkers:          []string{"**승인**", "**APPROVED**"},
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for sqlgate.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sqlgate"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "sqlgate"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "sqlgate"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "sqlgate"), nil
	default:
		return filepath.Join(home, ".config", "sqlgate"), nil
	}
}

// ConfigPath returns the full path to the user config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile decodes the YAML file at path on top of cfg. A missing file
// leaves cfg untouched.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// An empty path means the user config file from [ConfigPath]. The overrides
// map comes from CLI flags (only non-zero values should be set).
func Load(path string, overrides map[string]string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := ConfigPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, value := range overrides {
		if value == "" {
			continue
		}
		if err := SetField(cfg, key, value); err != nil {
			return err
		}
	}
	return nil
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "reviewer":
		cfg.Reviewer = value
	case "dialect":
		cfg.Dialect = value
	case "format":
		cfg.Format = value
	case "reportPath":
		cfg.ReportPath = value
	case "logLevel":
		cfg.LogLevel = value
	case "logFormat":
		cfg.LogFormat = value
	case "extensions":
		cfg.Files.Extensions = splitList(value)
	case "denyPrefixes":
		cfg.Files.DenyPrefixes = splitList(value)
	case "padding":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("padding must be an integer: %w", err)
		}
		cfg.Window.Padding = n
	case "fullScanThreshold":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("fullScanThreshold must be an integer: %w", err)
		}
		cfg.Window.FullScanThreshold = n
	case "gatewayURL":
		cfg.Gateway.URL = value
	case "gatewayAddr":
		cfg.Gateway.Addr = value
	case "generativeProvider":
		cfg.Generative.Provider = value
	case "generativeModel":
		cfg.Generative.Model = value
	case "lintCommand":
		cfg.Lint.Command = value
	case "lintTimeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("lintTimeout must be a duration: %w", err)
		}
		cfg.Lint.Timeout = d
	case "rejectSeverity":
		cfg.Policy.RejectSeverity = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Reviewer {
	case "gateway", "generative":
	default:
		return fmt.Errorf("unknown reviewer %q (want gateway or generative)", c.Reviewer)
	}
	switch c.Generative.Provider {
	case "dify", "openai", "ollama", "lmstudio":
	default:
		return fmt.Errorf("unknown generative provider %q", c.Generative.Provider)
	}
	switch c.Format {
	case "markdown", "text", "json":
	default:
		return fmt.Errorf("unsupported output format: %s", c.Format)
	}
	switch c.Policy.RejectSeverity {
	case "none", "low", "medium", "high":
	default:
		return fmt.Errorf("invalid rejectSeverity %q", c.Policy.RejectSeverity)
	}
	if c.Window.Padding < 0 {
		return errors.New("window padding must not be negative")
	}
	if c.Window.FullScanThreshold < 0 {
		return errors.New("full scan threshold must not be negative")
	}
	if c.Lint.Timeout <= 0 {
		return errors.New("lint timeout must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
