package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/sqlgate/internal/config"
	"github.com/dshills/sqlgate/internal/gateway"
	"github.com/dshills/sqlgate/internal/gitctx"
	"github.com/dshills/sqlgate/internal/logging"
	"github.com/dshills/sqlgate/internal/output"
	"github.com/dshills/sqlgate/internal/providers"
	"github.com/dshills/sqlgate/internal/review"
)

// Review flags
var (
	flagBase       string
	flagHead       string
	flagReviewer   string
	flagProvider   string
	flagGatewayURL string
	flagFormat     string
	flagOut        string
	flagConfig     string
	flagDialect    string
	flagPadding    int
	flagThreshold  int
	flagLogLevel   string
	flagNoRedact   bool
)

func addReviewFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagBase, "base", "", "Base revision (default HEAD^)")
	cmd.Flags().StringVar(&flagHead, "head", "", "Head revision (default HEAD)")
	cmd.Flags().StringVar(&flagReviewer, "reviewer", "", "Reviewer kind (gateway, generative)")
	cmd.Flags().StringVar(&flagProvider, "provider", "", "Generative provider (dify, openai, ollama, lmstudio)")
	cmd.Flags().StringVar(&flagGatewayURL, "gateway-url", "", "Lint gateway base URL")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Report format (markdown, text, json)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Report file path (- for stdout)")
	cmd.Flags().StringVar(&flagConfig, "config", "", "Config file path")
	cmd.Flags().StringVar(&flagDialect, "dialect", "", "SQL dialect passed to the linter")
	cmd.Flags().IntVar(&flagPadding, "padding", -1, "Context lines kept around each changed region")
	cmd.Flags().IntVar(&flagThreshold, "threshold", -1, "Files with at most this many lines are reviewed in full")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (PII is always masked)")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagReviewer != "" {
		m["reviewer"] = flagReviewer
	}
	if flagProvider != "" {
		m["generativeProvider"] = flagProvider
	}
	if flagGatewayURL != "" {
		m["gatewayURL"] = flagGatewayURL
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagOut != "" {
		m["reportPath"] = flagOut
	}
	if flagDialect != "" {
		m["dialect"] = flagDialect
	}
	if flagPadding >= 0 {
		m["padding"] = strconv.Itoa(flagPadding)
	}
	if flagThreshold >= 0 {
		m["fullScanThreshold"] = strconv.Itoa(flagThreshold)
	}
	if flagLogLevel != "" {
		m["logLevel"] = flagLogLevel
	}
	return m
}

func newLogger(cfg config.Config) *logging.Logger {
	log := logging.New(logging.Options{
		Level:  logging.Level(cfg.LogLevel),
		Format: cfg.LogFormat,
	})
	logging.SetGlobal(log)
	return log
}

// newReviewer builds the reviewer selected by cfg.Reviewer.
func newReviewer(cfg config.Config) (review.Reviewer, error) {
	switch cfg.Reviewer {
	case "gateway":
		return gateway.NewClient(cfg.Gateway.URL, cfg.Gateway.Timeout), nil
	case "generative":
		p, err := providers.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("creating generative reviewer: %w", err)
		}
		return review.NewGenerative(p), nil
	default:
		return nil, fmt.Errorf("unknown reviewer %q", cfg.Reviewer)
	}
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review SQL in changed files",
	Long: `Review SQL in the files changed between --base and --head (HEAD^..HEAD by
default). Every extracted snippet is reviewed once; the report is written to
reportPath before the exit code is decided.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, reviewer, err := setupReview(os.Stderr)
		if err != nil {
			return err
		}
		if flagNoRedact {
			cfg.Privacy.RedactSecrets = false
			fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
		}

		log := newLogger(cfg)
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		exitCode = runReview(ctx, cfg, gitctx.New(""), reviewer, log, os.Stderr)
		return nil
	},
}

// setupReview loads the config and builds the reviewer. When either fails a
// rejected report carrying the error is still written, so CI always finds
// one.
func setupReview(stderr io.Writer) (config.Config, review.Reviewer, error) {
	cfg, err := config.Load(flagConfig, buildOverrides())
	if err != nil {
		format, path := flagFormat, flagOut
		if path == "" {
			path = config.Default().ReportPath
		}
		writeFailureReport(stderr, format, path, err)
		return config.Config{}, nil, err
	}
	reviewer, err := newReviewer(cfg)
	if err != nil {
		writeFailureReport(stderr, cfg.Format, cfg.ReportPath, err)
		return config.Config{}, nil, err
	}
	return cfg, reviewer, nil
}

func writeFailureReport(stderr io.Writer, format, path string, cause error) {
	if _, err := output.GetWriter(format); err != nil {
		format = "markdown"
	}
	cmp := gitctx.Comparison{Base: flagBase, Head: flagHead}
	report := review.NewFailedReport(version, cmp.String(), cause)
	if err := output.WriteReport(report, format, path); err != nil {
		fmt.Fprintf(stderr, "Error writing report: %v\n", err)
	}
}

// runReview executes one gate run and returns the exit code. The report is
// written before the code is decided, including for failed runs.
func runReview(ctx context.Context, cfg config.Config, repo review.Repository, reviewer review.Reviewer, log *logging.Logger, stderr io.Writer) int {
	orch, err := review.NewOrchestrator(cfg, repo, reviewer, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitUsageError
	}
	orch.Version = version

	report, runErr := orch.Run(ctx, gitctx.Comparison{Base: flagBase, Head: flagHead})
	if runErr != nil {
		log.ErrorErr("review run failed", runErr)
	}

	if err := output.WriteReport(report, cfg.Format, cfg.ReportPath); err != nil {
		fmt.Fprintf(stderr, "Error writing report: %v\n", err)
		return ExitRuntimeError
	}
	printStatus(stderr, report, cfg.ReportPath)

	switch {
	case runErr != nil:
		return ExitRuntimeError
	case report.Rejected:
		return ExitRejected
	default:
		return ExitSuccess
	}
}

// printStatus prints the one-line decision to w.
func printStatus(w io.Writer, report *review.Report, path string) {
	var c *color.Color
	switch report.Status() {
	case review.StatusRejected:
		c = color.New(color.FgRed, color.Bold)
	case review.StatusPassed:
		c = color.New(color.FgGreen, color.Bold)
	default:
		c = color.New(color.FgYellow)
	}
	c.Fprintf(w, "sqlgate: %s", report.Status())
	fmt.Fprintf(w, " (%d snippet(s), %d rejected, %d failed)", report.Summary.Snippets, report.Summary.Rejected, report.Summary.Failed)
	if path != "" && path != "-" {
		fmt.Fprintf(w, ", report: %s", path)
	}
	fmt.Fprintln(w)
}

func init() {
	addReviewFlags(reviewCmd)
}
