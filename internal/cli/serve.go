package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/sqlgate/internal/config"
	"github.com/dshills/sqlgate/internal/gateway"
	"github.com/dshills/sqlgate/internal/lint"
)

var flagAddr string

// newLintRunner builds the linter from cfg.Lint. The command may carry
// leading arguments, e.g. "python -m sqlfluff".
func newLintRunner(cfg config.LintConfig) *lint.Runner {
	r := &lint.Runner{Timeout: cfg.Timeout}
	if fields := strings.Fields(cfg.Command); len(fields) > 0 {
		r.Command = fields[0]
		r.Args = fields[1:]
	}
	return r
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the lint gateway HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := map[string]string{}
		if flagAddr != "" {
			overrides["gatewayAddr"] = flagAddr
		}
		if flagLogLevel != "" {
			overrides["logLevel"] = flagLogLevel
		}
		cfg, err := config.Load(flagConfig, overrides)
		if err != nil {
			return err
		}

		log := newLogger(cfg)
		defer log.Sync()

		srv := gateway.New(cfg.Gateway.Addr, newLintRunner(cfg.Lint), log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				exitCode = ExitRuntimeError
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down lint gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.ErrorErr("gateway shutdown failed", err)
			exitCode = ExitRuntimeError
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default from config)")
	serveCmd.Flags().StringVar(&flagConfig, "config", "", "Config file path")
	serveCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
}
