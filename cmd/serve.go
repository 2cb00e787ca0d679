package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/aiemployee/mailgate/internal/config"
	"github.com/aiemployee/mailgate/internal/gmail"
	"github.com/aiemployee/mailgate/internal/google"
	"github.com/aiemployee/mailgate/internal/logging"
	"github.com/aiemployee/mailgate/internal/server"
	"github.com/aiemployee/mailgate/internal/service"
	"github.com/aiemployee/mailgate/internal/tools/mail_tools"
)

func newServeCmd() *cobra.Command {
	var (
		debugMode      bool
		yolo           bool
		dryRun         bool
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server on stdio to provide
Gmail tools for AI assistants.

Safety Mode:
  By default, the server operates in read-only mode, providing only
  search and thread retrieval. Use --yolo to enable write operations
  (sending, replying, drafting).

Configuration is read from the environment (a .env file is honored):
  GMAIL_CREDENTIALS_PATH  OAuth client credentials (default: credentials.json)
  GMAIL_TOKEN_PATH        Stored token (default: token.json)
  MAILGATE_SEND_PER_MINUTE / MAILGATE_READ_PER_MINUTE  rate budgets`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(debugMode, yolo, dryRun, metricsEnabled, metricsAddr)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&yolo, "yolo", false, "Enable write operations (sending, replying, drafting). Default is read-only mode.")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and log write operations without calling Gmail")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Expose Prometheus metrics and health probes on a dedicated port")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics server address (default from MAILGATE_METRICS_ADDR or :9090)")

	return cmd
}

// newMailService loads configuration and builds the Gmail-backed mail
// service. Shared by serve and run.
func newMailService(ctx context.Context, debugMode, dryRun bool) (*service.Service, *google.Manager, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	if dryRun {
		cfg.DryRun = true
	}

	logger := logging.New(debugMode)

	manager, err := google.NewManager(cfg.CredentialsPath, cfg.TokenPath, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	svc, err := manager.Service(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	return service.New(gmail.NewClient(svc), cfg, logger), manager, cfg, nil
}

func runServe(debugMode, yolo, dryRun, metricsEnabled bool, metricsAddr string) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mail, manager, cfg, err := newMailService(shutdownCtx, debugMode, dryRun)
	if err != nil {
		return err
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}

	logger := logging.New(debugMode)

	// readOnly is the inverse of yolo
	readOnly := !yolo

	serverContext := server.NewServerContext(shutdownCtx, cfg, mail, manager, readOnly)
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("server context shutdown failed", logging.Err(err))
		}
	}()

	// Metrics and health sidecar on its own port; the MCP transport
	// owns stdout, so nothing operational may print there.
	if metricsEnabled {
		health := server.NewHealthChecker(serverContext)
		metricsServer := server.NewMetricsServer(cfg.MetricsAddr, health)
		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", logging.Err(err))
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer scancel()
			if err := metricsServer.Shutdown(sctx); err != nil {
				logger.Error("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	mcpSrv := mcpserver.NewMCPServer("mailgate", version,
		mcpserver.WithToolCapabilities(true),
	)

	if err := mail_tools.RegisterMailTools(mcpSrv, serverContext); err != nil {
		return err
	}

	if readOnly {
		logger.Info("starting MCP server in read-only mode")
	} else {
		logger.Info("starting MCP server with write operations enabled")
	}

	return runStdioServer(shutdownCtx, mcpSrv)
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
	}
	return nil
}
