package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mcpagent/mcpagent/internal/api"
	"github.com/mcpagent/mcpagent/internal/config"
	"github.com/mcpagent/mcpagent/internal/logging"
	"github.com/mcpagent/mcpagent/internal/sandbox"
	"github.com/mcpagent/mcpagent/internal/service/dispatch"
	"github.com/mcpagent/mcpagent/internal/service/executor"
	"github.com/mcpagent/mcpagent/internal/service/mcp"
	"github.com/mcpagent/mcpagent/internal/telemetry"
	"github.com/mcpagent/mcpagent/pkg/version"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	startServerCmdBindPort   string
	startServerCmdHost       string
	startServerCmdLogLevel   string
	startServerCmdConfigFile string
)

var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the mcpagent server",
	Long: "Starts the agent's HTTP, WebSocket and MCP endpoints on one port (default " + config.BindPortDefault + ").\n\n" +
		"Configuration is layered: built-in defaults, then an optional YAML file (--config or " +
		config.ConfigFileEnvVar + "),\n" +
		"then environment variables, then the flags of this command. A .env file in the current\n" +
		"directory is loaded first, if present.\n\n" +
		"File operations are confined to the allowed roots: the home directory, the temp directory,\n" +
		"the Termux directories when running under Termux, and any extra roots listed in " +
		config.ExtraRootsEnvVar + ".\n\n" +
		"Set " + config.TelemetryEnvVar + "=true to expose Prometheus metrics on /metrics.",
	Args: cobra.NoArgs,
	RunE: runStartServer,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "1",
	},
}

func init() {
	startServerCmd.Flags().StringVar(
		&startServerCmdBindPort,
		"port",
		"",
		fmt.Sprintf("port to bind the HTTP server to (overrides env var %s)", config.BindPortEnvVar),
	)
	startServerCmd.Flags().StringVar(
		&startServerCmdHost,
		"host",
		"",
		"interface to bind the HTTP server to (default all interfaces)",
	)
	startServerCmd.Flags().StringVar(
		&startServerCmdLogLevel,
		"log-level",
		"",
		fmt.Sprintf("log level: debug, info, warn or error (overrides env var %s)", config.LogLevelEnvVar),
	)
	startServerCmd.Flags().StringVar(
		&startServerCmdConfigFile,
		"config",
		"",
		fmt.Sprintf("path to a YAML config file (overrides env var %s)", config.ConfigFileEnvVar),
	)

	rootCmd.AddCommand(startServerCmd)
}

// getConfigFile returns the path of the YAML config file, if any
// precedence: command line flag > environment variable
func getConfigFile() string {
	if startServerCmdConfigFile != "" {
		return startServerCmdConfigFile
	}
	return os.Getenv(config.ConfigFileEnvVar)
}

// loadServerConfig builds the startup configuration and applies the flags of the start command on top.
func loadServerConfig(fs afero.Fs, getenv func(string) string) (*config.Config, error) {
	c, err := config.Load(fs, getConfigFile(), getenv)
	if err != nil {
		return nil, err
	}
	if startServerCmdBindPort != "" {
		c.Port = startServerCmdBindPort
	}
	if startServerCmdHost != "" {
		c.Host = startServerCmdHost
	}
	if startServerCmdLogLevel != "" {
		c.LogLevel = startServerCmdLogLevel
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func runStartServer(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	conf, err := loadServerConfig(afero.NewOsFs(), os.Getenv)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(conf.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize metrics if enabled
	otelProviders, err := telemetry.Init(ctx, &telemetry.Config{
		ServiceName: config.ServiceName,
		Enabled:     conf.OtelEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Opentelemetry providers: %v", err)
	}
	defer func() {
		if err := otelProviders.Shutdown(context.Background()); err != nil {
			logger.Warn("failed to shutdown opentelemetry providers", zap.Error(err))
		}
	}()

	// The no-op implementation lets every component record metrics unconditionally.
	metrics := telemetry.NewNoopCustomMetrics()
	if otelProviders.IsEnabled() {
		metrics, err = telemetry.NewOtelCustomMetrics(otelProviders.Meter)
		if err != nil {
			return fmt.Errorf("failed to create metrics: %v", err)
		}
	}

	sb, err := sandbox.New(conf.AllowedRoots(sandbox.DefaultRoots(os.Getenv)), conf.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to create path sandbox: %w", err)
	}
	logger.Info("path sandbox ready", zap.Strings("roots", sb.Roots()), zap.String("base_dir", sb.BaseDir()))

	runner := executor.NewRunner(&executor.RunnerConfig{
		Shell:          conf.Exec.Shell,
		MaxOutputBytes: conf.Exec.MaxOutputBytes,
		DefaultTimeout: seconds(conf.Exec.DefaultTimeoutSec),
		StreamTimeout:  seconds(conf.Exec.StreamTimeoutSec),
		Logger:         logger.Named("executor"),
	})
	logger.Info("command runner ready", zap.Int("max_output_bytes", runner.MaxOutputBytes()))

	dispatcher, err := dispatch.NewDispatcher(&dispatch.Config{
		Sandbox: sb,
		Runner:  runner,
		Metrics: metrics,
		Logger:  logger.Named("dispatch"),
	})
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	mcpServer := server.NewMCPServer(
		config.ServiceName,
		version.GetVersion(),
		server.WithToolCapabilities(true),
	)
	if _, err := mcp.NewMCPService(&mcp.ServiceConfig{
		McpServer:  mcpServer,
		Dispatcher: dispatcher,
		Logger:     logger.Named("mcp"),
	}); err != nil {
		return fmt.Errorf("failed to create MCP service: %v", err)
	}

	s, err := api.NewServer(&api.ServerOptions{
		Addr:          conf.Addr(),
		Dispatcher:    dispatcher,
		Sandbox:       sb,
		Runner:        runner,
		McpServer:     mcpServer,
		OtelProviders: otelProviders,
		Metrics:       metrics,
		Logger:        logger.Named("api"),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %v", err)
	}

	cmd.Printf("mcpagent %s listening on %s (%d tools)\n\n", version.GetVersion(), conf.Addr(), len(dispatcher.Tools()))
	if err := s.Start(ctx); err != nil {
		return err
	}
	return nil
}
