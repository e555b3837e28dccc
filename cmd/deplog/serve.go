package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"deplog/internal/command"
	"deplog/internal/config"
	"deplog/internal/event"
	"deplog/internal/github"
	"deplog/internal/listener"
	"deplog/internal/notify"
	"deplog/internal/server"
	"deplog/internal/store"
	"deplog/internal/tracker"

	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	configFile string
	logFile    string
	host       string
	port       int
	verbose    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bot",
	Long: `Start the bot and the HTTP server.

Events are received over Socket Mode when DEPLOG_APP_TOKEN is set, and on
POST /slack/events when DEPLOG_SIGNING_SECRET is set. Both may be enabled.
The HTTP server also serves /health and /status/{channel}.`,
	RunE: runServe,
}

func init() {
	// Flags for serve command
	serveCmd.Flags().StringVarP(&configFile, "config", "c", getEnvOrDefault("DEPLOG_CONFIG_FILE", ""), "Path to deplog.yaml configuration file")
	serveCmd.Flags().StringVar(&logFile, "log", getEnvOrDefault("DEPLOG_LOG_FILE", "./deplog.log"), "Path to log file")
	serveCmd.Flags().StringVar(&host, "host", getEnvOrDefault("DEPLOG_HOST", ""), "Host to bind to (overrides http.host)")
	serveCmd.Flags().IntVarP(&port, "port", "p", getEnvOrDefaultInt("DEPLOG_PORT", 0), "Port to listen on (overrides http.port)")
	serveCmd.Flags().BoolVarP(&verbose, "verbose", "v", os.Getenv("DEPLOG_VERBOSE") == "1", "Log at debug level")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Set up logging
	logger, logFileHandle, err := setupLogging(logFile, verbose)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logFileHandle.Close()

	logger.Info("Starting deplog", "version", version)

	// Load configuration
	cfg, configPath, err := loadConfig(configFile)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if configPath == "" {
		logger.Info("No configuration file found, using defaults and environment")
	} else {
		logger.Info("Loaded configuration", "config", configPath)
	}
	if errs := config.ValidateCredentials(cfg); len(errs) > 0 {
		logger.Error("Invalid credentials", "count", len(errs))
		return fmt.Errorf("invalid credentials:\n%s", strings.Join(errs, "\n"))
	}
	if host != "" {
		cfg.HTTP.Host = host
	}
	if port != 0 {
		cfg.HTTP.Port = port
	}

	logger.Info("Configuration validated successfully",
		"channel", cfg.Channel,
		"environments", cfg.Environments,
		"debug", cfg.Debug)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A failed event cancels everything with the failure as cause
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// Open the datastore
	logger.Info("Opening database")
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()
	logger.Info("Database ready", "dialect", st.Dialect())

	// Connect to Slack
	var slackOpts []slack.Option
	if cfg.AppToken != "" {
		slackOpts = append(slackOpts, slack.OptionAppLevelToken(cfg.AppToken))
	}
	api := slack.New(cfg.BotToken, slackOpts...)

	auth, err := api.AuthTestContext(ctx)
	if err != nil {
		logger.Error("Slack authentication failed", "error", err)
		return fmt.Errorf("slack auth test: %w", err)
	}
	logger.Info("Slack bot authenticated", "user_id", auth.UserID, "bot_id", auth.BotID, "team", auth.Team)

	trk, err := tracker.New(tracker.Options{
		Filter: &event.Filter{
			Channel:     cfg.Channel,
			TitlePrefix: cfg.TitlePrefix,
			Labels: event.Labels{
				Environment: cfg.Fields.Environment,
				Branch:      cfg.Fields.Branch,
				Deployer:    cfg.Fields.Deployer,
			},
		},
		Environments: cfg.Environments,
		Suppress:     cfg.Suppress,
		Destination:  cfg.Destination(),
		DebugChannel: debugChannel(cfg),
		Renderer:     newRenderer(cfg),
		Store:        st,
		Notifier:     notify.NewSlackNotifier(api, cfg.PostRate, logger),
		Commits:      commitResolver(ctx, cfg, logger),
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	commands := command.NewHandler(trk, cfg.TimeLayout, cfg.Location(), logger)
	dispatcher := listener.NewDispatcher(trk, commands, auth.BotID, logger)

	g, gctx := errgroup.WithContext(ctx)

	var connected func() bool
	if cfg.AppToken != "" {
		l := listener.New(api, dispatcher, verbose, logger)
		connected = l.IsConnected
		g.Go(func() error {
			return l.Run(gctx)
		})
	}

	var events server.EventDispatcher
	if cfg.SigningSecret != "" {
		events = dispatcher
	}
	srv := server.NewServer(server.Options{
		Status:        trk,
		Dispatcher:    events,
		SigningSecret: cfg.SigningSecret,
		Connected:     connected,
		OnError: func(err error) {
			logger.Error("Event processing failed", "error", err)
			cancel(err)
		},
		Logger: logger,
	})
	g.Go(func() error {
		return srv.Run(gctx, cfg.HTTP.Host, cfg.HTTP.Port)
	})

	err = g.Wait()
	if err == nil {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			err = cause
		}
	}
	if err != nil {
		logger.Error("Stopped on error", "error", err)
		return fmt.Errorf("serve failed: %w", err)
	}

	logger.Info("Shut down")
	return nil
}

// debugChannel returns where raw events are dumped, or "" when debug mode is
// off.
func debugChannel(cfg *config.Config) string {
	if !cfg.Debug {
		return ""
	}
	return cfg.Destination()
}

// commitResolver returns a GitHub resolver when a repository is configured.
// The nil interface disables enrichment.
func commitResolver(ctx context.Context, cfg *config.Config, logger *slog.Logger) tracker.CommitResolver {
	owner, repo, ok := cfg.GitHubOwnerRepo()
	if !ok {
		return nil
	}
	logger.Info("GitHub commit lookup enabled", "repository", cfg.GitHub.Repository)
	return github.NewBranchResolver(github.NewClient(ctx, cfg.GitHub.Token), owner, repo)
}

// setupLogging configures slog for file logging
// Returns both the logger and the file handle (caller must close the file)
func setupLogging(logPath string, debug bool) (*slog.Logger, *os.File, error) {
	// Create log directory if needed
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Open log file with secure permissions
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Create multi-writer to log to both file and console
	multiWriter := io.MultiWriter(os.Stdout, file)

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	// Create JSON handler for structured logging
	handler := slog.NewJSONHandler(multiWriter, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler)

	return logger, file, nil
}

// Helper functions for environment variables
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
