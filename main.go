package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mywio/ci-notify/pkg/config"
	"github.com/mywio/ci-notify/pkg/core"
	"github.com/mywio/ci-notify/pkg/format"
	"github.com/mywio/ci-notify/pkg/identity"
	"github.com/mywio/ci-notify/pkg/notifier"
	"github.com/mywio/ci-notify/pkg/notifier/telegram"
	"github.com/mywio/ci-notify/pkg/runner"
	"github.com/mywio/ci-notify/pkg/secrets"
	"github.com/spf13/cobra"
)

type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit with code %d", e.code)
}

func (e exitError) ExitCode() int {
	return e.code
}

type flags struct {
	eventPath  string
	eventName  string
	configPath string
	envFile    string
	dryRun     bool
}

func main() {
	var f flags
	rootCmd := &cobra.Command{
		Use:          "ci-notify",
		Short:        "Post CI push and create events to a Telegram chat",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(f.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", f.envFile, err)
			}
			cfg, err := loadConfig(f, cmd)
			if err != nil {
				return err
			}
			logger := newLogger(os.Stdout, cfg.LogFormat, cfg.LogLevel)
			return runWithSignals(func(ctx context.Context) error {
				return run(ctx, cfg, logger)
			})
		},
	}
	defaultConfig := os.Getenv("CONFIG_FILE")
	if defaultConfig == "" {
		defaultConfig = config.DefaultConfigFile
	}
	rootCmd.Flags().StringVar(&f.eventPath, "event-path", "", "Event payload file (default $GITHUB_EVENT_PATH)")
	rootCmd.Flags().StringVar(&f.eventName, "event-name", "", "Event kind (default $GITHUB_EVENT_NAME)")
	rootCmd.Flags().StringVar(&f.configPath, "config", defaultConfig, "YAML config file")
	rootCmd.Flags().StringVar(&f.envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")
	rootCmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Log messages instead of sending them")

	if err := rootCmd.Execute(); err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

// loadConfig layers the config file over the environment, then flags over
// both.
func loadConfig(f flags, cmd *cobra.Command) (config.Config, error) {
	cfgEnv := config.LoadConfig()
	cfgMap, err := config.LoadConfigFile(f.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config file %s: %w", f.configPath, err)
	}
	cfgFile, err := config.LoadConfigFromMap(cfgMap)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config file %s: %w", f.configPath, err)
	}
	cfg := config.MergeConfig(cfgFile, cfgEnv)

	if cmd.Flags().Changed("event-path") {
		cfg.EventPath = f.eventPath
	}
	if cmd.Flags().Changed("event-name") {
		cfg.EventName = f.eventName
	}
	if f.dryRun {
		cfg.DryRun = true
	}
	return cfg.WithDefaults(), nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if secrets.HasReferences(cfg) {
		acc, err := secrets.NewGoogleAccessor(ctx)
		if err != nil {
			return err
		}
		defer acc.Close()
		if cfg, err = secrets.Resolve(ctx, cfg, acc, logger); err != nil {
			return err
		}
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	gh, err := identity.NewClient(ctx, cfg.GitHubToken, cfg.GitHubAPIURL, httpClient)
	if err != nil {
		return err
	}
	resolver := identity.NewResolver(gh, logger.With("module", "identity"))

	var n notifier.Notifier
	if cfg.DryRun {
		n = &notifier.DryRun{Logger: logger.With("module", "notifier")}
	} else {
		n, err = telegram.New(telegram.Config{
			Token:    cfg.BotToken,
			ChatID:   cfg.ChatID,
			ThreadID: cfg.TopicID,
			APIURL:   cfg.TelegramAPIURL,
			Client:   httpClient,
		}, logger.With("module", "notifier"))
		if err != nil {
			return err
		}
	}

	formatter := format.New(format.Options{
		MaxMessageLength: cfg.MaxMessageLength,
		MaxCommits:       cfg.MaxCommits,
		MergePrefixes:    cfg.MergePrefixes,
		Uniform:          cfg.UniformCommits,
	})

	logger.Info("Starting ci-notify", "event", cfg.EventName, "payload", cfg.EventPath, "chat_id", cfg.ChatID, "topic_id", cfg.TopicID, "dry_run", cfg.DryRun, "bot_token", cfg.BotToken)
	return runner.New(resolver, formatter, n, logger).Run(ctx, core.EventKind(cfg.EventName), cfg.EventPath)
}

func newLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func runWithSignals(run func(context.Context) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
	}()

	select {
	case sig := <-sigCh:
		cancel()
		<-errCh
		if sig == os.Interrupt {
			return exitError{code: 130}
		}
		return exitError{code: 143}
	case err := <-errCh:
		return err
	}
}
