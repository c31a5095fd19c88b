// Package main provides the CLI entrypoint for tinysummary.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/localrivet/tinysummary"
	"github.com/localrivet/tinysummary/internal/config"
	"github.com/localrivet/tinysummary/internal/errortypes"
)

var (
	configPath string

	serveAddr string

	summarizeMaxSentences int
	summarizeLocal        bool
	summarizeJSON         bool

	configInitForce bool
	configShowFmt   string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		errortypes.LogError(nil, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tinysummary",
		Short:         "Extractive text summarizer with optional LLM providers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// A missing .env is normal.
			_ = godotenv.Load()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFilename, "path to the config file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newSummarizeCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCacheCmd())

	return rootCmd
}

// loadConfig reads the config file (defaults when absent) and installs the
// configured logger as the slog default.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfigWithPath(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func openService() (*tinysummary.Service, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return tinysummary.NewService(tinysummary.ServiceOptions{Config: cfg, Logger: logger})
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := svc.HTTPServer()
	if serveAddr != "" {
		srv.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errortypes.NetworkError(err, "HTTP server failed").WithField("addr", srv.Addr)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), svc.Config().ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		return err
	}
	slog.Info("Server stopped gracefully")
	return nil
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the summarize tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			defer svc.Close()
			return svc.StartMCP()
		},
	}
}

func newSummarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize [file]",
		Short: "Summarize a file, or stdin when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSummarizeCmd,
	}
	cmd.Flags().IntVar(&summarizeMaxSentences, "max-sentences", 0, "maximum sentences in the summary (default from config)")
	cmd.Flags().BoolVar(&summarizeLocal, "local", false, "use the local extractive summarizer only")
	cmd.Flags().BoolVar(&summarizeJSON, "json", false, "print the summary with its source as JSON")
	return cmd
}

func runSummarizeCmd(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	var result tinysummary.Result
	if summarizeLocal {
		maxSentences := summarizeMaxSentences
		if maxSentences <= 0 {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			maxSentences = cfg.Summarizer.MaxSentences
		}
		result = tinysummary.Result{
			Summary: tinysummary.Extract(text, maxSentences),
			Source:  "extractive",
		}
	} else {
		svc, err := openService()
		if err != nil {
			return err
		}
		defer svc.Close()

		result, err = svc.SummarizeDetailed(cmd.Context(), text, summarizeMaxSentences)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if summarizeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	_, err = fmt.Fprintln(out, result.Summary)
	return err
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check providers and the cache and print a health report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			report, err := svc.HealthReport(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the config file",
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with default values",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigInitCmd,
	}
	initCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE:  runConfigShowCmd,
	}
	showCmd.Flags().StringVar(&configShowFmt, "format", "json", "output format: json or yaml")

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func runConfigInitCmd(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := tinysummary.DefaultConfig().SaveToFile(path); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return err
}

func runConfigShowCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfigWithPath(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	redacted := cfg.Redacted()

	var data []byte
	switch strings.ToLower(configShowFmt) {
	case "json":
		data, err = json.MarshalIndent(redacted, "", "  ")
		data = append(data, '\n')
	case "yaml", "yml":
		data, err = yaml.Marshal(redacted)
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", configShowFmt)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the summary cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Print the number of cached summaries",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := openService()
				if err != nil {
					return err
				}
				defer svc.Close()

				n, err := svc.CacheLen(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "backend=%s entries=%d\n", svc.Config().Cache.Backend, n)
				return err
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached summary",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := openService()
				if err != nil {
					return err
				}
				defer svc.Close()

				n, err := svc.ClearCache(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached summaries\n", n)
				return err
			},
		},
	)
	return cmd
}
