// Showme resolves children's "show me" requests into kid-safe image
// and video search links, texts them to a grown-up, and returns a
// spoken confirmation for the voice agent to read back.
//
// Usage:
//
//	showme serve                        Start the API server
//	showme resolve <identifier> <text>  Resolve one utterance (for testing)
//	showme version                      Print version and build information
//	showme -o json version              Output version information as JSON
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
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lumokids/showme/internal/answer"
	"github.com/lumokids/showme/internal/api"
	"github.com/lumokids/showme/internal/buildinfo"
	"github.com/lumokids/showme/internal/config"
	"github.com/lumokids/showme/internal/mqtt"
	"github.com/lumokids/showme/internal/resolver"
	"github.com/lumokids/showme/internal/safety"
	"github.com/lumokids/showme/internal/sendlog"
	"github.com/lumokids/showme/internal/session"
	"github.com/lumokids/showme/internal/sms"
)

// main constructs the OS-level environment and delegates to run so the
// full lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Arguments are parsed by hand; the flag
// package relies on package-level globals, which makes it impossible to
// call run() concurrently from tests, and our argument surface is
// small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "resolve":
		if len(cmdArgs) < 2 {
			return fmt.Errorf("usage: showme resolve <identifier> <text>")
		}
		return runResolve(ctx, stdout, stderr, configPath, outputFmt, cmdArgs[0], strings.Join(cmdArgs[1:], " "))
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Showme - kid-safe visual search for voice assistants")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: showme [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve                        Start the API server")
	fmt.Fprintln(w, "  resolve <identifier> <text>  Resolve one utterance (for testing)")
	fmt.Fprintln(w, "  version                      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/showme/config.yaml, /etc/showme/config.yaml")
	return nil
}

// newLogger builds a slog logger writing to w.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML configuration. When no
// explicit path is given and no file exists in the search paths, the
// built-in defaults are used so the service runs out of the box.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, "", err
		}
		return config.Default(), "(defaults)", nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}

// components holds everything buildComponents wires up.
type components struct {
	resolver *resolver.Resolver
	sessions session.Store
	audit    *sendlog.Store
	events   *mqtt.Publisher
	close    func()
}

// buildComponents constructs the resolver and its collaborators from
// configuration.
func buildComponents(cfg *config.Config, logger *slog.Logger) (*components, error) {
	var sessions session.Store
	switch cfg.Session.Driver {
	case "", "memory":
		sessions = session.NewMemoryStore()
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
		})
		sessions = session.NewRedisStore(client, cfg.Session.Redis.TTL())
		logger.Info("redis session store configured", "addr", cfg.Session.Redis.Addr)
	default:
		return nil, fmt.Errorf("unknown session driver: %q", cfg.Session.Driver)
	}

	var sender sms.Sender
	if cfg.Twilio.Configured() {
		sender = sms.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From)
		logger.Info("twilio sender configured", "from", cfg.Twilio.From)
	} else {
		sender = sms.NewConsole(logger)
		logger.Warn("twilio not configured, messages will be logged instead of sent")
	}

	sanitizer := safety.NewSanitizer(safety.NewDenylist(cfg.Safety.ExtraBlockedTerms...))

	opts := resolver.DefaultOptions()
	if cfg.Resolver.ExtractInline != nil {
		opts.ExtractInline = *cfg.Resolver.ExtractInline
	}
	if cfg.Resolver.CacheQueries != nil {
		opts.CacheQueries = *cfg.Resolver.CacheQueries
	}

	res := resolver.New(opts, sessions, sender, sanitizer, logger)

	if cfg.Answer.Enabled {
		res.WithGenerator(answer.NewClient(cfg.Answer.BaseURL, cfg.Answer.Model, cfg.Answer.APIKey))
		logger.Info("answer generator configured", "base_url", cfg.Answer.BaseURL, "model", cfg.Answer.Model)
	}

	audit, err := sendlog.NewStore(filepath.Join(cfg.DataDir, "sendlog.db"), logger)
	if err != nil {
		sessions.Close()
		return nil, fmt.Errorf("open send log: %w", err)
	}
	res.WithAudit(audit)

	var events *mqtt.Publisher
	if cfg.MQTT.Enabled {
		events = mqtt.New(cfg.MQTT, logger)
		res.WithEvents(events)
	}

	return &components{
		resolver: res,
		sessions: sessions,
		audit:    audit,
		events:   events,
		close: func() {
			audit.Close()
			sessions.Close()
		},
	}, nil
}

// runServe starts the API server and blocks until shutdown.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting showme", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"session_driver", cfg.Session.Driver,
	)

	comps, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer comps.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if comps.events != nil {
		go func() {
			if err := comps.events.Start(ctx); err != nil {
				logger.Error("mqtt publisher failed", "error", err)
			}
		}()
	}

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, comps.resolver, comps.sessions, logger)
	server.SetAuditStore(comps.audit)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if comps.events != nil {
		if err := comps.events.Stop(shutdownCtx); err != nil {
			logger.Warn("mqtt shutdown failed", "error", err)
		}
	}
	return server.Shutdown(shutdownCtx)
}

// runResolve handles "showme resolve <identifier> <text>": one
// utterance through the full resolver, no HTTP server, no delivery
// destination.
func runResolve(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath, outputFmt, identifier, text string) error {
	logger := newLogger(stderr, slog.LevelWarn)

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	comps, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer comps.close()

	resp := comps.resolver.Resolve(ctx, resolver.Request{
		Identifier: identifier,
		Text:       text,
	})

	if outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintln(stdout, resp.Spoken)
	if resp.ImageURL != "" {
		fmt.Fprintf(stdout, "  topic:  %s\n", resp.Topic)
		fmt.Fprintf(stdout, "  images: %s\n", resp.ImageURL)
		fmt.Fprintf(stdout, "  videos: %s\n", resp.VideoURL)
	}
	return nil
}
