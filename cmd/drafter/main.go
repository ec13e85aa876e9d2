package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	slogmulti "github.com/samber/slog-multi"
	"golang.org/x/term"

	"github.com/martinemde/drafter/draftloop"
	"github.com/martinemde/drafter/llmchat"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type cliOptions struct {
	configPath  string
	provider    string
	model       string
	dir         string
	script      string
	transcript  string
	logLevel    string
	maxRounds   int
	showVersion bool

	set map[string]bool
}

func parseFlags(args []string) (*cliOptions, error) {
	fs := flag.NewFlagSet("drafter", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := &cliOptions{}
	fs.StringVar(&opts.configPath, "config", DefaultConfigPath(), "Path to the YAML config file")
	fs.StringVar(&opts.provider, "provider", "", "Reasoning provider (groq, openai, anthropic)")
	fs.StringVar(&opts.model, "model", "", "Model ID or alias (defaults to the provider's default model)")
	fs.StringVar(&opts.dir, "dir", "", "Directory where saved documents are written")
	fs.StringVar(&opts.script, "script", "", "Read user input from a file, one line per round")
	fs.StringVar(&opts.transcript, "transcript", "", "Write the session history to this JSON file on exit")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.IntVar(&opts.maxRounds, "max-rounds", 0, "Abort after this many rounds without a successful save (0 = no limit)")
	fs.BoolVar(&opts.showVersion, "version", false, "Print the version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintln(fs.Output(), "An interactive document drafting assistant. Each round it asks what to do,")
		fmt.Fprintln(fs.Output(), "updates the draft, and stops once the document has been saved.")
		fmt.Fprintln(fs.Output(), "\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// apply overlays explicitly-set flags onto the loaded config, giving flags
// the final say.
func (o *cliOptions) apply(cfg *Config) {
	if o.set["provider"] {
		cfg.Provider = o.provider
	}
	if o.set["model"] {
		cfg.Model = o.model
	}
	if o.set["dir"] {
		cfg.SaveDir = o.dir
	}
	if o.set["script"] {
		cfg.Script = o.script
	}
	if o.set["transcript"] {
		cfg.Transcript = o.transcript
	}
	if o.set["log-level"] {
		cfg.LogLevel = o.logLevel
	}
	if o.set["max-rounds"] {
		cfg.MaxRounds = o.maxRounds
	}
}

func run() error {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.showVersion {
		fmt.Printf("drafter %s\n", version)
		return nil
	}

	cfg, err := LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	opts.apply(cfg)

	logger, closeLogs, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLogs()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := buildClient(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	if cfg.Model == "" && cfg.Provider != "" {
		if info := llmchat.DefaultModel(cfg.Provider); info != nil {
			cfg.Model = info.ID
		}
	}

	if err := os.MkdirAll(cfg.SaveDir, 0755); err != nil {
		return fmt.Errorf("creating save directory %s: %w", cfg.SaveDir, err)
	}

	sessionCfg := draftloop.DefaultSessionConfig()
	sessionCfg.Provider = cfg.Provider
	sessionCfg.Model = cfg.Model
	sessionCfg.SaveDir = cfg.SaveDir
	sessionCfg.MaxRounds = cfg.MaxRounds
	sessionCfg.DecideTimeout = cfg.DecideDuration()

	session := draftloop.NewSession(client, draftloop.NewRegistry(cfg.SaveDir), &sessionCfg)
	session.SetLogger(logger)

	c := newConsole(os.Stdout)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for event := range session.Events() {
			c.render(event)
		}
	}()

	var source draftloop.InputSource
	if cfg.Script != "" {
		source, err = newFileSource(cfg.Script, os.Stdout)
		if err != nil {
			session.Close()
			wg.Wait()
			return err
		}
	} else {
		source = newConsoleSource(os.Stdin, os.Stdout)
	}

	runErr := session.Run(ctx, source)
	session.Close()
	wg.Wait()

	if cfg.Transcript != "" {
		if err := writeTranscript(cfg.Transcript, session, runErr); err != nil {
			logger.Error("transcript not written", "path", cfg.Transcript, "error", err)
			if runErr == nil {
				runErr = err
			}
		} else {
			logger.Info("transcript written", "path", cfg.Transcript)
		}
	}

	return runErr
}

// newLogger builds the session logger: warnings and errors go to stderr so
// they surface during an interactive session, the full stream goes to the
// log file at the configured level.
func newLogger(cfg *Config) (*slog.Logger, func(), error) {
	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}
	closer := func() {}

	if cfg.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file %s: %w", cfg.LogPath, err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
		closer = func() { f.Close() }
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// buildClient constructs the chat client. An explicit provider takes its key
// from the environment or an interactive prompt; otherwise every provider
// with a key in the environment is registered and the first found is the
// default. Either way the adapter retries transient provider failures under
// the default policy before a round sees the error.
func buildClient(cfg *Config, logger *slog.Logger) (*llmchat.Client, error) {
	mw := llmchat.WithMiddleware(requestLogger(logger))

	if cfg.Provider != "" {
		key, err := resolveAPIKey(cfg.Provider)
		if err != nil {
			return nil, err
		}
		adapter, err := llmchat.NewGollmAdapter(cfg.Provider, key)
		if err != nil {
			return nil, fmt.Errorf("initializing %s adapter: %w", cfg.Provider, err)
		}
		retrying := llmchat.WithRetries(adapter, llmchat.DefaultRetryPolicy())
		return llmchat.NewClient(llmchat.WithAdapter(cfg.Provider, retrying), mw), nil
	}

	client := llmchat.NewClientFromEnv(mw)
	if len(client.Providers()) == 0 {
		return nil, errors.New("no API key found; set GROQ_API_KEY, OPENAI_API_KEY, or ANTHROPIC_API_KEY, or pass -provider")
	}
	return client, nil
}

// requestLogger records one log line per reasoning call.
func requestLogger(logger *slog.Logger) llmchat.Middleware {
	return func(ctx context.Context, req llmchat.Request, next func(context.Context, llmchat.Request) (*llmchat.Reply, error)) (*llmchat.Reply, error) {
		start := time.Now()
		reply, err := next(ctx, req)
		if err != nil {
			logger.Warn("reasoning call failed",
				"provider", req.Provider,
				"model", req.Model,
				"duration", time.Since(start),
				"error", err)
			return nil, err
		}
		logger.Debug("reasoning call",
			"provider", reply.Provider,
			"model", reply.Model,
			"duration", time.Since(start),
			"tokens", reply.Usage.TotalTokens)
		return reply, nil
	}
}

// resolveAPIKey finds the API key for a provider: the environment first,
// then a hidden interactive prompt when stdin is a terminal.
func resolveAPIKey(provider string) (string, error) {
	envVar, ok := llmchat.EnvKeyVar[provider]
	if !ok {
		return "", fmt.Errorf("unknown provider %q (known: groq, openai, anthropic)", provider)
	}
	if key := strings.TrimSpace(os.Getenv(envVar)); key != "" {
		return key, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%s is not set", envVar)
	}

	fmt.Fprintf(os.Stderr, "Enter %s API key: ", provider)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	key := strings.TrimSpace(string(raw))
	if key == "" {
		return "", fmt.Errorf("%s is not set and no key was entered", envVar)
	}
	return key, nil
}
