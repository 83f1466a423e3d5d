package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"genfill/core"
	"genfill/db"
	"genfill/genclient"
	"genfill/host"
	"genfill/imagegen"
	"genfill/logging"
	"genfill/shutdown"
	"genfill/store"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Shutdown handler priorities. Lower runs first.
const (
	priorityHistoryWriter = 20
	priorityDatabase      = 30
	priorityTempFiles     = 40
	priorityLogger        = 90
)

// command is one CLI subcommand.
type command struct {
	summary string
	run     func(a *app, args []string) int
}

var commands = map[string]command{
	"single":    {"generate into the selection of one document", runSingle},
	"capture":   {"capture a selection as a batch task, or as a chat attachment", runCapture},
	"batch":     {"run captured batch tasks", runBatch},
	"partition": {"run one prompt over every document in partitions", runPartition},
	"quota":     {"show the remaining generation balance", runQuota},
	"prompts":   {"list, save, delete, favorite, sync, export or import prompts", runPrompts},
	"keys":      {"manage saved API keys", runKeys},
	"prefs":     {"show or change preferences", runPrefs},
	"history":   {"list or prune the run history", runHistory},
	"check":     {"validate configuration and the local environment", runCheck},
}

// app holds the components shared by the subcommands. Components that open
// files or the database are created on first use.
type app struct {
	cfg     *core.Config
	logger  *logging.Logger
	manager *shutdown.Manager
	out     io.Writer
	errOut  io.Writer
	envPath string

	store  *store.Store
	editor *host.MemoryEditor

	database *db.Database
	history  *db.Repository
	writer   *db.AsyncWriter

	orchestrator *imagegen.Orchestrator
	quota        *genclient.QuotaClient
}

// run is main without the process exit, so tests can drive it.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || isHelp(args[0]) {
		printUsage(stdout)
		if len(args) == 0 {
			return core.ExitCodeUsage
		}
		return core.ExitCodeSuccess
	}
	if args[0] == "version" {
		fmt.Fprintf(stdout, "genfill %s\n", core.GetVersionInfo())
		return core.ExitCodeSuccess
	}

	cmd, ok := commands[args[0]]
	if !ok {
		color.New(color.FgRed).Fprintf(stderr, "unknown command %q\n\n", args[0])
		printUsage(stderr)
		return core.ExitCodeUsage
	}

	envPath := core.GetEnvOrDefault("GENFILL_ENV_FILE", ".env")
	if err := godotenv.Load(envPath); err != nil {
		// The logger is not configured yet.
		if !errors.Is(err, os.ErrNotExist) {
			color.New(color.FgYellow).Fprintf(stderr, "Warning: failed to load %s: %v\n", envPath, err)
		}
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		printError(stderr, err)
		return core.ExitCodeError
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}

	manager := shutdown.NewManager(logger)
	manager.Register("logger", priorityLogger, func(ctx context.Context) error {
		// Syncing stderr fails on some terminals; that is not worth reporting.
		_ = logger.Sync()
		return nil
	})
	manager.Start()

	a := &app{
		cfg:     cfg,
		logger:  logger,
		manager: manager,
		out:     stdout,
		errOut:  stderr,
		envPath: envPath,
	}

	logger.Debug("command starting",
		zap.String("command", args[0]),
		zap.String("version", core.Version),
		zap.String("data_dir", cfg.DataDir),
		zap.Bool("dev_mode", cfg.DevMode),
	)

	code := cmd.run(a, args[1:])

	if err := manager.Shutdown(); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
	code = manager.ExitCode(code)
	if code != core.ExitCodeSuccess {
		logger.Debug("command finished", zap.String("command", args[0]), zap.Int("exit_code", code), zap.String("exit", core.ExitCodeName(code)))
	}
	return code
}

// newLogger writes the console log to stderr so stdout carries only results.
func newLogger(cfg *core.Config, stderr io.Writer) (*logging.Logger, error) {
	var console zapcore.WriteSyncer
	if f, ok := stderr.(*os.File); ok {
		console = zapcore.Lock(f)
	} else {
		console = zapcore.AddSync(stderr)
	}
	return logging.NewLoggerWithOptions(logging.Options{
		Development: cfg.DevMode,
		Level:       logging.ParseLevel(cfg.LogLevel, logging.DefaultLevel(cfg.DevMode)),
		FilePath:    cfg.LogFile,
		File:        logging.DefaultFileWriterConfig(),
		Console:     console,
	})
}

// Store returns the local JSON store.
func (a *app) Store() (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	st, err := store.New(core.GetHTTPClient(a.cfg, 0), a.logger, store.ConfigFromCore(a.cfg))
	if err != nil {
		return nil, err
	}
	a.store = st
	return st, nil
}

// History opens and migrates the run history database and starts its writer.
func (a *app) History() (*db.Repository, error) {
	if a.history != nil {
		return a.history, nil
	}

	database, err := db.NewDatabase(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, err
	}
	repo, err := db.NewRepository(database, a.logger)
	if err != nil {
		database.Close()
		return nil, err
	}

	writer := db.NewAsyncWriter(repo.CreateAsyncWriteHandler(), a.logger)
	repo.SetAsyncWriter(writer)
	writer.Start()

	a.manager.Register("history-writer", priorityHistoryWriter, func(ctx context.Context) error {
		if !writer.Stop() {
			return fmt.Errorf("history writer did not drain, %d records dropped", writer.Pending())
		}
		return nil
	})
	a.manager.Register("database", priorityDatabase, func(ctx context.Context) error {
		return database.Close()
	})

	a.database, a.history, a.writer = database, repo, writer
	return repo, nil
}

// Editor returns the in-memory host editor.
func (a *app) Editor() *host.MemoryEditor {
	if a.editor == nil {
		a.editor = host.NewMemoryEditor()
	}
	return a.editor
}

// Orchestrator wires the editor, generation client and run history together.
// Run history is optional: when the database cannot be opened runs still proceed.
func (a *app) Orchestrator() (*imagegen.Orchestrator, error) {
	if a.orchestrator != nil {
		return a.orchestrator, nil
	}

	genConfig := genclient.DefaultConfig()
	genConfig.ModelName = a.cfg.ModelName
	client, err := genclient.NewClient(core.GetHTTPClient(a.cfg, 0), a.logger, genConfig)
	if err != nil {
		return nil, err
	}

	orch, err := imagegen.NewOrchestrator(a.Editor(), client, a.logger, imagegen.ConfigFromCore(a.cfg))
	if err != nil {
		return nil, err
	}
	if repo, err := a.History(); err != nil {
		a.logger.Warn("run history disabled", zap.Error(err))
	} else {
		orch.SetRecorder(repo)
	}

	a.manager.Register("temp-files", priorityTempFiles,
		shutdown.CleanupTempFiles(a.logger, orch.Config().TempDir, shutdown.TempFilePattern))

	a.orchestrator = orch
	return orch, nil
}

// QuotaClient returns the usage endpoint client.
func (a *app) QuotaClient() (*genclient.QuotaClient, error) {
	if a.quota != nil {
		return a.quota, nil
	}
	q, err := genclient.NewQuotaClient(core.GetHTTPClient(a.cfg, 0), a.logger)
	if err != nil {
		return nil, err
	}
	a.quota = q
	return q, nil
}

// APIKey returns GENFILL_API_KEY, else the most recently saved generation key.
func (a *app) APIKey() (string, error) {
	if a.cfg.APIKey != "" {
		return a.cfg.APIKey, nil
	}
	st, err := a.Store()
	if err != nil {
		return "", err
	}
	entry, ok, err := st.LatestKey(store.GenerationKeys)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", core.ErrAPIKeyEmpty()
	}
	a.logger.Debug("using saved API key", zap.String("key_name", entry.Name))
	return entry.Value, nil
}

// credentials resolves the key and base URL every generation command needs.
func (a *app) credentials() (apiKey, baseURL string, err error) {
	if err := core.ValidateBaseURL(a.cfg.APIBaseURL); err != nil {
		return "", "", err
	}
	apiKey, err = a.APIKey()
	if err != nil {
		return "", "", err
	}
	return apiKey, a.cfg.APIBaseURL, nil
}

func isHelp(arg string) bool {
	switch arg {
	case "help", "-h", "-help", "--help":
		return true
	}
	return false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: genfill <command> [flags] [documents...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}
	for _, name := range names {
		fmt.Fprintf(w, "  %-*s  %s\n", width, name, commands[name].summary)
	}
	fmt.Fprintf(w, "  %-*s  %s\n", width, "version", "print version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'genfill <command> -h' for the flags of a command.")
	fmt.Fprintln(w, "Configuration is read from the environment and .env (override with GENFILL_ENV_FILE).")
}
