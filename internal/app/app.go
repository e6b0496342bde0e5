package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/five82/remedit/internal/config"
	"github.com/five82/remedit/internal/credential"
	"github.com/five82/remedit/internal/endpoint"
	"github.com/five82/remedit/internal/logging"
	"github.com/five82/remedit/internal/metrics"
	"github.com/five82/remedit/internal/prefs"
	"github.com/five82/remedit/internal/remote"
	"github.com/five82/remedit/internal/session"
	"github.com/five82/remedit/internal/ui"
	"github.com/five82/remedit/internal/workspace"
)

// EnvMasterKey names the variable holding the credential keyring passphrase.
const EnvMasterKey = "REMEDIT_MASTER_KEY"

// Options configure the remedit application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/remedit/prefs.toml
	EnvFile    string // dotenv file; empty uses .env in the working directory

	// Interactive sends logs to the configured log file so they do not
	// corrupt the terminal UI. CLI commands log to stderr instead.
	Interactive bool
	LogLevel    string // overrides the configured level when set
}

// Env holds the long-lived components shared by the UI and CLI commands.
type Env struct {
	Config    config.Config
	Registry  *endpoint.Registry
	Creds     credential.Store
	Cache     *session.Cache
	Metrics   *metrics.Recorder
	Workspace *workspace.Workspace
}

// Bootstrap loads configuration, initializes logging and wires the workspace.
func Bootstrap(opts Options) (*Env, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logCfg := logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, OutputPath: cfg.LogFile}
	if !opts.Interactive {
		logCfg = logging.Config{Level: "warn", Format: "console", OutputPath: "stderr"}
	}
	if lvl := strings.TrimSpace(opts.LogLevel); lvl != "" {
		logCfg.Level = lvl
	}
	if err := logging.Init(logCfg); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	reg, err := endpoint.Open(cfg.EndpointsFile)
	if err != nil {
		return nil, fmt.Errorf("open endpoints: %w", err)
	}

	creds, err := openCredentials(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	cache := session.New()
	recorder := metrics.New(func() int {
		_, programs := cache.Stats()
		return programs
	})

	ws := workspace.New(reg, creds, cache, workspace.Options{
		ClientOptions: []remote.Option{
			remote.WithTimeout(cfg.RequestTimeout),
			remote.WithObserver(recorder),
		},
	})

	logging.Debug("bootstrap complete",
		logging.String("endpoints_file", reg.Path()),
		logging.Int("endpoints", len(reg.List())))

	return &Env{
		Config:    cfg,
		Registry:  reg,
		Creds:     creds,
		Cache:     cache,
		Metrics:   recorder,
		Workspace: ws,
	}, nil
}

// Close flushes buffered log entries.
func (e *Env) Close() {
	_ = logging.Sync()
}

// Run boots the remedit TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	opts.Interactive = true
	env, err := Bootstrap(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		return fmt.Errorf("load prefs: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := env.Registry.Watch(ctx); err != nil {
			logging.Warn("endpoint registry watch stopped", logging.Err(err))
		}
	}()

	if addr := env.Config.MetricsAddr; addr != "" {
		go func() {
			if err := env.Metrics.Serve(ctx, addr); err != nil {
				logging.Warn("metrics server stopped", logging.String("addr", addr), logging.Err(err))
			}
		}()
	}

	StartPoller(ctx, env.Workspace, env.Config.RefreshInterval)

	logging.Info("remedit started", logging.Int("endpoints", len(env.Registry.List())))
	err = ui.Run(ui.Options{
		Context:      ctx,
		Workspace:    env.Workspace,
		ThemeName:    userPrefs.Theme,
		PrefsPath:    opts.PrefsPath,
		LastEndpoint: userPrefs.LastEndpoint,
	})
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func loadEnvFile(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// openCredentials opens the encrypted keyring when a master key is set.
// Without one, passwords only live for the session.
func openCredentials(path string) (credential.Store, error) {
	key := os.Getenv(EnvMasterKey)
	if key == "" {
		logging.Warn("no master key set, passwords will not be persisted",
			logging.String("env", EnvMasterKey))
		return credential.NewMemory(), nil
	}
	store, err := credential.OpenFile(path, key)
	if err != nil {
		return nil, fmt.Errorf("open credentials: %w", err)
	}
	return store, nil
}
