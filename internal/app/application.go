package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cenkalti/backoff/v4"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Rorical/RoriGate/internal/api"
	"github.com/Rorical/RoriGate/internal/config"
	"github.com/Rorical/RoriGate/internal/core"
	"github.com/Rorical/RoriGate/internal/dispatcher"
	"github.com/Rorical/RoriGate/internal/eventbus"
	"github.com/Rorical/RoriGate/internal/listener"
	"github.com/Rorical/RoriGate/internal/logging"
	"github.com/Rorical/RoriGate/internal/update"
)

// Options carry the persistent command-line flags.
type Options struct {
	Profile string
	Server  string
	LogFile string
	Verbose bool
}

// Env is what every command needs: resolved config, a logger and an HTTP
// client for the approval server.
type Env struct {
	Config *config.Config
	Logger *zap.Logger
	Client *api.Client
}

func Setup(opts Options) (*Env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if opts.Profile != "" {
		if err := cfg.UseProfile(opts.Profile); err != nil {
			return nil, err
		}
	}
	if opts.Server != "" {
		cfg.OverrideServer(opts.Server)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("profile '%s': %w", cfg.CurrentProfile(), err)
	}

	logFile := opts.LogFile
	if logFile == "" {
		logFile = filepath.Join(cfg.Dir(), "rorigate.log")
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel(), File: logFile, Verbose: opts.Verbose})
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("profile", cfg.CurrentProfile()))

	return &Env{
		Config: cfg,
		Logger: logger,
		Client: api.NewClient(cfg.BaseURL(), cfg.RequestTimeout(), logger),
	}, nil
}

func (e *Env) Close() {
	_ = e.Logger.Sync()
}

// Backoff maps the profile's reconnect settings onto the listener.
func (e *Env) Backoff() backoff.BackOff {
	r := e.Config.ReconnectPolicy()
	return listener.NewBackoff(r.InitialDelay.Std(), r.MaxDelay.Std(), r.MaxAttempts)
}

func (e *Env) newListener(store *core.Store, policy backoff.BackOff) (*listener.Listener, error) {
	wsURL, err := e.Config.WebSocketURL()
	if err != nil {
		return nil, err
	}
	return listener.New(listener.Options{
		URL:       wsURL,
		Store:     store,
		Bootstrap: e.Client,
		Backoff:   policy,
		Logger:    e.Logger,
	}), nil
}

// Application manages the complete application lifecycle
type Application struct {
	env         *Env
	eventBus    *eventbus.EventBus
	store       *core.Store
	listener    *listener.Listener
	dispatcher  *dispatcher.Dispatcher
	service     *core.SyncService
	model       *AppModel
	programOpts []tea.ProgramOption
}

func NewApplication(opts Options) (*Application, error) {
	env, err := Setup(opts)
	if err != nil {
		return nil, err
	}

	store := core.NewStore()
	lst, err := env.newListener(store, env.Backoff())
	if err != nil {
		env.Close()
		return nil, err
	}

	eb := eventbus.NewEventBus()
	eb.SetErrorCallback(func(e eventbus.EventBusError) {
		env.Logger.Warn("event bus", zap.String("op", e.Operation), zap.Error(e.Err))
	})

	disp := dispatcher.New(env.Client, lst, store, env.Logger)
	service := core.NewSyncService(store, eb, disp, env.Logger)

	return &Application{
		env:         env,
		eventBus:    eb,
		store:       store,
		listener:    lst,
		dispatcher:  disp,
		service:     service,
		model:       newAppModel(env.Config.CurrentProfile(), dispatcher.NewBridge(eb)),
		programOpts: []tea.ProgramOption{tea.WithAltScreen()},
	}, nil
}

// Start runs the push listener and the UI until the user quits or ctx is
// cancelled.
func (app *Application) Start(ctx context.Context) error {
	app.service.Start()
	app.env.Logger.Info("starting dashboard", zap.String("server", app.env.Config.BaseURL()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	p := tea.NewProgram(app.model, append([]tea.ProgramOption{tea.WithContext(gctx)}, app.programOpts...)...)

	g.Go(func() error {
		if err := app.listener.Run(gctx); err != nil {
			p.Send(update.ListenerStoppedMsg{Err: err})
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})

	return g.Wait()
}

func (app *Application) Stop() {
	app.service.Stop()
	app.dispatcher.Stop()
	app.eventBus.Close()
	app.env.Close()
}
