package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/pitlane/leaguechat/internal/bus"
	"github.com/pitlane/leaguechat/internal/channel"
	"github.com/pitlane/leaguechat/internal/chat"
	"github.com/pitlane/leaguechat/internal/config"
	"github.com/pitlane/leaguechat/internal/history"
	"github.com/pitlane/leaguechat/internal/lock"
	"github.com/pitlane/leaguechat/internal/logging"
	"github.com/pitlane/leaguechat/internal/status"
	"github.com/pitlane/leaguechat/internal/store"
	"github.com/pitlane/leaguechat/internal/transport/ws"
	"github.com/pitlane/leaguechat/internal/tui"
)

// Params holds the resolved startup options passed to the fx module.
type Params struct {
	ConfigPath string // optional override; empty = use default
	Channel    string // optional override for config default_channel
}

// Key is the active channel key after flag/config resolution.
type Key string

// Module returns the fx module for the chat client, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("leaguechat",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideChannelKey,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideHistoryEngine,
			provideTransport,
			provideSession,
			tui.NewApp,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = config.Path()
	}
	return config.Load(path)
}

func provideChannelKey(p Params, cfg *config.Config) (Key, error) {
	key := cfg.ResolveChannel(p.Channel)
	if err := channel.ValidateKey(key); err != nil {
		return "", err
	}
	return Key(key), nil
}

func provideLogger(key Key) (*zap.Logger, error) {
	if err := config.EnsureDirs(); err != nil {
		return nil, err
	}
	return logging.New(config.LogPath(), string(key))
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

// provideLock guards the cache database against a second running client.
// Returns nil when the cache is disabled.
func provideLock(cfg *config.Config, logger *zap.Logger) (*lock.Lock, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	logger.Info("acquiring cache lock", zap.String("path", cfg.CachePath()))
	l, err := lock.Acquire(cfg.CachePath())
	if err != nil {
		return nil, err
	}
	logger.Info("cache lock acquired")
	return l, nil
}

// provideStore opens and migrates the scrollback cache. Returns nil when the
// cache is disabled; downstream consumers treat a nil store as "no cache".
func provideStore(cfg *config.Config, lk *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	if !cfg.Cache.Enabled {
		logger.Info("scrollback cache disabled")
		return nil, nil
	}
	dbPath := cfg.CachePath()
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideHistoryEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *history.Engine {
	return history.NewEngine(db, b, logger)
}

func provideTransport(cfg *config.Config, machine *status.Machine, logger *zap.Logger) *ws.Client {
	return ws.NewClient(ws.Config{
		URL:       cfg.ServerURL,
		AuthToken: cfg.AuthToken,
	}, machine, logger)
}

func provideSession(key Key, cfg *config.Config, client *ws.Client, machine *status.Machine, b *bus.Bus, logger *zap.Logger) *channel.Session {
	self := chat.User{
		ID:     cfg.User.ID,
		Name:   cfg.User.Name,
		Email:  cfg.User.Email,
		Avatar: cfg.User.Avatar,
	}
	s := channel.NewSession(string(key), self, client, machine, b, logger, cfg.SendTimeout())
	s.SetFeatures(channel.Features{
		Presence:     cfg.Features.Presence,
		ReadReceipts: cfg.Features.ReadReceipts,
	})
	return s
}

func registerLifecycle(lc fx.Lifecycle, sh fx.Shutdowner, ui *tui.App, client *ws.Client, engine *history.Engine, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Start history engine (subscribes to message.* bus events).
			engine.Start(context.Background())

			// A failed dial is not fatal: the view renders the cached
			// scrollback and shows the load error instead.
			if err := client.Dial(ctx); err != nil {
				logger.Warn("initial dial failed", zap.Error(err))
			}

			// Run the terminal UI in the background; its exit drives
			// application shutdown.
			go func() {
				if err := ui.Run(); err != nil {
					logger.Error("terminal UI error", zap.Error(err))
				}
				_ = sh.Shutdown()
			}()

			return nil
		},
		OnStop: func(_ context.Context) error {
			ui.Stop()
			engine.Stop()
			if err := client.Close(); err != nil {
				logger.Warn("error closing transport", zap.Error(err))
			}
			if lk != nil {
				if err := lk.Release(); err != nil {
					logger.Warn("error releasing lock", zap.Error(err))
				}
			}
			logger.Info("client stopped")
			return nil
		},
	})
}
