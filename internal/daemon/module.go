package daemon

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/api"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/bus"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/config"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/lock"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/logging"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/outbox"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/reconcile"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/rest"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/session"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/status"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/store"
	intsync "github.com/scalixity-dev/PMS-Frontend-sub004/internal/sync"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/toast"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/transport"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	ListenAddr  string // optional override for testing; empty = use config
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideRESTClient,
			provideToasts,
			provideTokenSource,
			provideTransport,
			provideCoordinator,
			provideSyncEngine,
			provideReconciler,
			provideAPIServer,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() (*config.Config, error) {
	return config.Load(session.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.CacheDBPath(p.SessionName)
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
	logger.Info("cache initialized", zap.String("path", dbPath))
	return db, nil
}

func provideRESTClient(cfg *config.Config, logger *zap.Logger) (*rest.Client, error) {
	return rest.NewClient(cfg.APIBaseURL, cfg.APIToken, logger)
}

func provideToasts(cfg *config.Config, b *bus.Bus) *toast.Notifier {
	return toast.NewNotifier(cfg.ToastDismiss(), b)
}

func provideTokenSource(rc *rest.Client, cfg *config.Config, toasts *toast.Notifier, logger *zap.Logger) *transport.TokenSource {
	return transport.NewTokenSource(rc, cfg.TokenTTL(), toasts, logger)
}

func provideTransport(cfg *config.Config, tokens *transport.TokenSource, machine *status.Machine, b *bus.Bus, logger *zap.Logger) *transport.Client {
	return transport.NewClient(transport.WSEndpoint(cfg.APIBaseURL, cfg.WSURL), tokens, machine, b, logger)
}

func provideCoordinator(p Params, tc *transport.Client, b *bus.Bus, toasts *toast.Notifier, logger *zap.Logger) *outbox.Coordinator {
	files := outbox.NewFileStore(session.OutboxPath(p.SessionName), logger)
	return outbox.NewCoordinator(files, tc, b, toasts, logger)
}

func provideSyncEngine(db *store.DB, rc *rest.Client, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(db, rc, b, logger)
}

func provideReconciler(db *store.DB, coord *outbox.Coordinator, machine *status.Machine, engine *intsync.Engine) *reconcile.Reconciler {
	return reconcile.New(db, coord, machine, engine)
}

func provideAPIServer(
	machine *status.Machine,
	recon *reconcile.Reconciler,
	coord *outbox.Coordinator,
	engine *intsync.Engine,
	rc *rest.Client,
	db *store.DB,
	toasts *toast.Notifier,
	b *bus.Bus,
	logger *zap.Logger,
) *api.Server {
	return api.NewServer(machine, recon, coord, engine, rc, db, toasts, b, logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, tc *transport.Client, engine *intsync.Engine, coord *outbox.Coordinator, machine *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Sync engine first so the resync triggered by the initial
			// transport.online event is not missed.
			engine.Start(context.Background())
			coord.Start(context.Background())

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("http server error", zap.Error(err))
				}
			}()

			tc.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			tc.Stop()
			coord.Stop()
			engine.Stop()
			srv.Stop(ctx)
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
