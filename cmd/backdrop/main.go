package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/genricoloni/backdrop/internal/config"
	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/fetcher"
	"github.com/genricoloni/backdrop/internal/hub"
	"github.com/genricoloni/backdrop/internal/monitor"
	"github.com/genricoloni/backdrop/internal/player"
	"github.com/genricoloni/backdrop/internal/pool"
	"github.com/genricoloni/backdrop/internal/processor"
	"github.com/genricoloni/backdrop/internal/scheduler"
	"github.com/genricoloni/backdrop/internal/server"
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// AppOptions is the full dependency graph
var AppOptions = fx.Options(
	// Logger configuration
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),

	// Provide dependencies
	fx.Provide(
		newLogger,
		clockwork.NewRealClock,
		fx.Annotate(config.NewAppConfig, fx.As(new(domain.Config))),
		monitor.NewScreenResolution,
		fx.Annotate(fetcher.NewHTTPFetcher, fx.As(new(domain.Fetcher))),
		player.NewFactory,
		func(f *player.Factory) domain.PlayerFactory { return f },
		pool.NewMediaPool,

		// Visibility sources
		hub.NewHub,
		monitor.NewScreensaverMonitor,
		fx.Annotate(
			func(h *hub.Hub) domain.VisibilitySource { return h },
			fx.ResultTags(`group:"visibility"`),
		),
		fx.Annotate(
			func(m *monitor.ScreensaverMonitor) domain.VisibilitySource { return m },
			fx.ResultTags(`group:"visibility"`),
		),

		fx.Annotate(
			scheduler.NewScheduler,
			fx.ParamTags(``, ``, ``, ``, `group:"visibility"`),
		),
		func(s *scheduler.Scheduler) server.Rotation { return s },

		processor.NewPosterProcessor,
		func(p *processor.PosterProcessor) domain.PosterRenderer { return p },
		server.NewServer,
	),

	// Lifecycle hooks
	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(AppOptions)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start the application
	if err := app.Start(ctx); err != nil {
		panic(err)
	}

	// Wait for interrupt signal
	<-ctx.Done()

	// Stop the application gracefully
	if err := app.Stop(context.Background()); err != nil {
		panic(err)
	}
}

// newLogger creates a new zap logger instance; BACKDROP_DEBUG=1 switches to
// the development config
func newLogger() (*zap.Logger, error) {
	if os.Getenv("BACKDROP_DEBUG") == "1" {
		return zap.NewDevelopment()
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

type hookParams struct {
	fx.In

	Logger    *zap.Logger
	Config    domain.Config
	Factory   *player.Factory
	Hub       *hub.Hub
	Monitor   *monitor.ScreensaverMonitor
	Scheduler *scheduler.Scheduler
	Posters   *processor.PosterProcessor
	Server    *server.Server
}

// registerHooks sets up application lifecycle hooks. fx stops them in
// reverse order: HTTP first, then the rotation, then its sources.
func registerHooks(lc fx.Lifecycle, p hookParams) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := p.Posters.Generate(p.Config.Playlist()); err != nil {
				// Posters are also rendered on demand
				p.Logger.Warn("Failed to pre-generate posters", zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Factory.Close()
			p.Logger.Info("Shutting down")
			return nil
		},
	})

	lc.Append(fx.Hook{
		OnStart: p.Hub.Start,
		OnStop:  p.Hub.Stop,
	})

	lc.Append(fx.Hook{
		OnStart: p.Monitor.Start,
		OnStop:  p.Monitor.Stop,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.Scheduler.Start(ctx); err != nil {
				return err
			}
			go p.Hub.Forward(p.Scheduler.Events())
			return nil
		},
		OnStop: p.Scheduler.Stop,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.Server.Start(ctx); err != nil {
				return err
			}
			p.Logger.Info("Backdrop started")
			return nil
		},
		OnStop: p.Server.Stop,
	})
}
