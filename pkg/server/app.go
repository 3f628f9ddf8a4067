package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"FxCockpit/internal/scheduler"
	"FxCockpit/internal/services/alerts"
	"FxCockpit/internal/usecase"
	"FxCockpit/pkg/config"
	xhttp "FxCockpit/pkg/http"
	pkgkafka "FxCockpit/pkg/kafka"
	applogger "FxCockpit/pkg/logger"
)

// Components is everything the App starts and stops. Consumer, BarsHandler
// and Collector are nil when their upstream is not configured.
type Components struct {
	Config      *config.Config
	Logger      *applogger.Logger
	HTTP        *xhttp.Server
	Scheduler   *scheduler.Scheduler
	Analytics   *usecase.Analytics
	Alerts      *alerts.Engine
	Consumer    *pkgkafka.Consumer
	BarsHandler pkgkafka.MessageHandler
	Collector   *usecase.QuoteCollector
}

// App encapsulates the entire application lifecycle.
type App struct {
	Components
	log *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(c Components) *App {
	return &App{Components: c, log: c.Logger.With("app")}
}

// Run starts the application and blocks until interrupted or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.start(ctx); err != nil {
		a.shutdown()
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	a.shutdown()
	return nil
}

func (a *App) start(ctx context.Context) error {
	if err := a.Alerts.Load(ctx); err != nil {
		return fmt.Errorf("alerts: %w", err)
	}
	a.log.Info("alert rules loaded", applogger.Int("count", len(a.Alerts.List())))

	a.Analytics.Restore(ctx)

	if a.Consumer != nil && a.BarsHandler != nil {
		a.Consumer.RegisterHandler(a.BarsHandler)
		if err := a.Consumer.Start(ctx); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
	}

	if a.Collector != nil {
		a.Collector.Start(ctx)
		a.log.Info("quote collector started", applogger.String("symbol", a.Config.Instrument.Symbol))
	}

	a.Scheduler.Start(ctx)

	if err := a.HTTP.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// shutdown stops producers of work first, then the HTTP server.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.Scheduler.Stop()

	if a.Collector != nil {
		if err := a.Collector.Stop(); err != nil {
			a.log.Warn("quote collector stop error", applogger.Error(err))
		}
	}

	if a.Consumer != nil {
		if err := a.Consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if err := a.HTTP.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	a.log.Info("shutdown complete")
	// flush pending error digests while the producer is still open
	a.Logger.RemoveCollector()
}
