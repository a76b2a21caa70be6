package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"hazardwatch/internal/adapter/httpapi"
	kafkaadapter "hazardwatch/internal/adapter/kafka"
	"hazardwatch/internal/alert"
	"hazardwatch/internal/config"
	"hazardwatch/internal/feed"
	"hazardwatch/internal/observability"
	"hazardwatch/internal/scheduler"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	sched := scheduler.New(clock, logger, metrics, cfg.FetchTimeout)
	registerFeeds(sched, cfg, logger)

	subs := alert.NewRegistry()
	intentWriter := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaIntentTopic, logger)
	engine := alert.NewEngine(subs, intentWriter, clock, logger, metrics, alert.Options{
		DedupTTL:       cfg.DedupTTL,
		CooldownUrgent: cfg.CooldownUrgent,
		CooldownNormal: cfg.CooldownNormal,
	})
	alertReader := kafkaadapter.NewReader(cfg.KafkaBrokers, cfg.KafkaAlertTopic, cfg.KafkaGroupID, logger)

	srv := httpapi.NewServer(cfg.HTTPAddr, sched, subs, sched, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sched.Run(ctx)
	})
	g.Go(func() error {
		return alertReader.Run(ctx, engine)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		if err := alertReader.Close(); err != nil {
			logger.Error("alert reader close error", "error", err)
		}
		if err := intentWriter.Close(); err != nil {
			logger.Error("intent writer close error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// registerFeeds wires one adapter per hazard type into the scheduler. Each
// adapter gets its own client so breaker state stays per-feed.
func registerFeeds(sched *scheduler.Scheduler, cfg *config.Config, logger *slog.Logger) {
	newClient := func(name string, fs config.FeedSettings) *feed.Client {
		return feed.NewClient(name, cfg.FetchTimeout, fs.AuthHeader, fs.AuthValue, logger)
	}

	sched.Register(
		feed.NewSeismic(newClient("seismic", cfg.Seismic), cfg.Seismic.URL),
		cfg.Seismic.RefetchInterval, cfg.Seismic.StaleAfter)
	sched.Register(
		feed.NewRain(newClient("rain", cfg.RainSensor), cfg.RainSensor.URL),
		cfg.RainSensor.RefetchInterval, cfg.RainSensor.StaleAfter)
	sched.Register(
		feed.NewWildfire(newClient("wildfire", cfg.Wildfire), cfg.Wildfire.URL),
		cfg.Wildfire.RefetchInterval, cfg.Wildfire.StaleAfter)
	sched.Register(
		feed.NewAirQuality(newClient("air", cfg.AirQuality), cfg.AirQuality.URL),
		cfg.AirQuality.RefetchInterval, cfg.AirQuality.StaleAfter)
	sched.Register(
		feed.NewFlood(newClient("flood", cfg.Flood), cfg.Flood.URL),
		cfg.Flood.RefetchInterval, cfg.Flood.StaleAfter)
	sched.Register(
		feed.NewDrought(newClient("drought", cfg.Drought), cfg.Drought.URL),
		cfg.Drought.RefetchInterval, cfg.Drought.StaleAfter)
}
