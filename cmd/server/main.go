package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"globe-flight/internal/airports"
	"globe-flight/internal/api"
	"globe-flight/internal/config"
	"globe-flight/internal/env"
	"globe-flight/internal/log"
	"globe-flight/internal/metrics"
	"globe-flight/internal/sim"
)

var (
	addr = flag.String("addr", "", "Address to listen on (overrides FLIGHTSIM_HTTP_ADDR)")
)

func main() {
	flag.Parse()

	lg := log.New(config.LogSettings(os.Getenv))
	defer lg.Close()

	cfg := config.Load(os.Getenv, lg)
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}

	if err := run(cfg, lg); err != nil {
		lg.Error("server exited", "error", err)
		lg.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config, lg *log.Logger) error {
	reg, err := loadAirports(cfg.AirportsFile)
	if err != nil {
		return err
	}
	lg.Info("airports loaded", "count", reg.Len(), "file", cfg.AirportsFile)

	m, err := metrics.New(nil)
	if err != nil {
		return err
	}

	session := sim.DefaultSessionConfig()
	session.Lighting = cfg.Lighting
	session.TrackInterval = cfg.TrackInterval
	session.Airports = reg
	if cfg.WindSpeed > 0 {
		// Wind is configured in km/h and applied in scene units.
		wind := env.FromSpeedAndDir(cfg.WindSpeed*session.Flight.SpeedScale, cfg.WindDirection)
		session.Effects = []env.Environment{wind}
	}

	simEngine := sim.New(sim.Config{
		TickHz:   cfg.TickHz,
		InputTTL: cfg.InputTTL,
		Session:  session,
		Logger:   lg,
		Metrics:  m,
	})

	server := api.NewServer(simEngine, api.Options{
		Airports:   reg,
		Metrics:    m,
		Logger:     lg,
		InputRPS:   cfg.InputRPS,
		InputBurst: cfg.InputBurst,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return simEngine.Run(ctx)
	})

	g.Go(func() error {
		lg.Info("starting HTTP server", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		lg.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	lg.Info("shutdown complete")
	return err
}

func loadAirports(path string) (*airports.Registry, error) {
	if path == "" {
		return airports.Default()
	}
	return airports.LoadFile(path)
}
