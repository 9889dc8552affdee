package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/racewire/telemetry-hub/internal/collab"
	"github.com/racewire/telemetry-hub/internal/config"
	"github.com/racewire/telemetry-hub/internal/firewall"
	"github.com/racewire/telemetry-hub/internal/registry"
)

func main() {
	noColor := runtime.GOOS == "windows"
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: noColor, TimeFormat: zerolog.TimeFieldFormat}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	fw := firewall.New(cfg.FirewallTable, cfg.FirewallChain, log)

	champRepo := collab.NewMemChampionshipRepository()
	driverRepo := collab.NewMemDriverRepository()
	driverSvc := collab.NewMemDriverService(driverRepo)

	ports := registry.NewPortAllocator(cfg.PortRangeStart, cfg.PortRangeEnd, nil)
	reg := registry.New(log, fw, ports, champRepo, driverRepo, driverSvc)
	handlers := registry.NewHandlers(log, reg, registry.AllowAllAuthorizer{})

	router := mux.NewRouter()
	handlers.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("telemetryd: listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("telemetryd: http server failed")
		}
	}()

	<-stop
	log.Info().Msg("telemetryd: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := fw.CloseAll(ctx); err != nil {
		log.Error().Err(err).Msg("telemetryd: closing firewall rules on shutdown")
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("telemetryd: http server shutdown")
	}
}
