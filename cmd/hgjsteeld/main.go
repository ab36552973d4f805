// Command hgjsteeld runs the steel bar cutting optimizer's HTTP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/config"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/httpapi"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/task"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "hgjsteeld: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := hclog.New(&hclog.LoggerOptions{
		Name:  "hgjsteeld",
		Level: hclog.LevelFromString(cfg.LogLevel),
	})

	constraints, err := engine.NewConstraints(cfg.WasteThreshold, cfg.MaxWeldingSegments, cfg.TargetLossRate, cfg.TimeLimit)
	if err != nil {
		return fmt.Errorf("invalid constraint defaults: %w", err)
	}

	supervisor, err := task.NewSupervisor(log)
	if err != nil {
		return fmt.Errorf("starting task supervisor: %w", err)
	}

	server := httpapi.New(log, supervisor, constraints)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.CleanupLoop(ctx, 1*time.Hour)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
	case <-sigCh:
		log.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
	}

	return nil
}
