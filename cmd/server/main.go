package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AEY-IP/aey-estimate-app-sub001/internal/config"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/db"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/export"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/logger"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/migrations"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/seed"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("failed to open database", "error", err, "path", cfg.DBPath)
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		log.Fatal("failed to run database migrations", "error", err)
	}

	stats, err := seed.Run(database, seed.Config{Demo: cfg.SeedDemo})
	if err != nil {
		log.Fatal("failed to seed database", "error", err)
	}
	log.Info("startup seed done", "inserts", stats.Inserts, "updates", stats.Updates)

	st := store.New(database)
	srv := newServer(st, export.NewService(st, st, st, log), log, cfg.Currency)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("listening", "addr", httpServer.Addr, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
