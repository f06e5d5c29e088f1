package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "net/http/pprof"

	"github.com/pharmalink/pharmalink-api/config"
	"github.com/pharmalink/pharmalink-api/data"
	"github.com/pharmalink/pharmalink-api/logging"
	"github.com/pharmalink/pharmalink-api/scheduler"
	"github.com/pharmalink/pharmalink-api/server"
	"github.com/pharmalink/pharmalink-api/store"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.InitLogger("logs", cfg.LogRetentionWeeks)

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logging.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancelPing()
		logging.Error("Database is unreachable", "error", err)
		os.Exit(1)
	}
	cancelPing()

	st := store.New(db)
	container := data.NewContainer()
	container.SetServerStartTime(time.Now())

	sched := scheduler.New(container, st, cfg.RefreshEvery, cfg.CatalogLimit)
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start catalog scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	srv := server.New(cfg, container, st)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Shutdown failed", "error", err)
	}
}
