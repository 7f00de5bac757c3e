package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mxforum/mxforum/config"
	"github.com/mxforum/mxforum/routes"
	"github.com/mxforum/mxforum/store"
	"github.com/mxforum/mxforum/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	db := config.InitDatabase(config.Models()...)
	rc := utils.InitRedis(cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := routes.SetupRouter(db, rc, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	utils.StartCounterReconciler(ctx, time.Duration(cfg.ReconcileIntervalMinutes)*time.Minute, func(ctx context.Context) error {
		_, err := store.Reconcile(ctx, db)
		return err
	})

	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	closeRedis := func() {
		if rc != nil {
			_ = rc.Close()
		}
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(ctx, ":"+cfg.AppPort, r, closeDB, closeRedis); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
