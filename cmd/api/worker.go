package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"signapi/internal/database"
	"signapi/internal/finalize"
	"signapi/internal/repository/postgres"
	"signapi/internal/storage"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume envelope finalization tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.shutdown()
		cfg, log := rt.cfg, rt.log

		db, err := database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		objects, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return fmt.Errorf("init object storage: %w", err)
		}

		store := postgres.NewStore(db)
		archiver := finalize.NewArchiver(store, objects, log)

		var rec *finalize.Reconciler
		var sched *asynq.Scheduler
		if cfg.Worker.ReconcileInterval > 0 {
			queue := asynq.NewClient(finalize.RedisConnOpt(newRedis(cfg.Redis)))
			defer queue.Close()
			rec = finalize.NewReconciler(store, objects, finalize.NewEnqueuer(queue, log), cfg.Worker.ReconcileLookback, log)
			sched, err = finalize.NewScheduler(finalize.RedisConnOpt(newRedis(cfg.Redis)), cfg.Worker.ReconcileInterval, log)
			if err != nil {
				return err
			}
		}

		srv, mux := finalize.NewServer(finalize.RedisConnOpt(newRedis(cfg.Redis)), cfg.Worker.Concurrency, archiver, rec, log)
		if err := srv.Start(mux); err != nil {
			return fmt.Errorf("start worker: %w", err)
		}
		if sched != nil {
			if err := sched.Start(); err != nil {
				srv.Shutdown()
				return fmt.Errorf("start reconcile scheduler: %w", err)
			}
		}
		log.Info("finalize worker started",
			zap.Int("concurrency", cfg.Worker.Concurrency),
			zap.Duration("reconcile_interval", cfg.Worker.ReconcileInterval),
		)

		<-ctx.Done()
		if sched != nil {
			sched.Shutdown()
		}
		srv.Shutdown()
		log.Info("finalize worker stopped")
		return nil
	},
}
