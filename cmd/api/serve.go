package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"signapi/internal/config"
	"signapi/internal/database"
	"signapi/internal/database/migration"
	"signapi/internal/finalize"
	"signapi/internal/http/handler"
	"signapi/internal/http/middleware"
	"signapi/internal/notify"
	"signapi/internal/repository"
	"signapi/internal/repository/postgres"
	redisrepo "signapi/internal/repository/redis"
	"signapi/internal/service"
	"signapi/internal/signing"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signing HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.shutdown()
		return serve(ctx, rt.cfg, rt.log)
	},
}

func newRedis(c config.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
}

func serve(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// The asynq client owns rdb and closes it.
	rdb := newRedis(cfg.Redis)
	queue := asynq.NewClient(finalize.RedisConnOpt(rdb))
	defer queue.Close()

	var tokens repository.TwoFactorRepository
	switch cfg.Signing.TwoFactorStore {
	case "redis":
		tokens = redisrepo.NewTwoFactorRedis(rdb)
	default:
		tokens = postgres.NewTwoFactorPostgres(db)
	}

	var notifier service.Notifier
	if cfg.AMQP.URL != "" {
		conn, err := notify.Dial(cfg.AMQP)
		if err != nil {
			return err
		}
		defer conn.Close()
		notifier = notify.NewNotifier(conn.Channel, cfg.AMQP.Exchange, log)
	} else {
		log.Warn("AMQP_URL not set; recipient notifications disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register signing metrics: %w", err)
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	store := postgres.NewStore(db)
	twoFactor := service.NewTwoFactorService(store, tokens, notifier, cfg.Signing.TwoFactorTTL, log)
	signingSvc := service.NewSigningService(
		store,
		signing.NewAuthPolicy(twoFactor),
		service.NewTemplateMaterializer(),
		finalize.NewEnqueuer(queue, log),
		notifier,
		log,
		service.WithMetrics(metrics),
	)

	app := fiber.New(fiber.Config{
		AppName:               "signapi",
		DisableStartupMessage: true,
		ErrorHandler:          handler.ErrorHandler(log),
	})
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())

	handler.RegisterRoutes(app, handler.Deps{
		DB:        db,
		Signing:   signingSvc,
		TwoFactor: twoFactor,
		Gatherer:  reg,
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	})

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error("http shutdown failed", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	log.Info("http server listening", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	return nil
}
