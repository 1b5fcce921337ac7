package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/Skotchmaster/edu_shop/internal/config"
	"github.com/Skotchmaster/edu_shop/internal/mykafka"
	"github.com/Skotchmaster/edu_shop/internal/notify"
	"github.com/Skotchmaster/edu_shop/internal/repo"
	"github.com/Skotchmaster/edu_shop/internal/service"
	httpserver "github.com/Skotchmaster/edu_shop/internal/transport/http"
	"github.com/Skotchmaster/edu_shop/pkg/db"
	"github.com/Skotchmaster/edu_shop/pkg/logging"
	loggingmw "github.com/Skotchmaster/edu_shop/pkg/middleware/logging"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, logger)

	store, gdb, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}

	checks := map[string]httpserver.Pinger{"database": store}

	var (
		carts repo.CartStore        = repo.NewMemoryCartStore()
		idem  repo.IdempotencyGuard = repo.NewMemoryIdempotency(cfg.IdempotencyTTL)
		rdb   *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalf("redis ping failed: %v", err)
		}
		carts = repo.NewRedisCartStore(rdb, cfg.CartTTL)
		idem = repo.NewRedisIdempotency(rdb, cfg.IdempotencyTTL)
		checks["redis"] = redisPinger{rdb}
	}

	var (
		pub  notify.Publisher = notify.LogPublisher{Log: logger.With("component", "events")}
		prod *mykafka.Producer
	)
	if len(cfg.KafkaBrokers) > 0 {
		prod, err = mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Fatalf("kafka init failed: %v", err)
		}
		pub = prod
	}
	events := notify.NewDispatcher(pub, cfg.NotifyWorkers, cfg.NotifyQueueSize, cfg.NotifyTimeout, logger)
	events.Start()

	topics := service.Topics{Orders: cfg.OrderEventsTopic, Users: cfg.UserEventsTopic}
	accounts := service.NewAccountService(store, events, topics)
	orders := service.NewOrderService(store, events, topics)
	coupons := service.NewCouponService(store)
	reports := service.NewReportService(store)
	checkout := service.NewCheckoutService(accounts, orders, coupons, carts, idem)

	if err := coupons.Seed(ctx, cfg.CouponTable); err != nil {
		log.Fatalf("coupon seed failed: %v", err)
	}

	gate, err := service.NewAdminService(cfg.AdminEmail, cfg.AdminPassword, cfg.AdminJWTSecret, cfg.AdminTokenTTL)
	if err != nil {
		log.Fatalf("admin gate init failed: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	if len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, httpserver.HeaderIdempotencyKey},
		}))
	}
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AccountHandler: &httpserver.AccountHTTP{Svc: accounts},
		CouponHandler:  &httpserver.CouponHTTP{Svc: coupons},
		OrderHandler:   &httpserver.OrderHTTP{Orders: orders, Checkout: checkout},
		CartHandler:    &httpserver.CartHTTP{Svc: checkout},
		AdminHandler:   &httpserver.AdminHTTP{Gate: gate, Orders: orders, Accounts: accounts, Reports: reports},
		HealthHandler:  &httpserver.HealthHTTP{Checks: checks},
		Gate:           gate,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http_server_started", "addr", srv.Addr, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting_down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server_error", "error", err)
	}
	events.Close()

	if prod != nil {
		if err := prod.Close(); err != nil {
			logger.Error("kafka_close_error", "error", err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis_close_error", "error", err)
		}
	}
	if gdb != nil {
		if err := db.Close(gdb); err != nil {
			logger.Error("db_close_error", "error", err)
		}
	}

	logger.Info("shutdown_complete")
}

func openStore(ctx context.Context, cfg config.ServiceConfig) (repo.Repository, *gorm.DB, error) {
	var (
		gdb *gorm.DB
		err error
	)
	switch cfg.StorageDriver {
	case "memory":
		return repo.NewMemoryRepo(), nil, nil
	case "sqlite":
		gdb, err = db.OpenSQLite(ctx, cfg.SQLitePath)
	case "postgres":
		gdb, err = db.Open(ctx, cfg.DatabaseURL)
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	if err != nil {
		return nil, nil, err
	}

	r := repo.NewGormRepo(gdb)
	if err := r.Migrate(ctx); err != nil {
		_ = db.Close(gdb)
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return r, gdb, nil
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
