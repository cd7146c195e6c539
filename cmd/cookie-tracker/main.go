package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/cookie-tracker/internal/adapter/storage"
	"github.com/rl1809/cookie-tracker/internal/config"
	"github.com/rl1809/cookie-tracker/internal/core/service"
	"github.com/rl1809/cookie-tracker/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel).
		With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize MySQL
	dsn, err := storage.MySQLDSN(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("mysql dsn")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("open mysql")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping mysql")
	}
	if cfg.MigrateOnStart {
		if err := storage.Migrate(dsn); err != nil {
			logger.Fatal().Err(err).Msg("migrate mysql")
		}
	}

	// Initialize Redis
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	reminders := storage.NewRedisAdapter(rdb, cfg.ReminderKeyPrefix)
	orders := service.NewOrderService(storage.NewMySQLAdapter(db), reminders, logger)

	a := &app{
		orders:       orders,
		queue:        reminders,
		pollInterval: cfg.ReminderPollInterval,
		log:          logger,
		out:          os.Stdout,
		loc:          time.Local,
	}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
