package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"garagehub/internal/config"
	"garagehub/internal/events"
	apphttp "garagehub/internal/http"
	"garagehub/internal/http/handlers"
	"garagehub/internal/jobs"
	applog "garagehub/internal/log"
	"garagehub/internal/repos"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		applog.L().Fatal("config.load", zap.Error(err))
	}

	// Optional file logging
	writers := []io.Writer{os.Stdout}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			applog.L().Warn("log.file.open", zap.String("path", cfg.LogFile), zap.Error(err))
		} else {
			defer f.Close()
			writers = append(writers, f)
		}
	}
	if err := applog.Init(cfg.LogLevel, cfg.LogJSON, writers...); err != nil {
		applog.L().Fatal("log.init", zap.Error(err))
	}
	defer applog.Sync()
	logger := applog.L()
	logger.Info("config.loaded",
		zap.String("app_env", cfg.AppEnv),
		zap.String("port", cfg.Port),
		zap.String("db_dsn", cfg.DBDSN),
		zap.String("log_file", cfg.LogFile),
		zap.Bool("kafka", cfg.Kafka.Enabled()),
	)

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		logger.Fatal("db.open", zap.Error(err))
	}
	defer db.Close()

	var pub events.Publisher = events.Noop{}
	if cfg.Kafka.Enabled() {
		producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, cfg.Kafka.ProducerConfig())
		if err != nil {
			logger.Fatal("kafka.producer", zap.Error(err), zap.Strings("brokers", cfg.Kafka.Brokers))
		}
		kp := events.NewKafkaPublisher(producer, cfg.Kafka.Topic, logger)
		defer kp.Close()
		pub = kp
		logger.Info("kafka.enabled", zap.String("topic", cfg.Kafka.Topic))
	}

	deps := handlers.NewDeps(db, cfg, pub)
	app := apphttp.NewApp(cfg, deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go jobs.NewQuoteExpiry(deps.Sourcing, cfg.QuoteExpiryInterval, logger).Run(ctx)

	go func() {
		<-ctx.Done()
		logger.Info("server.shutdown")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("server.shutdown", zap.Error(err))
		}
	}()

	logger.Info("server.start", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("server.listen", zap.Error(err))
	}
}
