package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-settlement/internal/settlement-service/consumer"
	"github.com/radieske/sports-bet-settlement/internal/settlement-service/notify"
	"github.com/radieske/sports-bet-settlement/internal/settlement-service/repo"
	"github.com/radieske/sports-bet-settlement/internal/settlement-service/settler"
	"github.com/radieske/sports-bet-settlement/internal/settlement-service/stats"
	sharedcache "github.com/radieske/sports-bet-settlement/internal/shared/cache"
	"github.com/radieske/sports-bet-settlement/internal/shared/config"
	"github.com/radieske/sports-bet-settlement/internal/shared/kafka"
	"github.com/radieske/sports-bet-settlement/internal/shared/logger"
	"github.com/radieske/sports-bet-settlement/internal/shared/metrics"
)

func main() {
	cfg := config.LoadService("settlement-worker")
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, conn, err := repo.Open(ctx, cfg.StoreDriver, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		log.Fatal("store open", zap.Error(err))
	}
	defer conn.Close()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Consumer group settlement-worker: commit manual após liquidar ou enviar à DLQ
	reader := kafka.NewReader(cfg.Brokers(), cfg.TopicSettlementRequests, "settlement-worker")
	defer reader.Close()

	events := kafka.NewWriter(cfg.Brokers(), cfg.TopicBetSettled)
	defer events.Close()
	dlq := kafka.NewWriter(cfg.Brokers(), cfg.TopicSettlementRequestsDLQ)
	defer dlq.Close()

	sm := metrics.NewSettlement(prometheus.DefaultRegisterer)
	wm := metrics.NewWorker(prometheus.DefaultRegisterer)

	svc := &settler.Settler{
		Log:        log,
		Store:      store,
		Notifier:   notify.NewRedisBroadcaster(redisClient, cfg.RedisBalanceChannel),
		Events:     notify.NewKafkaPublisher(events, cfg.TopicBetSettled),
		Stats:      stats.NewRedisStats(redisClient),
		Actor:      cfg.ServiceName,
		OnSettled:  sm.OnSettled,
		OnAdjusted: sm.OnAdjusted,
		OnError:    sm.OnError,
		Observe:    sm.Observe,
	}

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		DLQ:         dlq,
		Settler:     svc,
		MaxAttempts: 3,
		Backoff:     200 * time.Millisecond,
		OnConsumed:  wm.OnConsumed,
		OnDLQ:       wm.OnDLQ,
		OnError:     sm.OnError,
	}

	// Servidor HTTP para métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, prometheus.DefaultGatherer, map[string]metrics.HealthFunc{
		"store": store.Ping,
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}, log)
	defer metricsSrv.Close()

	log.Info("settlement-worker started", zap.String("topic", cfg.TopicSettlementRequests))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("settlement-worker stopped")
}
