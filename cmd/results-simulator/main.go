package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-settlement/internal/results-simulator/generator"
	"github.com/radieske/sports-bet-settlement/internal/settlement-service/repo"
	"github.com/radieske/sports-bet-settlement/internal/settlement-service/stats"
	sharedcache "github.com/radieske/sports-bet-settlement/internal/shared/cache"
	"github.com/radieske/sports-bet-settlement/internal/shared/config"
	"github.com/radieske/sports-bet-settlement/internal/shared/kafka"
	"github.com/radieske/sports-bet-settlement/internal/shared/logger"
	"github.com/radieske/sports-bet-settlement/internal/shared/metrics"
)

// Métricas Prometheus do simulador
var (
	betsSeeded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulator_bets_seeded_total",
		Help: "apostas pending criadas",
	})
	requestsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulator_settlement_requests_total",
		Help: "pedidos de liquidação publicados por resultado",
	}, []string{"result"})
)

// Simula o fornecedor de resultados: cria uma aposta pending e publica o resultado em settlement_requests
func main() {
	cfg := config.LoadService("results-simulator")
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
	userStats := stats.NewRedisStats(redisClient)

	writer := kafka.NewWriter(cfg.Brokers(), cfg.TopicSettlementRequests)
	defer writer.Close()

	prometheus.MustRegister(betsSeeded, requestsPublished)
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, prometheus.DefaultGatherer, map[string]metrics.HealthFunc{
		"store": store.Ping,
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}, log)
	defer metricsSrv.Close()

	gen := generator.New(time.Now().UnixNano(), cfg.SimUsers)
	ticker := time.NewTicker(cfg.SimInterval)
	defer ticker.Stop()

	log.Info("results simulator running",
		zap.String("topic", cfg.TopicSettlementRequests), zap.Duration("interval", cfg.SimInterval))
	for {
		select {
		case <-ctx.Done():
			log.Info("results simulator stopped")
			return
		case <-ticker.C:
		}

		bet := gen.Bet()
		id, err := store.CreateBet(ctx, &bet)
		if err != nil {
			log.Warn("seed bet failed", zap.Error(err))
			continue
		}
		betsSeeded.Inc()
		if err := userStats.RecordPlaced(ctx, bet.UserID); err != nil {
			log.Warn("stats update failed", zap.String("bet_id", id), zap.Error(err))
		}

		req := gen.Result(bet)
		b, _ := json.Marshal(req)
		if err := kafka.WriteJSON(ctx, writer, id, b); err != nil {
			log.Warn("publish settlement request failed", zap.String("bet_id", id), zap.Error(err))
			continue
		}
		requestsPublished.WithLabelValues(req.Result).Inc()
		log.Debug("settlement request published", zap.String("bet_id", id), zap.String("result", req.Result))
	}
}
