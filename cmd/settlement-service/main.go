package main

import (
	"context"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	shttp "github.com/radieske/sports-bet-settlement/internal/settlement-service/http"
	"github.com/radieske/sports-bet-settlement/internal/settlement-service/notify"
	"github.com/radieske/sports-bet-settlement/internal/settlement-service/repo"
	"github.com/radieske/sports-bet-settlement/internal/settlement-service/settler"
	"github.com/radieske/sports-bet-settlement/internal/settlement-service/stats"
	"github.com/radieske/sports-bet-settlement/internal/settlement-service/ws"
	sharedcache "github.com/radieske/sports-bet-settlement/internal/shared/cache"
	"github.com/radieske/sports-bet-settlement/internal/shared/config"
	"github.com/radieske/sports-bet-settlement/internal/shared/kafka"
	"github.com/radieske/sports-bet-settlement/internal/shared/logger"
	"github.com/radieske/sports-bet-settlement/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	// Inicializa logger estruturado
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("store", cfg.StoreDriver), zap.String("env", cfg.Env))

	if cfg.SettlementSecret == "" {
		log.Warn("SETTLEMENT_SECRET is empty, every settlement call will be rejected")
	}

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Ledger/saldos: Postgres em produção, SQLite em dev local
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

	// Producer do evento bet_settled (chave = betId)
	writer := kafka.NewWriter(cfg.Brokers(), cfg.TopicBetSettled)
	defer writer.Close()

	m := metrics.NewSettlement(prometheus.DefaultRegisterer)

	svc := &settler.Settler{
		Log:        log,
		Store:      store,
		Notifier:   notify.NewRedisBroadcaster(redisClient, cfg.RedisBalanceChannel),
		Events:     notify.NewKafkaPublisher(writer, cfg.TopicBetSettled),
		Stats:      stats.NewRedisStats(redisClient),
		Actor:      cfg.ServiceName,
		OnSettled:  m.OnSettled,
		OnAdjusted: m.OnAdjusted,
		OnError:    m.OnError,
		Observe:    m.Observe,
	}

	// WebSocket de saldo: o hub recebe as mudanças via Redis Pub/Sub
	hub := ws.NewHub(func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(cfg.CORSOrigins, origin)
	}, log)
	if err := ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisBalanceChannel, hub, log); err != nil {
		log.Fatal("redis subscribe", zap.Error(err))
	}

	api := shttp.NewServer(log, svc, store, shttp.Options{
		Secret:      cfg.SettlementSecret,
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
		CORSOrigins: cfg.CORSOrigins,
		TokenTTL:    cfg.WSTokenTTL,
		WS:          hub.HandleWS,
	})
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8084
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Servidor de métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, prometheus.DefaultGatherer, map[string]metrics.HealthFunc{
		"store": store.Ping,
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}, log)

	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
