package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dinein-order-services/internal/config"
	"dinein-order-services/internal/db"
	httpapi "dinein-order-services/internal/http"
	"dinein-order-services/internal/idempotency"
	"dinein-order-services/internal/logger"
	"dinein-order-services/internal/queue"
	"dinein-order-services/internal/settlement"
	"dinein-order-services/internal/settlement/pgstore"
	"dinein-order-services/internal/ws"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// keyStore backs both payment idempotency and event dedupe.
type keyStore interface {
	settlement.IdempotencyStore
	queue.Deduper
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
			log.Fatal("database migration failed", zap.Error(err))
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	settings := pgstore.NewSettingsReader(pool, settlement.RestaurantSettings{DefaultGSTPercentage: cfg.DefaultGSTPercentage})
	svc := settlement.NewService(pgstore.NewRunner(pool), settings, log)
	svc.Audit = pgstore.NewAuditLog(pool)
	svc.IdempotencyTTL = cfg.IdempotencyTTL

	var keys keyStore
	if cfg.RedisURL != "" {
		client, err := idempotency.Connect(ctx, cfg.RedisURL)
		if err != nil {
			if cfg.IsProduction() {
				log.Fatal("redis connection failed", zap.Error(err))
			}
			log.Warn("redis connection failed; falling back to in-memory idempotency", zap.Error(err))
		} else {
			defer client.Close()
			keys = idempotency.NewRedisStore(client, "")
			log.Info("idempotency store ready", zap.String("backend", "redis"))
		}
	}
	if keys == nil {
		memory := idempotency.NewMemoryStore()
		defer memory.Close()
		keys = memory
		log.Info("idempotency store ready", zap.String("backend", "memory"))
	}
	svc.Idempotency = keys

	wsServer := ws.New(svc, log, cfg)
	notifiers := settlement.Notifiers{wsServer}

	queueClient := connectQueue(cfg, log)
	if queueClient != nil {
		defer queueClient.Close()
		notifiers = append(notifiers, queue.NewEventPublisher(queueClient))

		if cfg.RabbitMQWorkerMode == "daemon" {
			log.Info("event translator enabled", zap.String("mode", "daemon"))
			translator := queue.NewTranslator(queueClient, keys, log)
			go func() {
				err := queueClient.ConsumeWithRetry(ctx, queue.EventsQueue, translator.Handle, 5, 5*time.Second)
				if err != nil && ctx.Err() == nil {
					log.Error("consumer stopped", zap.Error(err))
				}
			}()
		} else {
			log.Info("event translator disabled", zap.String("mode", cfg.RabbitMQWorkerMode))
		}
	} else {
		log.Info("settlement events limited to websocket (RABBITMQ_URL is empty or unreachable)")
	}
	svc.Events = notifiers

	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(svc, settings, log, cfg, wsServer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("settlement api ready", zap.String("base", "/api/pos"))
		log.Info("settlement ws ready", zap.String("base", "/ws/orders"))
		log.Info("settlement service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}

// connectQueue returns nil when RabbitMQ is not configured or, outside
// production, when it cannot be reached.
func connectQueue(cfg config.Config, log *zap.Logger) *queue.Client {
	if cfg.RabbitMQURL == "" {
		return nil
	}

	qc, err := queue.New(cfg.RabbitMQURL)
	if err != nil {
		if cfg.IsProduction() {
			log.Fatal("rabbitmq connection failed", zap.Error(err))
		}
		log.Warn("rabbitmq connection failed; continuing without events", zap.Error(err))
		return nil
	}

	topologies := []struct {
		name   string
		ensure func(*queue.Client) error
	}{
		{"events", queue.EnsureEventsTopology},
		{"table_jobs", queue.EnsureTableJobsTopology},
	}
	for _, topology := range topologies {
		if err := topology.ensure(qc); err != nil {
			if cfg.IsProduction() {
				log.Fatal("rabbitmq topology failed", zap.String("topology", topology.name), zap.Error(err))
			}
			log.Warn("rabbitmq topology failed; continuing without events", zap.String("topology", topology.name), zap.Error(err))
			_ = qc.Close()
			return nil
		}
	}

	log.Info("rabbitmq enabled", zap.String("eventsQueue", queue.EventsQueue))
	return qc
}
