package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/config"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/db"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/httpx"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/kafkax"
	otelx "github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/otel"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/runtime"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/events"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/handlers"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/notify"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/pipeline"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/policy"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/publisher"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/scheduler"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/storage"
)

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	service := config.String("SERVICE_NAME", "annotation-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	mode, err := events.ParseMode(config.String("EVENT_PROCESSING_MODE", ""))
	if err != nil {
		logger.Error("invalid event processing mode", "err", err)
		panic(err)
	}
	logger.Info("event processing mode selected", "mode", mode.String())

	var rdb *redis.Client
	redisAddr := config.String("REDIS_ADDR", "")
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
		defer rdb.Close()
	}

	var channels []notify.Channel
	if rdb != nil {
		channels = append(channels, notify.NewRedisChannel(rdb, config.String("NOTIFY_REDIS_PREFIX", "notify:user:")))
	}
	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		kafkaChannel := notify.NewKafkaChannel(brokers, config.String("KAFKA_NOTIFY_TOPIC", "annotation.notification.v1"))
		defer func() { _ = kafkaChannel.Close() }()
		channels = append(channels, kafkaChannel)
	}
	var channel notify.Channel
	switch len(channels) {
	case 0:
		logger.Warn("no notification channel configured, events will be marked published without delivery")
		channel = notify.Nop{}
	case 1:
		channel = channels[0]
	default:
		channel = notify.NewFanout(channels...)
	}

	eventStore := events.NewPostgresStore(pool)
	recorder := events.NewRecorder(eventStore)
	txm := db.NewTxManager(pool, logger)

	pub := publisher.New(txm, eventStore, channel, logger, publisher.Config{
		BatchSize: config.Int("PUBLISH_BATCH_SIZE", 50),
	})
	worker := publisher.NewWorker(pub, logger, config.Int("PUBLISH_TRIGGER_BUFFER", 4))

	switch mode {
	case events.ModePipeline:
		go worker.Run(ctx)
		if config.Bool("SCHEDULER_SAFETY_NET", true) {
			safetyNet := scheduler.New(pub, logger, config.Duration("SCHEDULER_SAFETY_INTERVAL", time.Minute))
			go safetyNet.Run(ctx)
		}
	case events.ModeCron:
		sweep := scheduler.New(pub, logger, config.Duration("SCHEDULER_INTERVAL", 10*time.Second))
		go sweep.Run(ctx)
	}

	dispatcher := pipeline.NewDispatcher(
		pipeline.NewDeliveryTrigger(mode, worker, logger),
		pipeline.NewTransactionScope(txm),
	)

	var policyProvider policy.Provider = policy.NewAllowAll()
	if policyURL := config.String("POLICY_URL", ""); policyURL != "" {
		policyProvider = policy.NewWebhookProvider(policyURL, config.String("POLICY_TOKEN", ""))
	}

	projectRepo := storage.NewProjectRepository(pool)
	subjectRepo := storage.NewSubjectRepository(pool)
	labelRepo := storage.NewLabelRepository(pool)
	labelerRepo := storage.NewLabelerRepository(pool)
	assignmentRepo := storage.NewAssignmentRepository(pool)

	projectHandler := handlers.NewProjectHandler(dispatcher, projectRepo, recorder, policyProvider, logger, jwtSecret)
	subjectHandler := handlers.NewSubjectHandler(dispatcher, subjectRepo, policyProvider, logger, jwtSecret)
	labelHandler := handlers.NewLabelHandler(dispatcher, labelRepo, policyProvider, logger, jwtSecret)
	labelerHandler := handlers.NewLabelerHandler(dispatcher, labelerRepo, recorder, logger, jwtSecret)
	assignmentHandler := handlers.NewAssignmentHandler(dispatcher, assignmentRepo, subjectRepo, projectRepo, recorder, policyProvider, logger, jwtSecret)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	if rdb != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	mux.HandleFunc("/api/v1/labelers/register", labelerHandler.Register)
	mux.HandleFunc("/api/v1/labelers/login", labelerHandler.Login)
	mux.HandleFunc("/api/v1/labelers/me", labelerHandler.Me)
	mux.HandleFunc("/api/v1/projects", projectHandler.Collection)
	mux.HandleFunc("/api/v1/projects/get", projectHandler.Get)
	mux.HandleFunc("/api/v1/projects/delete", projectHandler.Delete)
	mux.HandleFunc("/api/v1/subjects", subjectHandler.Collection)
	mux.HandleFunc("/api/v1/subjects/delete", subjectHandler.Delete)
	mux.HandleFunc("/api/v1/labels", labelHandler.Collection)
	mux.HandleFunc("/api/v1/labels/delete", labelHandler.Delete)
	mux.HandleFunc("/api/v1/assignments", assignmentHandler.Assign)
	mux.HandleFunc("/api/v1/assignments/list", assignmentHandler.List)
	mux.HandleFunc("/api/v1/assignments/delete", assignmentHandler.Unassign)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(parseList(config.String("CORS_ALLOWED_ORIGINS", "*"))),
		httpx.WithBodyLimit(int64(config.Int("MAX_BODY_BYTES", 1<<20))),
	}
	if rdb != nil {
		limiter := httpx.NewRedisRateLimiter(rdb,
			config.Int("RATE_LIMIT", 120),
			config.Duration("RATE_LIMIT_WINDOW", time.Minute),
			service)
		middlewares = append(middlewares, limiter.Middleware(logger))
	}
	handler := httpx.Chain(mux, middlewares...)
	handler = otelhttp.NewHandler(handler, "annotation")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
