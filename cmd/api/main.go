package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	svix "github.com/svix/svix-webhooks/go"

	"github.com/matcreates/tribe-sub001/internal/config"
	"github.com/matcreates/tribe-sub001/internal/entity"
	"github.com/matcreates/tribe-sub001/internal/infra/database"
	"github.com/matcreates/tribe-sub001/internal/infra/http/handlers"
	"github.com/matcreates/tribe-sub001/internal/infra/http/middleware"
	"github.com/matcreates/tribe-sub001/internal/infra/integration/resend"
	"github.com/matcreates/tribe-sub001/internal/infra/mail"
	"github.com/matcreates/tribe-sub001/internal/infra/queue"
	"github.com/matcreates/tribe-sub001/internal/infra/ratelimit"
	"github.com/matcreates/tribe-sub001/internal/infra/worker"
	"github.com/matcreates/tribe-sub001/internal/logging"
	"github.com/matcreates/tribe-sub001/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDBConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database unavailable")
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("rabbitmq unavailable")
	}
	defer rabbitMQ.Close()

	// Join rate limiting is shared through Redis when it is configured.
	var joinLimiter ratelimit.Limiter
	var redisPing handlers.Pinger
	if cfg.RedisURL != "" {
		rdb, err := ratelimit.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis unavailable")
		}
		defer rdb.Close()
		joinLimiter = ratelimit.NewRedisLimiter(rdb, "ratelimit:join:", cfg.JoinRateLimit, cfg.JoinRateWindow)
		redisPing = handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	} else {
		mem := ratelimit.NewMemoryLimiter(cfg.JoinRateLimit, cfg.JoinRateWindow)
		go mem.Janitor(ctx, 10*time.Minute)
		joinLimiter = mem
	}

	// 1. Repositories
	tenantRepo := database.NewTenantRepository(db)
	subscriberRepo := database.NewSubscriberRepository(db)
	campaignRepo := database.NewCampaignRepository(db)
	deliveryRepo := database.NewDeliveryRepository(db)
	replyRepo := database.NewReplyRepository(db)

	// 2. Gateways and adapters
	transport := mail.NewSMTPTransport(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass)
	bulkSender := mail.NewBulkSender(transport, cfg.MailFromAddress, cfg.InboundDomain, cfg.SendConcurrency, logger)
	verificationSender := mail.NewVerificationSender(transport, cfg.MailFromAddress)
	producer := queue.NewProducer(rabbitMQ.Ch)
	resendClient := resend.NewClient(cfg.ResendAPIKey, cfg.ResendAPIURL)

	webhook, err := svix.NewWebhook(cfg.InboundWebhookSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid inbound webhook secret")
	}

	// 3. Use cases
	policy := entity.DefaultPolicy()
	resolver := usecase.NewResolveRecipientsUseCase(subscriberRepo, logger)
	dispatchUC := usecase.NewDispatchCampaignsUseCase(
		campaignRepo, tenantRepo, deliveryRepo, resolver, bulkSender,
		usecase.DispatchConfig{
			BaseURL:    cfg.BaseURL,
			ClaimLimit: cfg.ClaimBatchLimit,
			BatchSize:  cfg.SendBatchSize,
		},
		logger,
	)
	createCampaignUC := usecase.NewCreateCampaignUseCase(campaignRepo, tenantRepo, resolver, dispatchUC, cfg.WeeklyCampaignLimit, logger)
	manageCampaignUC := usecase.NewManageCampaignUseCase(campaignRepo, replyRepo, cfg.MaxDispatchAttempts, logger)
	reclaimUC := usecase.NewReclaimStaleUseCase(campaignRepo, cfg.StaleProcessingAfter, cfg.MaxDispatchAttempts, logger)
	ingestReplyUC := usecase.NewIngestReplyUseCase(campaignRepo, replyRepo, cfg.InboundDomain, logger)
	joinUC := usecase.NewJoinTribeUseCase(tenantRepo, subscriberRepo, verificationSender, policy, cfg.BaseURL, logger)
	verifyUC := usecase.NewVerifySubscriberUseCase(tenantRepo, subscriberRepo, policy, logger)
	unsubscribeUC := usecase.NewUnsubscribeUseCase(subscriberRepo, logger)

	// 4. Workers
	consumeCh, err := rabbitMQ.Conn.Channel()
	if err != nil {
		logger.Fatal().Err(err).Msg("open consumer channel")
	}
	replyWorker := queue.NewWorker(consumeCh, ingestReplyUC, logger)
	go func() {
		if err := replyWorker.Start(ctx, queue.QueueName); err != nil {
			logger.Error().Err(err).Msg("reply worker stopped")
		}
	}()

	if cfg.DispatchInterval > 0 {
		go worker.NewDispatchWorker(dispatchUC, cfg.DispatchInterval, logger).Start(ctx)
	}
	if cfg.WatchdogInterval > 0 {
		go worker.NewStaleProcessingWorker(reclaimUC, cfg.WatchdogInterval, logger).Start(ctx)
	}

	// 5. Handlers
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ.Healthy, redisPing)
	campaignHandler := handlers.NewCampaignHandler(createCampaignUC, manageCampaignUC, logger)
	cronHandler := handlers.NewCronHandler(dispatchUC, reclaimUC, cfg.CronSecret, logger)
	inboundHandler := handlers.NewInboundWebhookHandler(webhook, resendClient, producer, logger)
	trackingHandler := handlers.NewTrackingHandler(manageCampaignUC, logger)
	subscriberHandler := handlers.NewSubscriberHandler(joinUC, verifyUC, unsubscribeUC, logger)

	// 6. Router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.BaseURL, "http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.RateLimit(joinLimiter, logger)).Post("/join", subscriberHandler.HandleJoin)
		r.Get("/verify", subscriberHandler.HandleVerify)
		r.Get("/unsubscribe", subscriberHandler.HandleUnsubscribe)
		r.Post("/unsubscribe", subscriberHandler.HandleUnsubscribe)
		r.Get("/track/{campaignID}/pixel.gif", trackingHandler.HandlePixel)
		r.Post("/webhook-inbound", inboundHandler.Handle)
	})

	r.Route("/cron", func(r chi.Router) {
		r.Use(cronHandler.Authorize)
		r.Post("/dispatch", cronHandler.HandleDispatch)
		r.Post("/reclaim", cronHandler.HandleReclaim)
	})

	r.Route("/tenants/{tenantID}/campaigns", func(r chi.Router) {
		r.Post("/", campaignHandler.HandleCreate)
		r.Get("/{id}", campaignHandler.HandleGet)
		r.Get("/{id}/replies", campaignHandler.HandleReplies)
		r.Post("/{id}/retry", campaignHandler.HandleRetry)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
