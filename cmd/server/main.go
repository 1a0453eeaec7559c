package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"safedrive/internal/core/domain"
	"safedrive/internal/core/ports"
	"safedrive/internal/core/services"
	httphandlers "safedrive/internal/handlers/http"
	"safedrive/internal/infrastructure/annotate"
	"safedrive/internal/infrastructure/codec"
	"safedrive/internal/infrastructure/events"
	"safedrive/internal/infrastructure/landmarks"
	"safedrive/internal/infrastructure/middleware"
	"safedrive/internal/infrastructure/monitoring"
	wsserver "safedrive/internal/infrastructure/signal"
	"safedrive/internal/infrastructure/sms"
	"safedrive/pkg/clock"
	"safedrive/pkg/config"
	"safedrive/pkg/logger"
	"safedrive/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "", "Path to the YAML config file")
	issueToken = flag.String("issue-token", "", "Print an access token for this user id and exit")
	tokenRole  = flag.String("role", string(domain.RoleDriver), "Role for -issue-token")
)

func loadConfig() (*config.Config, error) {
	paths := []string{
		"configs/config.yaml",
		"/etc/safedrive/config.yaml",
		"config.yaml",
	}
	if *configPath != "" {
		paths = []string{*configPath}
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return config.Load(path)
		}
	}
	// No file: defaults plus environment overrides.
	return config.Load(paths[0])
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	if *issueToken != "" {
		printToken(cfg, log)
		return
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Tracing
	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "safedrive",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("Failed to initialize tracing", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	// Metrics
	var metrics ports.MetricsRecorder = ports.NoopMetrics{}
	if cfg.Monitoring.PrometheusEnabled {
		metrics = monitoring.NewPrometheusCollector(nil)
	}

	// Landmark detector. Serving without it is pointless, so startup fails
	// when it does not become ready in time.
	detector, err := landmarks.NewGRPCDetector(landmarks.Config{
		Address:          cfg.Detector.Address,
		CallTimeout:      cfg.Detector.CallTimeout,
		MaxMessageSizeMB: cfg.Detector.MaxMessageSizeMB,
		FailureThreshold: cfg.Detector.FailureThreshold,
		OpenTimeout:      cfg.Detector.OpenTimeout,
	}, log)
	if err != nil {
		log.Fatalw("Failed to create landmark detector client", "error", err)
	}
	defer detector.Close()

	readyCtx, readyCancel := context.WithTimeout(ctx, cfg.Detector.StartupTimeout)
	err = detector.WaitReady(readyCtx, 500*time.Millisecond)
	readyCancel()
	if err != nil {
		if errors.Is(err, domain.ErrCapabilityUnavailable) {
			log.Fatalw("Landmark detector unavailable, refusing to serve",
				"address", cfg.Detector.Address,
				"error", err,
			)
		}
		log.Fatalw("Landmark detector startup check failed", "error", err)
	}
	log.Infow("Landmark detector ready", "address", cfg.Detector.Address)

	// Health checks
	health := monitoring.NewHealthChecker()
	health.AddDetectorCheck(detector, 10*time.Second, 2*time.Second)

	// Alert delivery
	var sender ports.MessageSender
	switch cfg.SMS.Provider {
	case "log":
		sender = sms.NewLogSender(log)
	default:
		sender = sms.NewTwilioSender(sms.TwilioConfig{
			AccountSID: cfg.SMS.AccountSID,
			AuthToken:  cfg.SMS.AuthToken,
			FromNumber: cfg.SMS.FromNumber,
		}, log)
	}
	dispatcher := services.NewAlertDispatcher(sender, cfg.SMS.FromNumber, metrics, log)

	// Event bus
	var publisher ports.EventPublisher = events.NoopPublisher{}
	if cfg.Redis.Enabled {
		client, err := events.NewRedisClient(ctx, events.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, log)
		if err != nil {
			log.Fatalw("Failed to connect to Redis", "error", err)
		}
		instanceID := uuid.NewString()
		if host, err := os.Hostname(); err == nil {
			instanceID = host + "-" + instanceID[:8]
		}
		publisher = events.NewRedisPublisher(client, cfg.Redis.Channel, instanceID, log)
		health.AddRedisCheck(client, 10*time.Second, 2*time.Second)
	}
	defer publisher.Close()

	health.StartBackgroundChecks(ctx)

	accidents := services.NewAccidentService(dispatcher, publisher, cfg.Alerts.EmergencyContacts, log)

	// Frame sessions
	var annotator ports.FrameAnnotator
	if cfg.Detection.AnnotateFrames {
		annotator = annotate.NewAnnotator()
	}
	frameCodec := codec.NewFrameCodec(cfg.Detection.JPEGQuality, int(cfg.RateLimiting.WebSocket.MaxMessageSizeBytes)).
		WithMaxDimensions(cfg.Detection.MaxFrameWidth, cfg.Detection.MaxFrameHeight)
	deps := services.SessionDeps{
		Machine: services.NewStateMachine(services.DetectionConfig{
			EyeClosedThreshold: cfg.Detection.EyeClosedThreshold,
			ConsecutiveFrames:  cfg.Detection.ConsecutiveFrames,
			AlertCooldown:      cfg.Detection.AlertCooldown,
		}),
		Detector:   detector,
		Codec:      frameCodec,
		Annotator:  annotator,
		Dispatcher: dispatcher,
		Publisher:  publisher,
		Metrics:    metrics,
		Clock:      clock.RealClock{},
		Logger:     log,
	}

	wsCfg := wsserver.Config{
		PingInterval:    cfg.WebSocket.PingInterval,
		ReadTimeout:     cfg.WebSocket.ReadTimeout,
		WriteTimeout:    cfg.WebSocket.WriteTimeout,
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
		MaxMessageBytes: cfg.RateLimiting.WebSocket.MaxMessageSizeBytes,
	}
	if cfg.RateLimiting.Enabled {
		wsCfg.FramesPerSecond = cfg.RateLimiting.WebSocket.FramesPerSecond
		wsCfg.Burst = cfg.RateLimiting.WebSocket.Burst
		wsCfg.MaxConnections = cfg.RateLimiting.WebSocket.MaxConcurrent
	}
	frameServer := wsserver.NewWebSocketServer(deps, services.SessionConfig{
		Recipients:      cfg.Alerts.EmergencyContacts,
		DispatchTimeout: cfg.Detection.DispatchTimeout,
	}, wsCfg)

	// HTTP
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	// An empty list makes ClientIP ignore forwarding headers.
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Fatalw("Invalid trusted proxies", "error", err)
	}
	router.Use(middleware.RecoveryMiddleware(log), middleware.RequestLogger(log))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}
	router.Use(middleware.ErrorHandlerMiddleware(log), middleware.NewHTTPRateLimitMiddleware(cfg))

	var accidentMiddleware []gin.HandlerFunc
	if cfg.Auth.Enabled {
		authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
		accidentMiddleware = append(accidentMiddleware,
			middleware.AuthMiddleware(authService),
			middleware.RequireRole(authService, domain.RoleDriver),
		)
		log.Info("JWT auth enabled for accident alerts")
	}

	alertHandler := httphandlers.NewAlertHandler(accidents, frameServer, health)
	alertHandler.SetupRoutes(router, accidentMiddleware...)
	router.NoRoute(httphandlers.NotFound)
	router.GET(cfg.WebSocket.Path, gin.WrapF(frameServer.HandleWebSocket))

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("Starting safedrive server",
			"address", cfg.Server.Address,
			"websocket_path", cfg.WebSocket.Path,
			"sms_provider", cfg.SMS.Provider,
			"emergency_contacts", len(cfg.Alerts.EmergencyContacts),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down safedrive server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	frameServer.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	// Hijacked sockets are not covered by srv.Shutdown; let drowsiness
	// alerts that are still being sent finish.
	if err := frameServer.Wait(shutdownCtx); err != nil {
		log.Warnw("Frame sessions still running at shutdown deadline",
			"connections", frameServer.ConnectionCount(),
			"error", err,
		)
	}

	stop()
	log.Info("Safedrive server stopped")
}

func printToken(cfg *config.Config, log *zap.SugaredLogger) {
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("auth.jwt_secret is required to issue tokens")
	}
	role := domain.UserRole(*tokenRole)
	if role.Level() == 0 {
		log.Fatalw("Unknown role", "role", role)
	}

	ttl := cfg.Auth.AccessTokenTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	token, err := services.NewAuthService(cfg.Auth.JWTSecret, ttl).GenerateToken(domain.UserID(*issueToken), role)
	if err != nil {
		log.Fatalw("Failed to issue token", "error", err)
	}
	fmt.Println(token)
}
