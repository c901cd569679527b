// Package app wires configuration, storage, transports and the HTTP server
// into a running service.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/bloomhaus/orderflow/internal/analytics"
	"github.com/bloomhaus/orderflow/internal/domain/checkout"
	"github.com/bloomhaus/orderflow/internal/domain/notify"
	"github.com/bloomhaus/orderflow/internal/domain/order"
	"github.com/bloomhaus/orderflow/internal/handler"
	"github.com/bloomhaus/orderflow/internal/repository"
	"github.com/bloomhaus/orderflow/internal/staging"
	"github.com/bloomhaus/orderflow/internal/transport/botapi"
	"github.com/bloomhaus/orderflow/internal/transport/chatqueue"
	"github.com/bloomhaus/orderflow/internal/transport/smtpmail"
	"github.com/bloomhaus/orderflow/pkg/health"
	"github.com/bloomhaus/orderflow/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health probes.
	probe := health.New()
	probe.AddReadiness("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	probe.AddLiveness("goroutines", time.Second, health.GoroutineCountCheck(10000))
	probe.SetReady(true)

	// Repositories.
	orderRepo := repository.NewOrderRepository(pool)
	cartSource := repository.NewCartSource(pool)
	userDir := repository.NewUserDirectory(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)

	// Draft staging with TTL eviction.
	drafts := staging.New(cfg.Staging.TTL)
	drafts.StartCleanup(ctx)

	// Notification transports.
	email := smtpmail.New(smtpmail.Config{
		Addr:     cfg.Email.Addr,
		From:     cfg.Email.From,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
	})

	var chat notify.ChatTransport
	switch cfg.Chat.Mode {
	case "amqp":
		queue, err := chatqueue.Dial(cfg.Chat.AMQPURL, cfg.Chat.Queue)
		if err != nil {
			return errors.Wrap(err, "dial chat queue")
		}
		defer func() {
			if err := queue.Close(); err != nil {
				lg.Warn("closing chat queue", zap.Error(err))
			}
		}()
		chat = queue
	default:
		chat = botapi.New(cfg.Chat.BotBaseURL, cfg.Chat.BotTimeout)
	}

	// Dispatcher: fan-out behind an async boundary so request handlers never
	// wait on deliveries.
	fanout := notify.NewFanOut(userDir, userDir, email, chat,
		notify.WithWorkers(cfg.Notify.Workers),
		notify.WithDeliveryTimeout(cfg.Notify.DeliveryTimeout),
	)
	notifier := notify.NewEvents(notify.NewAsync(fanout))

	// Domain services.
	commitSvc := checkout.NewCommitService(drafts, cartSource, orderRepo, notifier)
	statusSvc := order.NewStatusService(orderRepo, notifier)

	// HTTP surface.
	h := handler.NewHandler(
		commitSvc,
		statusSvc,
		orderRepo,
		analytics.NewClient(cfg.Analytics.BaseURL, cfg.Analytics.Timeout),
		handler.NewSecurity(apikeyRepo, []byte(cfg.APIKeyPepper)),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", probe.LiveHandler)
	mux.HandleFunc("/readyz", probe.ReadyHandler)
	mux.Handle("/api/", h.Routes())

	instrumented := otelhttp.NewHandler(mux, "orderflow-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(instrumented,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		probe.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
