package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/alhassan/smart-sales-agent-go/internal/catalog"
	"github.com/alhassan/smart-sales-agent-go/internal/classify"
	"github.com/alhassan/smart-sales-agent-go/internal/config"
	"github.com/alhassan/smart-sales-agent-go/internal/domain"
	"github.com/alhassan/smart-sales-agent-go/internal/handler"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/artifact"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/cache"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/llm"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/memstore"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/observability"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/pdfgen"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/resilience"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/supabase"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/twilio"
	"github.com/alhassan/smart-sales-agent-go/internal/invoice"
	"github.com/alhassan/smart-sales-agent-go/internal/port"
	"github.com/alhassan/smart-sales-agent-go/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_supabase", cfg.UseSupabase),
		zap.String("currency", cfg.Currency),
		zap.Duration("classify_timeout", cfg.ClassifyTimeout),
		zap.Float64("min_confidence", cfg.MinConfidence),
		zap.Float64("match_threshold", cfg.MatchThreshold),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(context.Background(), "smart-sales-agent", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// --- Stores ---
	var catalogStore port.CatalogStore
	var invoiceStore port.InvoiceStore
	var chatLogStore port.ChatLogStore

	if cfg.UseSupabase && cfg.SupabaseURL != "" {
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		sb := supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			resilienceCfg,
			logger,
		)
		catalogStore = sb
		invoiceStore = sb
		chatLogStore = sb
	} else {
		logger.Info("using in-memory store with seeded catalog")
		mem := memstore.New()
		mem.Seed(defaultCatalog(cfg.Currency))
		catalogStore = mem
		invoiceStore = mem
		chatLogStore = mem
	}

	// --- Artifacts & rendering ---
	artifactStore, err := artifact.NewFSStore(cfg.InvoiceDir)
	if err != nil {
		logger.Fatal("failed to init artifact store", zap.Error(err))
	}
	renderer := pdfgen.NewRenderer(cfg.ShopName)

	// --- Core pipeline ---
	resolver := catalog.NewResolver(catalogStore, cfg.MatchThreshold, logger)

	extractor := llm.NewOpenAIExtractor(
		httpClient,
		cfg.OpenAIAPIURL,
		cfg.OpenAIAPIKey,
		cfg.OpenAIModel,
		resilience.NewCircuitBreaker("openai"),
		resilienceCfg,
		metrics,
	)
	classifier, err := classify.NewClassifier(extractor, cfg.MinConfidence, metrics, logger)
	if err != nil {
		logger.Fatal("failed to init classifier", zap.Error(err))
	}

	builder := invoice.NewBuilder(resolver, invoiceStore, renderer, artifactStore, metrics, logger)

	// --- Outbound messaging ---
	var sender port.MessageSender
	if cfg.TwilioAccountSID != "" {
		sender = twilio.NewSender(
			httpClient,
			cfg.TwilioAPIURL,
			cfg.TwilioAccountSID,
			cfg.TwilioAuthToken,
			cfg.TwilioPhoneNumber,
			resilience.NewCircuitBreaker("twilio"),
			resilienceCfg,
		)
	} else {
		logger.Warn("Twilio not configured, outbound messages are logged only")
		sender = &logSender{logger: logger}
	}

	// --- Services ---
	conv := service.NewConversation(service.ConversationOpts{
		Classifier:      classifier,
		Resolver:        resolver,
		Issuer:          builder,
		Catalog:         catalogStore,
		ChatLog:         chatLogStore,
		Sender:          sender,
		Dedup:           cache.New[bool](cfg.DedupTTL),
		Metrics:         metrics,
		Logger:          logger,
		ClassifyTimeout: cfg.ClassifyTimeout,
		PublicBaseURL:   cfg.PublicBaseURL,
	})

	adminSvc := service.NewAdminService(catalogStore, invoiceStore, artifactStore, builder, metrics, cfg.Currency, logger)
	authSvc := service.NewAuthService(cfg.AdminPasswordHash, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
	if cfg.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH not set, admin login will reject all passwords")
	}

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Conversation: conv,
		Admin:        adminSvc,
		Auth:         authSvc,
		Metrics:      metrics,
		Bulkhead:     resilience.NewBulkhead(cfg.MaxConcurrency),
		Logger:       logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// defaultCatalog seeds the in-memory store for local development.
func defaultCatalog(currency string) []domain.Product {
	return []domain.Product{
		{Name: "Logo Design", Price: 50.0, Currency: currency, Description: "Custom logo design, 3 concepts"},
		{Name: "Business Cards", Price: 25.0, Currency: currency, Description: "500 double-sided cards"},
		{Name: "Banner Printing", Price: 15.0, Currency: currency, Description: "Vinyl banner, per square meter"},
		{Name: "Flyer Design", Price: 30.0, Currency: currency, Description: "A5 flyer design and print-ready file"},
	}
}

// logSender is the stand-in MessageSender when Twilio is not configured.
type logSender struct {
	logger *zap.Logger
}

func (l *logSender) SendMessage(_ context.Context, to, body, mediaURL string) error {
	l.logger.Info("outbound message (not sent)",
		zap.String("to", to),
		zap.String("body", body),
		zap.String("media_url", mediaURL),
	)
	return nil
}
