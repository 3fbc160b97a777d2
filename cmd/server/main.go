package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"ai-doctor/config"
	"ai-doctor/internal/agent"
	"ai-doctor/internal/consultation"
	"ai-doctor/internal/platform/database"
	"ai-doctor/internal/platform/logger"
	"ai-doctor/internal/platform/middleware"
	"ai-doctor/internal/platform/telegram"
	"ai-doctor/internal/report"
	"ai-doctor/internal/symptom"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Knowledge base
	kb := symptom.Default()
	if cfg.KnowledgeBaseFile != "" {
		kb, err = symptom.LoadFile(cfg.KnowledgeBaseFile)
		if err != nil {
			lg.Fatal("invalid knowledge base", zap.String("file", cfg.KnowledgeBaseFile), zap.Error(err))
		}
	}
	lg.Info("knowledge base loaded", zap.Int("conditions", kb.Len()))

	// 2. Infrastructure
	repo := openRepository(cfg, lg)

	// 3. Clients
	var closers []io.Closer
	defer func() { closeAll(closers, lg) }()

	analyzer := newAnalyzer(ctx, cfg, lg, &closers)
	sttClient := newTranscriber(ctx, cfg, lg, &closers)
	ttsClient := newSynthesizer(cfg, lg)

	tgClient := telegram.NewClient(cfg.TelegramBotToken)
	if cfg.DoctorChatID == 0 || !tgClient.Enabled() {
		lg.Warn("TELEGRAM_BOT_TOKEN or DOCTOR_CHAT_ID not set, reports can be downloaded but not sent")
	}

	// 4. Services
	var fontPaths []string
	if cfg.ReportFontPath != "" {
		fontPaths = []string{cfg.ReportFontPath}
	}
	reportSvc := report.NewService(tgClient, cfg.DoctorChatID, kb, fontPaths, lg)

	router := consultation.NewRouter(kb, sttClient, analyzer, ttsClient, consultation.WithLogger(lg))
	consultationSvc := consultation.NewService(repo, router, kb, ttsClient, reportSvc, lg)
	consultationHandler := consultation.NewHandler(consultationSvc, lg)

	// 5. Router
	limiter := middleware.NewRateLimiter(cfg.MaxRequestsPerMin, cfg.RateLimitBurst, lg)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Route("/api", func(r chi.Router) {
		consultation.RegisterRoutes(r, consultationHandler, limiter.Handler)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			lg.Error("shutdown failed", zap.Error(err))
		}
	}()

	lg.Info("server starting", zap.String("port", cfg.AppPort))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Fatal("server failed", zap.Error(err))
	}
}

// openRepository falls back to process memory when the database is not
// reachable so the demo keeps answering.
func openRepository(cfg config.Config, lg *zap.Logger) consultation.Repository {
	db, driver, err := database.Open(cfg.DatabaseURL, 10, lg)
	if err != nil {
		lg.Warn("could not connect to database, consultations are kept in memory", zap.Error(err))
		return consultation.NewMemoryRepository()
	}
	if err := database.Migrate(db, driver); err != nil {
		lg.Warn("migrations failed, consultations are kept in memory", zap.Error(err))
		db.Close()
		return consultation.NewMemoryRepository()
	}
	lg.Info("connected to database", zap.String("driver", driver))
	return consultation.NewRepository(db)
}

// closeAll releases clients in reverse order of creation.
func closeAll(closers []io.Closer, lg *zap.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			lg.Warn("failed to close client", zap.Error(err))
		}
	}
}

func newAnalyzer(ctx context.Context, cfg config.Config, lg *zap.Logger, closers *[]io.Closer) consultation.Analyzer {
	gemini, err := agent.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		lg.Warn("vision/language model unavailable, only predefined answers will be produced", zap.Error(err))
		return nil
	}
	*closers = append(*closers, gemini)
	if cfg.RedisAddr == "" {
		return gemini
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisCacheDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		lg.Warn("redis unavailable, model answers will not be cached", zap.Error(err))
		rdb.Close()
		return gemini
	}
	*closers = append(*closers, rdb)
	lg.Info("caching model answers in redis", zap.Duration("ttl", cfg.AnalysisCacheTTL))
	return agent.NewCachedAnalyzer(rdb, cfg.AnalysisCacheTTL, gemini, lg)
}

func newTranscriber(ctx context.Context, cfg config.Config, lg *zap.Logger, closers *[]io.Closer) consultation.Transcriber {
	switch cfg.STTProvider {
	case "google":
		c, err := agent.NewGoogleSTTClient(ctx, cfg.GoogleServiceAccountFile, cfg.STTLanguage)
		if err != nil {
			lg.Warn("google speech unavailable, falling back to whisper", zap.Error(err))
			return agent.NewWhisperClient(cfg.WhisperURL)
		}
		*closers = append(*closers, c)
		return c
	default:
		return agent.NewWhisperClient(cfg.WhisperURL)
	}
}

func newSynthesizer(cfg config.Config, lg *zap.Logger) consultation.Synthesizer {
	switch cfg.TTSProvider {
	case "elevenlabs":
		if cfg.ElevenLabsAPIKey == "" {
			lg.Warn("ELEVENLABS_API_KEY not set, using local TTS")
			return agent.NewLocalTTSClient(cfg.TTSURL)
		}
		return agent.NewElevenLabsClient(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID)
	default:
		return agent.NewLocalTTSClient(cfg.TTSURL)
	}
}
