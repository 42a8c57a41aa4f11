// Command server runs the care request backend: it accepts voice recordings
// from the mobile app, turns them into structured help requests through Cloud
// Speech-to-Text and Gemini, persists them in Firestore with gap-free
// sequential IDs, and notifies volunteers over Firebase Cloud Messaging.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yunseo-dev/go-care-backend/internal/config"
	"github.com/yunseo-dev/go-care-backend/internal/extract"
	httpapi "github.com/yunseo-dev/go-care-backend/internal/http"
	"github.com/yunseo-dev/go-care-backend/internal/notify"
	"github.com/yunseo-dev/go-care-backend/internal/observability"
	"github.com/yunseo-dev/go-care-backend/internal/services"
	"github.com/yunseo-dev/go-care-backend/internal/speech"
	"github.com/yunseo-dev/go-care-backend/internal/store"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	setupLogging(cfg)

	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(ctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Firebase app: Firestore for state, FCM for volunteer pushes.
	fsClient, fcmClient, err := store.OpenApp(ctx, cfg.Google.ProjectID, cfg.Google.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("firebase init failed")
	}
	defer func() { _ = fsClient.Close() }()

	recognizer, err := speech.NewGoogleRecognizer(ctx, speech.Config{
		ProjectID:       cfg.Google.ProjectID,
		LanguageCode:    cfg.Speech.LanguageCode,
		SampleRateHertz: int32(cfg.Speech.SampleRateHertz),
		Model:           cfg.Speech.Model,
		CredentialsFile: cfg.Google.CredentialsFile,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("speech client init failed")
	}
	defer func() { _ = recognizer.Close() }()

	generator, err := extract.NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("gemini client init failed")
	}

	scoring, err := services.PolicyFor(cfg.ScoringPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("scoring policy")
	}

	svc := services.NewRequestService(
		recognizer,
		extract.NewExtractor(generator),
		store.NewAllocator(fsClient),
		store.NewPendingStore(fsClient),
		notify.NewVolunteerNotifier(fcmClient, store.NewVolunteerDirectory(fsClient)),
		scoring,
	)

	r := gin.New()
	httpapi.RegisterRoutes(r, svc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-stop.Done()

	log.Info().Msg("shutdown signal received")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

// setupLogging configures the global zerolog logger from config.
func setupLogging(cfg config.Config) {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
