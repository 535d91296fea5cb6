package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tanadol/reelforge/internal/api"
	"github.com/tanadol/reelforge/internal/batch"
	"github.com/tanadol/reelforge/internal/composer"
	"github.com/tanadol/reelforge/internal/config"
	"github.com/tanadol/reelforge/internal/db"
	"github.com/tanadol/reelforge/internal/events"
	"github.com/tanadol/reelforge/internal/generator"
	"github.com/tanadol/reelforge/internal/media"
	"github.com/tanadol/reelforge/internal/models"
	"github.com/tanadol/reelforge/internal/services"
	"github.com/tanadol/reelforge/internal/storage"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	log.Info().Msg("starting reelforge API")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Database is optional; without it finished videos are not recorded
	// and the project endpoints answer 503.
	var database *db.DB
	if cfg.DatabaseURL != "" {
		database, err = db.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer database.Close()
		log.Info().Msg("connected to database")
	} else {
		log.Warn().Msg("DATABASE_URL not set, generation records disabled")
	}

	// Redis is optional; without it progress updates are not published.
	var publisher *events.Publisher
	if cfg.RedisURL != "" {
		publisher, err = events.New(cfg.RedisURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer publisher.Close()
		log.Info().Msg("connected to redis")
	} else {
		log.Warn().Msg("REDIS_URL not set, progress events disabled")
	}

	// Object storage is optional; without it outputs stay on local disk.
	var store *storage.Storage
	if cfg.SupabaseURL != "" {
		store = storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket, log)
		log.Info().Str("bucket", cfg.SupabaseStorageBucket).Msg("object storage initialized")
	} else {
		log.Warn().Msg("SUPABASE_URL not set, finished videos stay on local disk")
	}

	tempDir := filepath.Join(cfg.TempDir, "reelforge")

	scripts := services.NewScriptGenerator(cfg.ContentProvider, cfg.OpenAIKey, cfg.GeminiKey, tempDir, log)
	var voice services.VoiceSynthesizer
	if cfg.OpenAIKey != "" {
		voice = services.NewOpenAIService(cfg.OpenAIKey, tempDir, log)
		log.Info().Msg("voice synthesis enabled")
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, videos ship without narration")
	}

	pixabay := services.NewPixabayService(cfg.PixabayAPIKey, log)
	fetcher := media.NewFetcher(tempDir, log)
	engine := composer.NewFFmpegEngine(cfg.FFmpegPath, cfg.FFprobePath, log)
	comp := composer.New(engine, fetcher, tempDir, log)

	gen := generator.New(
		scripts, voice, pixabay, services.NewLofiLibrary(),
		comp, storeOrNil(store), recordsOrNil(database), log,
	)

	var notifiers []batch.Notifier
	if publisher != nil {
		notifiers = append(notifiers, publisher)
	}
	if database != nil {
		notifiers = append(notifiers, recordNotifier{db: database, log: log})
	}
	var notifier batch.Notifier
	if len(notifiers) > 0 {
		notifier = fanoutNotifier(notifiers)
	}
	scheduler := batch.NewScheduler(gen, notifier, cfg.WorkerCount, log)
	scheduler.Start()

	handler := api.NewHandler(scheduler, projectsOrNil(database), signerOrNil(store))
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey == "" {
		log.Warn().Msg("no BACKEND_API_KEY set, API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.APIPort).Msg("API server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := scheduler.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("scheduler did not drain in time")
	}

	log.Info().Msg("server exited")
}

// fanoutNotifier forwards each batch snapshot to every configured sink.
type fanoutNotifier []batch.Notifier

func (f fanoutNotifier) BatchUpdated(job *models.BatchJob) {
	for _, n := range f {
		n.BatchUpdated(job)
	}
}

// recordNotifier persists batch snapshots so history survives restarts.
type recordNotifier struct {
	db  *db.DB
	log zerolog.Logger
}

func (r recordNotifier) BatchUpdated(job *models.BatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.db.UpsertBatchJob(ctx, job); err != nil {
		r.log.Error().Err(err).Str("batch_id", job.ID.String()).Msg("failed to persist batch snapshot")
	}
}

// The typed-nil wrappers keep optional collaborators truly nil behind
// their interfaces when the concrete pointer is nil.

func storeOrNil(s *storage.Storage) generator.ObjectStore {
	if s == nil {
		return nil
	}
	return s
}

func recordsOrNil(d *db.DB) generator.RecordStore {
	if d == nil {
		return nil
	}
	return d
}

func projectsOrNil(d *db.DB) api.ProjectStore {
	if d == nil {
		return nil
	}
	return d
}

func signerOrNil(s *storage.Storage) api.Signer {
	if s == nil {
		return nil
	}
	return s
}
