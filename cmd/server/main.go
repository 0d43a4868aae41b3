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

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/adilkhz/paysight/config"
	"github.com/adilkhz/paysight/internal/api"
	"github.com/adilkhz/paysight/internal/database"
	"github.com/adilkhz/paysight/internal/dataset"
	"github.com/adilkhz/paysight/internal/narrative"
	"github.com/adilkhz/paysight/internal/service"
	"github.com/adilkhz/paysight/internal/source"
)

func init() {
	// если .env лежит в корне проекта, без аргумента он сам найдёт
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	var db *database.DB
	if cfg.DatabaseEnabled() {
		db, err = database.New(database.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer db.Close()
	}

	loader := snapshotLoader(cfg, db)

	engine := service.New(log.Logger)
	if snap, err := loader(); err != nil {
		log.Warn().Err(err).Msg("initial snapshot load failed, starting with an empty dataset")
		engine.Train(dataset.Empty())
	} else {
		engine.Train(snap)
	}

	narrativeClient := narrative.NewClient(narrative.Options{
		APIKey:         cfg.NarrativeAPIKey,
		BaseURL:        cfg.NarrativeBaseURL,
		Model:          cfg.NarrativeModel,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
	})

	router := api.New(api.Options{
		Engine:         engine,
		Loader:         loader,
		Narrative:      narrativeClient,
		Logger:         log.Logger,
		DetectionLimit: cfg.DetectionLimit,
		ForecastDays:   cfg.ForecastDays,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// snapshotLoader picks the configured data source: local CSV first, then
// the remote endpoint, then postgres.
func snapshotLoader(cfg *config.Config, db *database.DB) api.SnapshotLoader {
	switch {
	case cfg.DataPath != "":
		return func() (*dataset.Snapshot, error) {
			snap, err := source.LoadFile(cfg.DataPath)
			if err != nil {
				return nil, err
			}
			if db != nil {
				if err := db.SaveSnapshot(snap); err != nil {
					log.Warn().Err(err).Msg("failed to persist snapshot to postgres")
				}
			}
			return snap, nil
		}
	case cfg.DataURL != "":
		remote := source.NewRemote(source.RemoteOptions{
			URL:            cfg.DataURL,
			RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		})
		return func() (*dataset.Snapshot, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			snap, err := remote.Fetch(ctx)
			if err != nil {
				return nil, err
			}
			if db != nil {
				if err := db.SaveSnapshot(snap); err != nil {
					log.Warn().Err(err).Msg("failed to persist snapshot to postgres")
				}
			}
			return snap, nil
		}
	case db != nil:
		return db.LoadSnapshot
	default:
		return func() (*dataset.Snapshot, error) {
			return nil, fmt.Errorf("no data source configured: set DATA_PATH, DATA_URL or DB_HOST")
		}
	}
}
