package main

import (
	"encoding/json"
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/adilkhz/paysight/internal/dataset"
	"github.com/adilkhz/paysight/internal/service"
	"github.com/adilkhz/paysight/internal/source"
	"github.com/adilkhz/paysight/models"
)

// batch analyzer: train on a CSV snapshot, run detection and forecast once
// and print the combined report as JSON to stdout.
func main() {
	input := flag.String("input", "", "path to the transactions CSV (required)")
	daysAhead := flag.Int("days", 30, "forecast horizon in days")
	limit := flag.Int("limit", 100, "maximum suspicious transactions to report")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if level, err := zerolog.ParseLevel(*logLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if *input == "" {
		log.Fatal().Msg("-input is required")
	}

	snap, err := source.LoadFile(*input)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load snapshot")
	}
	log.Info().Int("rows", snap.Len()).Msg("snapshot loaded")

	engine := service.New(log.Logger)
	engine.Train(snap)

	report := struct {
		Summary   models.DatasetSummary  `json:"summary"`
		Detection models.DetectionResult `json:"detection"`
		Forecast  models.ForecastResult  `json:"forecast"`
	}{
		Summary:   engine.Summary(),
		Detection: engine.DetectSuspicious(dataset.Filter{}, *limit),
		Forecast:  engine.Forecast(dataset.Filter{}, *daysAhead),
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		log.Fatal().Err(err).Msg("failed to encode report")
	}
}
