package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/adilkhz/paysight/internal/dataset"
	"github.com/adilkhz/paysight/models"
)

func sampleSnapshot(n int) *dataset.Snapshot {
	rows := make([]models.TransactionRecord, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, models.TransactionRecord{
			ID:              fmt.Sprintf("tx-%d", i),
			Date:            time.Date(2024, 2, 1+i%28, 0, 0, 0, 0, time.UTC),
			Amount:          float64(500 + i%200),
			Channel:         []string{"web", "mobile"}[i%2],
			PaymentMethod:   "card",
			CustomerSegment: "retail",
			City:            []string{"Almaty", "Astana"}[i%2],
			IsCanceled:      i%10 == 0,
		})
	}
	return dataset.New(rows)
}

func TestUntrainedEngineServesZeroResults(t *testing.T) {
	e := New(zerolog.Nop())

	cancel := e.PredictCancellation(models.CancellationRequest{
		Amount: 100, Channel: "web", PaymentMethod: "card", CustomerSegment: "retail",
	})
	if cancel.CancellationProbability != 0 || cancel.RiskLevel != "low" {
		t.Errorf("untrained prediction = %+v", cancel)
	}

	detect := e.DetectSuspicious(dataset.Filter{}, 100)
	if detect.TotalSuspicious != 0 {
		t.Errorf("untrained detection found %d suspicious", detect.TotalSuspicious)
	}

	summary := e.Summary()
	if summary.TotalTransactions != 0 || summary.TrainedAt != "" {
		t.Errorf("untrained summary = %+v", summary)
	}
}

func TestTrainSwapsArtifact(t *testing.T) {
	e := New(zerolog.Nop())
	before := e.Current()

	e.Train(sampleSnapshot(200))
	after := e.Current()

	if before == after {
		t.Fatal("training must swap in a new artifact")
	}
	if after.Snapshot.Len() != 200 {
		t.Errorf("artifact snapshot has %d rows, want 200", after.Snapshot.Len())
	}
	if after.TrainedAt.IsZero() {
		t.Error("trained artifact must carry a training timestamp")
	}
	if e.Summary().TrainedAt == "" {
		t.Error("summary must expose the training timestamp")
	}
}

func TestRetrainReplacesData(t *testing.T) {
	e := New(zerolog.Nop())
	e.Train(sampleSnapshot(200))
	e.Train(sampleSnapshot(50))

	if got := e.Summary().TotalTransactions; got != 50 {
		t.Errorf("summary rows = %d, want the latest snapshot's 50", got)
	}
}

func TestDetectAppliesFilter(t *testing.T) {
	e := New(zerolog.Nop())
	e.Train(sampleSnapshot(200))

	all := e.DetectSuspicious(dataset.Filter{}, 0)
	almaty := e.DetectSuspicious(dataset.Filter{City: "Almaty"}, 0)

	if almaty.TotalSuspicious > all.TotalSuspicious {
		t.Errorf("filtered detection found more (%d) than unfiltered (%d)",
			almaty.TotalSuspicious, all.TotalSuspicious)
	}
	for _, s := range almaty.SuspiciousTransactions {
		if s.City != "Almaty" {
			t.Errorf("filtered result contains city %s", s.City)
		}
	}
}

func TestForecastUsesCurrentSnapshot(t *testing.T) {
	e := New(zerolog.Nop())
	e.Train(sampleSnapshot(280))

	result := e.Forecast(dataset.Filter{}, 7)
	if len(result.PredictedVolume) != 7 {
		t.Errorf("got %d forecast points, want 7", len(result.PredictedVolume))
	}
}

func TestConcurrentReadsDuringRetrain(t *testing.T) {
	e := New(zerolog.Nop())
	e.Train(sampleSnapshot(200))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				e.PredictCancellation(models.CancellationRequest{
					Amount: 750, Channel: "web", PaymentMethod: "card", CustomerSegment: "retail",
				})
				e.DetectSuspicious(dataset.Filter{}, 10)
			}
		}()
	}

	for i := 0; i < 5; i++ {
		e.Train(sampleSnapshot(100 + i*20))
	}
	close(stop)
	wg.Wait()
}
