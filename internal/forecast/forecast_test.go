package forecast

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/adilkhz/paysight/internal/dataset"
	"github.com/adilkhz/paysight/models"
)

func steadyHistory(days, perDay int, amount float64) []models.TransactionRecord {
	var rows []models.TransactionRecord
	for d := 0; d < days; d++ {
		day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
		for i := 0; i < perDay; i++ {
			rows = append(rows, models.TransactionRecord{
				ID:     fmt.Sprintf("tx-%d-%d", d, i),
				Date:   day,
				Amount: amount,
			})
		}
	}
	return rows
}

func TestProjectZeroDays(t *testing.T) {
	snap := dataset.New(steadyHistory(30, 5, 100))
	result := Project(snap, 0, time.Now())

	if len(result.PredictedVolume) != 0 {
		t.Errorf("got %d points for daysAhead=0", len(result.PredictedVolume))
	}
	if result.PredictedTotalRevenue != 0 {
		t.Errorf("total revenue = %v, want 0", result.PredictedTotalRevenue)
	}
}

func TestProjectContiguousDates(t *testing.T) {
	snap := dataset.New(steadyHistory(30, 5, 100))
	result := Project(snap, 7, time.Now())

	if len(result.PredictedVolume) != 7 {
		t.Fatalf("got %d points, want 7", len(result.PredictedVolume))
	}

	// Series starts the day after the last observed day and has no gaps.
	lastObserved := time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC)
	for i, p := range result.PredictedVolume {
		want := lastObserved.AddDate(0, 0, i+1).Format("2006-01-02")
		if p.Date != want {
			t.Errorf("point %d date = %s, want %s", i, p.Date, want)
		}
		if p.PredictedVolume < 0 {
			t.Errorf("point %d has negative volume %d", i, p.PredictedVolume)
		}
	}
}

func TestProjectTotalIsSumOfPoints(t *testing.T) {
	snap := dataset.New(steadyHistory(30, 5, 250))
	result := Project(snap, 14, time.Now())

	var sum float64
	for _, p := range result.PredictedVolume {
		sum += p.PredictedRevenue
	}
	if math.Abs(result.PredictedTotalRevenue-sum) > 1e-9 {
		t.Errorf("total revenue %v != sum of points %v", result.PredictedTotalRevenue, sum)
	}
}

func TestProjectGrowthTrend(t *testing.T) {
	// Older week 10/day, recent week 20/day: the projection should run
	// above the recent mean, not just repeat it.
	var rows []models.TransactionRecord
	rows = append(rows, steadyHistory(7, 10, 100)...)
	for d := 0; d < 7; d++ {
		day := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
		for i := 0; i < 20; i++ {
			rows = append(rows, models.TransactionRecord{
				ID:     fmt.Sprintf("r-%d-%d", d, i),
				Date:   day,
				Amount: 100,
			})
		}
	}

	result := Project(dataset.New(rows), 7, time.Now())

	for i, p := range result.PredictedVolume {
		if p.PredictedVolume <= 20 {
			t.Errorf("point %d volume = %d, want above the recent daily mean of 20",
				i, p.PredictedVolume)
		}
	}
	if result.ConfidenceInterval.Lower != 0.85 || result.ConfidenceInterval.Upper != 1.15 {
		t.Errorf("confidence interval = %+v", result.ConfidenceInterval)
	}
}

func TestProjectShortHistoryWidensInterval(t *testing.T) {
	snap := dataset.New(steadyHistory(4, 5, 100))
	result := Project(snap, 5, time.Now())

	if result.ConfidenceInterval.Lower != 0.8 || result.ConfidenceInterval.Upper != 1.2 {
		t.Errorf("confidence interval = %+v, want {0.8 1.2}", result.ConfidenceInterval)
	}
	if len(result.PredictedVolume) != 5 {
		t.Errorf("got %d points, want 5", len(result.PredictedVolume))
	}
}

func TestProjectUndatedHistory(t *testing.T) {
	rows := make([]models.TransactionRecord, 730)
	for i := range rows {
		rows[i] = models.TransactionRecord{ID: fmt.Sprintf("tx-%d", i), Amount: 100}
	}
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	result := Project(dataset.New(rows), 3, now)

	if len(result.PredictedVolume) != 3 {
		t.Fatalf("got %d points, want 3", len(result.PredictedVolume))
	}
	// 730 undated transactions spread over a nominal year: 2 per day.
	for i, p := range result.PredictedVolume {
		if p.PredictedVolume != 2 {
			t.Errorf("point %d volume = %d, want 2", i, p.PredictedVolume)
		}
		want := now.AddDate(0, 0, i).Format("2006-01-02")
		if p.Date != want {
			t.Errorf("point %d date = %s, want %s", i, p.Date, want)
		}
	}
	if result.ConfidenceInterval.Lower != 0.8 || result.ConfidenceInterval.Upper != 1.2 {
		t.Errorf("confidence interval = %+v", result.ConfidenceInterval)
	}
}

func TestProjectExcludesRefundedAndCanceled(t *testing.T) {
	rows := steadyHistory(10, 5, 100)
	for i := range rows {
		rows[i].IsRefunded = i%2 == 0
		rows[i].IsCanceled = i%2 == 1
	}

	result := Project(dataset.New(rows), 5, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	if result.PredictedTotalRevenue != 0 {
		t.Errorf("total revenue = %v, want 0 with no valid history", result.PredictedTotalRevenue)
	}
	for i, p := range result.PredictedVolume {
		if p.PredictedVolume != 0 || p.PredictedRevenue != 0 {
			t.Errorf("point %d = %+v, want zeros", i, p)
		}
	}
}

func TestProjectEmptySnapshot(t *testing.T) {
	result := Project(dataset.Empty(), 7, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	if len(result.PredictedVolume) != 7 {
		t.Fatalf("got %d points, want 7", len(result.PredictedVolume))
	}
	for _, p := range result.PredictedVolume {
		if p.PredictedVolume != 0 || p.PredictedRevenue != 0 {
			t.Errorf("empty history must project zeros, got %+v", p)
		}
	}
}
