// Package forecast projects future daily transaction volume and revenue
// from historical activity, using a trailing-window mean with a trend
// adjustment and a deterministic weekly-cyclic variation.
package forecast

import (
	"sort"
	"time"

	"github.com/adilkhz/paysight/internal/calculate"
	"github.com/adilkhz/paysight/internal/dataset"
	"github.com/adilkhz/paysight/models"
)

const (
	trendWindow  = 7
	daysPerYear  = 365
	variationMul = 0.1
)

type dailyStat struct {
	day     time.Time
	volume  float64
	revenue float64
}

// Project forecasts daysAhead days of volume and revenue from the snapshot.
// Only valid transactions (neither refunded nor canceled) contribute. The
// now argument anchors the projection when the history carries no dates.
// Never errors: an empty snapshot or daysAhead = 0 yields an empty series.
func Project(snap *dataset.Snapshot, daysAhead int, now time.Time) models.ForecastResult {
	valid := make([]models.TransactionRecord, 0, snap.Len())
	for _, r := range snap.Rows() {
		if !r.IsRefunded && !r.IsCanceled {
			valid = append(valid, r)
		}
	}

	daily := aggregateDaily(valid)
	if len(daily) == 0 {
		return flatProjection(valid, daysAhead, now)
	}

	volumes := make([]float64, len(daily))
	for i, d := range daily {
		volumes[i] = d.volume
	}

	var avgVolume, avgRevenue float64
	interval := models.ConfidenceInterval{Lower: 0.85, Upper: 1.15}
	if len(daily) < trendWindow {
		// Too little history for a trailing window; plain mean, wider
		// confidence band.
		for _, d := range daily {
			avgVolume += d.volume
			avgRevenue += d.revenue
		}
		avgVolume /= float64(len(daily))
		avgRevenue /= float64(len(daily))
		interval = models.ConfidenceInterval{Lower: 0.8, Upper: 1.2}
	} else {
		for _, d := range daily[len(daily)-trendWindow:] {
			avgVolume += d.volume
			avgRevenue += d.revenue
		}
		avgVolume /= trendWindow
		avgRevenue /= trendWindow

		trend := 1.0
		if len(daily) >= 2*trendWindow {
			recent := calculate.Mean(volumes[len(volumes)-trendWindow:])
			older := calculate.Mean(volumes[len(volumes)-2*trendWindow : len(volumes)-trendWindow])
			if older > 0 {
				trend = recent / older
			}
		}
		avgVolume *= trend
		avgRevenue *= trend
	}

	stdVolume := calculate.StdDev(volumes)
	if stdVolume == 0 && avgVolume > 0 {
		stdVolume = avgVolume * 0.2
	}

	revenuePerUnit := 0.0
	if avgVolume > 0 {
		revenuePerUnit = avgRevenue / avgVolume
	}

	lastDay := daily[len(daily)-1].day
	points := make([]models.ForecastPoint, 0, daysAhead)
	var totalRevenue float64
	for i := 0; i < daysAhead; i++ {
		variation := 0.0
		if stdVolume > 0 {
			variation = float64(i%trendWindow-3) * stdVolume * variationMul
		}
		volume := int(avgVolume + variation)
		if volume < 0 {
			volume = 0
		}
		revenue := float64(volume) * revenuePerUnit

		points = append(points, models.ForecastPoint{
			Date:             lastDay.AddDate(0, 0, i+1).Format("2006-01-02"),
			PredictedVolume:  volume,
			PredictedRevenue: revenue,
		})
		totalRevenue += revenue
	}

	return models.ForecastResult{
		PredictedVolume:       points,
		PredictedTotalRevenue: totalRevenue,
		ConfidenceInterval:    interval,
	}
}

// flatProjection covers histories with no usable date information: the
// yearly average repeated for every future day, starting today.
func flatProjection(valid []models.TransactionRecord, daysAhead int, now time.Time) models.ForecastResult {
	avgDaily := 0.0
	meanAmount := 0.0
	if len(valid) > 0 {
		avgDaily = float64(len(valid)) / daysPerYear
		amounts := make([]float64, len(valid))
		for i := range valid {
			amounts[i] = valid[i].Amount
		}
		meanAmount = calculate.Mean(amounts)
	}

	points := make([]models.ForecastPoint, 0, daysAhead)
	var totalRevenue float64
	for i := 0; i < daysAhead; i++ {
		revenue := avgDaily * meanAmount
		points = append(points, models.ForecastPoint{
			Date:             now.AddDate(0, 0, i).Format("2006-01-02"),
			PredictedVolume:  int(avgDaily),
			PredictedRevenue: revenue,
		})
		totalRevenue += revenue
	}

	return models.ForecastResult{
		PredictedVolume:       points,
		PredictedTotalRevenue: totalRevenue,
		ConfidenceInterval:    models.ConfidenceInterval{Lower: 0.8, Upper: 1.2},
	}
}

func aggregateDaily(rows []models.TransactionRecord) []dailyStat {
	byDay := map[time.Time]*dailyStat{}
	for i := range rows {
		if !rows[i].HasDate() {
			continue
		}
		day := rows[i].Date.Truncate(24 * time.Hour)
		stat, ok := byDay[day]
		if !ok {
			stat = &dailyStat{day: day}
			byDay[day] = stat
		}
		stat.volume++
		stat.revenue += rows[i].Amount
	}

	daily := make([]dailyStat, 0, len(byDay))
	for _, stat := range byDay {
		daily = append(daily, *stat)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].day.Before(daily[j].day) })
	return daily
}
