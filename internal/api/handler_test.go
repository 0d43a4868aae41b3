package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adilkhz/paysight/internal/dataset"
	"github.com/adilkhz/paysight/internal/service"
	"github.com/adilkhz/paysight/models"
)

func testSnapshot(n int) *dataset.Snapshot {
	rows := make([]models.TransactionRecord, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, models.TransactionRecord{
			ID:              fmt.Sprintf("tx-%d", i),
			Date:            time.Date(2024, 4, 1+i%28, 0, 0, 0, 0, time.UTC),
			Amount:          float64(300 + i%500),
			Channel:         "web",
			PaymentMethod:   "card",
			CustomerSegment: "retail",
			City:            "Almaty",
			IsCanceled:      i%12 == 0,
		})
	}
	return dataset.New(rows)
}

func testRouter(loader SnapshotLoader) http.Handler {
	engine := service.New(zerolog.Nop())
	engine.Train(testSnapshot(200))
	return New(Options{
		Engine: engine,
		Loader: loader,
		Logger: zerolog.Nop(),
	})
}

func doRequest(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := doRequest(testRouter(nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPredictCancellation(t *testing.T) {
	body := `{"amount_kzt": 750, "channel": "web", "payment_method": "card", "customer_segment": "retail"}`
	w := doRequest(testRouter(nil), http.MethodPost, "/api/v1/predict/cancellation", body)
	require.Equal(t, http.StatusOK, w.Code)

	var result models.CancellationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.GreaterOrEqual(t, result.CancellationProbability, 0.0)
	assert.LessOrEqual(t, result.CancellationProbability, 1.0)
	assert.Contains(t, []string{"low", "medium", "high"}, result.RiskLevel)
}

func TestPredictCancellationValidation(t *testing.T) {
	router := testRouter(nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"amount_kzt": `},
		{"missing channel", `{"amount_kzt": 750, "payment_method": "card", "customer_segment": "retail"}`},
		{"missing amount", `{"channel": "web", "payment_method": "card", "customer_segment": "retail"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/api/v1/predict/cancellation", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestDetectSuspicious(t *testing.T) {
	w := doRequest(testRouter(nil), http.MethodGet, "/api/v1/predict/suspicious?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)

	var result models.DetectionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.LessOrEqual(t, len(result.SuspiciousTransactions), 5)
	assert.NotEmpty(t, result.ModelInsights)
}

func TestDetectSuspiciousLimitValidation(t *testing.T) {
	router := testRouter(nil)
	for _, limit := range []string{"0", "-5", "1001", "abc"} {
		w := doRequest(router, http.MethodGet, "/api/v1/predict/suspicious?limit="+limit, "")
		assert.Equalf(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}

func TestPredictVolume(t *testing.T) {
	w := doRequest(testRouter(nil), http.MethodGet, "/api/v1/predict/volume?days_ahead=7", "")
	require.Equal(t, http.StatusOK, w.Code)

	var result models.ForecastResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Len(t, result.PredictedVolume, 7)
}

func TestPredictVolumeValidation(t *testing.T) {
	router := testRouter(nil)
	for _, days := range []string{"-1", "366", "abc"} {
		w := doRequest(router, http.MethodGet, "/api/v1/predict/volume?days_ahead="+days, "")
		assert.Equalf(t, http.StatusBadRequest, w.Code, "days_ahead=%s", days)
	}
}

func TestFilterDateValidation(t *testing.T) {
	router := testRouter(nil)

	w := doRequest(router, http.MethodGet, "/api/v1/predict/suspicious?from=2024-13-40", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/predict/suspicious?from=2024-04-01&to=2024-04-30", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNarrativeUnconfigured(t *testing.T) {
	w := doRequest(testRouter(nil), http.MethodPost, "/api/v1/insights/narrative", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReloadWithoutLoader(t *testing.T) {
	w := doRequest(testRouter(nil), http.MethodPost, "/api/v1/data/reload", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReloadLoaderFailure(t *testing.T) {
	router := testRouter(func() (*dataset.Snapshot, error) {
		return nil, errors.New("source unreachable")
	})
	w := doRequest(router, http.MethodPost, "/api/v1/data/reload", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestReloadSuccess(t *testing.T) {
	router := testRouter(func() (*dataset.Snapshot, error) {
		return testSnapshot(40), nil
	})
	w := doRequest(router, http.MethodPost, "/api/v1/data/reload", "")
	require.Equal(t, http.StatusOK, w.Code)

	var summary models.DatasetSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 40, summary.TotalTransactions)
}

func TestDataSummary(t *testing.T) {
	w := doRequest(testRouter(nil), http.MethodGet, "/api/v1/data/summary", "")
	require.Equal(t, http.StatusOK, w.Code)

	var summary models.DatasetSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 200, summary.TotalTransactions)
	assert.NotEmpty(t, summary.TrainedAt)
}

func TestRequestIDEcho(t *testing.T) {
	router := testRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = doRequest(router, http.MethodGet, "/healthz", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
