package learn

import (
	"math/rand"
	"testing"
)

// separable two-cluster dataset: label 1 lives around (10,10), label 0
// around (0,0).
func separableData(n int) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(7))
	features := make([][]float64, 0, n)
	labels := make([]int, 0, n)
	for i := 0; i < n; i++ {
		label := i % 2
		base := 0.0
		if label == 1 {
			base = 10.0
		}
		features = append(features, []float64{
			base + rng.Float64(),
			base + rng.Float64(),
		})
		labels = append(labels, label)
	}
	return features, labels
}

func TestTrainForestSeparable(t *testing.T) {
	features, labels := separableData(200)
	forest := TrainForest(features, labels, ForestConfig{Trees: 20, MaxDepth: 5, Seed: 42})
	if forest == nil {
		t.Fatal("expected trained forest")
	}

	if p := forest.PredictProba([]float64{10.5, 10.5}); p < 0.9 {
		t.Errorf("positive cluster probability = %v, want >= 0.9", p)
	}
	if p := forest.PredictProba([]float64{0.5, 0.5}); p > 0.1 {
		t.Errorf("negative cluster probability = %v, want <= 0.1", p)
	}
}

func TestForestDeterministic(t *testing.T) {
	features, labels := separableData(100)
	cfg := ForestConfig{Trees: 10, MaxDepth: 5, Seed: 42}

	a := TrainForest(features, labels, cfg)
	b := TrainForest(features, labels, cfg)

	probe := []float64{5.0, 5.0}
	if a.PredictProba(probe) != b.PredictProba(probe) {
		t.Error("same seed and data must produce identical forests")
	}
}

func TestForestProbabilityRange(t *testing.T) {
	features, labels := separableData(100)
	forest := TrainForest(features, labels, DefaultForestConfig())

	probes := [][]float64{{-5, -5}, {5, 5}, {15, 15}, {0, 10}}
	for _, probe := range probes {
		p := forest.PredictProba(probe)
		if p < 0 || p > 1 {
			t.Errorf("PredictProba(%v) = %v, outside [0,1]", probe, p)
		}
	}
}

func TestTrainForestEmpty(t *testing.T) {
	if f := TrainForest(nil, nil, DefaultForestConfig()); f != nil {
		t.Error("empty training data must yield a nil forest")
	}
	if p := (*Forest)(nil).PredictProba([]float64{1}); p != 0 {
		t.Errorf("nil forest PredictProba = %v, want 0", p)
	}
}

func TestIsolationForestFlagsOutlier(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	features := make([][]float64, 0, 300)
	for i := 0; i < 299; i++ {
		features = append(features, []float64{
			100 + rng.Float64()*10,
			rng.Float64(),
		})
	}
	outlier := []float64{10000, 50}
	features = append(features, outlier)

	f := TrainIsolationForest(features, 0.1, 42)
	if f == nil {
		t.Fatal("expected trained isolation forest")
	}

	if !f.Anomalous(outlier) {
		t.Error("planted outlier must be flagged anomalous")
	}

	outlierScore := f.Score(outlier)
	normalScore := f.Score([]float64{105, 0.5})
	if outlierScore <= normalScore {
		t.Errorf("outlier score %v must exceed normal score %v", outlierScore, normalScore)
	}
	if outlierScore <= 0 || outlierScore >= 1 {
		t.Errorf("score %v outside (0,1)", outlierScore)
	}
}

func TestIsolationForestDeterministic(t *testing.T) {
	features, _ := separableData(150)

	a := TrainIsolationForest(features, 0.1, 42)
	b := TrainIsolationForest(features, 0.1, 42)

	probe := []float64{3, 3}
	if a.Score(probe) != b.Score(probe) {
		t.Error("same seed and data must produce identical isolation forests")
	}
}

func TestIsolationForestEmpty(t *testing.T) {
	if f := TrainIsolationForest(nil, 0.1, 42); f != nil {
		t.Error("empty training data must yield a nil isolation forest")
	}
	var nilForest *IsolationForest
	if nilForest.Anomalous([]float64{1}) {
		t.Error("nil isolation forest must never flag")
	}
}
