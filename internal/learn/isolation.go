package learn

import (
	"math"
	"math/rand"
	"sort"
)

const (
	isoTrees      = 100
	isoSampleSize = 256
	eulerGamma    = 0.5772156649
)

// IsolationForest is a trained unsupervised anomaly scorer. Scores are in
// (0,1) with higher meaning more anomalous; the contamination threshold is
// fixed at training time from the training-set score distribution.
type IsolationForest struct {
	trees      []*isoNode
	sampleSize int
	threshold  float64
}

type isoNode struct {
	size    int // leaf only: how many samples ended here
	feature int
	split   float64
	left    *isoNode
	right   *isoNode
}

// TrainIsolationForest fits an isolation forest and derives the anomaly
// threshold so that roughly a contamination share of the training rows
// scores as anomalous. Returns nil when the matrix is empty.
func TrainIsolationForest(features [][]float64, contamination float64, seed int64) *IsolationForest {
	if len(features) == 0 {
		return nil
	}
	if contamination <= 0 || contamination >= 1 {
		contamination = 0.1
	}

	rng := rand.New(rand.NewSource(seed))
	sampleSize := isoSampleSize
	if sampleSize > len(features) {
		sampleSize = len(features)
	}
	heightLimit := int(math.Ceil(math.Log2(float64(sampleSize))))
	if heightLimit < 1 {
		heightLimit = 1
	}

	f := &IsolationForest{sampleSize: sampleSize}
	for t := 0; t < isoTrees; t++ {
		sample := make([][]float64, sampleSize)
		for i := range sample {
			sample[i] = features[rng.Intn(len(features))]
		}
		f.trees = append(f.trees, buildIsoTree(sample, 0, heightLimit, rng))
	}

	scores := make([]float64, len(features))
	for i, vector := range features {
		scores[i] = f.Score(vector)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	k := int(contamination * float64(len(scores)))
	if k < 1 {
		k = 1
	}
	f.threshold = scores[k-1]
	return f
}

func buildIsoTree(sample [][]float64, depth, heightLimit int, rng *rand.Rand) *isoNode {
	if len(sample) <= 1 || depth >= heightLimit {
		return &isoNode{size: len(sample)}
	}

	// Pick a feature that still varies within this partition.
	numFeatures := len(sample[0])
	for _, feature := range rng.Perm(numFeatures) {
		lo, hi := sample[0][feature], sample[0][feature]
		for _, row := range sample {
			if row[feature] < lo {
				lo = row[feature]
			}
			if row[feature] > hi {
				hi = row[feature]
			}
		}
		if hi <= lo {
			continue
		}

		split := lo + rng.Float64()*(hi-lo)
		var left, right [][]float64
		for _, row := range sample {
			if row[feature] < split {
				left = append(left, row)
			} else {
				right = append(right, row)
			}
		}
		if len(left) == 0 || len(right) == 0 {
			continue
		}

		return &isoNode{
			feature: feature,
			split:   split,
			left:    buildIsoTree(left, depth+1, heightLimit, rng),
			right:   buildIsoTree(right, depth+1, heightLimit, rng),
		}
	}

	return &isoNode{size: len(sample)}
}

// Score returns the anomaly score for one feature vector: s = 2^(-E[h]/c(n)).
func (f *IsolationForest) Score(vector []float64) float64 {
	if f == nil || len(f.trees) == 0 {
		return 0
	}

	var total float64
	for _, tree := range f.trees {
		total += pathLength(tree, vector, 0)
	}
	avg := total / float64(len(f.trees))
	return math.Pow(2, -avg/avgPathLength(f.sampleSize))
}

// Anomalous reports whether the vector scores at or above the training-time
// contamination threshold.
func (f *IsolationForest) Anomalous(vector []float64) bool {
	if f == nil {
		return false
	}
	return f.Score(vector) >= f.threshold
}

func pathLength(node *isoNode, vector []float64, depth int) float64 {
	for node.left != nil {
		if vector[node.feature] < node.split {
			node = node.left
		} else {
			node = node.right
		}
		depth++
	}
	return float64(depth) + avgPathLength(node.size)
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search over n items; used both for leaf adjustment and normalization.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}
