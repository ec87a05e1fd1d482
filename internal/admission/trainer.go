package admission

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	randomforest "github.com/malaschitz/randomForest"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/hospitalops/internal/warehouse"
)

const (
	// TrainSeed fixes the shuffle split and the forest's samplers so a
	// retrain on the same warehouse reproduces the same model.
	TrainSeed = 42

	// NumTrees matches the size the admission model has been evaluated at.
	NumTrees = 300

	// DefaultThreshold converts the admission probability into the binary
	// decision.
	DefaultThreshold = 0.5

	testFraction = 0.2
	minTrainRows = 20
)

// TrainResult carries the fitted model and its held-out evaluation.
type TrainResult struct {
	Model     *Model
	AUC       float64
	Recall    float64
	TrainRows int
	TestRows  int
}

// Train fits a Random Forest admission classifier on the labeled fact rows
// using a single seeded train/evaluate split. No hyperparameter search; the
// evaluation is a sanity report, not a selection loop.
func Train(rows []warehouse.TrainingRow) (*TrainResult, error) {
	if len(rows) < minTrainRows {
		return nil, fmt.Errorf("not enough labeled rows to train: have %d, need %d", len(rows), minTrainRows)
	}

	encoder := NewEncoder(rows)

	positives := 0
	for i := range rows {
		if rows[i].Admitted == 1 {
			positives++
		}
	}
	if positives == 0 || positives == len(rows) {
		return nil, fmt.Errorf("training data has a single class (%d positives of %d rows)", positives, len(rows))
	}

	rng := rand.New(rand.NewSource(TrainSeed))

	// Stratified split: shuffle and hold out the same fraction of each class
	// so the minority class is never absent from either side.
	byClass := make(map[int][]int)
	for i := range rows {
		y := int(rows[i].Admitted)
		byClass[y] = append(byClass[y], i)
	}

	var trainX, testX [][]float64
	var trainY, testY []int
	for _, y := range []int{0, 1} {
		idxs := byClass[y]
		rng.Shuffle(len(idxs), func(a, b int) { idxs[a], idxs[b] = idxs[b], idxs[a] })
		testSize := int(float64(len(idxs)) * testFraction)
		if testSize < 1 {
			testSize = 1
		}
		for i, idx := range idxs {
			x := encoder.EncodeRow(&rows[idx])
			if i < testSize {
				testX = append(testX, x)
				testY = append(testY, y)
			} else {
				trainX = append(trainX, x)
				trainY = append(trainY, y)
			}
		}
	}

	// The forest bootstraps from the shared math/rand source; reseed it so a
	// retrain starts from a fixed state instead of whatever ran before.
	rand.Seed(TrainSeed)

	forest := randomforest.Forest{}
	forest.Data = randomforest.ForestData{X: trainX, Class: trainY}
	forest.Train(NumTrees)

	probs := make([]float64, len(testX))
	for i, x := range testX {
		probs[i] = positiveProbability(&forest, x)
	}

	auc := rocAUC(probs, testY)
	recall := recallAt(probs, testY, DefaultThreshold)

	log.Info().
		Int("train_rows", len(trainX)).
		Int("test_rows", len(testX)).
		Int("features", encoder.NumFeatures()).
		Float64("roc_auc", auc).
		Float64("recall", recall).
		Msg("Admission model trained")

	return &TrainResult{
		Model: &Model{
			Forest:    forest,
			Encoder:   *encoder,
			Threshold: DefaultThreshold,
			TrainedAt: time.Now().UTC(),
			AUC:       auc,
			Recall:    recall,
		},
		AUC:       auc,
		Recall:    recall,
		TrainRows: len(trainX),
		TestRows:  len(testX),
	}, nil
}

func positiveProbability(forest *randomforest.Forest, x []float64) float64 {
	votes := forest.Vote(x)
	if len(votes) < 2 {
		return 0
	}
	return votes[1]
}

// rocAUC computes the area under the ROC curve with the rank-sum estimator,
// averaging ranks across probability ties.
func rocAUC(probs []float64, labels []int) float64 {
	n := len(probs)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return probs[idx[a]] < probs[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && probs[idx[j]] == probs[idx[i]] {
			j++
		}
		// 1-based average rank over the tie run [i, j)
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	var positives, rankSum float64
	for i, y := range labels {
		if y == 1 {
			positives++
			rankSum += ranks[i]
		}
	}
	negatives := float64(n) - positives
	if positives == 0 || negatives == 0 {
		return 0
	}
	return (rankSum - positives*(positives+1)/2) / (positives * negatives)
}

func recallAt(probs []float64, labels []int, threshold float64) float64 {
	var truePositives, actualPositives float64
	for i, y := range labels {
		if y != 1 {
			continue
		}
		actualPositives++
		if probs[i] >= threshold {
			truePositives++
		}
	}
	if actualPositives == 0 {
		return 0
	}
	return truePositives / actualPositives
}
