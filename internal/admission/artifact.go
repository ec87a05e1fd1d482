package admission

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	randomforest "github.com/malaschitz/randomForest"
)

// Model is the serialized artifact: the fitted forest plus the feature
// schema it was trained with. Versionless; retraining replaces it wholesale.
type Model struct {
	Forest    randomforest.Forest
	Encoder   Encoder
	Threshold float64
	TrainedAt time.Time
	AUC       float64
	Recall    float64
}

// Save writes the model artifact, replacing any previous one.
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	if err := gob.NewEncoder(file).Encode(m); err != nil {
		file.Close()
		return fmt.Errorf("encode model: %w", err)
	}
	return file.Close()
}

// LoadModel reads a model artifact from disk.
func LoadModel(path string) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model %s: %w", path, err)
	}
	defer file.Close()

	var m Model
	if err := gob.NewDecoder(file).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if m.Threshold <= 0 || m.Threshold >= 1 {
		m.Threshold = DefaultThreshold
	}
	return &m, nil
}

// Predict returns the admission probability and the binary decision at the
// model's threshold for one fully-specified encounter.
func (m *Model) Predict(age float64, gender, race string, departmentID int64, eventHour, dayOfWeek int, waitMinutes float64) (float64, int) {
	x := m.Encoder.Encode(age, gender, race, departmentID, float64(eventHour), float64(dayOfWeek), waitMinutes)
	probability := positiveProbability(&m.Forest, x)
	decision := 0
	if probability >= m.Threshold {
		decision = 1
	}
	return probability, decision
}
