package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

// KNN is a k-nearest-neighbours classifier over scaled rows with uniform
// votes and Euclidean distance.
type KNN struct {
	K       int          `json:"k"`
	Classes []int        `json:"classes"`
	Columns ColumnSchema `json:"columns,omitempty"`
	Points  [][]float64  `json:"points"`
	Labels  []int        `json:"labels"`
}

func NewKNN(k int) *KNN {
	if k <= 0 {
		k = 5
	}
	return &KNN{K: k}
}

func (m *KNN) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	width := len(features[0])
	points := make([][]float64, len(features))
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("row %d has width %d, want %d: %w", i, len(row), width, ErrSchemaMismatch)
		}
		points[i] = append([]float64(nil), row...)
	}
	m.Points = points
	m.Labels = append([]int(nil), labels...)
	m.Classes = distinctSorted(labels)
	return nil
}

func (m *KNN) Width() int {
	if len(m.Points) == 0 {
		return 0
	}
	return len(m.Points[0])
}

func (m *KNN) SetColumns(columns ColumnSchema) {
	m.Columns = append(ColumnSchema(nil), columns...)
}

func (m *KNN) ColumnNames() ColumnSchema {
	return m.Columns
}

func (m *KNN) Predict(features []float64) (int, error) {
	proba, err := m.PredictProba(features)
	if err != nil {
		return 0, err
	}
	best := 0
	for i := range proba {
		if proba[i] > proba[best] {
			best = i
		}
	}
	return m.Classes[best], nil
}

// PredictProba returns the share of the k nearest neighbours voting for each
// entry of Classes.
func (m *KNN) PredictProba(features []float64) ([]float64, error) {
	if len(m.Points) == 0 {
		return nil, errors.New("model not trained")
	}
	if len(features) != m.Width() {
		return nil, fmt.Errorf("knn expects %d columns, got %d: %w", m.Width(), len(features), ErrSchemaMismatch)
	}

	type neighbour struct {
		distance float64
		label    int
	}
	neighbours := make([]neighbour, len(m.Points))
	for i, point := range m.Points {
		neighbours[i] = neighbour{distance: euclidean(point, features), label: m.Labels[i]}
	}
	sort.SliceStable(neighbours, func(i, j int) bool {
		return neighbours[i].distance < neighbours[j].distance
	})

	k := m.K
	if k > len(neighbours) {
		k = len(neighbours)
	}
	classIndex := make(map[int]int, len(m.Classes))
	for i, class := range m.Classes {
		classIndex[class] = i
	}
	proba := make([]float64, len(m.Classes))
	for _, n := range neighbours[:k] {
		idx, ok := classIndex[n.label]
		if !ok {
			return nil, fmt.Errorf("label %d not in classes", n.label)
		}
		proba[idx] += 1 / float64(k)
	}
	return proba, nil
}

func (m *KNN) Save(path string) error {
	if len(m.Points) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (m *KNN) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded KNN
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return err
	}
	if len(loaded.Points) == 0 || len(loaded.Points) != len(loaded.Labels) {
		return errors.New("knn points and labels mismatch")
	}
	if loaded.K <= 0 {
		return errors.New("knn k must be positive")
	}
	if len(loaded.Classes) == 0 {
		loaded.Classes = distinctSorted(loaded.Labels)
	}
	width := len(loaded.Points[0])
	if width == 0 {
		return errors.New("knn points are empty")
	}
	for i, point := range loaded.Points {
		if len(point) != width {
			return fmt.Errorf("knn point %d has width %d, want %d", i, len(point), width)
		}
	}
	classes := make(map[int]bool, len(loaded.Classes))
	for _, class := range loaded.Classes {
		classes[class] = true
	}
	for i, label := range loaded.Labels {
		if !classes[label] {
			return fmt.Errorf("knn label %d at %d not in classes %v", label, i, loaded.Classes)
		}
	}
	if len(loaded.Columns) > 0 && len(loaded.Columns) != width {
		return fmt.Errorf("knn lists %d columns for width %d", len(loaded.Columns), width)
	}
	*m = loaded
	return nil
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

func distinctSorted(labels []int) []int {
	seen := make(map[int]bool)
	classes := make([]int, 0, 2)
	for _, label := range labels {
		if !seen[label] {
			seen[label] = true
			classes = append(classes, label)
		}
	}
	sort.Ints(classes)
	return classes
}
