package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// StandardScaler centers each column on its training mean and divides by
// the population standard deviation.
type StandardScaler struct {
	Columns ColumnSchema `json:"columns,omitempty"`
	Mean    []float64    `json:"mean"`
	Scale   []float64    `json:"scale"`
}

func LoadScaler(path string) (*StandardScaler, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: "scaler", Path: path, Err: err}
	}
	var scaler StandardScaler
	if err := json.Unmarshal(payload, &scaler); err != nil {
		return nil, &ArtifactLoadError{Artifact: "scaler", Path: path, Err: err}
	}
	if len(scaler.Mean) == 0 || len(scaler.Mean) != len(scaler.Scale) {
		return nil, &ArtifactLoadError{Artifact: "scaler", Path: path, Err: errors.New("mean/scale length mismatch")}
	}
	if len(scaler.Columns) > 0 && len(scaler.Columns) != len(scaler.Mean) {
		return nil, &ArtifactLoadError{Artifact: "scaler", Path: path, Err: errors.New("columns/mean length mismatch")}
	}
	return &scaler, nil
}

func (s *StandardScaler) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return errors.New("rows is empty")
	}
	width := len(rows[0])
	mean := make([]float64, width)
	for _, row := range rows {
		if len(row) != width {
			return fmt.Errorf("ragged rows: want width %d, got %d: %w", width, len(row), ErrSchemaMismatch)
		}
		for i, v := range row {
			mean[i] += v
		}
	}
	n := float64(len(rows))
	for i := range mean {
		mean[i] /= n
	}
	scale := make([]float64, width)
	for _, row := range rows {
		for i, v := range row {
			diff := v - mean[i]
			scale[i] += diff * diff
		}
	}
	for i := range scale {
		scale[i] = math.Sqrt(scale[i] / n)
		if scale[i] == 0 {
			scale[i] = 1
		}
	}
	s.Mean = mean
	s.Scale = scale
	return nil
}

func (s *StandardScaler) SetColumns(columns ColumnSchema) {
	s.Columns = append(ColumnSchema(nil), columns...)
}

func (s *StandardScaler) ColumnNames() ColumnSchema {
	return s.Columns
}

func (s *StandardScaler) Width() int {
	return len(s.Mean)
}

func (s *StandardScaler) Transform(vector FeatureVector) (FeatureVector, error) {
	if len(vector) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d columns, got %d: %w", len(s.Mean), len(vector), ErrSchemaMismatch)
	}
	scaled := make(FeatureVector, len(vector))
	for i, v := range vector {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		scaled[i] = (v - s.Mean[i]) / scale
	}
	return scaled, nil
}

func (s *StandardScaler) Save(path string) error {
	if len(s.Mean) == 0 {
		return errors.New("scaler not fitted")
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
