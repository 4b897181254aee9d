package ml

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestStandardScalerFitTransform(t *testing.T) {
	rows := [][]float64{
		{1, 10, 5},
		{3, 30, 5},
	}
	scaler := &StandardScaler{}
	if err := scaler.Fit(rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scaler.Mean[0] != 2 || scaler.Mean[1] != 20 {
		t.Fatalf("unexpected mean: %v", scaler.Mean)
	}
	if scaler.Scale[2] != 1 {
		t.Fatalf("constant column should have scale 1, got %v", scaler.Scale[2])
	}

	out, err := scaler.Transform(FeatureVector{3, 30, 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(out[0]-1) > 1e-9 || math.Abs(out[1]-1) > 1e-9 || out[2] != 0 {
		t.Fatalf("unexpected scaled vector: %v", out)
	}
}

func TestStandardScalerWidthMismatch(t *testing.T) {
	scaler := &StandardScaler{Mean: []float64{0, 0}, Scale: []float64{1, 1}}
	if _, err := scaler.Transform(FeatureVector{1, 2, 3}); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestLoadScaler(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scaler.json")
	scaler := &StandardScaler{Mean: []float64{1, 2}, Scale: []float64{3, 4}}
	if err := scaler.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadScaler(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Width() != 2 || loaded.Scale[1] != 4 {
		t.Fatalf("unexpected scaler: %+v", loaded)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte(`{"mean":[1],"scale":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScaler(corrupt); !errors.Is(err, ErrArtifactLoad) {
		t.Fatalf("expected ErrArtifactLoad, got %v", err)
	}
	if _, err := LoadScaler(filepath.Join(dir, "missing.json")); !errors.Is(err, ErrArtifactLoad) {
		t.Fatalf("expected ErrArtifactLoad, got %v", err)
	}
}
