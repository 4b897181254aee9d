package ml

import (
	"context"
	"errors"
	"os"
	"testing"
)

type failingProbaModel struct {
	width int
}

func (m *failingProbaModel) Predict(features []float64) (int, error) {
	return LabelDisease, nil
}

func (m *failingProbaModel) Width() int {
	return m.width
}

func (m *failingProbaModel) PredictProba(features []float64) ([]float64, error) {
	return nil, errors.New("probability backend unavailable")
}

func TestPredictorKNNWithConfidence(t *testing.T) {
	paths := writeArtifacts(t, t.TempDir(), NewKNN(3), ModelTypeKNN)
	artifacts, err := LoadArtifacts(paths)
	if err != nil {
		t.Fatalf("load artifacts: %v", err)
	}
	predictor, err := NewPredictor(artifacts, 16, nil)
	if err != nil {
		t.Fatalf("new predictor: %v", err)
	}

	result, err := predictor.Predict(context.Background(), sickObservation())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !result.HasDisease || result.Label != LabelDisease {
		t.Fatalf("expected disease verdict, got %+v", result)
	}
	if result.ConfidenceStatus != ConfidenceAvailable || result.Confidence == nil {
		t.Fatalf("expected confidence, got %+v", result)
	}
	if *result.Confidence != 100 {
		t.Fatalf("expected unanimous neighbours, got %.1f", *result.Confidence)
	}

	healthy, err := predictor.Predict(context.Background(), DefaultObservation())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if healthy.HasDisease {
		t.Fatalf("expected no disease for defaults, got %+v", healthy)
	}
}

func TestPredictorWithoutProbabilityCapability(t *testing.T) {
	paths := writeArtifacts(t, t.TempDir(), NewDecisionTree(3), ModelTypeDecisionTree)
	artifacts, err := LoadArtifacts(paths)
	if err != nil {
		t.Fatalf("load artifacts: %v", err)
	}
	predictor, err := NewPredictor(artifacts, 0, nil)
	if err != nil {
		t.Fatalf("new predictor: %v", err)
	}
	result, err := predictor.Predict(context.Background(), sickObservation())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if result.Confidence != nil || result.ConfidenceStatus != ConfidenceUnsupported {
		t.Fatalf("expected confidence to be omitted, got %+v", result)
	}
}

func TestPredictorProbabilityFailureIsReported(t *testing.T) {
	schema := BuildSchema(true)
	width := len(schema)
	artifacts := &Artifacts{
		Schema:    schema,
		Scaler:    &StandardScaler{Mean: make([]float64, width), Scale: ones(width)},
		Model:     &failingProbaModel{width: width},
		ModelType: "fake",
	}
	predictor, err := NewPredictor(artifacts, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := predictor.Predict(context.Background(), DefaultObservation())
	if err != nil {
		t.Fatalf("a failed probability call should not fail the prediction: %v", err)
	}
	if result.ConfidenceStatus != ConfidenceFailed || result.Confidence != nil {
		t.Fatalf("expected failed confidence status, got %+v", result)
	}
	if result.Label != LabelDisease {
		t.Fatalf("expected label from Predict, got %d", result.Label)
	}
}

func TestPredictorSchemaMismatch(t *testing.T) {
	schema := BuildSchema(true)
	artifacts := &Artifacts{
		Schema: schema,
		Scaler: &StandardScaler{Mean: make([]float64, len(schema)+1), Scale: ones(len(schema) + 1)},
		Model:  NewKNN(1),
	}
	predictor, err := NewPredictor(artifacts, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := predictor.Predict(context.Background(), DefaultObservation()); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestPredictorHonoursCancelledContext(t *testing.T) {
	paths := writeArtifacts(t, t.TempDir(), NewKNN(3), ModelTypeKNN)
	artifacts, err := LoadArtifacts(paths)
	if err != nil {
		t.Fatal(err)
	}
	predictor, err := NewPredictor(artifacts, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := predictor.Predict(ctx, DefaultObservation()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLoadArtifactsWidthDisagreement(t *testing.T) {
	dir := t.TempDir()
	paths := writeArtifacts(t, dir, NewKNN(3), ModelTypeKNN)
	if err := (ColumnSchema{"Age", "Sex_F"}).Save(paths.Schema); err != nil {
		t.Fatal(err)
	}
	_, err := LoadArtifacts(paths)
	if !errors.Is(err, ErrArtifactLoad) || !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected artifact load failure wrapping schema mismatch, got %v", err)
	}
}

func TestLoadArtifactsMissingModel(t *testing.T) {
	dir := t.TempDir()
	paths := writeArtifacts(t, dir, NewKNN(3), ModelTypeKNN)
	if err := os.Remove(paths.Model); err != nil {
		t.Fatal(err)
	}
	_, err := LoadArtifacts(paths)
	var loadErr *ArtifactLoadError
	if !errors.As(err, &loadErr) || loadErr.Artifact != "model" {
		t.Fatalf("expected model ArtifactLoadError, got %v", err)
	}
}

func ones(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = 1
	}
	return values
}

func TestLoadArtifactsSwappedColumns(t *testing.T) {
	for _, modelType := range []string{ModelTypeKNN, ModelTypeDecisionTree} {
		t.Run(modelType, func(t *testing.T) {
			var model Trainer = NewKNN(3)
			if modelType == ModelTypeDecisionTree {
				model = NewDecisionTree(3)
			}
			paths := writeArtifacts(t, t.TempDir(), model, modelType)
			if _, err := LoadArtifacts(paths); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			swapped := BuildSchema(true)
			swapped[0], swapped[1] = swapped[1], swapped[0]
			if err := swapped.Save(paths.Schema); err != nil {
				t.Fatal(err)
			}
			_, err := LoadArtifacts(paths)
			if !errors.Is(err, ErrArtifactLoad) || !errors.Is(err, ErrSchemaMismatch) {
				t.Fatalf("expected artifact load failure wrapping schema mismatch, got %v", err)
			}
		})
	}
}

func TestLoadArtifactsModelColumnsChecked(t *testing.T) {
	paths := writeArtifacts(t, t.TempDir(), NewKNN(3), ModelTypeKNN)

	// scaler without recorded names, model fitted on a different order
	scaler, err := LoadScaler(paths.Scaler)
	if err != nil {
		t.Fatal(err)
	}
	scaler.Columns = nil
	if err := scaler.Save(paths.Scaler); err != nil {
		t.Fatal(err)
	}
	model := &KNN{}
	if err := model.Load(paths.Model); err != nil {
		t.Fatal(err)
	}
	model.Columns[2], model.Columns[3] = model.Columns[3], model.Columns[2]
	if err := model.Save(paths.Model); err != nil {
		t.Fatal(err)
	}

	_, err = LoadArtifacts(paths)
	var loadErr *ArtifactLoadError
	if !errors.As(err, &loadErr) || loadErr.Artifact != "model" || !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected model schema mismatch, got %v", err)
	}
}

func TestLoadArtifactsWithoutColumnNames(t *testing.T) {
	paths := writeArtifacts(t, t.TempDir(), NewKNN(3), ModelTypeKNN)
	scaler, err := LoadScaler(paths.Scaler)
	if err != nil {
		t.Fatal(err)
	}
	scaler.Columns = nil
	if err := scaler.Save(paths.Scaler); err != nil {
		t.Fatal(err)
	}
	model := &KNN{}
	if err := model.Load(paths.Model); err != nil {
		t.Fatal(err)
	}
	model.Columns = nil
	if err := model.Save(paths.Model); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadArtifacts(paths); err != nil {
		t.Fatalf("artifacts without column names should still load: %v", err)
	}
}
