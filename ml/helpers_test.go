package ml

import (
	"path/filepath"
	"testing"
)

// trainingRows returns a small separable dataset: older patients with
// exercise angina and a flat slope are labelled as disease.
func trainingRows() ([]RawObservation, []int) {
	var observations []RawObservation
	var labels []int
	for i := 0; i < 10; i++ {
		healthy := DefaultObservation()
		healthy.Age = float64(30 + i)
		healthy.MaxHR = float64(160 + i)
		observations = append(observations, healthy)
		labels = append(labels, LabelNoDisease)

		sick := DefaultObservation()
		sick.Age = float64(60 + i)
		sick.MaxHR = float64(100 + i)
		sick.ExerciseAngina = "Y"
		sick.STSlope = "Flat"
		sick.ChestPainType = "ASY"
		sick.Oldpeak = 2.5
		observations = append(observations, sick)
		labels = append(labels, LabelDisease)
	}
	return observations, labels
}

// writeArtifacts fits and saves a schema, scaler and model into dir.
func writeArtifacts(t *testing.T, dir string, model Trainer, modelType string) ArtifactPaths {
	t.Helper()
	schema := BuildSchema(true)
	observations, labels := trainingRows()

	rows := make([][]float64, len(observations))
	for i, obs := range observations {
		vector, err := Encode(obs, schema)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		rows[i] = vector
	}
	scaler := &StandardScaler{}
	if err := scaler.Fit(rows); err != nil {
		t.Fatalf("fit scaler: %v", err)
	}
	scaled := make([][]float64, len(rows))
	for i, row := range rows {
		out, err := scaler.Transform(row)
		if err != nil {
			t.Fatalf("transform: %v", err)
		}
		scaled[i] = out
	}
	if err := model.Train(scaled, labels); err != nil {
		t.Fatalf("train: %v", err)
	}
	scaler.SetColumns(schema)
	if binder, ok := model.(ColumnBinder); ok {
		binder.SetColumns(schema)
	}

	paths := ArtifactPaths{
		Schema:    filepath.Join(dir, "columns.json"),
		Scaler:    filepath.Join(dir, "scaler.json"),
		Model:     filepath.Join(dir, "model.json"),
		ModelType: modelType,
	}
	if err := schema.Save(paths.Schema); err != nil {
		t.Fatalf("save schema: %v", err)
	}
	if err := scaler.Save(paths.Scaler); err != nil {
		t.Fatalf("save scaler: %v", err)
	}
	if err := model.Save(paths.Model); err != nil {
		t.Fatalf("save model: %v", err)
	}
	return paths
}

func sickObservation() RawObservation {
	obs := DefaultObservation()
	obs.Age = 65
	obs.MaxHR = 105
	obs.ExerciseAngina = "Y"
	obs.STSlope = "Flat"
	obs.ChestPainType = "ASY"
	obs.Oldpeak = 2.5
	return obs
}
