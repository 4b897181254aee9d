package ml

import (
	"errors"
	"fmt"
)

var ErrArtifactLoad = errors.New("artifact load failure")

// ArtifactLoadError reports a missing or corrupt schema, scaler or model.
type ArtifactLoadError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("load %s artifact %q: %v", e.Artifact, e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() []error {
	return []error{ErrArtifactLoad, e.Err}
}

type ArtifactPaths struct {
	Schema    string
	Scaler    string
	Model     string
	ModelType string
}

func (p ArtifactPaths) Files() []string {
	return []string{p.Schema, p.Scaler, p.Model}
}

// Artifacts is one loaded schema/scaler/model bundle. It is never mutated
// after LoadArtifacts returns.
type Artifacts struct {
	Schema    ColumnSchema
	Scaler    *StandardScaler
	Model     Classifier
	ModelType string
}

func LoadArtifacts(paths ArtifactPaths) (*Artifacts, error) {
	schema, err := LoadSchema(paths.Schema)
	if err != nil {
		return nil, err
	}
	scaler, err := LoadScaler(paths.Scaler)
	if err != nil {
		return nil, err
	}
	model, err := LoadModel(paths.ModelType, paths.Model)
	if err != nil {
		return nil, err
	}
	if scaler.Width() != len(schema) {
		return nil, &ArtifactLoadError{
			Artifact: "scaler",
			Path:     paths.Scaler,
			Err:      fmt.Errorf("%d columns for a %d-column schema: %w", scaler.Width(), len(schema), ErrSchemaMismatch),
		}
	}
	if model.Width() != len(schema) {
		return nil, &ArtifactLoadError{
			Artifact: "model",
			Path:     paths.Model,
			Err:      fmt.Errorf("%d columns for a %d-column schema: %w", model.Width(), len(schema), ErrSchemaMismatch),
		}
	}
	if err := checkColumns(schema, scaler.ColumnNames()); err != nil {
		return nil, &ArtifactLoadError{Artifact: "scaler", Path: paths.Scaler, Err: err}
	}
	if binder, ok := model.(ColumnBinder); ok {
		if err := checkColumns(schema, binder.ColumnNames()); err != nil {
			return nil, &ArtifactLoadError{Artifact: "model", Path: paths.Model, Err: err}
		}
	}
	return &Artifacts{Schema: schema, Scaler: scaler, Model: model, ModelType: paths.ModelType}, nil
}

// checkColumns compares the names an artifact was fitted on with the schema,
// position by position.
func checkColumns(schema, fitted ColumnSchema) error {
	if len(fitted) == 0 {
		return nil
	}
	if len(fitted) != len(schema) {
		return fmt.Errorf("fitted on %d columns, schema has %d: %w", len(fitted), len(schema), ErrSchemaMismatch)
	}
	for i := range schema {
		if fitted[i] != schema[i] {
			return fmt.Errorf("column %d is %q, fitted on %q: %w", i, schema[i], fitted[i], ErrSchemaMismatch)
		}
	}
	return nil
}

func (a *Artifacts) SupportsProbability() bool {
	_, ok := a.Model.(ProbabilityEstimator)
	return ok
}
