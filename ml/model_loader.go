package ml

import (
	"errors"
)

const (
	ModelTypeKNN          = "knn"
	ModelTypeDecisionTree = "decision_tree"
)

func LoadModel(modelType, path string) (Classifier, error) {
	switch modelType {
	case ModelTypeKNN:
		model := &KNN{}
		if err := model.Load(path); err != nil {
			return nil, &ArtifactLoadError{Artifact: "model", Path: path, Err: err}
		}
		return model, nil
	case ModelTypeDecisionTree:
		model := &DecisionTree{}
		if err := model.Load(path); err != nil {
			return nil, &ArtifactLoadError{Artifact: "model", Path: path, Err: err}
		}
		return model, nil
	default:
		return nil, &ArtifactLoadError{Artifact: "model", Path: path, Err: errors.New("unsupported model type " + modelType)}
	}
}
