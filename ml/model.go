package ml

// Classifier predicts a class label for a scaled feature row.
type Classifier interface {
	Predict(features []float64) (int, error)
	Width() int
}

// ProbabilityEstimator is implemented by classifiers that can report class
// probabilities. Models without it still predict; they just carry no confidence.
type ProbabilityEstimator interface {
	PredictProba(features []float64) ([]float64, error)
}

// ColumnBinder is implemented by artifacts that record the column names they
// were fitted on. An empty ColumnNames means the artifact predates the field.
type ColumnBinder interface {
	SetColumns(columns ColumnSchema)
	ColumnNames() ColumnSchema
}

type Trainer interface {
	Train(features [][]float64, labels []int) error
	Save(path string) error
}

const (
	LabelNoDisease = 0
	LabelDisease   = 1
)
