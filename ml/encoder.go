package ml

import (
	"errors"
	"fmt"
)

var ErrSchemaMismatch = errors.New("schema mismatch")

// FeatureVector is a row aligned with a ColumnSchema.
type FeatureVector []float64

// Encode lays out obs in schema order. Numeric fields are copied under their
// own names and each categorical field sets <prefix>_<value> to 1. Columns the
// observation does not touch are 0, and composite names the schema does not
// list (an unexpected category, for one) are dropped.
func Encode(obs RawObservation, schema ColumnSchema) (FeatureVector, error) {
	if len(schema) == 0 {
		return nil, fmt.Errorf("encode: empty column schema: %w", ErrSchemaMismatch)
	}

	values := obs.numericValues()
	for prefix, category := range obs.categoricalValues() {
		values[oneHotColumn(prefix, category)] = 1
	}

	vector := make(FeatureVector, len(schema))
	for i, col := range schema {
		vector[i] = values[col]
	}
	return vector, nil
}
