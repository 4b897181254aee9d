package ml

import (
	"encoding/json"
	"errors"
	"os"
)

// ColumnSchema is the ordered list of columns the model was trained on.
type ColumnSchema []string

// LoadSchema reads a JSON array of column names.
func LoadSchema(path string) (ColumnSchema, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: "schema", Path: path, Err: err}
	}
	var schema ColumnSchema
	if err := json.Unmarshal(payload, &schema); err != nil {
		return nil, &ArtifactLoadError{Artifact: "schema", Path: path, Err: err}
	}
	if len(schema) == 0 {
		return nil, &ArtifactLoadError{Artifact: "schema", Path: path, Err: errors.New("schema is empty")}
	}
	seen := make(map[string]bool, len(schema))
	for _, name := range schema {
		if seen[name] {
			return nil, &ArtifactLoadError{Artifact: "schema", Path: path, Err: errors.New("duplicate column " + name)}
		}
		seen[name] = true
	}
	return schema, nil
}

func (s ColumnSchema) Save(path string) error {
	if len(s) == 0 {
		return errors.New("schema is empty")
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func (s ColumnSchema) Index(name string) int {
	for i, col := range s {
		if col == name {
			return i
		}
	}
	return -1
}

// BuildSchema lays out numeric columns followed by the one-hot columns of
// every categorical field. With dropFirst the first category of each field
// becomes the reference level and has no column.
func BuildSchema(dropFirst bool) ColumnSchema {
	schema := make(ColumnSchema, 0, 32)
	for _, field := range NumericFields {
		schema = append(schema, field.Name)
	}
	for _, field := range CategoricalFields {
		for i, category := range field.Domain {
			if dropFirst && i == 0 {
				continue
			}
			schema = append(schema, oneHotColumn(field.Prefix, category))
		}
	}
	return schema
}

func oneHotColumn(prefix, category string) string {
	return prefix + "_" + category
}
