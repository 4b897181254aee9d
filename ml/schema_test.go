package ml

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestBuildSchema(t *testing.T) {
	full := BuildSchema(false)
	if len(full) != 6+2+4+3+2+3 {
		t.Fatalf("unexpected full schema width %d", len(full))
	}
	dropped := BuildSchema(true)
	if len(dropped) != len(full)-len(CategoricalFields) {
		t.Fatalf("expected one reference level per field, got width %d", len(dropped))
	}
	if !reflect.DeepEqual(dropped[:6], ColumnSchema{"Age", "RestingBP", "Cholesterol", "FastingBS", "MaxHR", "Oldpeak"}) {
		t.Fatalf("numeric columns should lead: %v", dropped[:6])
	}
	if dropped.Index("ChestPainType_ATA") != -1 || dropped.Index("ChestPainType_NAP") == -1 {
		t.Fatalf("unexpected reference levels: %v", dropped)
	}
	// first level in form order, not alphabetical
	for _, column := range []string{"Sex_M", "ChestPainType_ATA", "RestingECG_Normal", "ExerciseAngina_Y", "ST_Slope_Up"} {
		if dropped.Index(column) != -1 {
			t.Errorf("%s should be the dropped reference level", column)
		}
	}
	for _, column := range []string{"Sex_F", "ChestPainType_ASY", "RestingECG_LVH", "ExerciseAngina_N", "ST_Slope_Down"} {
		if dropped.Index(column) == -1 {
			t.Errorf("%s should be kept", column)
		}
	}
}

func TestLoadSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "columns.json")
	if err := exampleSchema().Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	schema, err := LoadSchema(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(schema, exampleSchema()) {
		t.Fatalf("unexpected schema %v", schema)
	}

	cases := map[string]string{
		"empty.json":     `[]`,
		"corrupt.json":   `{"columns":`,
		"duplicate.json": `["Age","Age"]`,
	}
	for name, body := range cases {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadSchema(p)
		var loadErr *ArtifactLoadError
		if !errors.As(err, &loadErr) || loadErr.Artifact != "schema" {
			t.Fatalf("%s: expected schema ArtifactLoadError, got %v", name, err)
		}
	}
}
