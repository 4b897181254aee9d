package ml

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidObservation = errors.New("invalid observation")

// RawObservation is one submission of the form. JSON keys match the
// schema column names so an observation can be posted as-is.
type RawObservation struct {
	Age            float64 `json:"Age"`
	Sex            string  `json:"Sex"`
	ChestPainType  string  `json:"ChestPainType"`
	RestingBP      float64 `json:"RestingBP"`
	Cholesterol    float64 `json:"Cholesterol"`
	FastingBS      int     `json:"FastingBS"`
	RestingECG     string  `json:"RestingECG"`
	MaxHR          float64 `json:"MaxHR"`
	ExerciseAngina string  `json:"ExerciseAngina"`
	Oldpeak        float64 `json:"Oldpeak"`
	STSlope        string  `json:"ST_Slope"`
}

type CategoricalField struct {
	Prefix string   `json:"prefix"`
	Domain []string `json:"domain"`
}

type NumericField struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// CategoricalFields lists the one-hot encoded fields in form order.
var CategoricalFields = []CategoricalField{
	{Prefix: "Sex", Domain: []string{"M", "F"}},
	{Prefix: "ChestPainType", Domain: []string{"ATA", "NAP", "TA", "ASY"}},
	{Prefix: "RestingECG", Domain: []string{"Normal", "ST", "LVH"}},
	{Prefix: "ExerciseAngina", Domain: []string{"Y", "N"}},
	{Prefix: "ST_Slope", Domain: []string{"Up", "Flat", "Down"}},
}

// NumericFields lists the numeric columns in schema order with their form bounds.
var NumericFields = []NumericField{
	{Name: "Age", Min: 18, Max: 100, Step: 1},
	{Name: "RestingBP", Min: 80, Max: 200, Step: 1},
	{Name: "Cholesterol", Min: 100, Max: 600, Step: 1},
	{Name: "FastingBS", Min: 0, Max: 1, Step: 1},
	{Name: "MaxHR", Min: 60, Max: 220, Step: 1},
	{Name: "Oldpeak", Min: 0, Max: 6, Step: 0.1},
}

func DefaultObservation() RawObservation {
	return RawObservation{
		Age:            40,
		Sex:            "M",
		ChestPainType:  "ATA",
		RestingBP:      120,
		Cholesterol:    200,
		FastingBS:      0,
		RestingECG:     "Normal",
		MaxHR:          150,
		ExerciseAngina: "N",
		Oldpeak:        1.0,
		STSlope:        "Up",
	}
}

func (o RawObservation) numericValues() map[string]float64 {
	return map[string]float64{
		"Age":         o.Age,
		"RestingBP":   o.RestingBP,
		"Cholesterol": o.Cholesterol,
		"FastingBS":   float64(o.FastingBS),
		"MaxHR":       o.MaxHR,
		"Oldpeak":     o.Oldpeak,
	}
}

func (o RawObservation) categoricalValues() map[string]string {
	return map[string]string{
		"Sex":            o.Sex,
		"ChestPainType":  o.ChestPainType,
		"RestingECG":     o.RestingECG,
		"ExerciseAngina": o.ExerciseAngina,
		"ST_Slope":       o.STSlope,
	}
}

// Validate checks the numeric fields against the form bounds. Categorical
// values are not checked here: an unknown category encodes to all-zero
// indicator columns.
func (o RawObservation) Validate() error {
	values := o.numericValues()
	for _, field := range NumericFields {
		value := values[field.Name]
		if math.IsNaN(value) || value < field.Min || value > field.Max {
			return fmt.Errorf("%w: %s=%v outside [%v, %v]", ErrInvalidObservation, field.Name, value, field.Min, field.Max)
		}
	}
	if o.FastingBS != 0 && o.FastingBS != 1 {
		return fmt.Errorf("%w: FastingBS must be 0 or 1", ErrInvalidObservation)
	}
	return nil
}

// OutOfDomain returns the prefixes whose value is not in the field's domain.
func (o RawObservation) OutOfDomain() []string {
	values := o.categoricalValues()
	var fields []string
	for _, field := range CategoricalFields {
		if !contains(field.Domain, values[field.Prefix]) {
			fields = append(fields, field.Prefix)
		}
	}
	return fields
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
