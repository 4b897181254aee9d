package ml

var highRiskActions = []string{
	"Consult a cardiologist immediately",
	"Schedule comprehensive cardiac tests",
	"Monitor blood pressure and cholesterol regularly",
	"Adopt heart-healthy lifestyle changes",
	"Review medication with your doctor",
}

var lowRiskActions = []string{
	"Continue regular health check-ups",
	"Maintain a balanced diet",
	"Exercise regularly (150 min/week)",
	"Manage stress effectively",
	"Avoid smoking and excessive alcohol",
}

// Assessment is the verdict plus the advice shown next to it.
type Assessment struct {
	Result          PredictionResult `json:"result"`
	Verdict         string           `json:"verdict"`
	Recommendations []string         `json:"recommendations"`
	RiskFactors     []string         `json:"risk_factors"`
	Positives       []string         `json:"positive_indicators"`
}

func Assess(obs RawObservation, result PredictionResult) Assessment {
	assessment := Assessment{
		Result:      result,
		RiskFactors: RiskFactors(obs),
		Positives:   PositiveIndicators(obs),
	}
	if result.HasDisease {
		assessment.Verdict = "HIGH RISK OF HEART DISEASE"
		assessment.Recommendations = append([]string(nil), highRiskActions...)
	} else {
		assessment.Verdict = "LOW RISK OF HEART DISEASE"
		assessment.Recommendations = append([]string(nil), lowRiskActions...)
	}
	return assessment
}

func RiskFactors(obs RawObservation) []string {
	factors := make([]string, 0, 5)
	if obs.Age > 55 {
		factors = append(factors, "Advanced age")
	}
	if obs.RestingBP > 140 {
		factors = append(factors, "High blood pressure")
	}
	if obs.Cholesterol > 240 {
		factors = append(factors, "High cholesterol")
	}
	if obs.FastingBS == 1 {
		factors = append(factors, "Elevated blood sugar")
	}
	if obs.ExerciseAngina == "Y" {
		factors = append(factors, "Exercise-induced angina")
	}
	return factors
}

func PositiveIndicators(obs RawObservation) []string {
	factors := make([]string, 0, 4)
	if obs.Age <= 55 {
		factors = append(factors, "Younger age group")
	}
	if obs.RestingBP <= 120 {
		factors = append(factors, "Normal blood pressure")
	}
	if obs.Cholesterol <= 200 {
		factors = append(factors, "Healthy cholesterol level")
	}
	if obs.MaxHR >= 140 {
		factors = append(factors, "Good heart rate capacity")
	}
	return factors
}
