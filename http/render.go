package http

import (
	"embed"
	"html/template"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"heartrisk/ml"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

var supportedLanguages = []language.Tag{language.English, language.Chinese}

var languageMatcher = language.NewMatcher(supportedLanguages)

// translations 中文文案，英文即消息键本身
var translations = map[string]string{
	"Advanced Heart Disease Risk Predictor":              "高级心脏病风险预测",
	"Basic Information":                                  "基本信息",
	"Clinical Measurements":                              "临床测量",
	"Additional Tests":                                   "附加检查",
	"Age (years)":                                        "年龄（岁）",
	"Biological Sex":                                     "生理性别",
	"Chest Pain Type":                                    "胸痛类型",
	"Exercise-Induced Angina":                            "运动诱发心绞痛",
	"Resting BP (mm Hg)":                                 "静息血压（mm Hg）",
	"Cholesterol (mg/dL)":                                "胆固醇（mg/dL）",
	"Fasting Blood Sugar > 120 mg/dL":                    "空腹血糖 > 120 mg/dL",
	"Maximum Heart Rate":                                 "最大心率",
	"Resting ECG":                                        "静息心电图",
	"Oldpeak (ST Depression)":                            "Oldpeak（ST段压低）",
	"ST Slope":                                           "ST段斜率",
	"Your Health Metrics Summary":                        "健康指标摘要",
	"Age":                                                "年龄",
	"Blood Pressure":                                     "血压",
	"Cholesterol":                                        "胆固醇",
	"Max Heart Rate":                                     "最大心率",
	"years":                                              "岁",
	"Predict Heart Disease Risk":                         "预测心脏病风险",
	"Prediction Results":                                 "预测结果",
	"HIGH RISK OF HEART DISEASE":                         "心脏病高风险",
	"LOW RISK OF HEART DISEASE":                          "心脏病低风险",
	"Confidence Level: %.1f%%":                           "置信度：%.1f%%",
	"Confidence unavailable for this model":              "该模型不提供置信度",
	"Confidence could not be estimated":                  "置信度估计失败",
	"Recommended Actions:":                               "建议措施：",
	"Maintain Your Heart Health:":                        "保持心脏健康：",
	"Risk Factors Detected":                              "检测到的风险因素",
	"Positive Indicators":                                "积极指标",
	"No major risk factors detected":                     "未发现主要风险因素",
	"Focus on lifestyle improvements":                    "请注重改善生活方式",
	"Consult a cardiologist immediately":                 "立即咨询心脏科医生",
	"Schedule comprehensive cardiac tests":               "安排全面的心脏检查",
	"Monitor blood pressure and cholesterol regularly":   "定期监测血压和胆固醇",
	"Adopt heart-healthy lifestyle changes":              "采取有益心脏的生活方式",
	"Review medication with your doctor":                 "与医生复核用药",
	"Continue regular health check-ups":                  "继续定期体检",
	"Maintain a balanced diet":                           "保持均衡饮食",
	"Exercise regularly (150 min/week)":                  "规律运动（每周150分钟）",
	"Manage stress effectively":                          "有效管理压力",
	"Avoid smoking and excessive alcohol":                "避免吸烟和过量饮酒",
	"Advanced age":                                       "高龄",
	"High blood pressure":                                "高血压",
	"High cholesterol":                                   "高胆固醇",
	"Elevated blood sugar":                               "血糖偏高",
	"Exercise-induced angina":                            "运动诱发心绞痛",
	"Younger age group":                                  "年龄较轻",
	"Normal blood pressure":                              "血压正常",
	"Healthy cholesterol level":                          "胆固醇水平健康",
	"Good heart rate capacity":                           "心率储备良好",
	"Prediction failed":                                  "预测失败",
	"Please check the highlighted values and try again.": "请检查输入值后重试。",
	"This tool is for educational and informational purposes only. It should not be used as a substitute for professional medical advice, diagnosis, or treatment.": "本工具仅用于教育和信息目的，不能替代专业的医疗建议、诊断或治疗。",
}

var messageCatalog = buildCatalog()

func buildCatalog() catalog.Catalog {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, zh := range translations {
		if err := builder.SetString(language.Chinese, key, zh); err != nil {
			panic(err)
		}
		if err := builder.SetString(language.English, key, key); err != nil {
			panic(err)
		}
	}
	return builder
}

// printerFor 按 ?lang= 或 Accept-Language 选择语言
func printerFor(r *http.Request) (*message.Printer, language.Tag) {
	_, index := language.MatchStrings(languageMatcher, r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
	tag := supportedLanguages[index]
	return message.NewPrinter(tag, message.Catalog(messageCatalog)), tag
}

// pageView 表单页面数据
type pageView struct {
	printer      *message.Printer
	Lang         string
	Observation  ml.RawObservation
	Categoricals []ml.CategoricalField
	Assessment   *ml.Assessment
	Error        string
}

// T 翻译消息键
func (v *pageView) T(key string) string {
	return v.printer.Sprintf(key)
}

// TList 翻译一组消息键
func (v *pageView) TList(keys []string) []string {
	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = v.printer.Sprintf(key)
	}
	return out
}

// ConfidenceText 置信度文案
func (v *pageView) ConfidenceText() string {
	if v.Assessment == nil {
		return ""
	}
	result := v.Assessment.Result
	switch result.ConfidenceStatus {
	case ml.ConfidenceAvailable:
		return v.printer.Sprintf("Confidence Level: %.1f%%", *result.Confidence)
	case ml.ConfidenceFailed:
		return v.printer.Sprintf("Confidence could not be estimated")
	default:
		return v.printer.Sprintf("Confidence unavailable for this model")
	}
}

// Domain 返回分类字段的可选值
func (v *pageView) Domain(prefix string) []string {
	for _, field := range v.Categoricals {
		if field.Prefix == prefix {
			return field.Domain
		}
	}
	return nil
}

func newPageView(r *http.Request, obs ml.RawObservation) *pageView {
	printer, tag := printerFor(r)
	return &pageView{
		printer:      printer,
		Lang:         tag.String(),
		Observation:  obs,
		Categoricals: ml.CategoricalFields,
	}
}

func renderPage(w http.ResponseWriter, status int, view *pageView) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return pageTemplate.Execute(w, view)
}
