package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"heartrisk/ml"
	"heartrisk/monitoring"
)

// PredictorSource 提供当前生效的预测器（支持热加载）
type PredictorSource interface {
	Current() *ml.Predictor
}

// Handler 表单页面及预测接口
type Handler struct {
	predictors PredictorSource
	metrics    *monitoring.MetricsCollector
	logger     *zap.Logger
	upgrader   websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(predictors PredictorSource, metrics *monitoring.MetricsCollector, allowedOrigins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = monitoring.NewMetricsCollector()
	}
	return &Handler{
		predictors: predictors,
		metrics:    metrics,
		logger:     logger,
		upgrader:   newUpgrader(allowedOrigins),
	}
}

// Register 注册所有路由
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /predict", h.handlePredictForm)
	mux.HandleFunc("POST /api/predict", h.handlePredictJSON)
	mux.HandleFunc("GET /api/schema", h.handleSchema)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/stats", h.handleStats)
	mux.HandleFunc("GET "+websocketPathPrefix+"predict", h.handleLivePredict)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := newPageView(r, ml.DefaultObservation())
	if err := renderPage(w, http.StatusOK, view); err != nil {
		h.logger.Error("render page", zap.Error(err))
	}
}

func (h *Handler) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	obs, err := parseObservationForm(r)
	if err != nil {
		view := newPageView(r, obs)
		view.Error = view.T("Please check the highlighted values and try again.") + " " + err.Error()
		if err := renderPage(w, http.StatusBadRequest, view); err != nil {
			h.logger.Error("render page", zap.Error(err))
		}
		return
	}

	view := newPageView(r, obs)
	assessment, err := h.assess(r.Context(), obs)
	if err != nil {
		view.Error = err.Error()
		if err := renderPage(w, statusFor(err), view); err != nil {
			h.logger.Error("render page", zap.Error(err))
		}
		return
	}
	view.Assessment = &assessment
	if err := renderPage(w, http.StatusOK, view); err != nil {
		h.logger.Error("render page", zap.Error(err))
	}
}

// predictResponse JSON预测响应
type predictResponse struct {
	ml.Assessment
	VerdictText    string `json:"verdict_text"`
	ConfidenceText string `json:"confidence_text"`
}

func (h *Handler) handlePredictJSON(w http.ResponseWriter, r *http.Request) {
	var obs ml.RawObservation
	if err := json.NewDecoder(r.Body).Decode(&obs); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	assessment, err := h.assess(r.Context(), obs)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, localize(r, assessment))
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	predictor := h.predictors.Current()
	if predictor == nil {
		respondError(w, http.StatusServiceUnavailable, "artifacts not loaded")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"columns":     predictor.Artifacts().Schema,
		"numeric":     ml.NumericFields,
		"categorical": ml.CategoricalFields,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	predictor := h.predictors.Current()
	if predictor == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	artifacts := predictor.Artifacts()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"model_type":  artifacts.ModelType,
		"columns":     len(artifacts.Schema),
		"probability": artifacts.SupportsProbability(),
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "prometheus" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprint(w, h.metrics.ExportPrometheus())
		return
	}
	respondJSON(w, http.StatusOK, h.metrics.Snapshot())
}

// assess 校验输入并完成一次预测
func (h *Handler) assess(ctx context.Context, obs ml.RawObservation) (ml.Assessment, error) {
	if err := obs.Validate(); err != nil {
		return ml.Assessment{}, err
	}
	predictor := h.predictors.Current()
	if predictor == nil {
		return ml.Assessment{}, errArtifactsUnavailable
	}

	start := time.Now()
	result, err := predictor.Predict(ctx, obs)
	h.metrics.RecordPrediction(time.Since(start), result.HasDisease, err)
	if err != nil {
		h.logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(ctx)),
			zap.Error(err),
		)
		return ml.Assessment{}, err
	}
	return ml.Assess(obs, result), nil
}

var errArtifactsUnavailable = errors.New("artifacts not loaded")

// statusFor 错误到HTTP状态码的映射
func statusFor(err error) int {
	switch {
	case errors.Is(err, ml.ErrInvalidObservation):
		return http.StatusBadRequest
	case errors.Is(err, errArtifactsUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func localize(r *http.Request, assessment ml.Assessment) predictResponse {
	view := newPageView(r, ml.RawObservation{})
	view.Assessment = &assessment
	return predictResponse{
		Assessment:     assessment,
		VerdictText:    view.T(assessment.Verdict),
		ConfidenceText: view.ConfidenceText(),
	}
}

// parseObservationForm 解析表单字段。出错时仍返回已解析的字段，
// 无法解析的字段保留默认值，便于页面回填
func parseObservationForm(r *http.Request) (ml.RawObservation, error) {
	obs := ml.DefaultObservation()
	if err := r.ParseForm(); err != nil {
		return obs, fmt.Errorf("%w: %v", ml.ErrInvalidObservation, err)
	}

	var firstErr error
	numbers := []struct {
		name   string
		target *float64
	}{
		{"Age", &obs.Age},
		{"RestingBP", &obs.RestingBP},
		{"Cholesterol", &obs.Cholesterol},
		{"MaxHR", &obs.MaxHR},
		{"Oldpeak", &obs.Oldpeak},
	}
	for _, field := range numbers {
		value, err := strconv.ParseFloat(r.PostForm.Get(field.name), 64)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %s is not a number", ml.ErrInvalidObservation, field.name)
			}
			continue
		}
		*field.target = value
	}
	if fastingBS, err := strconv.Atoi(r.PostForm.Get("FastingBS")); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("%w: FastingBS is not an integer", ml.ErrInvalidObservation)
		}
	} else {
		obs.FastingBS = fastingBS
	}

	categories := map[string]*string{
		"Sex":            &obs.Sex,
		"ChestPainType":  &obs.ChestPainType,
		"RestingECG":     &obs.RestingECG,
		"ExerciseAngina": &obs.ExerciseAngina,
		"ST_Slope":       &obs.STSlope,
	}
	for name, target := range categories {
		if value := r.PostForm.Get(name); value != "" {
			*target = value
		}
	}

	if firstErr != nil {
		return obs, firstErr
	}
	return obs, obs.Validate()
}

// respondJSON 统一JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode JSON", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
