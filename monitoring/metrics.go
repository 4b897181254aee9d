package monitoring

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType 指标类型
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeHistogram MetricType = "histogram"
)

const (
	MetricPredictionsTotal   = "predictions_total"
	MetricPredictionFailures = "prediction_failures"
	MetricHighRiskTotal      = "high_risk_total"
	MetricPredictionLatency  = "prediction_latency_ms"
)

// 每个直方图最多保留的样本数
const maxSamples = 1000

// MetricsCollector 预测指标收集器
type MetricsCollector struct {
	mu       sync.RWMutex
	counters map[string]float64
	samples  map[string][]float64
	sums     map[string]float64 // 累计值，不受样本窗口截断影响
	counts   map[string]int64
	help     map[string]string

	startTime time.Time
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters: make(map[string]float64),
		samples:  make(map[string][]float64),
		sums:     make(map[string]float64),
		counts:   make(map[string]int64),
		help: map[string]string{
			MetricPredictionsTotal:   "Predictions served",
			MetricPredictionFailures: "Predictions that returned an error",
			MetricHighRiskTotal:      "Predictions with a high risk verdict",
			MetricPredictionLatency:  "Encode, scale and predict latency in milliseconds",
		},
		startTime: time.Now(),
	}
}

// IncrCounter 增加计数器
func (mc *MetricsCollector) IncrCounter(name string, value float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.counters[name] += value
}

// RecordHistogram 记录直方图样本
func (mc *MetricsCollector) RecordHistogram(name string, value float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	samples := append(mc.samples[name], value)
	if len(samples) > maxSamples {
		samples = samples[len(samples)-maxSamples:]
	}
	mc.samples[name] = samples
	mc.sums[name] += value
	mc.counts[name]++
}

// RecordPrediction 记录一次预测
func (mc *MetricsCollector) RecordPrediction(elapsed time.Duration, highRisk bool, err error) {
	mc.IncrCounter(MetricPredictionsTotal, 1)
	if err != nil {
		mc.IncrCounter(MetricPredictionFailures, 1)
		return
	}
	if highRisk {
		mc.IncrCounter(MetricHighRiskTotal, 1)
	}
	mc.RecordHistogram(MetricPredictionLatency, float64(elapsed.Microseconds())/1000)
}

// Counter 获取计数器当前值
func (mc *MetricsCollector) Counter(name string) float64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.counters[name]
}

// GetMetricSummary 获取直方图摘要
func (mc *MetricsCollector) GetMetricSummary(name string) (map[string]interface{}, error) {
	mc.mu.RLock()
	samples, ok := mc.samples[name]
	samples = append([]float64(nil), samples...)
	mc.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("metric %s not found", name)
	}
	if len(samples) == 0 {
		return map[string]interface{}{"count": 0}, nil
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return map[string]interface{}{
		"name":    name,
		"count":   len(sorted),
		"latest":  samples[len(samples)-1],
		"min":     sorted[0],
		"max":     sorted[len(sorted)-1],
		"p50":     percentile(sorted, 0.5),
		"p95":     percentile(sorted, 0.95),
		"average": sum / float64(len(sorted)),
	}, nil
}

// Snapshot 导出全部计数器及延迟摘要
func (mc *MetricsCollector) Snapshot() map[string]interface{} {
	mc.mu.RLock()
	counters := make(map[string]float64, len(mc.counters))
	for k, v := range mc.counters {
		counters[k] = v
	}
	mc.mu.RUnlock()

	snapshot := map[string]interface{}{
		"uptime":   time.Since(mc.startTime).Round(time.Second).String(),
		"counters": counters,
	}
	if latency, err := mc.GetMetricSummary(MetricPredictionLatency); err == nil {
		snapshot["latency"] = latency
	}
	return snapshot
}

// ExportPrometheus 导出Prometheus文本格式
func (mc *MetricsCollector) ExportPrometheus() string {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	names := make([]string, 0, len(mc.counters))
	for name := range mc.counters {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "# HELP %s %s\n", name, mc.helpFor(name))
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, MetricTypeCounter)
		fmt.Fprintf(&b, "%s %g\n", name, mc.counters[name])
	}
	if count := mc.counts[MetricPredictionLatency]; count > 0 {
		fmt.Fprintf(&b, "# HELP %s %s\n", MetricPredictionLatency, mc.helpFor(MetricPredictionLatency))
		fmt.Fprintf(&b, "# TYPE %s summary\n", MetricPredictionLatency)
		fmt.Fprintf(&b, "%s_sum %g\n", MetricPredictionLatency, mc.sums[MetricPredictionLatency])
		fmt.Fprintf(&b, "%s_count %d\n", MetricPredictionLatency, count)
	}
	return b.String()
}

func (mc *MetricsCollector) helpFor(name string) string {
	if help, ok := mc.help[name]; ok {
		return help
	}
	return fmt.Sprintf("Metric %s", name)
}

func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q * float64(len(sorted)-1))
	return sorted[idx]
}
