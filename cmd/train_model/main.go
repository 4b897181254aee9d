package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"heartrisk/logging"
	"heartrisk/ml"
)

var datasetColumns = []string{
	"Age", "Sex", "ChestPainType", "RestingBP", "Cholesterol", "FastingBS",
	"RestingECG", "MaxHR", "ExerciseAngina", "Oldpeak", "ST_Slope", "HeartDisease",
}

func main() {
	dataPath := flag.String("data", "heart.csv", "training CSV")
	outDir := flag.String("out", "./artifacts", "artifact output directory")
	modelType := flag.String("model", ml.ModelTypeKNN, "knn or decision_tree")
	k := flag.Int("k", 5, "neighbours for knn")
	maxDepth := flag.Int("max_depth", 10, "max tree depth")
	testRatio := flag.Float64("test_ratio", 0.2, "test ratio")
	seed := flag.Int64("seed", 42, "shuffle seed")
	flag.Parse()

	logger, err := logging.New(logging.Options{Level: "info", Development: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	file, err := os.Open(*dataPath)
	if err != nil {
		logger.Fatal("failed to open dataset", zap.Error(err))
	}
	observations, labels, err := readDataset(file)
	file.Close()
	if err != nil {
		logger.Fatal("failed to read dataset", zap.Error(err))
	}
	logger.Info("dataset loaded", zap.Int("rows", len(observations)))

	schema := ml.BuildSchema(true)
	rows := make([][]float64, len(observations))
	for i, obs := range observations {
		vector, err := ml.Encode(obs, schema)
		if err != nil {
			logger.Fatal("failed to encode row", zap.Int("row", i+1), zap.Error(err))
		}
		rows[i] = vector
	}

	shuffle(rows, labels, *seed)
	trainX, trainY, testX, testY := splitDataset(rows, labels, *testRatio)

	scaler := &ml.StandardScaler{}
	if err := scaler.Fit(trainX); err != nil {
		logger.Fatal("failed to fit scaler", zap.Error(err))
	}
	trainX = scaleAll(scaler, trainX)
	testX = scaleAll(scaler, testX)

	classifier, err := newModel(*modelType, *k, *maxDepth)
	if err != nil {
		logger.Fatal("invalid model", zap.Error(err))
	}
	if err := classifier.Train(trainX, trainY); err != nil {
		logger.Fatal("failed to train model", zap.Error(err))
	}

	accuracy, precision, recall := evaluateModel(classifier, testX, testY)
	logger.Info("hold-out evaluation",
		zap.String("model", *modelType),
		zap.Int("train", len(trainX)),
		zap.Int("test", len(testX)),
		zap.Float64("accuracy", accuracy),
		zap.Float64("precision", precision),
		zap.Float64("recall", recall),
	)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Fatal("failed to create artifact dir", zap.Error(err))
	}
	paths := ml.ArtifactPaths{
		Schema:    filepath.Join(*outDir, "columns.json"),
		Scaler:    filepath.Join(*outDir, "scaler.json"),
		Model:     filepath.Join(*outDir, "model.json"),
		ModelType: *modelType,
	}
	scaler.SetColumns(schema)
	classifier.SetColumns(schema)
	if err := schema.Save(paths.Schema); err != nil {
		logger.Fatal("failed to save schema", zap.Error(err))
	}
	if err := scaler.Save(paths.Scaler); err != nil {
		logger.Fatal("failed to save scaler", zap.Error(err))
	}
	if err := classifier.Save(paths.Model); err != nil {
		logger.Fatal("failed to save model", zap.Error(err))
	}

	// 回读一次，确保服务端能加载
	if _, err := ml.LoadArtifacts(paths); err != nil {
		logger.Fatal("written artifacts do not load", zap.Error(err))
	}
	logger.Info("artifacts saved", zap.Strings("files", paths.Files()))
}

type trainable interface {
	ml.Trainer
	ml.Classifier
	ml.ColumnBinder
}

func newModel(modelType string, k, maxDepth int) (trainable, error) {
	switch modelType {
	case ml.ModelTypeKNN:
		return ml.NewKNN(k), nil
	case ml.ModelTypeDecisionTree:
		return ml.NewDecisionTree(maxDepth), nil
	default:
		return nil, fmt.Errorf("unknown model type %q", modelType)
	}
}

// readDataset 读取CSV，列顺序以表头为准
func readDataset(r io.Reader) ([]ml.RawObservation, []int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range datasetColumns {
		if _, ok := index[name]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", name)
		}
	}

	var observations []ml.RawObservation
	var labels []int
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		obs, label, err := parseRecord(record, index)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		observations = append(observations, obs)
		labels = append(labels, label)
	}
	if len(observations) == 0 {
		return nil, nil, errors.New("dataset has no rows")
	}
	return observations, labels, nil
}

func parseRecord(record []string, index map[string]int) (ml.RawObservation, int, error) {
	field := func(name string) string {
		return strings.TrimSpace(record[index[name]])
	}
	number := func(name string) (float64, error) {
		value, err := strconv.ParseFloat(field(name), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return value, nil
	}

	var obs ml.RawObservation
	var err error
	if obs.Age, err = number("Age"); err != nil {
		return obs, 0, err
	}
	if obs.RestingBP, err = number("RestingBP"); err != nil {
		return obs, 0, err
	}
	if obs.Cholesterol, err = number("Cholesterol"); err != nil {
		return obs, 0, err
	}
	if obs.MaxHR, err = number("MaxHR"); err != nil {
		return obs, 0, err
	}
	if obs.Oldpeak, err = number("Oldpeak"); err != nil {
		return obs, 0, err
	}
	if obs.FastingBS, err = strconv.Atoi(field("FastingBS")); err != nil {
		return obs, 0, fmt.Errorf("FastingBS: %w", err)
	}
	obs.Sex = field("Sex")
	obs.ChestPainType = field("ChestPainType")
	obs.RestingECG = field("RestingECG")
	obs.ExerciseAngina = field("ExerciseAngina")
	obs.STSlope = field("ST_Slope")

	label, err := strconv.Atoi(field("HeartDisease"))
	if err != nil || (label != ml.LabelNoDisease && label != ml.LabelDisease) {
		return obs, 0, fmt.Errorf("HeartDisease must be 0 or 1, got %q", field("HeartDisease"))
	}
	return obs, label, nil
}

func shuffle(rows [][]float64, labels []int, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(rows), func(i, j int) {
		rows[i], rows[j] = rows[j], rows[i]
		labels[i], labels[j] = labels[j], labels[i]
	})
}

func splitDataset(features [][]float64, labels []int, testRatio float64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}

	split := int(float64(len(features)) * (1 - testRatio))
	for i := range features {
		if i < split {
			trainX = append(trainX, features[i])
			trainY = append(trainY, labels[i])
		} else {
			testX = append(testX, features[i])
			testY = append(testY, labels[i])
		}
	}
	return trainX, trainY, testX, testY
}

func scaleAll(scaler *ml.StandardScaler, rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled, err := scaler.Transform(row)
		if err != nil {
			// 宽度由同一 schema 决定，不会出错
			panic(err)
		}
		out[i] = scaled
	}
	return out
}

func evaluateModel(model ml.Classifier, testX [][]float64, testY []int) (accuracy, precision, recall float64) {
	if len(testX) == 0 {
		return 0, 0, 0
	}

	var correct int
	var truePositive int
	var predictedPositive int
	var actualPositive int

	for i, feature := range testX {
		label, err := model.Predict(feature)
		if err != nil {
			continue
		}
		if label == testY[i] {
			correct++
		}
		if label == ml.LabelDisease {
			predictedPositive++
		}
		if testY[i] == ml.LabelDisease {
			actualPositive++
			if label == ml.LabelDisease {
				truePositive++
			}
		}
	}

	accuracy = float64(correct) / float64(len(testX))
	if predictedPositive > 0 {
		precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		recall = float64(truePositive) / float64(actualPositive)
	}
	return accuracy, precision, recall
}
