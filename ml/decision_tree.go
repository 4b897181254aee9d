package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

// DecisionTree is a binary Gini tree split on column medians. It does not
// estimate probabilities.
type DecisionTree struct {
	MaxDepth int
	width    int
	nodes    []TreeNode
	columns  ColumnSchema
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	IsLeaf     bool    `json:"is_leaf"`
}

type treeArtifact struct {
	Width   int          `json:"width"`
	Columns ColumnSchema `json:"columns,omitempty"`
	Nodes   []TreeNode   `json:"nodes"`
}

func NewDecisionTree(maxDepth int) *DecisionTree {
	return &DecisionTree{MaxDepth: maxDepth}
}

func (dt *DecisionTree) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	maxDepth := dt.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}

	dt.width = len(features[0])
	dt.nodes = dt.buildNode(features, labels, 0, maxDepth)
	return nil
}

func (dt *DecisionTree) Width() int {
	return dt.width
}

func (dt *DecisionTree) SetColumns(columns ColumnSchema) {
	dt.columns = append(ColumnSchema(nil), columns...)
}

func (dt *DecisionTree) ColumnNames() ColumnSchema {
	return dt.columns
}

func (dt *DecisionTree) Predict(features []float64) (int, error) {
	if len(dt.nodes) == 0 {
		return 0, errors.New("model not trained")
	}
	if len(features) != dt.width {
		return 0, fmt.Errorf("decision tree expects %d columns, got %d: %w", dt.width, len(features), ErrSchemaMismatch)
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

func (dt *DecisionTree) Save(path string) error {
	if len(dt.nodes) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(treeArtifact{Width: dt.width, Columns: dt.columns, Nodes: dt.nodes})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact treeArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return err
	}
	if len(artifact.Nodes) == 0 || artifact.Width <= 0 {
		return errors.New("decision tree artifact is empty")
	}
	if err := validateNodes(artifact.Nodes, artifact.Width); err != nil {
		return err
	}
	if len(artifact.Columns) > 0 && len(artifact.Columns) != artifact.Width {
		return fmt.Errorf("decision tree lists %d columns for width %d", len(artifact.Columns), artifact.Width)
	}
	dt.width = artifact.Width
	dt.nodes = artifact.Nodes
	dt.columns = artifact.Columns
	return nil
}

// validateNodes requires every split to point strictly forward, which rules
// out cycles, and to test a column inside the row width.
func validateNodes(nodes []TreeNode, width int) error {
	for i, node := range nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= width {
			return fmt.Errorf("node %d splits on column %d outside width %d", i, node.FeatureIdx, width)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(nodes) {
				return fmt.Errorf("node %d has invalid child %d", i, child)
			}
		}
	}
	return nil
}

func (dt *DecisionTree) buildNode(features [][]float64, labels []int, depth int, maxDepth int) []TreeNode {
	leaf := []TreeNode{{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		ClassLabel: majorityLabel(labels),
		IsLeaf:     true,
	}}
	if depth >= maxDepth || isPure(labels) {
		return leaf
	}

	bestFeature, threshold, ok := findBestSplit(features, labels)
	if !ok {
		return leaf
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := splitData(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		return leaf
	}

	leftNodes := dt.buildNode(leftFeatures, leftLabels, depth+1, maxDepth)
	rightNodes := dt.buildNode(rightFeatures, rightLabels, depth+1, maxDepth)

	root := TreeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		ClassLabel: leaf[0].ClassLabel,
	}

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, shiftChildren(leftNodes, 1)...)
	nodes = append(nodes, shiftChildren(rightNodes, 1+len(leftNodes))...)
	return nodes
}

// shiftChildren rebases child indexes of a subtree placed at offset.
func shiftChildren(nodes []TreeNode, offset int) []TreeNode {
	for i := range nodes {
		if nodes[i].IsLeaf {
			continue
		}
		nodes[i].LeftChild += offset
		nodes[i].RightChild += offset
	}
	return nodes
}

func findBestSplit(features [][]float64, labels []int) (int, float64, bool) {
	featureCount := len(features[0])
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		threshold := median(values)
		leftLabels, rightLabels := splitLabels(features, labels, featureIdx, threshold)
		if len(leftLabels) == 0 || len(rightLabels) == 0 {
			continue
		}
		impurity := weightedGini(leftLabels, rightLabels)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func splitData(features [][]float64, labels []int, featureIdx int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	var leftFeatures, rightFeatures [][]float64
	var leftLabels, rightLabels []int
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, feature)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightFeatures = append(rightFeatures, feature)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftFeatures, leftLabels, rightFeatures, rightLabels
}

func splitLabels(features [][]float64, labels []int, featureIdx int, threshold float64) ([]int, []int) {
	var leftLabels, rightLabels []int
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftLabels, rightLabels
}

func weightedGini(leftLabels, rightLabels []int) float64 {
	leftWeight := float64(len(leftLabels))
	rightWeight := float64(len(rightLabels))
	total := leftWeight + rightWeight
	return (leftWeight/total)*gini(leftLabels) + (rightWeight/total)*gini(rightLabels)
}

func gini(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(len(labels))
		impurity -= prob * prob
	}
	return impurity
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// majorityLabel breaks ties toward the smaller label.
func majorityLabel(labels []int) int {
	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	bestLabel := 0
	bestCount := -1
	for label, count := range counts {
		if count > bestCount || (count == bestCount && label < bestLabel) {
			bestCount = count
			bestLabel = label
		}
	}
	return bestLabel
}

func isPure(labels []int) bool {
	if len(labels) == 0 {
		return true
	}
	first := labels[0]
	for _, label := range labels[1:] {
		if label != first {
			return false
		}
	}
	return true
}
