/*
 * @module service/serving/model
 * @description 模型制品解析与推理，评估 JSON 格式的梯度提升回归树制品
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/model.md
 * @stateFlow 制品解码 -> 结构校验 -> 特征向量构建 -> 逐树累加打分
 * @rules 制品校验失败的模型禁止安装；缺失特征使用制品内记录的插补值，绝不静默置零
 * @dependencies encoding/json
 * @refs service/serving/reconciler.go, service/models/prediction.go
 */

package serving

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"houseprice-service/service/models"
)

// Model 预测模型句柄
type Model interface {
	// Predict 对单条输入打分，返回预测价格
	Predict(input models.InputData) (float64, error)
}

// 制品中支持的列类型
const (
	columnNumeric     = "numeric"
	columnCategorical = "categorical"
)

// ArtifactColumn 特征列定义
// numeric 列直接取输入字段值，缺失时用 Impute 插补
// categorical 列按 Encoding 映射为数值，未见过的取值用 Default 兜底
type ArtifactColumn struct {
	Name     string             `json:"name"`
	Kind     string             `json:"kind"`
	Impute   float64            `json:"impute,omitempty"`
	Encoding map[string]float64 `json:"encoding,omitempty"`
	Default  float64            `json:"default,omitempty"`
}

// TreeNode 回归树节点，Left == -1 表示叶子
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// RegressionTree 单棵回归树，节点 0 为根
type RegressionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

// GradientBoostingArtifact 梯度提升回归模型制品
type GradientBoostingArtifact struct {
	Format       string           `json:"format"`
	Columns      []ArtifactColumn `json:"columns"`
	BaseScore    float64          `json:"base_score"`
	LearningRate float64          `json:"learning_rate"`
	Trees        []RegressionTree `json:"trees"`
}

const artifactFormat = "gbt-regressor"

// gradientBoostingModel 制品的可执行形态
type gradientBoostingModel struct {
	artifact GradientBoostingArtifact
}

// LoadModel 解码并校验模型制品
// 任何结构性问题都在这里拒绝，保证已安装的模型一定可执行
func LoadModel(data []byte) (Model, error) {
	var artifact GradientBoostingArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("模型制品解码失败: %w", err)
	}

	if artifact.Format != artifactFormat {
		return nil, fmt.Errorf("不支持的模型制品格式: %q", artifact.Format)
	}
	if len(artifact.Columns) == 0 {
		return nil, errors.New("模型制品未定义特征列")
	}
	if len(artifact.Trees) == 0 {
		return nil, errors.New("模型制品不包含任何回归树")
	}
	if artifact.LearningRate <= 0 {
		return nil, fmt.Errorf("非法学习率: %v", artifact.LearningRate)
	}

	for i, col := range artifact.Columns {
		switch col.Kind {
		case columnNumeric, columnCategorical:
		default:
			return nil, fmt.Errorf("特征列 %s 类型非法: %q", col.Name, col.Kind)
		}
		if !knownColumn(col.Name) {
			return nil, fmt.Errorf("特征列 %d 引用未知输入字段: %q", i, col.Name)
		}
	}

	featureCount := len(artifact.Columns)
	for ti, tree := range artifact.Trees {
		if len(tree.Nodes) == 0 {
			return nil, fmt.Errorf("回归树 %d 为空", ti)
		}
		for ni, node := range tree.Nodes {
			if node.Left == -1 {
				continue
			}
			if node.Feature < 0 || node.Feature >= featureCount {
				return nil, fmt.Errorf("回归树 %d 节点 %d 特征下标越界: %d", ti, ni, node.Feature)
			}
			if node.Left < 0 || node.Left >= len(tree.Nodes) ||
				node.Right < 0 || node.Right >= len(tree.Nodes) {
				return nil, fmt.Errorf("回归树 %d 节点 %d 子节点下标越界", ti, ni)
			}
		}
	}

	return &gradientBoostingModel{artifact: artifact}, nil
}

// Predict 实现 Model 接口
func (m *gradientBoostingModel) Predict(input models.InputData) (float64, error) {
	features := make([]float64, len(m.artifact.Columns))
	for i, col := range m.artifact.Columns {
		v, err := columnValue(col, input)
		if err != nil {
			return 0, err
		}
		features[i] = v
	}

	score := m.artifact.BaseScore
	for ti, tree := range m.artifact.Trees {
		leaf, err := walkTree(tree, features)
		if err != nil {
			return 0, fmt.Errorf("回归树 %d 求值失败: %w", ti, err)
		}
		score += m.artifact.LearningRate * leaf
	}

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, errors.New("模型输出为非法数值")
	}
	return score, nil
}

// walkTree 自根向下走到叶子，深度上限防御制品中的环
func walkTree(tree RegressionTree, features []float64) (float64, error) {
	idx := 0
	for depth := 0; depth <= len(tree.Nodes); depth++ {
		node := tree.Nodes[idx]
		if node.Left == -1 {
			return node.Value, nil
		}
		if features[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
	return 0, errors.New("树深度超过节点数，制品存在环")
}

// columnValue 由输入构建单个特征值
func columnValue(col ArtifactColumn, input models.InputData) (float64, error) {
	if col.Kind == columnCategorical {
		raw, present := categoricalField(col.Name, input)
		if !present {
			return col.Default, nil
		}
		if encoded, ok := col.Encoding[raw]; ok {
			return encoded, nil
		}
		return col.Default, nil
	}

	v, present, err := numericField(col.Name, input)
	if err != nil {
		return 0, err
	}
	if !present {
		return col.Impute, nil
	}
	return v, nil
}

// categoricalField 取分类输入字段，返回值与是否存在
func categoricalField(name string, input models.InputData) (string, bool) {
	switch name {
	case "type":
		return input.Type, input.Type != ""
	case "sector":
		if input.Sector == nil {
			return "", false
		}
		return *input.Sector, true
	}
	return "", false
}

// numericField 取数值输入字段，返回值与是否存在
func numericField(name string, input models.InputData) (float64, bool, error) {
	var p *float64
	switch name {
	case "net_usable_area":
		p = input.NetUsableArea
	case "net_area":
		p = input.NetArea
	case "n_rooms":
		p = input.NRooms
	case "n_bathroom":
		p = input.NBathroom
	case "latitude":
		p = input.Latitude
	case "longitude":
		p = input.Longitude
	default:
		return 0, false, fmt.Errorf("未知数值字段: %q", name)
	}
	if p == nil {
		return 0, false, nil
	}
	return *p, true, nil
}

// knownColumn 判断列名是否为受支持的输入字段
func knownColumn(name string) bool {
	switch name {
	case "type", "sector", "net_usable_area", "net_area",
		"n_rooms", "n_bathroom", "latitude", "longitude":
		return true
	}
	return false
}
