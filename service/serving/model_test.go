/*
 * @module service/serving/model_test
 * @description 模型制品解析与推理单元测试
 * @architecture 测试层
 * @documentReference dev_docs/model.md
 * @stateFlow 构造制品 -> 解码校验 -> 打分验证
 * @rules 覆盖制品校验拒绝路径与缺失值插补行为
 * @dependencies testing, stretchr/testify
 */

package serving

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"houseprice-service/service/models"
)

// testArtifact 构造测试用制品：base 1000 + 按 net_usable_area 分叉的单棵树
// area <= 100 -> +10, area > 100 -> +20；type 编码 casa=100/departamento=200，未知取 150
func testArtifact(t *testing.T) []byte {
	t.Helper()
	artifact := GradientBoostingArtifact{
		Format: "gbt-regressor",
		Columns: []ArtifactColumn{
			{Name: "net_usable_area", Kind: "numeric", Impute: 50},
			{Name: "type", Kind: "categorical",
				Encoding: map[string]float64{"casa": 100, "departamento": 200}, Default: 150},
		},
		BaseScore:    1000,
		LearningRate: 1.0,
		Trees: []RegressionTree{
			{Nodes: []TreeNode{
				{Feature: 0, Threshold: 100, Left: 1, Right: 2},
				{Left: -1, Value: 10},
				{Left: -1, Value: 20},
			}},
		},
	}
	data, err := json.Marshal(artifact)
	require.NoError(t, err)
	return data
}

func floatPtr(v float64) *float64 { return &v }

// TestLoadModelValid 测试合法制品加载
func TestLoadModelValid(t *testing.T) {
	model, err := LoadModel(testArtifact(t))
	require.NoError(t, err)
	require.NotNil(t, model)
}

// TestLoadModelRejectsBadArtifacts 测试非法制品被拒绝
func TestLoadModelRejectsBadArtifacts(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(a *GradientBoostingArtifact)
	}{
		{"未知格式", func(a *GradientBoostingArtifact) { a.Format = "pickle" }},
		{"无特征列", func(a *GradientBoostingArtifact) { a.Columns = nil }},
		{"无回归树", func(a *GradientBoostingArtifact) { a.Trees = nil }},
		{"非法学习率", func(a *GradientBoostingArtifact) { a.LearningRate = 0 }},
		{"特征下标越界", func(a *GradientBoostingArtifact) {
			a.Trees[0].Nodes[0].Feature = 9
		}},
		{"子节点下标越界", func(a *GradientBoostingArtifact) {
			a.Trees[0].Nodes[0].Left = 99
		}},
		{"未知输入字段", func(a *GradientBoostingArtifact) {
			a.Columns[0].Name = "garage_count"
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var artifact GradientBoostingArtifact
			require.NoError(t, json.Unmarshal(testArtifact(t), &artifact))
			tc.mutate(&artifact)
			data, err := json.Marshal(artifact)
			require.NoError(t, err)

			_, err = LoadModel(data)
			assert.Error(t, err)
		})
	}

	_, err := LoadModel([]byte("not json"))
	assert.Error(t, err)
}

// TestPredictTreeWalk 测试树走查与累加
func TestPredictTreeWalk(t *testing.T) {
	model, err := LoadModel(testArtifact(t))
	require.NoError(t, err)

	// area=50 走左叶
	price, err := model.Predict(models.InputData{Type: "casa", NetUsableArea: floatPtr(50)})
	require.NoError(t, err)
	assert.InDelta(t, 1010, price, 1e-9)

	// area=150 走右叶
	price, err = model.Predict(models.InputData{Type: "casa", NetUsableArea: floatPtr(150)})
	require.NoError(t, err)
	assert.InDelta(t, 1020, price, 1e-9)
}

// TestPredictImputesMissingNumeric 测试缺失数值字段使用插补值而不是零
func TestPredictImputesMissingNumeric(t *testing.T) {
	model, err := LoadModel(testArtifact(t))
	require.NoError(t, err)

	// net_usable_area 缺失 -> 插补 50 -> 走左叶
	price, err := model.Predict(models.InputData{Type: "casa"})
	require.NoError(t, err)
	assert.InDelta(t, 1010, price, 1e-9)
}

// TestPredictUnknownCategoricalUsesDefault 测试未见过的分类取值走默认编码
func TestPredictUnknownCategoricalUsesDefault(t *testing.T) {
	model, err := LoadModel(testArtifact(t))
	require.NoError(t, err)

	price, err := model.Predict(models.InputData{Type: "oficina", NetUsableArea: floatPtr(10)})
	require.NoError(t, err)
	assert.InDelta(t, 1010, price, 1e-9)
}
