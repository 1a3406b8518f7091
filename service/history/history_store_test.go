/*
 * @module service/history/history_store_test
 * @description 预测历史存储单元测试
 * @architecture 测试层
 * @documentReference dev_docs/model.md
 * @stateFlow 打开sqlite临时库 -> 记录批次 -> 断言行数与配对
 * @rules 覆盖开关关闭时不落库与输入输出按下标配对
 * @dependencies testing, gorm, sqlite, stretchr/testify
 */

package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"houseprice-service/service/models"
	"houseprice-service/service/serving"
)

func floatPtr(v float64) *float64 { return &v }

// TestRecordBatchPersistsRows 测试批次记录按序落库
func TestRecordBatchPersistsRows(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"), true)
	require.NoError(t, err)
	require.True(t, store.Enabled())

	inputs := []models.InputData{
		{Type: "casa", NRooms: floatPtr(3)},
		{Type: "departamento"},
	}
	prices := []float64{15000, 9000}
	active := &serving.ActiveModel{Name: "House_Price", Version: "2", Alias: "production"}

	store.RecordBatch(inputs, prices, active)

	var records []models.PredictionRecord
	require.NoError(t, store.db.Order("record_index").Find(&records).Error)
	require.Len(t, records, 2)

	assert.Equal(t, records[0].BatchID, records[1].BatchID)
	assert.Equal(t, 0, records[0].RecordIndex)
	assert.Equal(t, 15000.0, records[0].PredictedPrice)
	assert.Contains(t, records[0].Input, `"casa"`)
	assert.Equal(t, "2", records[0].ModelVersion)
	assert.Equal(t, "production", records[0].ModelAlias)
	assert.Equal(t, 9000.0, records[1].PredictedPrice)
	assert.NotEmpty(t, records[0].ID)
}

// TestRecordBatchDisabled 测试开关关闭时完全旁路
func TestRecordBatchDisabled(t *testing.T) {
	store, err := NewStore("", false)
	require.NoError(t, err)
	assert.False(t, store.Enabled())

	// 关闭状态下不应触碰数据库
	store.RecordBatch([]models.InputData{{Type: "casa"}}, []float64{1},
		&serving.ActiveModel{Version: "1"})
}
