/*
 * @module service/config/config_service_test
 * @description 配置服务单元测试
 * @architecture 测试层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 写配置文件 -> 加载 -> 断言取值与回写行为
 * @rules 覆盖缺失键回填、非法文件整体回退默认值与版本号回写
 * @dependencies testing, stretchr/testify
 */

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadPredictConfigComplete 测试完整配置文件加载
func TestLoadPredictConfigComplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"model_name": "House_Price",
		"model_alias": "staging",
		"model_version": "5",
		"models_path": "snapshots",
		"model_file_name": "m.json",
		"enable_pred_data_log": false,
		"model_update_timer": 30,
		"health_check_timer": 15,
		"registry_url": "http://mlflow:5000",
		"history_db_dsn": "h.db",
		"enable_rate_limit": true,
		"rate_limit_per_minute": 10
	}`), 0644))

	cfg := LoadPredictConfig(path)
	assert.Equal(t, "House_Price", cfg.ModelName())
	assert.Equal(t, "staging", cfg.ModelAlias())
	assert.Equal(t, "5", cfg.ModelVersion())
	assert.Equal(t, "snapshots", cfg.ModelsPath())
	assert.Equal(t, "m.json", cfg.ModelFileName())
	assert.False(t, cfg.EnablePredDataLog())
	assert.Equal(t, 30, cfg.ModelUpdateTimer())
	assert.Equal(t, 15, cfg.HealthCheckTimer())
	assert.Equal(t, "http://mlflow:5000", cfg.RegistryURL())
	assert.Equal(t, "h.db", cfg.HistoryDBDSN())
	assert.True(t, cfg.EnableRateLimit())
	assert.Equal(t, 10, cfg.RateLimitPerMinute())
}

// TestLoadPredictConfigFillsMissing 测试缺失键回填默认值
func TestLoadPredictConfigFillsMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"model_name": "Custom"}`), 0644))

	cfg := LoadPredictConfig(path)
	assert.Equal(t, "Custom", cfg.ModelName())
	assert.Equal(t, "production", cfg.ModelAlias())
	assert.Equal(t, "1", cfg.ModelVersion())
	assert.Equal(t, 60, cfg.ModelUpdateTimer())
	assert.True(t, cfg.EnablePredDataLog())
}

// TestLoadPredictConfigMissingFile 测试文件缺失整体回退默认配置
func TestLoadPredictConfigMissingFile(t *testing.T) {
	cfg := LoadPredictConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Equal(t, "House_Price", cfg.ModelName())
	assert.Equal(t, "production", cfg.ModelAlias())
}

// TestLoadPredictConfigInvalidJSON 测试非法JSON整体回退默认配置
func TestLoadPredictConfigInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	cfg := LoadPredictConfig(path)
	assert.Equal(t, "House_Price", cfg.ModelName())
	assert.Equal(t, 60, cfg.HealthCheckTimer())
}

// TestWriteModelVersion 测试版本号回写后重启可恢复
func TestWriteModelVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"model_version": "1", "model_name": "X"}`), 0644))

	cfg := LoadPredictConfig(path)
	require.NoError(t, cfg.WriteModelVersion("9"))
	assert.Equal(t, "9", cfg.ModelVersion())

	// 模拟重启：重新加载同一文件
	reloaded := LoadPredictConfig(path)
	assert.Equal(t, "9", reloaded.ModelVersion())
	assert.Equal(t, "X", reloaded.ModelName(), "回写不得丢失其它配置键")
}

// TestWriteModelVersionKeepsUnknownKeys 测试回写保留运维人员手工添加的未识别键
func TestWriteModelVersionKeepsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"model_version": "1", "operator_note": "请勿手动修改此文件"}`), 0644))

	cfg := LoadPredictConfig(path)
	require.NoError(t, cfg.WriteModelVersion("2"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, "2", onDisk["model_version"])
	assert.Equal(t, "请勿手动修改此文件", onDisk["operator_note"])
}
