/*
 * @module service/config/config_service
 * @description 配置服务，负责加载 config.json、缺失项回填默认值并在模型更新后回写 model_version
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 启动加载 -> 缺失项告警并回填默认值 -> 运行期只读 -> 模型安装成功后回写版本号
 * @rules 除 model_version 外任何字段运行期不可变；配置文件不可读时整体退回默认配置
 * @dependencies github.com/spf13/cast
 * @refs service/serving/reconciler.go
 */

package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cast"
)

// 配置键名
const (
	KeyModelName         = "model_name"
	KeyModelAlias        = "model_alias"
	KeyModelVersion      = "model_version"
	KeyModelsPath        = "models_path"
	KeyModelFileName     = "model_file_name"
	KeyEnablePredDataLog = "enable_pred_data_log"
	KeyModelUpdateTimer  = "model_update_timer"
	KeyHealthCheckTimer  = "health_check_timer"
	KeyRegistryURL       = "registry_url"
	KeyHistoryDBDSN      = "history_db_dsn"
	KeyEnableRateLimit   = "enable_rate_limit"
	KeyRateLimitPerMin   = "rate_limit_per_minute"
)

// defaultValues 各配置键的默认值，配置文件缺失对应键时回填
var defaultValues = map[string]interface{}{
	KeyModelName:         "House_Price",
	KeyModelAlias:        "production",
	KeyModelVersion:      "1",
	KeyModelsPath:        "models",
	KeyModelFileName:     "local_model.json",
	KeyEnablePredDataLog: true,
	KeyModelUpdateTimer:  60, // 秒
	KeyHealthCheckTimer:  60, // 秒
	KeyRegistryURL:       "http://127.0.0.1:5000",
	KeyHistoryDBDSN:      "prediction_history.db",
	KeyEnableRateLimit:   false,
	KeyRateLimitPerMin:   120,
}

// PredictConfig 预测服务配置
type PredictConfig struct {
	path   string
	mutex  sync.Mutex
	values map[string]interface{}
}

// LoadPredictConfig 加载预测服务配置
// 缺失的键使用默认值并汇总一条告警；文件不存在或非法 JSON 时整体退回默认配置
func LoadPredictConfig(configPath string) *PredictConfig {
	slog.Info("加载配置文件", "path", configPath)

	cfg := &PredictConfig{
		path:   configPath,
		values: make(map[string]interface{}, len(defaultValues)),
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		slog.Error("配置文件读取失败，使用默认配置", "path", configPath, "error", err)
		cfg.fillDefaults(nil)
		return cfg
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		slog.Error("配置文件不是合法JSON，使用默认配置", "path", configPath, "error", err)
		cfg.fillDefaults(nil)
		return cfg
	}

	cfg.fillDefaults(parsed)
	return cfg
}

// fillDefaults 用解析结果填充配置，缺失键回填默认值并告警
// 未识别的键原样保留，回写配置文件时不丢失运维人员手工添加的字段
func (c *PredictConfig) fillDefaults(parsed map[string]interface{}) {
	for key, value := range parsed {
		c.values[key] = value
	}

	var missing []string
	for key, def := range defaultValues {
		if _, ok := c.values[key]; ok {
			continue
		}
		c.values[key] = def
		missing = append(missing, key)
	}
	if parsed != nil && len(missing) > 0 {
		sort.Strings(missing)
		slog.Warn("配置文件缺失必需字段，已回填默认值",
			"missing_fields", strings.Join(missing, ", "))
	}
}

// ModelName 模型在注册中心的名称
func (c *PredictConfig) ModelName() string { return c.getString(KeyModelName) }

// ModelAlias 跟踪的模型别名
func (c *PredictConfig) ModelAlias() string { return c.getString(KeyModelAlias) }

// ModelVersion 本地记录的当前模型版本
func (c *PredictConfig) ModelVersion() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return cast.ToString(c.values[KeyModelVersion])
}

// ModelsPath 本地快照目录
func (c *PredictConfig) ModelsPath() string { return c.getString(KeyModelsPath) }

// ModelFileName 本地快照文件名
func (c *PredictConfig) ModelFileName() string { return c.getString(KeyModelFileName) }

// EnablePredDataLog 预测历史日志开关（隐私开关）
func (c *PredictConfig) EnablePredDataLog() bool { return c.getBool(KeyEnablePredDataLog) }

// ModelUpdateTimer 模型更新轮询间隔（秒）
func (c *PredictConfig) ModelUpdateTimer() int { return c.getInt(KeyModelUpdateTimer) }

// HealthCheckTimer 健康检查间隔（秒）
func (c *PredictConfig) HealthCheckTimer() int { return c.getInt(KeyHealthCheckTimer) }

// RegistryURL 模型注册中心地址
func (c *PredictConfig) RegistryURL() string { return c.getString(KeyRegistryURL) }

// HistoryDBDSN 预测历史库连接串（sqlite 文件路径或 postgres DSN）
func (c *PredictConfig) HistoryDBDSN() string { return c.getString(KeyHistoryDBDSN) }

// EnableRateLimit 预测接口限流开关
func (c *PredictConfig) EnableRateLimit() bool { return c.getBool(KeyEnableRateLimit) }

// RateLimitPerMinute 每API Key每分钟允许的预测请求数
func (c *PredictConfig) RateLimitPerMinute() int { return c.getInt(KeyRateLimitPerMin) }

// WriteModelVersion 模型安装成功后回写版本号，使重启后无需查询注册中心即可从正确版本恢复
// 这是运行期唯一允许修改的配置字段
func (c *PredictConfig) WriteModelVersion(version string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.values[KeyModelVersion] = version

	data, err := json.MarshalIndent(c.values, "", "    ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("回写配置文件失败: %w", err)
	}
	return nil
}

func (c *PredictConfig) getString(key string) string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return cast.ToString(c.values[key])
}

func (c *PredictConfig) getBool(key string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return cast.ToBool(c.values[key])
}

func (c *PredictConfig) getInt(key string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	v := cast.ToInt(c.values[key])
	if v <= 0 {
		return cast.ToInt(defaultValues[key])
	}
	return v
}
