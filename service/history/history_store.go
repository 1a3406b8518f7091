/*
 * @module service/history/history_store
 * @description 预测历史存储，按配置开关把成对的输入/输出/模型版本落库并输出结构化历史日志
 * @architecture 数据访问层 - gorm 存储
 * @documentReference dev_docs/model.md
 * @stateFlow 预测成功 -> 组装批次记录 -> 写历史日志 -> 落库
 * @rules 历史记录是旁路副作用，任何失败只记日志，绝不影响预测响应
 * @dependencies gorm.io/gorm, gorm.io/driver/sqlite, gorm.io/driver/postgres
 * @refs service/models/prediction.go, api/controllers/predict_controller.go
 */

package history

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"houseprice-service/logger"
	"houseprice-service/service/models"
	"houseprice-service/service/serving"
)

// Store 预测历史存储
type Store struct {
	db      *gorm.DB
	enabled bool
}

// NewStore 按 DSN 打开历史库并迁移表结构
// postgres:// 前缀走 postgres 驱动，否则按 sqlite 文件路径处理
func NewStore(dsn string, enabled bool) (*Store, error) {
	if !enabled {
		return &Store{enabled: false}, nil
	}

	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "host=") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.PredictionRecord{}); err != nil {
		return nil, err
	}

	return &Store{db: db, enabled: true}, nil
}

// Enabled 历史记录是否启用
func (s *Store) Enabled() bool {
	return s.enabled
}

// RecordBatch 记录一个预测批次：一条聚合历史日志 + 每条输入一行库记录
// 输入与输出按下标一一配对，顺序保持
func (s *Store) RecordBatch(inputs []models.InputData, prices []float64, active *serving.ActiveModel) {
	if !s.enabled || len(inputs) == 0 {
		return
	}

	batchID := uuid.New().String()
	records := make([]models.PredictionRecord, 0, len(inputs))
	summary := make([]map[string]interface{}, 0, len(inputs))

	for i, input := range inputs {
		inputJSON, err := json.Marshal(input)
		if err != nil {
			logger.Generic().Warn("序列化历史输入失败", "record_index", i, "error", err)
			continue
		}
		records = append(records, models.PredictionRecord{
			BatchID:        batchID,
			RecordIndex:    i,
			Input:          string(inputJSON),
			PredictedPrice: prices[i],
			ModelName:      active.Name,
			ModelVersion:   active.Version,
			ModelAlias:     active.Alias,
		})
		summary = append(summary, map[string]interface{}{
			"input":           input,
			"predicted_price": prices[i],
			"model_name":      active.Name,
			"model_version":   active.Version,
			"model_alias":     active.Alias,
		})
	}

	logger.PredictionHistory().Info("预测批次记录",
		"batch_id", batchID,
		"batch_size", len(summary),
		"records", summary)

	if len(records) == 0 {
		return
	}
	if err := s.db.Create(&records).Error; err != nil {
		logger.Generic().Error("预测历史落库失败", "batch_id", batchID, "error", err)
	}
}
