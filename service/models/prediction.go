/*
 * @module service/models/prediction
 * @description 预测相关模型定义，包括预测输入、预测历史记录和输入异常发现
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/model.md
 * @stateFlow 预测请求 -> 输入校验 -> 异常扫描 -> 模型打分 -> 历史记录
 * @rules 可选字段使用指针表达"显式缺失"，缺失值交由模型的插补逻辑处理，禁止静默置零
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/serving/model.go, service/history/history_store.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InputData 单条房产预测输入
// type 为必填分类字段，其余字段均可省略（JSON null 或字段缺失均视为缺失）
type InputData struct {
	Type          string   `json:"type" example:"casa"`
	Sector        *string  `json:"sector,omitempty" example:"vitacura"`
	NetUsableArea *float64 `json:"net_usable_area,omitempty" example:"152.0"`
	NetArea       *float64 `json:"net_area,omitempty" example:"257.0"`
	NRooms        *float64 `json:"n_rooms,omitempty" example:"3.0"`
	NBathroom     *float64 `json:"n_bathroom,omitempty" example:"3.0"`
	Latitude      *float64 `json:"latitude,omitempty" example:"-33.3794"`
	Longitude     *float64 `json:"longitude,omitempty" example:"-70.5447"`
}

// AnomalyFinding 针对单条输入的非致命异常发现
// 仅用于输入监控日志，绝不影响预测结果
type AnomalyFinding struct {
	RecordIndex int     `json:"record_index"`
	Field       string  `json:"field"`
	Value       float64 `json:"value"`
	Message     string  `json:"message"`
}

// PredictionRecord 预测历史记录，按配置开关持久化
type PredictionRecord struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	BatchID        string    `json:"batch_id" gorm:"not null;type:varchar(36);index"`
	RecordIndex    int       `json:"record_index" gorm:"not null"`
	Input          string    `json:"input" gorm:"not null;type:text"`
	PredictedPrice float64   `json:"predicted_price" gorm:"not null"`
	ModelName      string    `json:"model_name" gorm:"not null;size:255"`
	ModelVersion   string    `json:"model_version" gorm:"not null;size:64;index"`
	ModelAlias     string    `json:"model_alias" gorm:"size:64"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName 指定预测历史表名
func (PredictionRecord) TableName() string {
	return "prediction_records"
}

// BeforeCreate 创建前自动生成UUID
func (p *PredictionRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
