/*
 * @module service/serving/gateway
 * @description 预测网关核心：批量结构校验、输入异常扫描与按序打分
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 结构校验(整批通过或整批拒绝) -> 异常扫描(只记不拒) -> 单次模型快照按序打分
 * @rules 结构非法整批拒绝，零预测产出；异常绝不影响打分；打分失败整批失败，不返回部分结果；
 *        整批使用同一个模型快照，批内不会混用两个版本
 * @dependencies service/models
 * @refs api/controllers/predict_controller.go
 */

package serving

import (
	"fmt"
	"strings"

	"houseprice-service/logger"
	"houseprice-service/service/metrics"
	"houseprice-service/service/models"
)

// FieldError 单条输入的结构校验错误
type FieldError struct {
	RecordIndex int    `json:"record_index"`
	Field       string `json:"field"`
	Message     string `json:"message"`
}

// ValidateBatch 整批结构校验
// 必填字段 type 缺失或为空即记为错误；返回非空表示整批拒绝
func ValidateBatch(inputs []models.InputData) []FieldError {
	var errs []FieldError
	for i, input := range inputs {
		if strings.TrimSpace(input.Type) == "" {
			errs = append(errs, FieldError{
				RecordIndex: i,
				Field:       "type",
				Message:     "必填字段缺失或为空",
			})
		}
	}
	return errs
}

// ScanAnomalies 输入异常扫描
// 对期望为正数的可选字段，值存在且 <= 0 时产出异常发现；
// 整批发现聚合为一条输入监控日志，绝不影响预测
func ScanAnomalies(inputs []models.InputData) []models.AnomalyFinding {
	var findings []models.AnomalyFinding

	positiveFields := []struct {
		name  string
		value func(models.InputData) *float64
	}{
		{"net_usable_area", func(in models.InputData) *float64 { return in.NetUsableArea }},
		{"net_area", func(in models.InputData) *float64 { return in.NetArea }},
		{"n_rooms", func(in models.InputData) *float64 { return in.NRooms }},
		{"n_bathroom", func(in models.InputData) *float64 { return in.NBathroom }},
	}

	for i, input := range inputs {
		for _, field := range positiveFields {
			v := field.value(input)
			if v != nil && *v <= 0 {
				findings = append(findings, models.AnomalyFinding{
					RecordIndex: i,
					Field:       field.name,
					Value:       *v,
					Message:     fmt.Sprintf("%s value: %v in request (expecting >0)", field.name, *v),
				})
			}
		}
	}

	if len(findings) > 0 {
		metrics.InputAnomaliesTotal.Add(float64(len(findings)))
		messages := make([]string, 0, len(findings))
		for _, f := range findings {
			messages = append(messages, f.Message)
		}
		logger.InputMonitor().Warn("输入数据检出异常",
			"finding_count", len(findings),
			"findings", strings.Join(messages, ", "))
	}

	return findings
}

// ScoreBatch 用同一个模型快照按输入顺序打分
// 任一条打分失败则整批失败，不返回部分结果
func ScoreBatch(active *ActiveModel, inputs []models.InputData) ([]float64, error) {
	prices := make([]float64, len(inputs))
	for i, input := range inputs {
		price, err := active.Model.Predict(input)
		if err != nil {
			return nil, fmt.Errorf("第 %d 条输入打分失败: %w", i, err)
		}
		prices[i] = price
	}
	return prices, nil
}
