/*
 * @module api/controllers/predict_controller
 * @description 预测控制器，处理批量房价预测请求
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 限流检查 -> 请求体解码 -> 整批结构校验 -> 异常扫描 -> 单次模型快照打分 -> 历史记录
 * @rules 结构非法整批422；打分失败整批500；批内所有记录使用同一个模型快照；
 *        历史记录与异常日志是旁路副作用，失败不影响响应
 * @dependencies net/http, encoding/json
 * @refs service/serving/gateway.go, service/history/history_store.go
 */

package controllers

import (
	"encoding/json"
	"net/http"

	"houseprice-service/api/middleware"
	"houseprice-service/logger"
	"houseprice-service/service/history"
	"houseprice-service/service/metrics"
	"houseprice-service/service/models"
	"houseprice-service/service/rate_limiter"
	"houseprice-service/service/serving"
)

// PredictController 预测控制器
type PredictController struct {
	slot    *serving.ModelSlot
	store   *history.Store
	limiter *rate_limiter.RedisRateLimiter
}

// NewPredictController 创建预测控制器实例
func NewPredictController(slot *serving.ModelSlot, store *history.Store,
	limiter *rate_limiter.RedisRateLimiter) *PredictController {
	return &PredictController{
		slot:    slot,
		store:   store,
		limiter: limiter,
	}
}

// Predict 批量房价预测
// @Summary 批量房价预测
// @Description 对一批房产输入按序打分，返回与输入等长且同序的价格数组
// @Tags 模型
// @Accept json
// @Produce json
// @Param data body []models.InputData true "预测输入数组"
// @Success 200 {object} StandardResponse
// @Failure 400 {object} StandardResponse
// @Failure 403 {object} StandardResponse
// @Failure 422 {object} StandardResponse
// @Failure 429 {object} StandardResponse
// @Failure 500 {object} StandardResponse
// @Router /predict [post]
func (c *PredictController) Predict(w http.ResponseWriter, r *http.Request) {
	generic := logger.Generic()

	if !c.allowRequest(w, r) {
		return
	}

	var inputs []models.InputData
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		metrics.PredictionBatchesTotal.WithLabelValues("client_error").Inc()
		sendError(w, r, http.StatusBadRequest, "predict", map[string]interface{}{
			"error": "请求体不是合法的InputData数组: " + err.Error(),
		})
		return
	}
	if len(inputs) == 0 {
		metrics.PredictionBatchesTotal.WithLabelValues("client_error").Inc()
		sendError(w, r, http.StatusUnprocessableEntity, "predict", map[string]interface{}{
			"error": "预测批次不能为空",
		})
		return
	}

	generic.Info("收到预测请求", "batch_size", len(inputs))

	// 整批结构校验：任一条非法则零预测产出
	if fieldErrors := serving.ValidateBatch(inputs); len(fieldErrors) > 0 {
		metrics.PredictionBatchesTotal.WithLabelValues("client_error").Inc()
		sendError(w, r, http.StatusUnprocessableEntity, "predict", map[string]interface{}{
			"error":  "输入结构校验失败",
			"fields": fieldErrors,
		})
		return
	}

	// 异常扫描只记日志，绝不拒绝请求
	serving.ScanAnomalies(inputs)

	// 整批使用同一个模型快照，换版发生在批次中途也不会混用版本
	active := c.slot.Load()
	if active == nil {
		metrics.PredictionBatchesTotal.WithLabelValues("server_error").Inc()
		sendError(w, r, http.StatusServiceUnavailable, "predict", map[string]interface{}{
			"error": "模型尚未加载",
		})
		return
	}

	prices, err := serving.ScoreBatch(active, inputs)
	if err != nil {
		metrics.PredictionBatchesTotal.WithLabelValues("server_error").Inc()
		generic.Error("模型打分失败", "error", err)
		sendError(w, r, http.StatusInternalServerError, "predict", map[string]interface{}{
			"error": "模型打分失败: " + err.Error(),
		})
		return
	}

	generic.Info("预测完成", "batch_size", len(prices), "model_version", active.Version)
	metrics.PredictionBatchesTotal.WithLabelValues("success").Inc()
	metrics.PredictionsTotal.Add(float64(len(prices)))

	c.store.RecordBatch(inputs, prices, active)

	sendSuccess(w, r, "predict", map[string]interface{}{
		"price": prices,
	})
}

// allowRequest 限流检查，限流器缺失或出错时放行
func (c *PredictController) allowRequest(w http.ResponseWriter, r *http.Request) bool {
	if c.limiter == nil {
		return true
	}

	result, err := c.limiter.CheckRateLimit(r.Context(), r.Header.Get(middleware.APIKeyHeader))
	if err != nil {
		logger.Generic().Warn("限流检查失败，本次放行", "error", err)
		return true
	}
	if !result.Allowed {
		sendError(w, r, http.StatusTooManyRequests, "predict", map[string]interface{}{
			"error":    "请求超过限流限制",
			"limit":    result.Limit,
			"reset_at": result.ResetAt,
		})
		return false
	}
	return true
}
