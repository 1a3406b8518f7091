/*
 * @module api/controllers/info_controller
 * @description 模型信息控制器，返回当前生效模型的名称、版本与别名
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow HTTP请求处理流程
 * @rules 单次读取模型槽位，保证返回的(版本,别名)对一致
 * @dependencies net/http
 * @refs service/serving/active_model.go
 */

package controllers

import (
	"net/http"

	"houseprice-service/service/serving"
)

// InfoController 模型信息控制器
type InfoController struct {
	slot *serving.ModelSlot
}

// NewInfoController 创建模型信息控制器实例
func NewInfoController(slot *serving.ModelSlot) *InfoController {
	return &InfoController{slot: slot}
}

// Info 获取当前模型信息
// @Summary 获取模型信息
// @Description 返回当前生效模型的名称、版本与别名
// @Tags 模型
// @Produce json
// @Success 200 {object} StandardResponse
// @Failure 403 {object} StandardResponse
// @Failure 503 {object} StandardResponse
// @Router /info [get]
func (c *InfoController) Info(w http.ResponseWriter, r *http.Request) {
	active := c.slot.Load()
	if active == nil {
		sendError(w, r, http.StatusServiceUnavailable, "info", map[string]interface{}{
			"error": "模型尚未加载",
		})
		return
	}

	sendSuccess(w, r, "info", map[string]interface{}{
		"name":    active.Name,
		"version": active.Version,
		"alias":   active.Alias,
	})
}
