/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器，返回健康监视器最近一次自检状态
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow HTTP请求处理流程
 * @rules 只读健康监视器的状态缓存，不触发新的自检
 * @dependencies net/http
 * @refs service/monitoring/health_monitor.go
 */

package controllers

import (
	"net/http"

	"houseprice-service/logger"
	"houseprice-service/service/monitoring"
)

// HealthController 健康检查控制器
type HealthController struct {
	monitor *monitoring.HealthMonitor
}

// NewHealthController 创建健康检查控制器实例
func NewHealthController(monitor *monitoring.HealthMonitor) *HealthController {
	return &HealthController{monitor: monitor}
}

// Health 健康检查
// @Summary 健康检查
// @Description 检查API服务健康状态
// @Tags 系统
// @Produce json
// @Success 200 {object} StandardResponse
// @Failure 403 {object} StandardResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	status := monitoring.StatusOnline
	if c.monitor != nil {
		status = c.monitor.Status().Status
	}

	logger.Generic().Info("健康检查: API服务在线")
	sendSuccess(w, r, "health", map[string]interface{}{
		"status": status,
	})
}
