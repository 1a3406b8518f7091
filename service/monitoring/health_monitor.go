/*
 * @module service/monitoring/health_monitor
 * @description 健康监视器，周期性自检服务可用性（生效模型非空且可执行）并记录状态日志
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 定时触发 -> 读生效模型 -> 探针打分 -> 更新最近状态 -> 记录状态行
 * @rules 纯只读观察者，绝不修改生效模型或配置；自检失败仅记录日志，不向上传播
 * @dependencies github.com/robfig/cron/v3
 * @refs service/serving/active_model.go, api/controllers/health_controller.go
 */

package monitoring

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"houseprice-service/logger"
	"houseprice-service/service/models"
	"houseprice-service/service/serving"
)

// 健康状态
const (
	StatusOnline   = "online"
	StatusDegraded = "degraded"
)

// HealthStatus 最近一次自检结果
type HealthStatus struct {
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
	Message   string    `json:"message,omitempty"`
}

// HealthMonitor 健康监视器
type HealthMonitor struct {
	slot      *serving.ModelSlot
	interval  int
	cron      *cron.Cron
	startedAt time.Time

	mutex      sync.RWMutex
	lastStatus HealthStatus
}

// NewHealthMonitor 创建健康监视器
func NewHealthMonitor(slot *serving.ModelSlot, intervalSeconds int) *HealthMonitor {
	return &HealthMonitor{
		slot:      slot,
		interval:  intervalSeconds,
		cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		startedAt: time.Now(),
		lastStatus: HealthStatus{
			Status:    StatusOnline,
			CheckedAt: time.Now(),
		},
	}
}

// Start 启动周期自检
func (h *HealthMonitor) Start() error {
	log.Println("启动健康监视器")

	spec := fmt.Sprintf("@every %ds", h.interval)
	if _, err := h.cron.AddFunc(spec, h.check); err != nil {
		return fmt.Errorf("注册健康检查任务失败: %w", err)
	}
	h.cron.Start()
	return nil
}

// Stop 停止周期自检
func (h *HealthMonitor) Stop() {
	log.Println("停止健康监视器")
	if h.cron != nil {
		h.cron.Stop()
	}
}

// Status 最近一次自检结果
func (h *HealthMonitor) Status() HealthStatus {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.lastStatus
}

// check 单次自检：生效模型存在且能对探针输入打分
func (h *HealthMonitor) check() {
	generic := logger.Generic()
	generic.Info("执行健康检查")

	status := HealthStatus{Status: StatusOnline, CheckedAt: time.Now()}

	active := h.slot.Load()
	if active == nil || active.Model == nil {
		status.Status = StatusDegraded
		status.Message = "无生效模型"
	} else if _, err := active.Model.Predict(probeInput()); err != nil {
		status.Status = StatusDegraded
		status.Message = fmt.Sprintf("模型探针打分失败: %v", err)
	}

	h.mutex.Lock()
	h.lastStatus = status
	h.mutex.Unlock()

	if status.Status == StatusOnline {
		generic.Info("健康检查: API服务在线",
			"model_version", active.Version,
			"uptime", time.Since(h.startedAt).Round(time.Second).String())
	} else {
		generic.Error("健康检查异常", "message", status.Message)
	}
}

// probeInput 自检用探针输入，仅含必填字段，其余交由模型插补
func probeInput() models.InputData {
	return models.InputData{Type: "casa"}
}
