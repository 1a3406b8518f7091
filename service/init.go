/*
 * @module service/init
 * @description 服务初始化模块，负责配置加载、模型启动加载与后台任务生命周期管理
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 配置加载 -> 模型启动加载(注册中心优先,快照兜底) -> 历史库/限流器初始化 -> 启动后台任务
 * @rules 启动期拿不到任何可用模型必须显式失败，禁止在无模型状态下对外服务
 * @dependencies service/serving, service/monitoring, service/history, service/rate_limiter
 * @refs main.go, api/routes.go
 */

package service

import (
	"context"
	"fmt"
	"log"
	"os"

	"houseprice-service/service/config"
	"houseprice-service/service/history"
	"houseprice-service/service/monitoring"
	"houseprice-service/service/rate_limiter"
	"houseprice-service/service/registry"
	"houseprice-service/service/serving"
)

var (
	GlobalConfig        *config.PredictConfig
	GlobalModelSlot     *serving.ModelSlot
	GlobalReconciler    *serving.Reconciler
	GlobalHealthMonitor *monitoring.HealthMonitor
	GlobalHistoryStore  *history.Store
	GlobalRateLimiter   *rate_limiter.RedisRateLimiter
)

// Init 初始化全部服务组件并启动后台任务
// 返回错误即为致命启动失败，调用方必须终止进程
func Init(ctx context.Context, configPath string) error {
	GlobalConfig = config.LoadPredictConfig(configPath)

	if envURL := os.Getenv("MLFLOW_TRACKING_URL"); envURL == "" {
		registry.SetTrackingURL(GlobalConfig.RegistryURL())
	}

	GlobalModelSlot = &serving.ModelSlot{}
	snapshots := serving.NewSnapshotStore(GlobalConfig.ModelsPath(), GlobalConfig.ModelFileName())
	GlobalReconciler = serving.NewReconciler(GlobalConfig, GlobalModelSlot, snapshots)

	// STARTING：注册中心优先，本地快照兜底，两者皆失败则启动失败
	if err := GlobalReconciler.Bootstrap(ctx); err != nil {
		return fmt.Errorf("启动加载模型失败: %w", err)
	}

	store, err := history.NewStore(GlobalConfig.HistoryDBDSN(), GlobalConfig.EnablePredDataLog())
	if err != nil {
		return fmt.Errorf("初始化预测历史库失败: %w", err)
	}
	GlobalHistoryStore = store

	if GlobalConfig.EnableRateLimit() {
		limiter, err := rate_limiter.NewRedisRateLimiter(GlobalConfig.RateLimitPerMinute())
		if err != nil {
			// 限流是可选能力，初始化失败降级为不限流
			log.Printf("限流器初始化失败，降级为不限流: %v", err)
		} else {
			GlobalRateLimiter = limiter
		}
	}

	GlobalHealthMonitor = monitoring.NewHealthMonitor(GlobalModelSlot, GlobalConfig.HealthCheckTimer())

	if err := GlobalReconciler.Start(); err != nil {
		return fmt.Errorf("启动版本协调器失败: %w", err)
	}
	if err := GlobalHealthMonitor.Start(); err != nil {
		return fmt.Errorf("启动健康监视器失败: %w", err)
	}

	log.Println("服务初始化完成")
	return nil
}

// Shutdown 停止后台任务并释放资源
func Shutdown() {
	if GlobalReconciler != nil {
		GlobalReconciler.Stop()
	}
	if GlobalHealthMonitor != nil {
		GlobalHealthMonitor.Stop()
	}
	if GlobalRateLimiter != nil {
		GlobalRateLimiter.Close()
	}
}
