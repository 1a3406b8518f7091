/*
 * @module service/serving/reconciler
 * @description 模型版本协调器，轮询注册中心 production 别名并在版本变化时原子换版
 * @architecture 基于Go协程和定时器的调度器模式
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow STARTING -> SYNCED -> (POLLING -> SYNCED | POLLING -> UPDATING -> SYNCED) 循环
 * @rules 轮询严格串行，任一时刻至多一次换版在途；新模型确认可加载前绝不拆除旧模型；
 *        轮询失败仅记录日志并保留现有模型，下个周期重试
 * @dependencies github.com/robfig/cron/v3, service/registry
 * @refs service/serving/active_model.go, service/serving/snapshot.go, service/config
 */

package serving

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"houseprice-service/logger"
	"houseprice-service/service/config"
	"houseprice-service/service/metrics"
	"houseprice-service/service/registry"
)

// 注册中心单次调用的超时上限
const registryCallTimeout = 30 * time.Second

// Reconciler 模型版本协调器
type Reconciler struct {
	cfg       *config.PredictConfig
	slot      *ModelSlot
	snapshots *SnapshotStore
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewReconciler 创建版本协调器
func NewReconciler(cfg *config.PredictConfig, slot *ModelSlot, snapshots *SnapshotStore) *Reconciler {
	ctx, cancel := context.WithCancel(context.Background())

	// SkipIfStillRunning 保证轮询串行化：上一轮未完成时跳过本轮，换版绝不并发
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	return &Reconciler{
		cfg:       cfg,
		slot:      slot,
		snapshots: snapshots,
		cron:      c,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Bootstrap 启动期模型加载（STARTING 状态）
// 优先从注册中心安装 production 版本；注册中心不可用时回退本地快照；
// 两者都失败则返回错误，进程不得开始对外服务
func (r *Reconciler) Bootstrap(ctx context.Context) error {
	generic := logger.Generic()

	installed, err := r.bootstrapFromRegistry(ctx)
	if err == nil {
		generic.Info("启动加载模型完成", "source", "registry", "version", installed.Version)
		return nil
	}
	generic.Warn("注册中心启动加载失败，尝试本地快照兜底", "error", err)

	artifact, meta, snapErr := r.snapshots.Load()
	if snapErr != nil {
		return fmt.Errorf("注册中心不可达(%v)且本地快照不可用: %w", err, snapErr)
	}
	model, loadErr := LoadModel(artifact)
	if loadErr != nil {
		return fmt.Errorf("注册中心不可达(%v)且本地快照损坏: %w", err, loadErr)
	}

	r.slot.Publish(&ActiveModel{
		Model:    model,
		Name:     meta.Name,
		Version:  meta.Version,
		Alias:    meta.Alias,
		LoadedAt: time.Now(),
	})
	generic.Info("启动加载模型完成", "source", "snapshot", "version", meta.Version)
	return nil
}

// bootstrapFromRegistry 从注册中心解析并安装 production 版本
func (r *Reconciler) bootstrapFromRegistry(ctx context.Context) (*ActiveModel, error) {
	callCtx, cancel := context.WithTimeout(ctx, registryCallTimeout)
	defer cancel()

	version, err := registry.GetVersionByAlias(callCtx, r.cfg.ModelName(), r.cfg.ModelAlias())
	if err != nil {
		return nil, err
	}
	return r.install(ctx, version)
}

// Start 启动轮询循环
func (r *Reconciler) Start() error {
	log.Println("启动模型版本协调器")

	spec := fmt.Sprintf("@every %ds", r.cfg.ModelUpdateTimer())
	if _, err := r.cron.AddFunc(spec, r.reconcile); err != nil {
		return fmt.Errorf("注册轮询任务失败: %w", err)
	}
	r.cron.Start()

	log.Println("模型版本协调器启动完成")
	return nil
}

// Stop 停止轮询循环
func (r *Reconciler) Stop() {
	log.Println("停止模型版本协调器")
	r.cancel()
	if r.cron != nil {
		r.cron.Stop()
	}
}

// reconcile 单次轮询（POLLING 状态），由 cron 串行触发
func (r *Reconciler) reconcile() {
	generic := logger.Generic()
	generic.Info("检查模型是否有新版本")

	callCtx, cancel := context.WithTimeout(r.ctx, registryCallTimeout)
	defer cancel()

	remoteVersion, err := registry.GetVersionByAlias(callCtx, r.cfg.ModelName(), r.cfg.ModelAlias())
	if err != nil {
		// 可重试的非致命失败：保留现有模型，下个周期再查
		metrics.RegistryPollFailuresTotal.Inc()
		generic.Error("查询注册中心版本失败，保留当前模型", "error", err)
		return
	}

	current := r.slot.Load()
	if current != nil && current.Version == remoteVersion {
		generic.Info("无模型更新，继续使用当前模型", "version", remoteVersion)
		return
	}

	// UPDATING 状态：失败则放弃本次更新，旧模型保持生效
	generic.Info("发现新版本，开始换版", "version", remoteVersion)
	installed, err := r.install(r.ctx, remoteVersion)
	if err != nil {
		generic.Error("模型换版失败，旧模型保持生效", "version", remoteVersion, "error", err)
		return
	}
	metrics.ModelSwapsTotal.Inc()
	generic.Info("模型换版完成", "version", installed.Version)
}

// install 下载、校验并发布指定版本，随后持久化快照与配置版本号
// 发布是一次原子指针替换：读者要么看到完整的旧模型，要么看到完整的新模型
func (r *Reconciler) install(ctx context.Context, version string) (*ActiveModel, error) {
	callCtx, cancel := context.WithTimeout(ctx, registryCallTimeout)
	defer cancel()

	artifact, err := registry.DownloadArtifact(callCtx, r.cfg.ModelName(), version)
	if err != nil {
		return nil, fmt.Errorf("下载模型制品失败: %w", err)
	}

	model, err := LoadModel(artifact)
	if err != nil {
		return nil, fmt.Errorf("模型制品校验失败: %w", err)
	}

	active := &ActiveModel{
		Model:    model,
		Name:     r.cfg.ModelName(),
		Version:  version,
		Alias:    r.cfg.ModelAlias(),
		LoadedAt: time.Now(),
	}
	r.slot.Publish(active)

	// 快照与配置回写失败不回滚发布：内存中的新模型已确认可用，
	// 持久化问题只影响下次重启的恢复路径
	if err := r.snapshots.Save(artifact, SnapshotMeta{
		Name:    active.Name,
		Version: active.Version,
		Alias:   active.Alias,
		SavedAt: time.Now(),
	}); err != nil {
		logger.Generic().Error("持久化模型快照失败", "version", version, "error", err)
	}
	if err := r.cfg.WriteModelVersion(version); err != nil {
		logger.Generic().Error("回写配置模型版本失败", "version", version, "error", err)
	}

	return active, nil
}
