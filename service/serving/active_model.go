/*
 * @module service/serving/active_model
 * @description 当前生效模型槽位，单次原子指针替换发布，读取方永远看到完整一致的(句柄,版本)对
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/model.md
 * @stateFlow 构建不可变 ActiveModel 值 -> 原子发布 -> 并发读取
 * @rules ActiveModel 创建后不可变；替换整体发生，禁止就地修改任何字段
 * @dependencies sync/atomic
 * @refs service/serving/reconciler.go, api/controllers/predict_controller.go
 */

package serving

import (
	"sync/atomic"
	"time"
)

// ActiveModel 当前生效的模型及其元数据，发布后不可变
type ActiveModel struct {
	Model    Model
	Name     string
	Version  string
	Alias    string
	LoadedAt time.Time
}

// ModelSlot 生效模型槽位
// 唯一写者是版本协调器，读者是任意并发的预测请求
type ModelSlot struct {
	current atomic.Pointer[ActiveModel]
}

// Load 取当前生效模型，启动完成前返回 nil
func (s *ModelSlot) Load() *ActiveModel {
	return s.current.Load()
}

// Publish 原子发布新模型，整体替换旧值
func (s *ModelSlot) Publish(m *ActiveModel) {
	s.current.Store(m)
}
