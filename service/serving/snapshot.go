/*
 * @module service/serving/snapshot
 * @description 本地模型快照，持久化最近一次成功安装的模型制品与版本元数据，用作启动兜底
 * @architecture 数据访问层 - 本地文件存储
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 模型安装成功 -> 写制品文件 -> 写元数据文件；启动时注册中心不可达 -> 读快照恢复
 * @rules 先写制品后写元数据；元数据存在即视为快照完整
 * @dependencies encoding/json, os
 * @refs service/serving/reconciler.go
 */

package serving

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SnapshotMeta 快照元数据
type SnapshotMeta struct {
	Name    string    `json:"name"`
	Version string    `json:"version"`
	Alias   string    `json:"alias"`
	SavedAt time.Time `json:"saved_at"`
}

// SnapshotStore 本地快照存储
type SnapshotStore struct {
	dir      string
	fileName string
}

// NewSnapshotStore 创建快照存储
func NewSnapshotStore(dir, fileName string) *SnapshotStore {
	return &SnapshotStore{dir: dir, fileName: fileName}
}

// artifactPath 制品文件路径
func (s *SnapshotStore) artifactPath() string {
	return filepath.Join(s.dir, s.fileName)
}

// metaPath 元数据文件路径
func (s *SnapshotStore) metaPath() string {
	return filepath.Join(s.dir, s.fileName+".meta.json")
}

// Save 持久化模型制品与元数据
func (s *SnapshotStore) Save(artifact []byte, meta SnapshotMeta) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("创建快照目录失败: %w", err)
	}

	if err := os.WriteFile(s.artifactPath(), artifact, 0644); err != nil {
		return fmt.Errorf("写快照制品失败: %w", err)
	}

	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化快照元数据失败: %w", err)
	}
	if err := os.WriteFile(s.metaPath(), metaData, 0644); err != nil {
		return fmt.Errorf("写快照元数据失败: %w", err)
	}

	return nil
}

// Load 读取最近一次快照，返回制品字节与元数据
func (s *SnapshotStore) Load() ([]byte, *SnapshotMeta, error) {
	metaData, err := os.ReadFile(s.metaPath())
	if err != nil {
		return nil, nil, fmt.Errorf("读快照元数据失败: %w", err)
	}
	var meta SnapshotMeta
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, nil, fmt.Errorf("解析快照元数据失败: %w", err)
	}

	artifact, err := os.ReadFile(s.artifactPath())
	if err != nil {
		return nil, nil, fmt.Errorf("读快照制品失败: %w", err)
	}

	return artifact, &meta, nil
}

// Exists 判断本地是否存在完整快照
func (s *SnapshotStore) Exists() bool {
	if _, err := os.Stat(s.metaPath()); err != nil {
		return false
	}
	if _, err := os.Stat(s.artifactPath()); err != nil {
		return false
	}
	return true
}
