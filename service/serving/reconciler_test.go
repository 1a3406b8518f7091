/*
 * @module service/serving/reconciler_test
 * @description 模型版本协调器单元测试，使用内嵌假注册中心覆盖启动、轮询与换版路径
 * @architecture 测试层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 启动假注册中心 -> Bootstrap/reconcile -> 断言槽位与快照状态
 * @rules 覆盖注册中心优先、快照兜底、致命启动失败、幂等轮询与单次换版
 * @dependencies testing, net/http/httptest, stretchr/testify
 */

package serving

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"houseprice-service/service/config"
	"houseprice-service/service/registry"
)

// fakeRegistry 内嵌的假MLflow注册中心
type fakeRegistry struct {
	mutex      sync.Mutex
	version    string
	artifact   []byte
	failAlias  bool
	aliasCalls int
}

func (f *fakeRegistry) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mutex.Lock()
		defer f.mutex.Unlock()

		switch {
		case r.URL.Path == "/api/2.0/mlflow/registered-models/alias":
			f.aliasCalls++
			if f.failAlias {
				http.Error(w, "registry down", http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"model_version": map[string]string{
					"name":    r.URL.Query().Get("name"),
					"version": f.version,
				},
			})
		case strings.HasPrefix(r.URL.Path, "/api/2.0/mlflow-artifacts/artifacts/"):
			w.Write(f.artifact)
		default:
			http.NotFound(w, r)
		}
	})
}

func (f *fakeRegistry) setVersion(v string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.version = v
}

func (f *fakeRegistry) setFailAlias(fail bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.failAlias = fail
}

// newTestReconciler 构建协调器及其依赖，注册中心指向假服务
func newTestReconciler(t *testing.T, fake *fakeRegistry) (*Reconciler, *ModelSlot, *SnapshotStore, *config.PredictConfig) {
	t.Helper()

	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	oldURL := registry.GetTrackingURL()
	registry.SetTrackingURL(server.URL)
	t.Cleanup(func() { registry.SetTrackingURL(oldURL) })

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`{
		"model_name": "House_Price",
		"model_alias": "production",
		"model_version": "1",
		"models_path": %q,
		"model_file_name": "local_model.json",
		"enable_pred_data_log": false,
		"model_update_timer": 60,
		"health_check_timer": 60
	}`, filepath.Join(dir, "models"))), 0644))

	cfg := config.LoadPredictConfig(configPath)
	slot := &ModelSlot{}
	snapshots := NewSnapshotStore(cfg.ModelsPath(), cfg.ModelFileName())
	r := NewReconciler(cfg, slot, snapshots)
	t.Cleanup(r.Stop)

	return r, slot, snapshots, cfg
}

// TestBootstrapFromRegistry 测试启动时从注册中心安装模型
func TestBootstrapFromRegistry(t *testing.T) {
	fake := &fakeRegistry{version: "3"}
	r, slot, snapshots, cfg := newTestReconciler(t, fake)
	fake.artifact = testArtifact(t)

	require.NoError(t, r.Bootstrap(context.Background()))

	active := slot.Load()
	require.NotNil(t, active)
	assert.Equal(t, "3", active.Version)
	assert.Equal(t, "production", active.Alias)

	// 快照与配置版本号同步更新
	assert.True(t, snapshots.Exists())
	_, meta, err := snapshots.Load()
	require.NoError(t, err)
	assert.Equal(t, "3", meta.Version)
	assert.Equal(t, "3", cfg.ModelVersion())
}

// TestBootstrapFallbackToSnapshot 测试注册中心不可达时回退本地快照
func TestBootstrapFallbackToSnapshot(t *testing.T) {
	fake := &fakeRegistry{version: "3", failAlias: true}
	r, slot, snapshots, _ := newTestReconciler(t, fake)

	require.NoError(t, snapshots.Save(testArtifact(t), SnapshotMeta{
		Name: "House_Price", Version: "2", Alias: "production", SavedAt: time.Now(),
	}))

	require.NoError(t, r.Bootstrap(context.Background()))

	active := slot.Load()
	require.NotNil(t, active)
	assert.Equal(t, "2", active.Version)
}

// TestBootstrapFatalWithoutModel 测试注册中心不可达且无快照时启动失败
func TestBootstrapFatalWithoutModel(t *testing.T) {
	fake := &fakeRegistry{failAlias: true}
	r, slot, _, _ := newTestReconciler(t, fake)

	assert.Error(t, r.Bootstrap(context.Background()))
	assert.Nil(t, slot.Load())
}

// TestReconcileIdempotent 测试同版本连续轮询不触发重新加载
func TestReconcileIdempotent(t *testing.T) {
	fake := &fakeRegistry{version: "1"}
	r, slot, _, _ := newTestReconciler(t, fake)
	fake.artifact = testArtifact(t)

	require.NoError(t, r.Bootstrap(context.Background()))
	loadedAt := slot.Load().LoadedAt

	r.reconcile()
	r.reconcile()

	assert.Equal(t, loadedAt, slot.Load().LoadedAt, "同版本轮询不应触发重新加载")
}

// TestReconcileSwapsOnNewVersion 测试版本变化触发一次换版
func TestReconcileSwapsOnNewVersion(t *testing.T) {
	fake := &fakeRegistry{version: "1"}
	r, slot, snapshots, cfg := newTestReconciler(t, fake)
	fake.artifact = testArtifact(t)

	require.NoError(t, r.Bootstrap(context.Background()))
	oldActive := slot.Load()

	fake.setVersion("2")
	r.reconcile()

	active := slot.Load()
	require.NotNil(t, active)
	assert.Equal(t, "2", active.Version)
	assert.True(t, active.LoadedAt.After(oldActive.LoadedAt) || active.LoadedAt.Equal(oldActive.LoadedAt))
	assert.NotSame(t, oldActive, active)

	_, meta, err := snapshots.Load()
	require.NoError(t, err)
	assert.Equal(t, "2", meta.Version)
	assert.Equal(t, "2", cfg.ModelVersion())
}

// TestReconcilePollFailureKeepsModel 测试轮询失败保留现有模型
func TestReconcilePollFailureKeepsModel(t *testing.T) {
	fake := &fakeRegistry{version: "1"}
	r, slot, _, _ := newTestReconciler(t, fake)
	fake.artifact = testArtifact(t)

	require.NoError(t, r.Bootstrap(context.Background()))
	before := slot.Load()

	fake.setFailAlias(true)
	r.reconcile()

	assert.Same(t, before, slot.Load(), "轮询失败时现有模型必须保持生效")
}

// TestReconcileBadArtifactKeepsModel 测试新版本制品损坏时放弃更新
func TestReconcileBadArtifactKeepsModel(t *testing.T) {
	fake := &fakeRegistry{version: "1"}
	r, slot, _, cfg := newTestReconciler(t, fake)
	fake.artifact = testArtifact(t)

	require.NoError(t, r.Bootstrap(context.Background()))
	before := slot.Load()

	fake.setVersion("2")
	fake.mutex.Lock()
	fake.artifact = []byte("broken artifact")
	fake.mutex.Unlock()
	r.reconcile()

	assert.Same(t, before, slot.Load(), "制品损坏时旧模型必须保持生效")
	assert.Equal(t, "1", cfg.ModelVersion())
}
