/*
 * @module service/registry/mlflow_client
 * @description MLflow 模型注册中心客户端，查询 production 别名指向的版本并下载模型制品
 * @architecture 客户端层 - 外部服务访问
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 构建请求 -> 带超时调用 -> 状态码检查 -> 解析响应
 * @rules 所有调用必须携带 context 并受客户端超时约束；失败以可重试错误返回，由调用方决定降级
 * @dependencies net/http, encoding/json
 * @refs service/serving/reconciler.go
 */

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

var TrackingURL = "http://127.0.0.1:5000"
var mlflowClient = &http.Client{
	Timeout: 30 * time.Second,
}

func init() {
	if envUrl := os.Getenv("MLFLOW_TRACKING_URL"); envUrl != "" {
		TrackingURL = envUrl
	}
}

// SetTrackingURL 设置 MLflow 服务地址（用于测试）
func SetTrackingURL(url string) {
	TrackingURL = url
}

// GetTrackingURL 获取当前 MLflow 服务地址
func GetTrackingURL() string {
	return TrackingURL
}

// ModelVersionResp 按别名查询模型版本的响应结构
type ModelVersionResp struct {
	ModelVersion struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"model_version"`
}

// GetVersionByAlias 查询指定别名当前指向的模型版本号
func GetVersionByAlias(ctx context.Context, name, alias string) (string, error) {
	if name == "" || alias == "" {
		return "", errors.New("model name and alias cannot be empty")
	}

	values := url.Values{}
	values.Add("name", name)
	values.Add("alias", alias)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		TrackingURL+"/api/2.0/mlflow/registered-models/alias", nil)
	if err != nil {
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.URL.RawQuery = values.Encode()

	resp, err := mlflowClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("查询模型版本失败，状态码: %d, 响应: %s", resp.StatusCode, string(body))
	}

	var versionResp ModelVersionResp
	if err := json.NewDecoder(resp.Body).Decode(&versionResp); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}

	if versionResp.ModelVersion.Version == "" {
		return "", fmt.Errorf("别名 %s 未指向任何版本", alias)
	}

	return versionResp.ModelVersion.Version, nil
}

// DownloadArtifact 下载指定版本的模型制品
func DownloadArtifact(ctx context.Context, name, version string) ([]byte, error) {
	if name == "" || version == "" {
		return nil, errors.New("model name and version cannot be empty")
	}

	artifactURL := fmt.Sprintf("%s/api/2.0/mlflow-artifacts/artifacts/%s/%s/model.json",
		TrackingURL, url.PathEscape(name), url.PathEscape(version))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifactURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	resp, err := mlflowClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("下载模型制品失败，状态码: %d, 响应: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取模型制品失败: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("模型制品为空")
	}

	return data, nil
}
