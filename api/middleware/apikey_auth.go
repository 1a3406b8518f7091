/*
 * @module api/middleware/apikey_auth
 * @description API Key鉴权中间件，校验请求头中的预共享密钥
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 白名单检查 -> 请求头提取 -> 常数时间比较 -> 下一个处理器
 * @rules 统一鉴权、安全验证、错误处理；密钥缺失与不匹配一律返回403
 * @dependencies net/http, crypto/subtle
 * @refs api/routes.go
 */

package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/render"
)

// APIKeyHeader 携带预共享密钥的请求头名
const APIKeyHeader = "House-Price-API-Key"

// APIKeyEnv 预共享密钥的环境变量名
const APIKeyEnv = "HOUSE_PRICE_API_KEY"

// APIKeyAuthMiddleware API Key认证中间件
type APIKeyAuthMiddleware struct {
	expectedKey string
	// 白名单路径（不需要鉴权）
	whitelistPaths []string
}

// NewAPIKeyAuthMiddleware 创建API Key认证中间件实例
// 白名单携带BASE_CONTEXT挂载前缀，保证服务挂载在子路径下时Prometheus抓取与Swagger仍免鉴权
func NewAPIKeyAuthMiddleware() *APIKeyAuthMiddleware {
	base := strings.TrimSuffix(os.Getenv("BASE_CONTEXT"), "/")
	return &APIKeyAuthMiddleware{
		expectedKey: os.Getenv(APIKeyEnv),
		whitelistPaths: []string{
			base + "/metrics", // Prometheus抓取
			base + "/swagger", // Swagger文档
		},
	}
}

// AddWhitelistPath 添加白名单路径
func (m *APIKeyAuthMiddleware) AddWhitelistPath(path string) {
	m.whitelistPaths = append(m.whitelistPaths, path)
}

// IsWhitelistPath 检查路径是否在白名单中
func (m *APIKeyAuthMiddleware) IsWhitelistPath(path string) bool {
	for _, whitelistPath := range m.whitelistPaths {
		// 支持前缀匹配
		if strings.HasPrefix(path, whitelistPath) {
			return true
		}
	}
	return false
}

// Middleware 认证中间件处理函数
func (m *APIKeyAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.IsWhitelistPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get(APIKeyHeader)
		if apiKey == "" {
			m.respondAccessDenied(w, r, "缺少"+APIKeyHeader+"请求头")
			return
		}

		// 常数时间比较，避免按字节泄露密钥前缀
		if m.expectedKey == "" ||
			subtle.ConstantTimeCompare([]byte(apiKey), []byte(m.expectedKey)) != 1 {
			m.respondAccessDenied(w, r, "无效的API Key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// respondAccessDenied 返回403拒绝访问响应
func (m *APIKeyAuthMiddleware) respondAccessDenied(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	render.JSON(w, r, map[string]interface{}{
		"success":  false,
		"endpoint": r.URL.Path,
		"data":     map[string]interface{}{"error": message},
	})
}
