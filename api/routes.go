/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式；业务端点全部经过API Key鉴权
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers, api/middleware
 */

package api

import (
	"houseprice-service/api/controllers"
	apimiddleware "houseprice-service/api/middleware"
	"houseprice-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", apimiddleware.APIKeyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API Key鉴权（/metrics、/swagger在白名单内）
	authMiddleware := apimiddleware.NewAPIKeyAuthMiddleware()
	r.Use(authMiddleware.Middleware)

	// 健康检查
	healthController := controllers.NewHealthController(service.GlobalHealthMonitor)
	r.Get("/health", healthController.Health)

	// 模型信息
	infoController := controllers.NewInfoController(service.GlobalModelSlot)
	r.Get("/info", infoController.Info)

	// 批量预测
	predictController := controllers.NewPredictController(
		service.GlobalModelSlot, service.GlobalHistoryStore, service.GlobalRateLimiter)
	r.Post("/predict", predictController.Predict)
}
