package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"

	"houseprice-service/api"
	_ "houseprice-service/docs"
	"houseprice-service/logger"
	"houseprice-service/service"

	daprd "github.com/dapr/go-sdk/service/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

var (
	PORT         = 80
	BASE_CONTEXT = ""
	CONFIG_PATH  = "config.json"
)

func init() {
	if val := os.Getenv("LISTEN_PORT"); val != "" {
		PORT, _ = strconv.Atoi(val)
	}

	if val := os.Getenv("BASE_CONTEXT"); val != "" {
		BASE_CONTEXT = val
	}

	if val := os.Getenv("CONFIG_PATH"); val != "" {
		CONFIG_PATH = val
	}
}

// @title 房价预测服务 API
// @version 1.0
// @description 房价预测模型服务，跟踪注册中心production版本并提供批量预测接口
// @BasePath /
func main() {
	logger.InitLogger()

	// 启动期必须拿到可用模型，否则显式失败，不进入服务状态
	if err := service.Init(context.Background(), CONFIG_PATH); err != nil {
		log.Fatalf("服务启动失败: %v", err)
	}
	defer service.Shutdown()

	mux := chi.NewRouter()

	// 如果有BASE_CONTEXT，则在该路径下挂载所有路由
	if BASE_CONTEXT != "" {
		mux.Route(BASE_CONTEXT, func(r chi.Router) {
			subMux := r.(*chi.Mux)
			api.InitRoute(subMux)
			r.Handle("/metrics", promhttp.Handler())
			r.Handle("/swagger*", httpSwagger.WrapHandler)
		})
	} else {
		api.InitRoute(mux)
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/swagger*", httpSwagger.WrapHandler)
	}

	s := daprd.NewServiceWithMux(":"+strconv.Itoa(PORT), mux)
	if err := s.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("error: %v", err)
	}
}
