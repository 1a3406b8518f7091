/*
 * @module service/metrics/metrics
 * @description Prometheus 指标定义，覆盖预测请求、输入异常、模型换版与轮询失败
 * @architecture 工具层 - 可观测性
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 业务代码计数 -> promhttp 暴露 /metrics
 * @rules 指标只增不减，不承载业务语义
 * @dependencies github.com/prometheus/client_golang
 * @refs main.go, service/serving/reconciler.go, api/controllers/predict_controller.go
 */

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PredictionBatchesTotal 处理完成的预测批次数，按结果标记
	PredictionBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "houseprice_prediction_batches_total",
		Help: "处理完成的预测批次数",
	}, []string{"result"})

	// PredictionsTotal 成功产出的单条预测数
	PredictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "houseprice_predictions_total",
		Help: "成功产出的单条预测数",
	})

	// InputAnomaliesTotal 输入异常发现数
	InputAnomaliesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "houseprice_input_anomalies_total",
		Help: "输入异常发现数",
	})

	// ModelSwapsTotal 成功完成的模型换版次数
	ModelSwapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "houseprice_model_swaps_total",
		Help: "成功完成的模型换版次数",
	})

	// RegistryPollFailuresTotal 注册中心轮询失败次数
	RegistryPollFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "houseprice_registry_poll_failures_total",
		Help: "注册中心轮询失败次数",
	})
)
