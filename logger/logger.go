package logger

import (
	"log/slog"
	"os"
)

// 日志通道名，对应三类日志：通用日志、输入异常日志、预测历史日志
const (
	ChannelGeneric           = "generic"
	ChannelInputMonitor      = "input_monitor"
	ChannelPredictionHistory = "prediction_history"
)

// InitLogger 初始化全局日志记录器
// 创建 JSON 格式的日志处理器,输出到 stdout
func InitLogger() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
}

// Generic 通用日志记录器
func Generic() *slog.Logger {
	return slog.Default().With("channel", ChannelGeneric)
}

// InputMonitor 输入异常监控日志记录器
func InputMonitor() *slog.Logger {
	return slog.Default().With("channel", ChannelInputMonitor)
}

// PredictionHistory 预测历史日志记录器
func PredictionHistory() *slog.Logger {
	return slog.Default().With("channel", ChannelPredictionHistory)
}
