package controllers

import (
	"net/http"

	"github.com/go-chi/render"
)

// StandardResponse 统一API响应结构
type StandardResponse struct {
	Success  bool                   `json:"success" example:"true"`
	Endpoint string                 `json:"endpoint" example:"predict"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// sendSuccess 输出成功响应
func sendSuccess(w http.ResponseWriter, r *http.Request, endpoint string, data map[string]interface{}) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, StandardResponse{
		Success:  true,
		Endpoint: endpoint,
		Data:     data,
	})
}

// sendError 输出失败响应
func sendError(w http.ResponseWriter, r *http.Request, status int, endpoint string, data map[string]interface{}) {
	render.Status(r, status)
	render.JSON(w, r, StandardResponse{
		Success:  false,
		Endpoint: endpoint,
		Data:     data,
	})
}
