package api

import (
	"strings"
	"sync"
	"time"

	"pokefusion/internal/auth"
	"pokefusion/internal/config"
	"pokefusion/internal/entity"
	"pokefusion/internal/model"
	"pokefusion/internal/pipeline"
	"pokefusion/internal/provider"
	"pokefusion/internal/service"
	"pokefusion/internal/storage"

	"github.com/gin-gonic/gin"
)

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg               config.Config
	repo              model.Repository
	storage           storage.Storage
	storagePublicBase string
	authManager       *auth.Manager

	// 服务层
	fusionService *service.FusionService

	// SSE 客户端管理
	sseClients map[string][]chan sseMessage
	sseMu      sync.Mutex
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(cfg config.Config, repo model.Repository, store storage.Storage, providers *provider.Set) (*HTTPHandler, error) {
	expiry := time.Duration(cfg.JWTExpirationMinutes) * time.Minute
	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, expiry)
	if err != nil {
		return nil, err
	}

	fusionSvc := service.NewFusionService(repo, store, providers, cfg)

	handler := &HTTPHandler{
		cfg:               cfg,
		repo:              repo,
		storage:           store,
		storagePublicBase: normalisePublicBase(cfg.StoragePublicBaseURL),
		authManager:       authManager,
		fusionService:     fusionSvc,
		sseClients:        make(map[string][]chan sseMessage),
	}

	// 设置 SSE 通知回调
	fusionSvc.SetNotifyFunc(handler.notifyFusionProgress)

	return handler, nil
}

// normalisePublicBase 规范化公共 URL 基础路径
func normalisePublicBase(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = "/files"
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return strings.TrimRight(trimmed, "/")
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return strings.TrimRight(trimmed, "/")
}

// notifyFusionProgress 推送流水线进度事件（用于 SSE）
func (h *HTTPHandler) notifyFusionProgress(clientID string, fusionID uint, event entity.FusionEvent) {
	if strings.TrimSpace(clientID) == "" {
		return
	}

	payload := gin.H{
		"fusion_id": fusionID,
		"stage":     event.Stage,
		"status":    event.Status,
		"timestamp": event.Timestamp,
	}
	if trimmed := strings.TrimSpace(event.Error); trimmed != "" {
		payload["error"] = trimmed
	}

	h.publishSSEMessage(clientID, sseMessage{
		event: "fusion_progress",
		data:  payload,
	})

	// 终态事件额外推送一条完成消息，便于客户端只监听结束。
	if event.Stage == pipeline.TerminalStage {
		h.publishSSEMessage(clientID, sseMessage{
			event: "fusion_completed",
			data:  payload,
		})
	}
}
