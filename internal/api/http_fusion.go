package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"pokefusion/internal/entity"
	"pokefusion/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// GenerateFusion 发起一次融合生成，立即返回记录 ID，进度走 SSE 或轮询。
func (h *HTTPHandler) GenerateFusion(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var req entity.GenerateFusionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	req.ClientID = strings.TrimSpace(req.ClientID)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	record, err := h.fusionService.StartFusion(ctx, requestUser.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInsufficientCredits):
			PaymentRequired(c, "insufficient credits")
		case errors.Is(err, service.ErrInvalidSources):
			BadRequest(c, ErrCodeInvalidSource, "two source pokemon are required")
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, ErrCodePokemonNotFound, "pokemon not found")
		default:
			logrus.WithError(err).WithField("user_id", requestUser.ID).Error("failed to start fusion")
			InternalError(c, "failed to start fusion")
		}
		return
	}

	c.JSON(http.StatusAccepted, entity.GenerateFusionResponse{
		FusionID: record.ID,
		Status:   record.Status,
	})
}

// StreamFusionEvents SSE 推送指定客户端的融合进度事件。
func (h *HTTPHandler) StreamFusionEvents(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	clientID := strings.TrimSpace(c.Query("client_id"))
	if clientID == "" {
		MissingField(c, "client_id")
		return
	}

	ctx := c.Request.Context()
	events := make(chan sseMessage, 8)
	h.registerSSEClient(clientID, events)
	defer h.unregisterSSEClient(clientID, events)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	if flusher, ok := c.Writer.(http.Flusher); ok {
		flusher.Flush()
	}

	heartbeatTicker := time.NewTicker(10 * time.Second)
	defer heartbeatTicker.Stop()

	logrus.WithFields(logrus.Fields{
		"user_id":   requestUser.ID,
		"client_id": clientID,
	}).Info("fusion sse connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			logrus.WithFields(logrus.Fields{
				"user_id":   requestUser.ID,
				"client_id": clientID,
			}).Info("fusion sse disconnected")
			return false
		case <-heartbeatTicker.C:
			c.SSEvent("ping", gin.H{"ts": time.Now().UnixMilli()})
			return true
		case msg, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(msg.event, msg.data)
			return true
		}
	})
}

// FusionStatus 轮询接口：返回到目前为止的事件与终态记录，作为 SSE 的降级方案。
func (h *HTTPHandler) FusionStatus(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	record, err := h.repo.GetFusion(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeFusionNotFound, "fusion not found")
			return
		}
		logrus.WithError(err).WithField("fusion_id", id).Error("failed to load fusion")
		InternalError(c, "failed to load fusion")
		return
	}

	if record.UserID != requestUser.ID && !requestUser.IsAdmin() {
		Forbidden(c, "cannot view another user's fusion")
		return
	}

	response := entity.FusionStatusResponse{
		FusionID: record.ID,
		Status:   record.Status,
		Events:   []entity.FusionEvent{},
	}

	events, closed, known := h.fusionService.RunEvents(id)
	if known {
		response.Events = events
		response.Done = closed
	} else {
		// 运行缓冲已被回收，以数据库状态为准。
		response.Done = record.IsTerminal()
	}

	if response.Done && record.IsTerminal() {
		item := h.makeFusionItem(record, nil)
		response.Record = &item
	}

	c.JSON(http.StatusOK, response)
}
