package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"pokefusion/internal/entity"
	"pokefusion/internal/entity/converter"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func (h *HTTPHandler) makeFusionImage(path string) entity.FusionImage {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return entity.FusionImage{}
	}
	return entity.FusionImage{
		Path: trimmed,
		URL:  h.publicURL(trimmed),
	}
}

func (h *HTTPHandler) makeFusionItem(record *entity.DbFusion, stats *entity.FusionReactionStats) entity.FusionItem {
	if record == nil {
		return entity.FusionItem{}
	}

	item := entity.FusionItem{
		ID:           record.ID,
		HeadName:     record.HeadName,
		BodyName:     record.BodyName,
		FusionName:   record.FusionName,
		Status:       record.Status,
		IsFallback:   record.IsFallback,
		Saved:        record.Saved,
		Description:  record.Description,
		ErrorMessage: record.ErrorMessage,
		SourceImage1: h.makeFusionImage(record.SourceImage1),
		SourceImage2: h.makeFusionImage(record.SourceImage2),
		OutputImage:  h.makeFusionImage(record.OutputImage),
		StageLog:     record.StageLog,
		CreatedAt:    record.CreatedAt,
		User:         converter.UserToSummary(record.User),
	}

	if stats != nil {
		item.LikeCount = stats.LikeCount
		item.FavoriteCount = stats.FavoriteCount
		item.ViewerLiked = stats.ViewerLiked
		item.ViewerFaved = stats.ViewerFaved
	}

	return item
}

// ListFusions 画廊列表。普通用户默认看到所有成功记录，可筛选自己的。
func (h *HTTPHandler) ListFusions(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var params entity.FusionQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return
	}

	params.Result = strings.ToLower(strings.TrimSpace(params.Result))
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 20
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}

	params.ViewerID = requestUser.ID
	mine := parseBoolQuery(c.Query("mine"))
	if mine {
		params.UserID = requestUser.ID
		params.IncludeAll = false
	} else {
		params.IncludeAll = true
		params.UserID = 0
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	records, meta, err := h.repo.ListFusions(ctx, &params)
	if err != nil {
		logrus.WithError(err).Error("failed to list fusions")
		InternalError(c, "failed to load gallery")
		return
	}

	ids := make([]uint, 0, len(records))
	for i := range records {
		ids = append(ids, records[i].ID)
	}

	statsByID, err := h.repo.FusionReactionStats(ctx, ids, requestUser.ID)
	if err != nil {
		logrus.WithError(err).Error("failed to load reaction stats")
		statsByID = map[uint]entity.FusionReactionStats{}
	}

	items := make([]entity.FusionItem, 0, len(records))
	for i := range records {
		stats := statsByID[records[i].ID]
		items = append(items, h.makeFusionItem(&records[i], &stats))
	}

	if meta == nil {
		meta = &entity.Meta{Page: int64(params.Page), PageSize: int64(params.PageSize), Total: int64(len(items))}
	}

	c.JSON(http.StatusOK, entity.FusionListResponse{Fusions: items, Meta: meta})
}

// GetFusion 画廊详情。
func (h *HTTPHandler) GetFusion(c *gin.Context) {
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

	statsByID, err := h.repo.FusionReactionStats(ctx, []uint{record.ID}, requestUser.ID)
	if err != nil {
		logrus.WithError(err).WithField("fusion_id", id).Error("failed to load reaction stats")
		statsByID = map[uint]entity.FusionReactionStats{}
	}
	stats := statsByID[record.ID]

	c.JSON(http.StatusOK, entity.FusionDetailResponse{Fusion: h.makeFusionItem(record, &stats)})
}

// DeleteFusion 删除融合记录，本人或管理员可删。
func (h *HTTPHandler) DeleteFusion(c *gin.Context) {
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
		logrus.WithError(err).WithField("fusion_id", id).Error("failed to load fusion for deletion")
		InternalError(c, "failed to delete fusion")
		return
	}

	if record.UserID != requestUser.ID && !requestUser.IsAdmin() {
		Forbidden(c, "cannot delete another user's fusion")
		return
	}

	if err := h.repo.DeleteFusion(ctx, id); err != nil {
		logrus.WithError(err).WithField("fusion_id", id).Error("failed to delete fusion")
		InternalError(c, "failed to delete fusion")
		return
	}

	c.Status(http.StatusNoContent)
}

// LikeFusion 点赞，重复点赞无副作用。
func (h *HTTPHandler) LikeFusion(c *gin.Context) {
	h.applyReaction(c, h.repo.LikeFusion)
}

// UnlikeFusion 取消点赞。
func (h *HTTPHandler) UnlikeFusion(c *gin.Context) {
	h.applyReaction(c, h.repo.UnlikeFusion)
}

// FavoriteFusion 收藏，重复收藏无副作用。
func (h *HTTPHandler) FavoriteFusion(c *gin.Context) {
	h.applyReaction(c, h.repo.FavoriteFusion)
}

// UnfavoriteFusion 取消收藏。
func (h *HTTPHandler) UnfavoriteFusion(c *gin.Context) {
	h.applyReaction(c, h.repo.UnfavoriteFusion)
}

func (h *HTTPHandler) applyReaction(c *gin.Context, apply func(ctx context.Context, fusionID, userID uint) error) {
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

	if _, err := h.repo.GetFusion(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeFusionNotFound, "fusion not found")
			return
		}
		logrus.WithError(err).WithField("fusion_id", id).Error("failed to load fusion for reaction")
		InternalError(c, "failed to update reaction")
		return
	}

	if err := apply(ctx, id, requestUser.ID); err != nil {
		logrus.WithError(err).WithField("fusion_id", id).Error("failed to update reaction")
		InternalError(c, "failed to update reaction")
		return
	}

	statsByID, err := h.repo.FusionReactionStats(ctx, []uint{id}, requestUser.ID)
	if err != nil {
		logrus.WithError(err).WithField("fusion_id", id).Error("failed to load reaction stats")
		InternalError(c, "failed to load reaction stats")
		return
	}

	c.JSON(http.StatusOK, statsByID[id])
}

func parseBoolQuery(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
