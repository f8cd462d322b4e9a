package api

import (
	"context"
	"net/http"
	"time"

	"pokefusion/internal/entity"
	"pokefusion/internal/entity/converter"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CreditBalance 查询当前用户积分余额。
func (h *HTTPHandler) CreditBalance(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	balance, err := h.repo.CreditBalance(ctx, requestUser.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", requestUser.ID).Error("failed to load credit balance")
		InternalError(c, "failed to load balance")
		return
	}

	c.JSON(http.StatusOK, entity.CreditBalanceResponse{Balance: balance})
}

// CreditLedger 分页返回当前用户的积分流水，按时间倒序。
func (h *HTTPHandler) CreditLedger(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var params entity.BaseParams
	if err := c.ShouldBindQuery(&params); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return
	}
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 20
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	entries, meta, err := h.repo.ListCreditEntries(ctx, requestUser.ID, &params)
	if err != nil {
		logrus.WithError(err).WithField("user_id", requestUser.ID).Error("failed to list credit entries")
		InternalError(c, "failed to load ledger")
		return
	}

	balance, err := h.repo.CreditBalance(ctx, requestUser.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", requestUser.ID).Error("failed to load credit balance")
		InternalError(c, "failed to load balance")
		return
	}

	c.JSON(http.StatusOK, entity.CreditLedgerResponse{
		Entries: converter.LedgerEntriesToItems(entries),
		Balance: balance,
		Meta:    meta,
	})
}
