package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/erp/connector/internal/application/pull"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/infrastructure/logger"
	"github.com/erp/connector/internal/interfaces/http/dto"
	"github.com/erp/connector/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PullRequester asks the Manager to re-send data matching the criteria.
type PullRequester interface {
	Request(ctx context.Context, criteria pull.Criteria) (*pull.Receipt, error)
}

// PullHandler handles operator-initiated pull requests
type PullHandler struct {
	requester PullRequester
}

// NewPullHandler creates a new PullHandler
func NewPullHandler(requester PullRequester) *PullHandler {
	return &PullHandler{requester: requester}
}

// Request dispatches a signed pull request to the Manager
func (h *PullHandler) Request(c *gin.Context) {
	var criteria pull.Criteria
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&criteria); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	receipt, err := h.requester.Request(c.Request.Context(), criteria)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(receipt))
}

func (h *PullHandler) writeError(c *gin.Context, err error) {
	log := logger.GetGinLogger(c)

	var remote *pull.RemoteError
	if errors.As(err, &remote) {
		log.Warn("manager refused pull", zap.Int("status", remote.Status))
		c.JSON(http.StatusBadGateway, dto.NewErrorResponse("MANAGER_ERROR", remote.Error()))
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		c.JSON(http.StatusConflict, dto.NewErrorResponse(domainErr.Code, domainErr.Message))
		return
	}

	log.Error("pull request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", "Pull request failed"))
}
