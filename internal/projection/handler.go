package projection

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	httperr "github.com/aevon-lab/eventfold/internal/core/errors"
	"github.com/aevon-lab/eventfold/internal/core/orderkey"
	"github.com/aevon-lab/eventfold/internal/core/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/aggregates/:aggregate_id/state", s.HandleState)
}

// HandleState handles GET /v1/aggregates/:aggregate_id/state
// Query parameters: after (RFC 3339, optional)
func (s *Service) HandleState(c *gin.Context) {
	var uri struct {
		AggregateID string `uri:"aggregate_id" binding:"required"`
	}
	var query struct {
		After string `form:"after"`
	}

	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid path parameters",
			Details:   err.Error(),
		})
		return
	}
	aggregateID, err := uuid.Parse(uri.AggregateID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "aggregate_id must be a UUID",
			Details:   err.Error(),
		})
		return
	}

	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}
	cutoff, err := orderkey.ParseCutoff(query.After)
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.State(c.Request.Context(), StateRequest{AggregateID: aggregateID, Cutoff: cutoff})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidQuery):
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidRequestError,
				Message:   "Invalid state query",
				Details:   err.Error(),
			})
		case errors.Is(err, context.DeadlineExceeded):
			slog.Warn("[Projection] Fold timed out", "aggregate_id", aggregateID, "error", err)
			c.JSON(http.StatusGatewayTimeout, httperr.ErrorResponse{
				ErrorType: httperr.HttpTimeoutError,
				Message:   "Rebuilding the aggregate took too long",
			})
		case errors.Is(err, storage.ErrStoreUnavailable):
			slog.Error("[Projection] Event store unavailable", "aggregate_id", aggregateID, "error", err)
			c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
				ErrorType: httperr.HttpStoreUnavailableError,
				Message:   "Event store unavailable, retry the request",
			})
		default:
			slog.Error("[Projection] Failed to rebuild aggregate", "aggregate_id", aggregateID, "error", err)
			c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
				ErrorType: httperr.HttpInternalError,
				Message:   "Failed to rebuild aggregate",
				Details:   err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}
