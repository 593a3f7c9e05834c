package ingestion

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	v1 "github.com/aevon-lab/eventfold/internal/api/v1"
	httperr "github.com/aevon-lab/eventfold/internal/core/errors"
	"github.com/aevon-lab/eventfold/internal/core/orderkey"
	"github.com/aevon-lab/eventfold/internal/core/query"
	"github.com/aevon-lab/eventfold/internal/core/storage"
	"github.com/gin-gonic/gin"
)

// ListEventsResponse is one page of an aggregate's events.
type ListEventsResponse struct {
	Events        []*v1.Event `json:"events"`
	NextPageToken string      `json:"next_page_token,omitempty"`
}

// ListEventsHandler returns one page of the events ordered after ?after=.
// Pass next_page_token back as ?page_token= to read the following page.
func (s *Service) ListEventsHandler(c *gin.Context) {
	aggregateID, ierr := parseAggregateID(c)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	cutoff, err := orderkey.ParseCutoff(c.Query("after"))
	if err != nil {
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidRequestError,
			message:    err.Error(),
		})
		return
	}

	pageSize := query.DefaultPageSize
	if raw := c.Query("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > s.maxPageSize {
			writeError(c, &ingestionError{
				statusCode: http.StatusBadRequest,
				errorType:  httperr.HttpInvalidRequestError,
				message:    fmt.Sprintf("page_size must be an integer between 1 and %d", s.maxPageSize),
			})
			return
		}
		pageSize = n
	}

	q := query.Plan(aggregateID, orderkey.Encode(cutoff), query.WithPageSize(pageSize))
	page, err := s.store.ExecutePagedQuery(c.Request.Context(), q, storage.Cursor(c.Query("page_token")))
	if err != nil {
		if errors.Is(err, storage.ErrInvalidCursor) {
			writeError(c, &ingestionError{
				statusCode: http.StatusBadRequest,
				errorType:  httperr.HttpInvalidCursorError,
				message:    "page_token is not valid for this aggregate",
			})
			return
		}

		slog.Error("[Ingestion] Failed to read events page", "error", err, "aggregate_id", aggregateID, "filter", q.Filter())
		writeError(c, &ingestionError{
			statusCode: http.StatusServiceUnavailable,
			errorType:  httperr.HttpStoreUnavailableError,
			message:    "Event store unavailable",
		})
		return
	}

	events := page.Events
	if events == nil {
		events = []*v1.Event{}
	}
	c.JSON(http.StatusOK, ListEventsResponse{
		Events:        events,
		NextPageToken: string(page.Next),
	})
}
