package ingestion

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	v1 "github.com/aevon-lab/eventfold/internal/api/v1"
	httperr "github.com/aevon-lab/eventfold/internal/core/errors"
	"github.com/aevon-lab/eventfold/internal/core/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgReadBodyFailed   = "Failed to read request body"
	msgInvalidJSON      = "Invalid JSON body"
	msgInvalidAggregate = "aggregate_id must be a UUID"
	msgPersistFailed    = "Failed to persist event"
	msgDuplicateEvent   = "Event already exists"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// AppendResponse is returned for an appended event.
type AppendResponse struct {
	Status      string `json:"status"`
	EventID     string `json:"event_id"`
	AggregateID string `json:"aggregate_id"`
	OrderKey    string `json:"order_key"`
}

// AppendHandler handles HTTP POST requests appending one event to an aggregate.
func (s *Service) AppendHandler(c *gin.Context) {
	aggregateID, ierr := parseAggregateID(c)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	evt, payloadSize, ierr := s.parseEvent(c)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	if ierr := validateEvent(evt, aggregateID); ierr != nil {
		writeError(c, ierr)
		return
	}

	slog.Info("[Ingestion] Received event",
		"event_id", evt.ID,
		"aggregate_id", evt.AggregateID,
		"event_type", evt.Type,
		"schema_version", evt.SchemaVersion,
		"payload_size", payloadSize)

	if ierr := s.persistEvent(c.Request.Context(), evt); ierr != nil {
		writeError(c, ierr)
		return
	}

	c.JSON(http.StatusCreated, AppendResponse{
		Status:      "created",
		EventID:     evt.ID,
		AggregateID: evt.AggregateID.String(),
		OrderKey:    evt.OrderKey.String(),
	})
}

func parseAggregateID(c *gin.Context) (uuid.UUID, *ingestionError) {
	id, err := uuid.Parse(c.Param("aggregate_id"))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidRequestError,
			message:    msgInvalidAggregate,
		}
	}
	return id, nil
}

// parseEvent reads the raw request body and binds it into an Event struct.
// Returns the parsed event and the raw payload size (used for structured logging upstream).
func (s *Service) parseEvent(c *gin.Context) (*v1.Event, int, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("[Ingestion] Failed to read request body", "error", err)
		return nil, 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Ingestion] Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var evt v1.Event
	if err := c.ShouldBindJSON(&evt); err != nil {
		slog.Warn("[Ingestion] Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}

	return &evt, len(bodyBytes), nil
}

// validateEvent binds the event to the aggregate in the path and runs envelope
// validation. Store-assigned fields sent by the client are discarded.
func validateEvent(evt *v1.Event, aggregateID uuid.UUID) *ingestionError {
	if evt.AggregateID != uuid.Nil && evt.AggregateID != aggregateID {
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidRequestError,
			message:    "aggregate_id in body does not match path",
		}
	}
	evt.AggregateID = aggregateID
	evt.OrderKey = 0
	evt.RecordedAt = time.Time{}

	if err := evt.Validate(); err != nil {
		slog.Warn("[Ingestion] Envelope validation failed", "error", err, "event_id", evt.ID)
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    err.Error(),
		}
	}
	return nil
}

// persistEvent saves the event to the backing store.
func (s *Service) persistEvent(ctx context.Context, evt *v1.Event) *ingestionError {
	if err := s.store.SaveEvent(ctx, evt); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			slog.Info("[Ingestion] Duplicate event rejected", "event_id", evt.ID, "aggregate_id", evt.AggregateID)
			return &ingestionError{
				statusCode: http.StatusConflict,
				errorType:  httperr.HttpDuplicateEventError,
				message:    msgDuplicateEvent,
			}
		}

		slog.Error("[Ingestion] Failed to persist event", "error", err, "event_id", evt.ID)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgPersistFailed,
		}
	}

	return nil
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
