package ingestion

import (
	"github.com/aevon-lab/eventfold/internal/core/query"
	"github.com/aevon-lab/eventfold/internal/core/storage"
	"github.com/gin-gonic/gin"
)

type Service struct {
	store            storage.EventStore
	maxBodySizeBytes int
	maxPageSize      int
}

func NewService(repo storage.EventStore, maxBodySizeMB int) *Service {
	if repo == nil {
		panic("ingestion: store must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		store:            repo,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
		maxPageSize:      query.MaxPageSize,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/aggregates/:aggregate_id/events", s.AppendHandler)
	r.GET("/v1/aggregates/:aggregate_id/events", s.ListEventsHandler)
}
