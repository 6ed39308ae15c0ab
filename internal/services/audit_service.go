package services

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"finwise/internal/events"
	"finwise/internal/logger"
	"finwise/internal/models"
)

// auditService handles audit log recording.
type auditService struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewAuditService creates a new AuditServicer. A nil publisher disables
// event fan-out.
func NewAuditService(db *gorm.DB, publisher events.Publisher) AuditServicer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &auditService{db: db, publisher: publisher}
}

// Log records an audit event and publishes it. Errors are logged but never
// propagate to avoid disrupting the main operation.
func (s *auditService) Log(ctx context.Context, entry AuditEntry) {
	var changesJSON string
	if entry.Changes != nil {
		data, err := json.Marshal(entry.Changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", entry.Action)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	record := &models.AuditLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		IPAddress:    entry.IPAddress,
		Changes:      changesJSON,
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", entry.UserID,
			"action", entry.Action,
			"resource_type", entry.ResourceType,
			"resource_id", entry.ResourceID,
		)
	}

	event := events.NewEvent(entry.Action, entry.UserID, entry.ResourceType, entry.ResourceID)
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Get().Warnw("failed to publish audit event",
			"error", err,
			"action", entry.Action,
			"resource_type", entry.ResourceType,
		)
	}
}
