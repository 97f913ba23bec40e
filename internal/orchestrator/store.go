package orchestrator

import (
	"fmt"

	"zap-backend/internal/models"

	"gorm.io/gorm"
)

// Store persists operation history. All writes are fire-and-forget from the
// state machines' point of view: history is an audit trail, not recovery
// state, so a write failure is logged by gorm and never stops an operation.
type Store struct {
	db *gorm.DB
}

// NewStore creates an operation history store. A nil db disables
// persistence (used by tests).
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateOperation inserts a new operation record.
func (s *Store) CreateOperation(op *models.Operation) {
	if s == nil || s.db == nil {
		return
	}
	s.db.Create(op)
}

// SetStatus updates an operation's lifecycle status.
func (s *Store) SetStatus(id, status string) {
	if s == nil || s.db == nil {
		return
	}
	s.db.Model(&models.Operation{}).Where("id = ?", id).Update("status", status)
}

// Fail marks an operation failed with its terminal error message.
func (s *Store) Fail(id, message string) {
	if s == nil || s.db == nil {
		return
	}
	s.db.Model(&models.Operation{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        models.OperationStatusFailed,
		"error_message": message,
	})
}

// CreateLeg records one resolved chain-level batch of an operation.
func (s *Store) CreateLeg(leg *models.OperationLeg) {
	if s == nil || s.db == nil {
		return
	}
	s.db.Create(leg)
}

// Operation loads one operation with its legs.
func (s *Store) Operation(id string) (*models.Operation, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("operation history is not available")
	}
	var op models.Operation
	if err := s.db.Preload("Legs").First(&op, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &op, nil
}
