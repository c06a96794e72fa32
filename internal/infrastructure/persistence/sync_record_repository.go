package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hull-connectors/planhat/internal/domain/integration"
)

// SyncRecordModel is the GORM model of a journal entry
type SyncRecordModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConnectorID string    `gorm:"type:varchar(64);not null;index:idx_sync_records_connector_created,priority:1;index:idx_sync_records_connector_message,priority:1"`
	Kind        string    `gorm:"type:varchar(16);not null"`
	MessageID   string    `gorm:"type:varchar(128);not null;default:'';index:idx_sync_records_connector_message,priority:2"`
	HullID      string    `gorm:"type:varchar(128);not null;default:''"`
	PlanhatID   string    `gorm:"type:varchar(64);not null;default:''"`
	Operation   string    `gorm:"type:varchar(16);not null;default:''"`
	Status      string    `gorm:"type:varchar(16);not null"`
	Reason      string    `gorm:"type:text;not null;default:''"`
	Endpoint    string    `gorm:"type:varchar(128);not null;default:''"`
	Method      string    `gorm:"type:varchar(16);not null;default:''"`
	CreatedAt   time.Time `gorm:"not null;index:idx_sync_records_connector_created,priority:2"`
}

// TableName returns the table name for the model
func (SyncRecordModel) TableName() string {
	return "sync_records"
}

// ToEntity converts the model to a domain record
func (m *SyncRecordModel) ToEntity() *integration.SyncRecord {
	return &integration.SyncRecord{
		ID:          m.ID,
		ConnectorID: m.ConnectorID,
		Kind:        integration.ObjectKind(m.Kind),
		MessageID:   m.MessageID,
		HullID:      m.HullID,
		PlanhatID:   m.PlanhatID,
		Operation:   integration.Operation(m.Operation),
		Status:      integration.SyncStatus(m.Status),
		Reason:      m.Reason,
		Endpoint:    m.Endpoint,
		Method:      m.Method,
		CreatedAt:   m.CreatedAt,
	}
}

// SyncRecordModelFromEntity creates a model from a domain record
func SyncRecordModelFromEntity(r *integration.SyncRecord) *SyncRecordModel {
	return &SyncRecordModel{
		ID:          r.ID,
		ConnectorID: r.ConnectorID,
		Kind:        string(r.Kind),
		MessageID:   r.MessageID,
		HullID:      r.HullID,
		PlanhatID:   r.PlanhatID,
		Operation:   string(r.Operation),
		Status:      string(r.Status),
		Reason:      r.Reason,
		Endpoint:    r.Endpoint,
		Method:      r.Method,
		CreatedAt:   r.CreatedAt,
	}
}

// SyncRecordRepository stores journal entries with gorm. It is both the
// repository read by the status endpoint and the journal fed by the agent.
type SyncRecordRepository struct {
	db *gorm.DB
}

// NewSyncRecordRepository creates a new sync record repository
func NewSyncRecordRepository(db *gorm.DB) *SyncRecordRepository {
	return &SyncRecordRepository{db: db}
}

// Save persists a record
func (r *SyncRecordRepository) Save(ctx context.Context, record *integration.SyncRecord) error {
	return r.db.WithContext(ctx).Create(SyncRecordModelFromEntity(record)).Error
}

// Record is Save under the journal port
func (r *SyncRecordRepository) Record(ctx context.Context, record *integration.SyncRecord) error {
	return r.Save(ctx, record)
}

// FindByID returns one record or integration.ErrSyncRecordNotFound
func (r *SyncRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.SyncRecord, error) {
	var model SyncRecordModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, integration.ErrSyncRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindByMessageID returns the records of one notification message, oldest first
func (r *SyncRecordRepository) FindByMessageID(ctx context.Context, connectorID, messageID string) ([]*integration.SyncRecord, error) {
	var models []SyncRecordModel
	err := r.db.WithContext(ctx).
		Where("connector_id = ? AND message_id = ?", connectorID, messageID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	records := make([]*integration.SyncRecord, len(models))
	for i := range models {
		records[i] = models[i].ToEntity()
	}
	return records, nil
}

// CountByStatusSince counts the records of a connector per status
func (r *SyncRecordRepository) CountByStatusSince(ctx context.Context, connectorID string, since time.Time) (integration.SyncStatusCounts, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&SyncRecordModel{}).
		Select("status, COUNT(*) AS count").
		Where("connector_id = ? AND created_at >= ?", connectorID, since).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := integration.SyncStatusCounts{}
	for _, row := range rows {
		counts[integration.SyncStatus(row.Status)] = row.Count
	}
	return counts, nil
}

var (
	_ integration.SyncRecordRepository = (*SyncRecordRepository)(nil)
	_ integration.SyncJournal          = (*SyncRecordRepository)(nil)
)
