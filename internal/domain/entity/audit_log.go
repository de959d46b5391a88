package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditLog records who changed which booking record and how.
type AuditLog struct {
	ID         int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorID    *uuid.UUID   `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	Action     string       `gorm:"type:varchar(100);not null;index" json:"action"`
	EntityType string       `gorm:"type:varchar(50);not null" json:"entity_type"`
	EntityID   string       `gorm:"type:varchar(64);not null" json:"entity_id"`
	Changes    AuditChanges `gorm:"type:jsonb" json:"changes"`
	CreatedAt  time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditChanges holds the JSON snapshots before and after the action.
// Old is empty on create and New is empty on delete.
type AuditChanges struct {
	Old json.RawMessage `json:"old,omitempty"`
	New json.RawMessage `json:"new,omitempty"`
}

// NewAuditChanges snapshots the given values; nil values are left out.
func NewAuditChanges(oldValue, newValue interface{}) (AuditChanges, error) {
	var changes AuditChanges
	var err error
	if oldValue != nil {
		if changes.Old, err = json.Marshal(oldValue); err != nil {
			return AuditChanges{}, fmt.Errorf("snapshot old value: %w", err)
		}
	}
	if newValue != nil {
		if changes.New, err = json.Marshal(newValue); err != nil {
			return AuditChanges{}, fmt.Errorf("snapshot new value: %w", err)
		}
	}
	return changes, nil
}

func (c AuditChanges) Value() (driver.Value, error) {
	if len(c.Old) == 0 && len(c.New) == 0 {
		return nil, nil
	}
	return json.Marshal(c)
}

func (c *AuditChanges) Scan(value interface{}) error {
	*c = AuditChanges{}
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("unsupported audit changes value %T", value)
	}
}

// Audited entity types
const (
	AuditEntityAppointment = "appointment"
	AuditEntitySchedule    = "doctor_schedule"
)

// Audit actions
const (
	AuditActionAppointmentCreate = "appointment.create"
	AuditActionAppointmentCancel = "appointment.cancel"
	AuditActionScheduleCreate    = "schedule.create"
	AuditActionScheduleDelete    = "schedule.delete"
)
