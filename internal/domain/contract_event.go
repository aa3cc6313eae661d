package types

import (
	"time"

	"gorm.io/datatypes"
)

const (
	EventEntityCreditContract = "credit_contract"
	EventEntitySaleContract   = "sale_contract"
	EventEntityNote           = "note"
)

// ContractEvent is an append-only audit row written on every lifecycle
// transition. Detail holds action-specific context (cancellation reason,
// sweep counts, signed file refs).
type ContractEvent struct {
	ID         int64          `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	EntityKind string         `gorm:"size:32;not null;index:idx_event_entity;column:entity_kind" json:"entity_kind"`
	EntityID   int64          `gorm:"not null;index:idx_event_entity;column:entity_id" json:"entity_id"`
	Action     string         `gorm:"size:64;not null;column:action" json:"action"`
	Detail     datatypes.JSON `gorm:"column:detail" json:"detail,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;column:created_at" json:"created_at"`
}

func (ContractEvent) TableName() string { return "contract_event" }
