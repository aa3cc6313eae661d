package audit

import (
	"context"
	"time"

	"gorm.io/gorm"

	types "github.com/banquito-core/formalization-backend/internal/domain"
	"github.com/banquito-core/formalization-backend/internal/platform/logger"
)

type ContractEventRepo interface {
	Append(ctx context.Context, tx *gorm.DB, event *types.ContractEvent) (*types.ContractEvent, error)
	ListByEntity(ctx context.Context, tx *gorm.DB, entityKind string, entityID int64) ([]*types.ContractEvent, error)
}

type contractEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContractEventRepo(db *gorm.DB, baseLog *logger.Logger) ContractEventRepo {
	repoLog := baseLog.With("repo", "ContractEventRepo")
	return &contractEventRepo{db: db, log: repoLog}
}

func (er *contractEventRepo) Append(ctx context.Context, tx *gorm.DB, event *types.ContractEvent) (*types.ContractEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := transaction.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (er *contractEventRepo) ListByEntity(ctx context.Context, tx *gorm.DB, entityKind string, entityID int64) ([]*types.ContractEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}

	var results []*types.ContractEvent
	if err := transaction.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ?", entityKind, entityID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
