package notes

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	types "github.com/banquito-core/formalization-backend/internal/domain"
	"github.com/banquito-core/formalization-backend/internal/platform/logger"
	"github.com/banquito-core/formalization-backend/internal/platform/storage"
)

type NoteRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, notes []*types.Note) ([]*types.Note, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Note, error)
	GetByInstallment(ctx context.Context, tx *gorm.DB, contractID int64, installmentNo int) (*types.Note, error)
	ListByContract(ctx context.Context, tx *gorm.DB, contractID int64) ([]*types.Note, error)
	ListByContractAndState(ctx context.Context, tx *gorm.DB, contractID int64, state types.NoteState) ([]*types.Note, error)
	ListOverdueCandidates(ctx context.Context, tx *gorm.DB, asOf time.Time) ([]*types.Note, error)
	ListDueWithin(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]*types.Note, error)
	CountByStates(ctx context.Context, tx *gorm.DB, contractID int64, states ...types.NoteState) (int64, error)
	ExistsForContract(ctx context.Context, tx *gorm.DB, contractID int64) (bool, error)
	ExistsInstallment(ctx context.Context, tx *gorm.DB, contractID int64, installmentNo int) (bool, error)
	UpdateVersioned(ctx context.Context, tx *gorm.DB, note *types.Note) error
}

type noteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNoteRepo(db *gorm.DB, baseLog *logger.Logger) NoteRepo {
	repoLog := baseLog.With("repo", "NoteRepo")
	return &noteRepo{db: db, log: repoLog}
}

func (nr *noteRepo) CreateBatch(ctx context.Context, tx *gorm.DB, notes []*types.Note) ([]*types.Note, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	if len(notes) == 0 {
		return []*types.Note{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&notes).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, storage.ErrDuplicate
		}
		return nil, err
	}
	return notes, nil
}

func (nr *noteRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Note, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	var result types.Note
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (nr *noteRepo) GetByInstallment(ctx context.Context, tx *gorm.DB, contractID int64, installmentNo int) (*types.Note, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	var result types.Note
	if err := transaction.WithContext(ctx).
		Where("credit_contract_id = ? AND installment_no = ?", contractID, installmentNo).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (nr *noteRepo) ListByContract(ctx context.Context, tx *gorm.DB, contractID int64) ([]*types.Note, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	var results []*types.Note
	if err := transaction.WithContext(ctx).
		Where("credit_contract_id = ?", contractID).
		Order("installment_no ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (nr *noteRepo) ListByContractAndState(ctx context.Context, tx *gorm.DB, contractID int64, state types.NoteState) ([]*types.Note, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	var results []*types.Note
	if err := transaction.WithContext(ctx).
		Where("credit_contract_id = ? AND state = ?", contractID, state).
		Order("installment_no ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListOverdueCandidates returns PENDING notes across all contracts whose
// due date fell strictly before asOf. Notes due exactly on asOf are not
// overdue yet.
func (nr *noteRepo) ListOverdueCandidates(ctx context.Context, tx *gorm.DB, asOf time.Time) ([]*types.Note, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	var results []*types.Note
	if err := transaction.WithContext(ctx).
		Where("state = ? AND due_date < ?", types.NotePending, asOf).
		Order("due_date ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (nr *noteRepo) ListDueWithin(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]*types.Note, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	var results []*types.Note
	if err := transaction.WithContext(ctx).
		Where("state = ? AND due_date >= ? AND due_date <= ?", types.NotePending, from, to).
		Order("due_date ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (nr *noteRepo) CountByStates(ctx context.Context, tx *gorm.DB, contractID int64, states ...types.NoteState) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	var count int64
	if len(states) == 0 {
		return 0, nil
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Note{}).
		Where("credit_contract_id = ? AND state IN ?", contractID, states).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (nr *noteRepo) ExistsForContract(ctx context.Context, tx *gorm.DB, contractID int64) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Note{}).
		Where("credit_contract_id = ?", contractID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (nr *noteRepo) ExistsInstallment(ctx context.Context, tx *gorm.DB, contractID int64, installmentNo int) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Note{}).
		Where("credit_contract_id = ? AND installment_no = ?", contractID, installmentNo).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (nr *noteRepo) UpdateVersioned(ctx context.Context, tx *gorm.DB, note *types.Note) error {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.Note{}).
		Where("id = ? AND version = ?", note.ID, note.Version).
		Updates(map[string]any{
			"amount":   note.Amount,
			"due_date": note.DueDate,
			"state":    note.State,
			"version":  note.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := transaction.WithContext(ctx).
			Model(&types.Note{}).
			Where("id = ?", note.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return storage.ErrNotFound
		}
		return storage.ErrStaleVersion
	}
	note.Version++
	return nil
}
