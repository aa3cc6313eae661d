package contracts

import (
	"context"
	"errors"

	"gorm.io/gorm"

	types "github.com/banquito-core/formalization-backend/internal/domain"
	"github.com/banquito-core/formalization-backend/internal/platform/logger"
	"github.com/banquito-core/formalization-backend/internal/platform/storage"
)

type CreditContractRepo interface {
	Create(ctx context.Context, tx *gorm.DB, contract *types.CreditContract) (*types.CreditContract, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.CreditContract, error)
	GetByContractNumber(ctx context.Context, tx *gorm.DB, number string) (*types.CreditContract, error)
	GetByRequestID(ctx context.Context, tx *gorm.DB, requestID int64) (*types.CreditContract, error)
	ExistsByRequestID(ctx context.Context, tx *gorm.DB, requestID int64) (bool, error)
	ExistsByContractNumber(ctx context.Context, tx *gorm.DB, number string) (bool, error)
	List(ctx context.Context, tx *gorm.DB, filter types.CreditContractFilter, offset, limit int) ([]*types.CreditContract, int64, error)
	UpdateVersioned(ctx context.Context, tx *gorm.DB, contract *types.CreditContract) error
}

type creditContractRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCreditContractRepo(db *gorm.DB, baseLog *logger.Logger) CreditContractRepo {
	repoLog := baseLog.With("repo", "CreditContractRepo")
	return &creditContractRepo{db: db, log: repoLog}
}

func (cr *creditContractRepo) Create(ctx context.Context, tx *gorm.DB, contract *types.CreditContract) (*types.CreditContract, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if err := transaction.WithContext(ctx).Create(contract).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, storage.ErrDuplicate
		}
		return nil, err
	}
	return contract, nil
}

func (cr *creditContractRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.CreditContract, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.CreditContract
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

func (cr *creditContractRepo) GetByContractNumber(ctx context.Context, tx *gorm.DB, number string) (*types.CreditContract, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.CreditContract
	if err := transaction.WithContext(ctx).
		Where("contract_number = ?", number).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (cr *creditContractRepo) GetByRequestID(ctx context.Context, tx *gorm.DB, requestID int64) (*types.CreditContract, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.CreditContract
	if err := transaction.WithContext(ctx).
		Where("request_id = ?", requestID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (cr *creditContractRepo) ExistsByRequestID(ctx context.Context, tx *gorm.DB, requestID int64) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.CreditContract{}).
		Where("request_id = ?", requestID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (cr *creditContractRepo) ExistsByContractNumber(ctx context.Context, tx *gorm.DB, number string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.CreditContract{}).
		Where("contract_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List resolves every filter combination explicitly: state, a
// case-insensitive contract-number substring, and request id AND together
// when present. LOWER(...) LIKE keeps the match portable across postgres
// and sqlite.
func (cr *creditContractRepo) List(ctx context.Context, tx *gorm.DB, filter types.CreditContractFilter, offset, limit int) ([]*types.CreditContract, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	q := transaction.WithContext(ctx).Model(&types.CreditContract{})

	hasState := filter.State != nil
	hasNumber := filter.ContractNumber != ""
	hasRequest := filter.RequestID != nil
	pattern := "%" + filter.ContractNumber + "%"

	switch {
	case hasState && hasNumber && hasRequest:
		q = q.Where("state = ? AND LOWER(contract_number) LIKE LOWER(?) AND request_id = ?",
			*filter.State, pattern, *filter.RequestID)
	case hasState && hasNumber:
		q = q.Where("state = ? AND LOWER(contract_number) LIKE LOWER(?)", *filter.State, pattern)
	case hasState && hasRequest:
		q = q.Where("state = ? AND request_id = ?", *filter.State, *filter.RequestID)
	case hasNumber && hasRequest:
		q = q.Where("LOWER(contract_number) LIKE LOWER(?) AND request_id = ?", pattern, *filter.RequestID)
	case hasState:
		q = q.Where("state = ?", *filter.State)
	case hasNumber:
		q = q.Where("LOWER(contract_number) LIKE LOWER(?)", pattern)
	case hasRequest:
		q = q.Where("request_id = ?", *filter.RequestID)
	default:
		// no filter: full listing
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*types.CreditContract
	if err := q.
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// UpdateVersioned writes every mutable column guarded by the version the
// caller read. A zero row count means either the row vanished or someone
// else won the race; the follow-up lookup tells the two apart.
func (cr *creditContractRepo) UpdateVersioned(ctx context.Context, tx *gorm.DB, contract *types.CreditContract) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.CreditContract{}).
		Where("id = ? AND version = ?", contract.ID, contract.Version).
		Updates(map[string]any{
			"signed_at":       contract.SignedAt,
			"approved_amount": contract.ApprovedAmount,
			"term_months":     contract.TermMonths,
			"annual_rate":     contract.AnnualRate,
			"signed_file_ref": contract.SignedFileRef,
			"state":           contract.State,
			"version":         contract.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := transaction.WithContext(ctx).
			Model(&types.CreditContract{}).
			Where("id = ?", contract.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return storage.ErrNotFound
		}
		return storage.ErrStaleVersion
	}
	contract.Version++
	return nil
}
