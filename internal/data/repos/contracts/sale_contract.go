package contracts

import (
	"context"
	"errors"

	"gorm.io/gorm"

	types "github.com/banquito-core/formalization-backend/internal/domain"
	"github.com/banquito-core/formalization-backend/internal/platform/logger"
	"github.com/banquito-core/formalization-backend/internal/platform/storage"
)

type SaleContractRepo interface {
	Create(ctx context.Context, tx *gorm.DB, contract *types.SaleContract) (*types.SaleContract, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.SaleContract, error)
	GetByContractNumber(ctx context.Context, tx *gorm.DB, number string) (*types.SaleContract, error)
	GetByRequestID(ctx context.Context, tx *gorm.DB, requestID int64) (*types.SaleContract, error)
	ExistsByRequestID(ctx context.Context, tx *gorm.DB, requestID int64) (bool, error)
	ExistsByContractNumber(ctx context.Context, tx *gorm.DB, number string) (bool, error)
	List(ctx context.Context, tx *gorm.DB, filter types.SaleContractFilter, offset, limit int) ([]*types.SaleContract, int64, error)
	UpdateVersioned(ctx context.Context, tx *gorm.DB, contract *types.SaleContract) error
}

type saleContractRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSaleContractRepo(db *gorm.DB, baseLog *logger.Logger) SaleContractRepo {
	repoLog := baseLog.With("repo", "SaleContractRepo")
	return &saleContractRepo{db: db, log: repoLog}
}

func (sr *saleContractRepo) Create(ctx context.Context, tx *gorm.DB, contract *types.SaleContract) (*types.SaleContract, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if err := transaction.WithContext(ctx).Create(contract).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, storage.ErrDuplicate
		}
		return nil, err
	}
	return contract, nil
}

func (sr *saleContractRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.SaleContract, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.SaleContract
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

func (sr *saleContractRepo) GetByContractNumber(ctx context.Context, tx *gorm.DB, number string) (*types.SaleContract, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.SaleContract
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

func (sr *saleContractRepo) GetByRequestID(ctx context.Context, tx *gorm.DB, requestID int64) (*types.SaleContract, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.SaleContract
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

func (sr *saleContractRepo) ExistsByRequestID(ctx context.Context, tx *gorm.DB, requestID int64) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.SaleContract{}).
		Where("request_id = ?", requestID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (sr *saleContractRepo) ExistsByContractNumber(ctx context.Context, tx *gorm.DB, number string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.SaleContract{}).
		Where("contract_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (sr *saleContractRepo) List(ctx context.Context, tx *gorm.DB, filter types.SaleContractFilter, offset, limit int) ([]*types.SaleContract, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	q := transaction.WithContext(ctx).Model(&types.SaleContract{})

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
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*types.SaleContract
	if err := q.
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (sr *saleContractRepo) UpdateVersioned(ctx context.Context, tx *gorm.DB, contract *types.SaleContract) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.SaleContract{}).
		Where("id = ? AND version = ?", contract.ID, contract.Version).
		Updates(map[string]any{
			"signed_at":           contract.SignedAt,
			"final_vehicle_price": contract.FinalVehiclePrice,
			"signed_file_ref":     contract.SignedFileRef,
			"state":               contract.State,
			"version":             contract.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := transaction.WithContext(ctx).
			Model(&types.SaleContract{}).
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
