package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/banquito-core/formalization-backend/internal/clients/origination"
	"github.com/banquito-core/formalization-backend/internal/data/repos"
	types "github.com/banquito-core/formalization-backend/internal/domain"
	"github.com/banquito-core/formalization-backend/internal/platform/apierr"
	"github.com/banquito-core/formalization-backend/internal/platform/logger"
	"github.com/banquito-core/formalization-backend/internal/platform/storage"
)

const saleContractEntity = "sale contract"

type GenerateSaleContractInput struct {
	RequestID      int64
	ContractNumber string
}

type UpdateSaleContractInput struct {
	FinalVehiclePrice decimal.Decimal
	SignedFileRef     string
}

type SaleContractService interface {
	Generate(ctx context.Context, in GenerateSaleContractInput) (*types.SaleContract, error)
	GetByID(ctx context.Context, id int64) (*types.SaleContract, error)
	GetByContractNumber(ctx context.Context, number string) (*types.SaleContract, error)
	GetByRequestID(ctx context.Context, requestID int64) (*types.SaleContract, error)
	List(ctx context.Context, filter types.SaleContractFilter, offset, limit int) ([]*types.SaleContract, int64, error)
	Update(ctx context.Context, id int64, in UpdateSaleContractInput) (*types.SaleContract, error)
	RegisterSignature(ctx context.Context, id int64, fileRef string) (*types.SaleContract, error)
	History(ctx context.Context, id int64) ([]*types.ContractEvent, error)
}

type saleContractService struct {
	db          *gorm.DB
	log         *logger.Logger
	origination origination.Client
	sales       repos.SaleContractRepo
	events      repos.ContractEventRepo
}

func NewSaleContractService(
	db *gorm.DB,
	baseLog *logger.Logger,
	originationClient origination.Client,
	saleRepo repos.SaleContractRepo,
	eventRepo repos.ContractEventRepo,
) SaleContractService {
	serviceLog := baseLog.With("service", "SaleContractService")
	return &saleContractService{
		db:          db,
		log:         serviceLog,
		origination: originationClient,
		sales:       saleRepo,
		events:      eventRepo,
	}
}

// Generate creates the sale contract for an approved request. The vehicle
// price comes from origination, same as the credit side.
func (ss *saleContractService) Generate(ctx context.Context, in GenerateSaleContractInput) (*types.SaleContract, error) {
	ss.log.Info("Generate", "request_id", in.RequestID, "contract_number", in.ContractNumber)

	summary, err := ss.origination.GetRequestSummary(ctx, in.RequestID)
	if err != nil {
		if errors.Is(err, origination.ErrRequestNotFound) {
			return nil, apierr.NotFound("approved request", in.RequestID)
		}
		return nil, apierr.Internal("fetch origination summary", err)
	}

	var contract *types.SaleContract
	err = ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := ss.sales.ExistsByRequestID(ctx, tx, in.RequestID)
		if err != nil {
			return apierr.Internal("check request uniqueness", err)
		}
		if exists {
			return apierr.AlreadyExists(saleContractEntity, "request id", in.RequestID)
		}
		exists, err = ss.sales.ExistsByContractNumber(ctx, tx, in.ContractNumber)
		if err != nil {
			return apierr.Internal("check contract number uniqueness", err)
		}
		if exists {
			return apierr.AlreadyExists(saleContractEntity, "contract number", in.ContractNumber)
		}

		contract = &types.SaleContract{
			RequestID:         in.RequestID,
			ContractNumber:    in.ContractNumber,
			GeneratedAt:       time.Now().UTC(),
			FinalVehiclePrice: summary.VehiclePrice,
			State:             types.SalePendingSignature,
			Version:           1,
		}
		// The uniqueness checks above can race a concurrent Generate;
		// the insert's unique constraint settles the loser.
		if _, err := ss.sales.Create(ctx, tx, contract); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return apierr.AlreadyExists(saleContractEntity, "request id or contract number", in.ContractNumber)
			}
			return apierr.Internal("create sale contract", err)
		}
		return appendEvent(ctx, tx, ss.events, types.EventEntitySaleContract, contract.ID, "generated", map[string]any{
			"contract_number": contract.ContractNumber,
			"request_id":      contract.RequestID,
		})
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

func (ss *saleContractService) GetByID(ctx context.Context, id int64) (*types.SaleContract, error) {
	contract, err := ss.sales.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apierr.NotFound(saleContractEntity, id)
		}
		return nil, apierr.Internal("get sale contract", err)
	}
	return contract, nil
}

func (ss *saleContractService) GetByContractNumber(ctx context.Context, number string) (*types.SaleContract, error) {
	contract, err := ss.sales.GetByContractNumber(ctx, nil, number)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apierr.NotFound(saleContractEntity, number)
		}
		return nil, apierr.Internal("get sale contract by number", err)
	}
	return contract, nil
}

func (ss *saleContractService) GetByRequestID(ctx context.Context, requestID int64) (*types.SaleContract, error) {
	contract, err := ss.sales.GetByRequestID(ctx, nil, requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apierr.NotFound(saleContractEntity, requestID)
		}
		return nil, apierr.Internal("get sale contract by request", err)
	}
	return contract, nil
}

func (ss *saleContractService) List(ctx context.Context, filter types.SaleContractFilter, offset, limit int) ([]*types.SaleContract, int64, error) {
	results, total, err := ss.sales.List(ctx, nil, filter, offset, limit)
	if err != nil {
		return nil, 0, apierr.Internal("list sale contracts", err)
	}
	return results, total, nil
}

// Update overwrites the mutable fields regardless of state; signing does
// not freeze the record, corrections remain possible.
func (ss *saleContractService) Update(ctx context.Context, id int64, in UpdateSaleContractInput) (*types.SaleContract, error) {
	ss.log.Info("Update", "contract_id", id)

	var contract *types.SaleContract
	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		contract, err = ss.sales.GetByID(ctx, tx, id)
		if err != nil {
			return lookupErr(saleContractEntity, id, err)
		}
		contract.FinalVehiclePrice = in.FinalVehiclePrice
		contract.SignedFileRef = in.SignedFileRef
		if err := ss.sales.UpdateVersioned(ctx, tx, contract); err != nil {
			return writeErr(saleContractEntity, id, err)
		}
		return appendEvent(ctx, tx, ss.events, types.EventEntitySaleContract, id, "updated", nil)
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

func (ss *saleContractService) RegisterSignature(ctx context.Context, id int64, fileRef string) (*types.SaleContract, error) {
	ss.log.Info("RegisterSignature", "contract_id", id)

	var contract *types.SaleContract
	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		contract, err = ss.sales.GetByID(ctx, tx, id)
		if err != nil {
			return lookupErr(saleContractEntity, id, err)
		}
		if contract.State != types.SalePendingSignature {
			return apierr.InvalidState(saleContractEntity, id, string(contract.State), string(types.SaleSigned))
		}
		now := time.Now().UTC()
		contract.SignedAt = &now
		contract.SignedFileRef = fileRef
		contract.State = types.SaleSigned
		if err := ss.sales.UpdateVersioned(ctx, tx, contract); err != nil {
			return writeErr(saleContractEntity, id, err)
		}
		return appendEvent(ctx, tx, ss.events, types.EventEntitySaleContract, id, "signature_registered", map[string]any{
			"signed_file_ref": fileRef,
		})
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

func (ss *saleContractService) History(ctx context.Context, id int64) ([]*types.ContractEvent, error) {
	if _, err := ss.GetByID(ctx, id); err != nil {
		return nil, err
	}
	events, err := ss.events.ListByEntity(ctx, nil, types.EventEntitySaleContract, id)
	if err != nil {
		return nil, apierr.Internal("list contract events", err)
	}
	return events, nil
}
