package app

import (
	"gorm.io/gorm"

	"github.com/banquito-core/formalization-backend/internal/clients/origination"
	"github.com/banquito-core/formalization-backend/internal/platform/logger"
	"github.com/banquito-core/formalization-backend/internal/services"
)

type Services struct {
	CreditContracts services.CreditContractService
	SaleContracts   services.SaleContractService
	Notes           services.NoteService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, orig origination.Client) Services {
	return Services{
		CreditContracts: services.NewCreditContractService(db, log, cfg.Policy, orig, r.CreditContracts, r.Notes, r.Events),
		SaleContracts:   services.NewSaleContractService(db, log, orig, r.SaleContracts, r.Events),
		Notes:           services.NewNoteService(db, log, cfg.Policy, r.Notes, r.CreditContracts, r.Events),
	}
}
