package app

import (
	"gorm.io/gorm"

	"github.com/banquito-core/formalization-backend/internal/data/repos"
	"github.com/banquito-core/formalization-backend/internal/platform/logger"
)

type Repos struct {
	CreditContracts repos.CreditContractRepo
	SaleContracts   repos.SaleContractRepo
	Notes           repos.NoteRepo
	Events          repos.ContractEventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		CreditContracts: repos.NewCreditContractRepo(db, log),
		SaleContracts:   repos.NewSaleContractRepo(db, log),
		Notes:           repos.NewNoteRepo(db, log),
		Events:          repos.NewContractEventRepo(db, log),
	}
}
