package repos

import (
	"gorm.io/gorm"

	"github.com/banquito-core/formalization-backend/internal/data/repos/audit"
	"github.com/banquito-core/formalization-backend/internal/data/repos/contracts"
	"github.com/banquito-core/formalization-backend/internal/data/repos/notes"
	"github.com/banquito-core/formalization-backend/internal/platform/logger"
)

type CreditContractRepo = contracts.CreditContractRepo
type SaleContractRepo = contracts.SaleContractRepo
type NoteRepo = notes.NoteRepo
type ContractEventRepo = audit.ContractEventRepo

func NewCreditContractRepo(db *gorm.DB, baseLog *logger.Logger) CreditContractRepo {
	return contracts.NewCreditContractRepo(db, baseLog)
}

func NewSaleContractRepo(db *gorm.DB, baseLog *logger.Logger) SaleContractRepo {
	return contracts.NewSaleContractRepo(db, baseLog)
}

func NewNoteRepo(db *gorm.DB, baseLog *logger.Logger) NoteRepo {
	return notes.NewNoteRepo(db, baseLog)
}

func NewContractEventRepo(db *gorm.DB, baseLog *logger.Logger) ContractEventRepo {
	return audit.NewContractEventRepo(db, baseLog)
}
