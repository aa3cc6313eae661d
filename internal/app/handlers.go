package app

import (
	httpH "github.com/banquito-core/formalization-backend/internal/http/handlers"
)

type Handlers struct {
	CreditContracts *httpH.CreditContractHandler
	SaleContracts   *httpH.SaleContractHandler
	Notes           *httpH.NoteHandler
	Health          *httpH.HealthHandler
}

func wireHandlers(s Services) Handlers {
	return Handlers{
		CreditContracts: httpH.NewCreditContractHandler(s.CreditContracts, s.Notes),
		SaleContracts:   httpH.NewSaleContractHandler(s.SaleContracts),
		Notes:           httpH.NewNoteHandler(s.Notes),
		Health:          httpH.NewHealthHandler(),
	}
}
