package app

import (
	"github.com/gin-gonic/gin"

	"github.com/banquito-core/formalization-backend/internal/platform/envutil"
	"github.com/banquito-core/formalization-backend/internal/server"
)

func wireRouter(handlers Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		CreditContractHandler: handlers.CreditContracts,
		SaleContractHandler:   handlers.SaleContracts,
		NoteHandler:           handlers.Notes,
		HealthHandler:         handlers.Health,
		TracingEnabled:        envutil.Bool("OTEL_ENABLED", false),
		ServiceName:           "formalization-backend",
	})
}
