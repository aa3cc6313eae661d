package db

import (
	types "github.com/banquito-core/formalization-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Formalization core
		// =========================
		&types.CreditContract{},
		&types.Note{},
		&types.SaleContract{},

		// =========================
		// Audit trail
		// =========================
		&types.ContractEvent{},
	)
}

func (s *DatabaseService) AutoMigrateAll() error {
	s.log.Info("Auto migrating database tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}
