package models

import (
	"fmt"

	"gorm.io/gorm"
)

// openBatchIndex keeps a single open audit batch per company.
const openBatchIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_audit_batches_company_open ON audit_batches (company_id) WHERE is_open`

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Company{},
		&Welder{},
		&AuditBatch{},
		&QualificationRequest{},
		&VisualTest{},
		&BendTest{},
		&UltrasonicTest{},
		&Certificate{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(openBatchIndex).Error; err != nil {
		return fmt.Errorf("create open batch index: %w", err)
	}
	return nil
}
