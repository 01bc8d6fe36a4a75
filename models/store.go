package models

import "gorm.io/gorm"

// Store bundles the repositories so one value can back handlers that read
// across several tables.
type Store struct {
	*CompaniesRepository
	*WeldersRepository
	*RequestsRepository
	*AuditBatchesRepository
	*CertificatesRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		CompaniesRepository:    NewCompaniesRepository(db),
		WeldersRepository:      NewWeldersRepository(db),
		RequestsRepository:     NewRequestsRepository(db),
		AuditBatchesRepository: NewAuditBatchesRepository(db),
		CertificatesRepository: NewCertificatesRepository(db),
	}
}
