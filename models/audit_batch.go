package models

import (
	"time"

	"github.com/grupomaster/raqs/rules"
)

// AuditBatch (RAQS) groups a company's requests for one audit round.
// A company has at most one open batch.
type AuditBatch struct {
	ID        uint                   `gorm:"primaryKey"`
	CompanyID uint                   `gorm:"not null;index"`
	Company   Company                `gorm:"foreignKey:CompanyID;constraint:OnDelete:RESTRICT"`
	Date      time.Time              `gorm:"not null"`
	Open      bool                   `gorm:"column:is_open;not null"`
	Requests  []QualificationRequest `gorm:"foreignKey:AuditBatchID;constraint:OnDelete:SET NULL"`
}

func (b *AuditBatch) TableName() string {
	return "audit_batches"
}

// TestsComplete reports whether every request of a loaded batch has a
// visual result and a record for its governing test.
func (b *AuditBatch) TestsComplete() bool {
	for _, q := range b.Requests {
		if q.VisualTest == nil || q.VisualTest.Result == "" {
			return false
		}
		switch q.TestType {
		case rules.TestTypeBend:
			if q.BendTest == nil {
				return false
			}
		case rules.TestTypeUltrasonic:
			if q.UltrasonicTest == nil {
				return false
			}
		}
	}
	return true
}
