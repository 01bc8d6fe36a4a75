package models

import (
	"time"

	"github.com/grupomaster/raqs/rules"
	"gorm.io/gorm"
)

// Certificate (CQS) attests a welder's qualification for one request.
// Numbers run per company and year.
type Certificate struct {
	ID                       uint                  `gorm:"primaryKey"`
	RequestID                uint                  `gorm:"uniqueIndex;not null"`
	Request                  *QualificationRequest `gorm:"foreignKey:RequestID;constraint:OnDelete:RESTRICT"`
	CompanyID                uint                  `gorm:"not null;uniqueIndex:idx_certificates_company_year_seq;uniqueIndex:idx_certificates_company_number"`
	Company                  *Company              `gorm:"foreignKey:CompanyID;constraint:OnDelete:RESTRICT"`
	Year                     int                   `gorm:"not null;uniqueIndex:idx_certificates_company_year_seq"`
	Sequence                 int                   `gorm:"not null;uniqueIndex:idx_certificates_company_year_seq"`
	Number                   string                `gorm:"size:20;not null;uniqueIndex:idx_certificates_company_number"`
	IssueDate                time.Time             `gorm:"not null"`
	ValidUntil               *time.Time
	QualifiedConsumableRange string `gorm:"size:20"`
	QualifiedBaseMetalRange  string `gorm:"size:30"`
	BaseMetalPNumber         string `gorm:"size:5"`
}

func (c *Certificate) TableName() string {
	return "certificates"
}

// BeforeSave fills empty technical fields from the request when it is
// loaded.
func (c *Certificate) BeforeSave(tx *gorm.DB) error {
	if c.Request == nil {
		return nil
	}
	if c.QualifiedConsumableRange == "" {
		c.QualifiedConsumableRange = rules.QualifiedConsumableRange(c.Request.FNumber)
	}
	if c.BaseMetalPNumber == "" {
		c.BaseMetalPNumber = rules.PNumber(c.Request.BaseMetalSpec)
	}
	if c.QualifiedBaseMetalRange == "" {
		c.QualifiedBaseMetalRange = rules.QualifiedBaseMetalRange(c.BaseMetalPNumber)
	}
	return nil
}

// MissingTechnicalFields reports whether a derived field is still empty.
func (c *Certificate) MissingTechnicalFields() bool {
	return c.QualifiedConsumableRange == "" || c.QualifiedBaseMetalRange == "" || c.BaseMetalPNumber == ""
}
