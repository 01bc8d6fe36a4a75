package models

import (
	"time"

	"github.com/grupomaster/raqs/rules"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QualificationRequest asks for a welder to be qualified on a welding
// procedure. F-number, qualified range and CP number are derived on save.
type QualificationRequest struct {
	ID                 uint                `gorm:"primaryKey"`
	CompanyID          uint                `gorm:"not null;index"`
	Company            Company             `gorm:"foreignKey:CompanyID;constraint:OnDelete:RESTRICT"`
	WelderID           uint                `gorm:"not null;index"`
	Welder             Welder              `gorm:"foreignKey:WelderID;constraint:OnDelete:RESTRICT"`
	Stamp              string              `gorm:"size:10"`
	Date               time.Time           `gorm:"not null"`
	WPS                string              `gorm:"column:wps;size:10;not null"`
	DesignCode         string              `gorm:"size:10;not null"`
	Process            string              `gorm:"size:4;not null"`
	ConsumableSpec     string              `gorm:"size:15;not null"`
	ConsumableClass    string              `gorm:"size:10;not null"`
	ConsumableDiameter decimal.Decimal     `gorm:"type:decimal(4,2);not null"`
	BaseMetalSpec      string              `gorm:"size:25;not null"`
	BaseMetalThickness decimal.NullDecimal `gorm:"type:decimal(5,2)"`
	BaseMetalDiameter  *int
	Position           string `gorm:"size:4;not null"`
	Progression        string `gorm:"size:25"`
	BackingStrip       bool   `gorm:"not null"`
	ShieldingGas       string `gorm:"size:10"`
	Purge              bool   `gorm:"not null"`
	TransferMode       string `gorm:"size:15"`
	TestType           string `gorm:"size:10;not null"`
	FNumber            string `gorm:"column:f_number;size:2"`
	QualifiedRange     string `gorm:"size:15"`
	CPNumber           string `gorm:"column:cp_number;size:15"`
	AuditBatchID       *uint  `gorm:"index"`

	VisualTest     *VisualTest     `gorm:"foreignKey:RequestID;constraint:OnDelete:RESTRICT"`
	BendTest       *BendTest       `gorm:"foreignKey:RequestID;constraint:OnDelete:RESTRICT"`
	UltrasonicTest *UltrasonicTest `gorm:"foreignKey:RequestID;constraint:OnDelete:RESTRICT"`
}

func (q *QualificationRequest) TableName() string {
	return "qualification_requests"
}

// BeforeSave stamps the request date and refreshes the derived fields.
func (q *QualificationRequest) BeforeSave(tx *gorm.DB) error {
	q.Date = time.Now()
	q.ConsumableClass = rules.CanonicalConsumable(q.ConsumableClass)
	if f, ok := rules.FNumber(q.ConsumableClass); ok {
		q.FNumber = f
	}
	q.QualifiedRange = rules.QualifiedRange(q.BaseMetalSpec, q.BaseMetalThickness, q.BaseMetalDiameter)
	return nil
}

// AfterCreate assigns the CP number, which embeds the generated ID.
func (q *QualificationRequest) AfterCreate(tx *gorm.DB) error {
	q.CPNumber = rules.CPNumber(q.ID, q.Date.Year())
	return tx.Model(q).UpdateColumn("cp_number", q.CPNumber).Error
}

// StatusInput collects the loaded test records. VisualTest, BendTest and
// UltrasonicTest must be preloaded.
func (q *QualificationRequest) StatusInput() rules.StatusInput {
	in := rules.StatusInput{TestType: q.TestType}
	if q.VisualTest != nil {
		result := q.VisualTest.Result
		in.Visual = &result
	}
	if q.BendTest != nil {
		in.Bend = q.BendTest.outcome()
	}
	if q.UltrasonicTest != nil {
		in.Ultrasonic = q.UltrasonicTest.outcome()
	}
	return in
}

func (q *QualificationRequest) Status() rules.Status {
	return rules.RequestStatus(q.StatusInput())
}

// Input converts the stored procedure back into rule input.
func (q *QualificationRequest) Input() rules.RequestInput {
	return rules.RequestInput{
		WPS:                q.WPS,
		Stamp:              q.Stamp,
		DesignCode:         q.DesignCode,
		Process:            q.Process,
		ConsumableSpec:     q.ConsumableSpec,
		ConsumableClass:    q.ConsumableClass,
		ConsumableDiameter: q.ConsumableDiameter,
		BaseMetalSpec:      q.BaseMetalSpec,
		BaseMetalThickness: q.BaseMetalThickness,
		BaseMetalDiameter:  q.BaseMetalDiameter,
		Position:           q.Position,
		Progression:        q.Progression,
		BackingStrip:       q.BackingStrip,
		ShieldingGas:       q.ShieldingGas,
		Purge:              q.Purge,
		TransferMode:       q.TransferMode,
		TestType:           q.TestType,
	}
}

// NewQualificationRequest builds a request from validated rule input.
func NewQualificationRequest(companyID, welderID uint, in rules.RequestInput) *QualificationRequest {
	return &QualificationRequest{
		CompanyID:          companyID,
		WelderID:           welderID,
		Stamp:              in.Stamp,
		WPS:                in.WPS,
		DesignCode:         in.DesignCode,
		Process:            in.Process,
		ConsumableSpec:     in.ConsumableSpec,
		ConsumableClass:    in.ConsumableClass,
		ConsumableDiameter: in.ConsumableDiameter,
		BaseMetalSpec:      in.BaseMetalSpec,
		BaseMetalThickness: in.BaseMetalThickness,
		BaseMetalDiameter:  in.BaseMetalDiameter,
		Position:           in.Position,
		Progression:        in.Progression,
		BackingStrip:       in.BackingStrip,
		ShieldingGas:       in.ShieldingGas,
		Purge:              in.Purge,
		TransferMode:       in.TransferMode,
		TestType:           in.TestType,
	}
}
