package models

import (
	"strings"
	"time"

	"github.com/grupomaster/raqs/rules"
	"gorm.io/gorm"
)

// VisualTest is the inspector's visual verdict on a coupon.
// Result is rules.ResultApproved, rules.ResultRejected or empty.
type VisualTest struct {
	ID               uint   `gorm:"primaryKey"`
	RequestID        uint   `gorm:"uniqueIndex;not null"`
	Result           string `gorm:"size:10"`
	RejectionReasons string `gorm:"size:50"`
}

func (v *VisualTest) TableName() string {
	return "visual_tests"
}

// Reasons splits the stored comma-separated checklist codes.
func (v *VisualTest) Reasons() []string {
	if v.RejectionReasons == "" {
		return []string{}
	}
	return strings.Split(v.RejectionReasons, ",")
}

// BendTest records a mechanical bend test. TestDate is refreshed on every
// save.
type BendTest struct {
	ID        uint      `gorm:"primaryKey"`
	RequestID uint      `gorm:"uniqueIndex;not null"`
	TestDate  time.Time `gorm:"not null"`
	Performed bool      `gorm:"not null"`
	Approved  bool      `gorm:"not null"`
}

func (b *BendTest) TableName() string {
	return "bend_tests"
}

func (b *BendTest) BeforeSave(tx *gorm.DB) error {
	b.TestDate = time.Now()
	return nil
}

func (b *BendTest) outcome() rules.Outcome {
	return rules.Outcome{Recorded: true, Performed: b.Performed, Approved: b.Approved, TestedAt: b.TestDate}
}

// UltrasonicTest records an ultrasonic inspection.
type UltrasonicTest struct {
	ID        uint      `gorm:"primaryKey"`
	RequestID uint      `gorm:"uniqueIndex;not null"`
	TestDate  time.Time `gorm:"not null"`
	Performed bool      `gorm:"not null"`
	Approved  bool      `gorm:"not null"`
}

func (u *UltrasonicTest) TableName() string {
	return "ultrasonic_tests"
}

func (u *UltrasonicTest) BeforeSave(tx *gorm.DB) error {
	u.TestDate = time.Now()
	return nil
}

func (u *UltrasonicTest) outcome() rules.Outcome {
	return rules.Outcome{Recorded: true, Performed: u.Performed, Approved: u.Approved, TestedAt: u.TestDate}
}
