package models

// Welder represents a person who can be qualified.
// The CPF is stored formatted (000.000.000-00) and is unique.
type Welder struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100;not null"`
	CPF  string `gorm:"column:cpf;size:14;uniqueIndex;not null"`
}

func (w *Welder) TableName() string {
	return "welders"
}
