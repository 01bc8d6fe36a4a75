package models

// MasterCompanyName is the inspection company that audits everybody else.
const MasterCompanyName = "Grupo Master"

// Company is a client whose welders are qualified.
type Company struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100;uniqueIndex;not null"`
}

func (c *Company) TableName() string {
	return "companies"
}

func (c *Company) IsMaster() bool {
	return c.Name == MasterCompanyName
}
