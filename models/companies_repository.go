package models

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CompaniesRepository struct {
	db *gorm.DB
}

func NewCompaniesRepository(db *gorm.DB) *CompaniesRepository {
	return &CompaniesRepository{
		db: db,
	}
}

func (r *CompaniesRepository) CreateCompany(company *Company) error {
	var count int64
	if err := r.db.Model(&Company{}).Where("name = ?", company.Name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrCompanyAlreadyExists
	}

	if err := r.db.Omit(clause.Associations).Create(company).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrCompanyAlreadyExists
		}
		return err
	}
	return nil
}

func (r *CompaniesRepository) GetAllCompanies() ([]Company, error) {
	var companies []Company
	if err := r.db.Order("name").Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *CompaniesRepository) GetCompanyByID(id uint) (*Company, error) {
	var company Company
	if err := r.db.First(&company, id).Error; err != nil {
		return nil, notFound(err, ErrCompanyNotFound)
	}
	return &company, nil
}
