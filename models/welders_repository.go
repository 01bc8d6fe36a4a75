package models

import (
	"gorm.io/gorm"
)

type WeldersRepository struct {
	db *gorm.DB
}

func NewWeldersRepository(db *gorm.DB) *WeldersRepository {
	return &WeldersRepository{
		db: db,
	}
}

// CreateWelder expects an already normalized CPF.
func (r *WeldersRepository) CreateWelder(welder *Welder) error {
	var count int64
	if err := r.db.Model(&Welder{}).Where("cpf = ?", welder.CPF).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrCPFAlreadyRegistered
	}

	if err := r.db.Create(welder).Error; err != nil {
		// Lost a race with a concurrent insert of the same CPF
		if IsUniqueViolation(err) {
			return ErrCPFAlreadyRegistered
		}
		return err
	}
	return nil
}

func (r *WeldersRepository) GetAllWelders() ([]Welder, error) {
	var welders []Welder
	if err := r.db.Order("name").Find(&welders).Error; err != nil {
		return nil, err
	}
	return welders, nil
}

func (r *WeldersRepository) GetWelderByID(id uint) (*Welder, error) {
	var welder Welder
	if err := r.db.First(&welder, id).Error; err != nil {
		return nil, notFound(err, ErrWelderNotFound)
	}
	return &welder, nil
}

func (r *WeldersRepository) GetWelderByCPF(cpf string) (*Welder, error) {
	var welder Welder
	if err := r.db.Where("cpf = ?", cpf).First(&welder).Error; err != nil {
		return nil, notFound(err, ErrWelderNotFound)
	}
	return &welder, nil
}

// GetWeldersByCompany lists welders with at least one request from the
// company.
func (r *WeldersRepository) GetWeldersByCompany(companyID uint) ([]Welder, error) {
	var welders []Welder
	err := r.db.
		Where("id IN (?)", r.db.Model(&QualificationRequest{}).Select("welder_id").Where("company_id = ?", companyID)).
		Order("name").
		Find(&welders).Error
	if err != nil {
		return nil, err
	}
	return welders, nil
}

func (r *WeldersRepository) DeleteWelder(id uint) error {
	var welder Welder
	if err := r.db.First(&welder, id).Error; err != nil {
		return notFound(err, ErrWelderNotFound)
	}

	var requests int64
	if err := r.db.Model(&QualificationRequest{}).Where("welder_id = ?", id).Count(&requests).Error; err != nil {
		return err
	}
	if requests > 0 {
		return ErrWelderProtected
	}

	if err := r.db.Delete(&welder).Error; err != nil {
		if IsForeignKeyViolation(err) {
			return ErrWelderProtected
		}
		return err
	}
	return nil
}
