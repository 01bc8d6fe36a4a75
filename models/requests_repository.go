package models

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RequestsRepository struct {
	db *gorm.DB
}

func NewRequestsRepository(db *gorm.DB) *RequestsRepository {
	return &RequestsRepository{
		db: db,
	}
}

func withTests(db *gorm.DB) *gorm.DB {
	return db.
		Preload("VisualTest").
		Preload("BendTest").
		Preload("UltrasonicTest")
}

// CreateRequest stores a validated request. The save hooks derive the
// F-number, the qualified range and the CP number.
func (r *RequestsRepository) CreateRequest(request *QualificationRequest) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&Company{}, request.CompanyID).Error; err != nil {
			return notFound(err, ErrCompanyNotFound)
		}
		if err := tx.First(&Welder{}, request.WelderID).Error; err != nil {
			return notFound(err, ErrWelderNotFound)
		}
		return tx.Omit(clause.Associations).Create(request).Error
	})
}

func (r *RequestsRepository) GetRequestByID(id uint) (*QualificationRequest, error) {
	var request QualificationRequest
	if err := withTests(r.db).
		Preload("Welder").
		Preload("Company").
		First(&request, id).Error; err != nil {
		return nil, notFound(err, ErrRequestNotFound)
	}
	return &request, nil
}

// GetRequestsByWelder lists a welder's requests made by one company.
func (r *RequestsRepository) GetRequestsByWelder(companyID, welderID uint) ([]QualificationRequest, error) {
	var requests []QualificationRequest
	if err := withTests(r.db).
		Where("company_id = ? AND welder_id = ?", companyID, welderID).
		Order("id").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *RequestsRepository) GetRequestsByCompany(companyID uint) ([]QualificationRequest, error) {
	var requests []QualificationRequest
	if err := withTests(r.db).
		Preload("Welder").
		Where("company_id = ?", companyID).
		Order("id").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// GetUnbatchedRequests lists the company's requests not yet in any audit
// batch.
func (r *RequestsRepository) GetUnbatchedRequests(companyID uint) ([]QualificationRequest, error) {
	var requests []QualificationRequest
	if err := r.db.
		Preload("Welder").
		Where("company_id = ? AND audit_batch_id IS NULL", companyID).
		Order("id").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *RequestsRepository) GetAllRequests() ([]QualificationRequest, error) {
	var requests []QualificationRequest
	if err := withTests(r.db).
		Preload("Welder").
		Preload("Company").
		Order("id").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *RequestsRepository) GetRequestsMissingFNumber() ([]QualificationRequest, error) {
	var requests []QualificationRequest
	if err := r.db.
		Where("f_number IS NULL OR f_number = ''").
		Order("id").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *RequestsRepository) GetRequestsByConsumable(classifications ...string) ([]QualificationRequest, error) {
	var requests []QualificationRequest
	if err := r.db.
		Where("consumable_class IN ?", classifications).
		Order("id").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// SaveRequest rewrites a request, running the derivation hooks again.
func (r *RequestsRepository) SaveRequest(request *QualificationRequest) error {
	return r.db.Omit(clause.Associations).Save(request).Error
}

// DeleteRequest refuses to drop a request once tests or a certificate
// reference it.
func (r *RequestsRepository) DeleteRequest(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var request QualificationRequest
		if err := tx.First(&request, id).Error; err != nil {
			return notFound(err, ErrRequestNotFound)
		}

		for _, model := range []any{&VisualTest{}, &BendTest{}, &UltrasonicTest{}, &Certificate{}} {
			var count int64
			if err := tx.Model(model).Where("request_id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrRequestProtected
			}
		}

		if err := tx.Delete(&request).Error; err != nil {
			if IsForeignKeyViolation(err) {
				return ErrRequestProtected
			}
			return err
		}
		return nil
	})
}
