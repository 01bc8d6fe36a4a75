package models

import (
	"errors"
	"time"

	"github.com/grupomaster/raqs/rules"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CertificatesRepository struct {
	db *gorm.DB
}

func NewCertificatesRepository(db *gorm.DB) *CertificatesRepository {
	return &CertificatesRepository{
		db: db,
	}
}

// IssueOptions controls certificate issuance.
type IssueOptions struct {
	IssuedAt       time.Time
	ValidityMonths int
	// Force replaces an existing certificate instead of failing.
	Force bool
}

// IssueCertificate creates the certificate of an approved request. Numbers
// continue the company's sequence for the issue year.
func (r *CertificatesRepository) IssueCertificate(requestID uint, opts IssueOptions) (*Certificate, error) {
	var cert Certificate
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var request QualificationRequest
		if err := withTests(tx).Preload("Welder").First(&request, requestID).Error; err != nil {
			return notFound(err, ErrRequestNotFound)
		}

		in := request.StatusInput()
		if !rules.CertificateEligible(in) {
			return ErrRequestNotApproved
		}

		// Numbers are never reused, so read the sequence before a forced
		// reissue deletes the old certificate.
		year := opts.IssuedAt.Year()
		var last int64
		if err := tx.Model(&Certificate{}).
			Where("company_id = ? AND year = ?", request.CompanyID, year).
			Select("COALESCE(MAX(sequence), 0)").
			Row().Scan(&last); err != nil {
			return err
		}

		var existing Certificate
		err := tx.Where("request_id = ?", request.ID).First(&existing).Error
		switch {
		case err == nil && !opts.Force:
			return ErrCertificateExists
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		cert = Certificate{
			RequestID: request.ID,
			Request:   &request,
			CompanyID: request.CompanyID,
			Year:      year,
			Sequence:  int(last) + 1,
			Number:    rules.CertificateNumber(int(last)+1, year),
			IssueDate: opts.IssuedAt,
		}
		if approvedAt, ok := rules.ApprovalDate(in); ok {
			validUntil := rules.ValidUntil(approvedAt, opts.ValidityMonths)
			cert.ValidUntil = &validUntil
		}

		if err := tx.Omit(clause.Associations).Create(&cert).Error; err != nil {
			if IsUniqueViolation(err) {
				return ErrCertificateExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *CertificatesRepository) GetCertificateByID(id uint) (*Certificate, error) {
	var cert Certificate
	if err := r.db.
		Preload("Company").
		Preload("Request.Welder").
		First(&cert, id).Error; err != nil {
		return nil, notFound(err, ErrCertificateNotFound)
	}
	return &cert, nil
}

func (r *CertificatesRepository) GetCertificatesByCompany(companyID uint) ([]Certificate, error) {
	var certs []Certificate
	if err := r.db.
		Preload("Request.Welder").
		Where("company_id = ?", companyID).
		Order("year DESC, sequence DESC").
		Find(&certs).Error; err != nil {
		return nil, err
	}
	return certs, nil
}

// HasCertificate reports whether a request already received its certificate.
func (r *CertificatesRepository) HasCertificate(requestID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&Certificate{}).Where("request_id = ?", requestID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetCertificatesMissingValidity loads certificates without a validity date
// together with the test records needed to derive it.
func (r *CertificatesRepository) GetCertificatesMissingValidity() ([]Certificate, error) {
	var certs []Certificate
	if err := r.db.
		Preload("Request.Welder").
		Preload("Request.BendTest").
		Preload("Request.UltrasonicTest").
		Preload("Request.VisualTest").
		Where("valid_until IS NULL").
		Order("id").
		Find(&certs).Error; err != nil {
		return nil, err
	}
	return certs, nil
}

func (r *CertificatesRepository) GetCertificatesMissingFields() ([]Certificate, error) {
	var certs []Certificate
	if err := r.db.
		Preload("Request.Welder").
		Where("qualified_consumable_range = '' OR qualified_base_metal_range = '' OR base_metal_p_number = ''").
		Or("qualified_consumable_range IS NULL OR qualified_base_metal_range IS NULL OR base_metal_p_number IS NULL").
		Order("id").
		Find(&certs).Error; err != nil {
		return nil, err
	}
	return certs, nil
}

// SaveCertificate persists changes; BeforeSave refills empty technical
// fields when Request is loaded.
func (r *CertificatesRepository) SaveCertificate(cert *Certificate) error {
	return r.db.Omit(clause.Associations).Save(cert).Error
}
