package models

import (
	"strings"
	"time"

	"github.com/grupomaster/raqs/rules"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AuditBatchesRepository struct {
	db *gorm.DB
}

func NewAuditBatchesRepository(db *gorm.DB) *AuditBatchesRepository {
	return &AuditBatchesRepository{
		db: db,
	}
}

func unbatched(tx *gorm.DB, companyID uint) *gorm.DB {
	return tx.Model(&QualificationRequest{}).Where("company_id = ? AND audit_batch_id IS NULL", companyID)
}

// CreateBatch opens a batch for the company and attaches every request not
// yet batched. It returns the batch and how many requests were attached.
func (r *AuditBatchesRepository) CreateBatch(companyID uint, at time.Time) (*AuditBatch, int64, error) {
	var (
		batch    AuditBatch
		attached int64
	)
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&Company{}, companyID).Error; err != nil {
			return notFound(err, ErrCompanyNotFound)
		}

		var open int64
		if err := tx.Model(&AuditBatch{}).Where("company_id = ? AND is_open = ?", companyID, true).Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return ErrBatchAlreadyOpen
		}

		var available int64
		if err := unbatched(tx, companyID).Count(&available).Error; err != nil {
			return err
		}
		if available == 0 {
			return ErrNoRequestsAvailable
		}

		batch = AuditBatch{CompanyID: companyID, Date: at, Open: true}
		if err := tx.Omit(clause.Associations).Create(&batch).Error; err != nil {
			if IsUniqueViolation(err) {
				return ErrBatchAlreadyOpen
			}
			return err
		}

		res := unbatched(tx, companyID).UpdateColumn("audit_batch_id", batch.ID)
		if res.Error != nil {
			return res.Error
		}
		attached = res.RowsAffected
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &batch, attached, nil
}

// AddRequests attaches one request, or every unbatched request of the batch
// company when requestID is nil.
func (r *AuditBatchesRepository) AddRequests(batchID uint, requestID *uint) (int64, error) {
	var added int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		batch, err := openBatch(tx, batchID)
		if err != nil {
			return err
		}

		if requestID == nil {
			res := unbatched(tx, batch.CompanyID).UpdateColumn("audit_batch_id", batch.ID)
			added = res.RowsAffected
			return res.Error
		}

		var request QualificationRequest
		if err := tx.Where("company_id = ?", batch.CompanyID).First(&request, *requestID).Error; err != nil {
			return notFound(err, ErrRequestNotFound)
		}
		switch {
		case request.AuditBatchID == nil:
		case *request.AuditBatchID == batch.ID:
			return nil
		default:
			return ErrRequestAlreadyBatched
		}

		res := tx.Model(&request).UpdateColumn("audit_batch_id", batch.ID)
		added = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func openBatch(tx *gorm.DB, batchID uint) (*AuditBatch, error) {
	var batch AuditBatch
	if err := tx.First(&batch, batchID).Error; err != nil {
		return nil, notFound(err, ErrBatchNotFound)
	}
	if !batch.Open {
		return nil, ErrBatchClosed
	}
	return &batch, nil
}

// CloseBatch freezes a batch; closing a closed batch is a no-op.
func (r *AuditBatchesRepository) CloseBatch(batchID uint) (*AuditBatch, error) {
	var batch AuditBatch
	if err := r.db.First(&batch, batchID).Error; err != nil {
		return nil, notFound(err, ErrBatchNotFound)
	}
	if err := r.db.Model(&batch).UpdateColumn("is_open", false).Error; err != nil {
		return nil, err
	}
	batch.Open = false
	return &batch, nil
}

// GetBatchByID loads a batch with its requests, welders and test records.
func (r *AuditBatchesRepository) GetBatchByID(batchID uint) (*AuditBatch, error) {
	var batch AuditBatch
	if err := r.db.
		Preload("Company").
		Preload("Requests", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Requests.Welder").
		Preload("Requests.VisualTest").
		Preload("Requests.BendTest").
		Preload("Requests.UltrasonicTest").
		First(&batch, batchID).Error; err != nil {
		return nil, notFound(err, ErrBatchNotFound)
	}
	return &batch, nil
}

func (r *AuditBatchesRepository) GetOpenBatch(companyID uint) (*AuditBatch, error) {
	var batch AuditBatch
	if err := r.db.Where("company_id = ? AND is_open = ?", companyID, true).First(&batch).Error; err != nil {
		return nil, notFound(err, ErrBatchNotFound)
	}
	return &batch, nil
}

func (r *AuditBatchesRepository) GetClosedBatches(companyID uint) ([]AuditBatch, error) {
	var batches []AuditBatch
	if err := r.db.
		Where("company_id = ? AND is_open = ?", companyID, false).
		Order("date DESC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// RecordResults stores inspectors' results for requests of an open batch.
// A rejected visual test marks the governing test as not performed. Results
// for a test the request does not call for fail with InvalidResultsError.
func (r *AuditBatchesRepository) RecordResults(batchID uint, results map[uint]rules.TestResult) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		batch, err := openBatch(tx, batchID)
		if err != nil {
			return err
		}

		var requests []QualificationRequest
		if err := tx.Where("audit_batch_id = ?", batch.ID).Order("id").Find(&requests).Error; err != nil {
			return err
		}
		inBatch := make(map[uint]bool, len(requests))
		for _, q := range requests {
			inBatch[q.ID] = true
		}
		for id := range results {
			if !inBatch[id] {
				return ErrRequestNotInBatch
			}
		}

		invalid := InvalidResultsError{}
		for _, q := range requests {
			res, ok := results[q.ID]
			if !ok {
				continue
			}
			if err := rules.ValidateResultFor(q.TestType, res); err != nil {
				invalid[q.ID], _ = rules.AsValidationErrors(err)
			}
		}
		if len(invalid) > 0 {
			return invalid
		}

		for _, q := range requests {
			res, ok := results[q.ID]
			if !ok {
				continue
			}
			if err := applyResult(tx, &q, res); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyResult(tx *gorm.DB, q *QualificationRequest, res rules.TestResult) error {
	if res.Visual != "" {
		var visual VisualTest
		if err := tx.Where(VisualTest{RequestID: q.ID}).FirstOrInit(&visual).Error; err != nil {
			return err
		}
		visual.Result = res.Visual
		switch res.Visual {
		case rules.ResultRejected:
			visual.RejectionReasons = strings.Join(res.RejectionReasons, ",")
		case rules.ResultApproved:
			visual.RejectionReasons = ""
		}
		if err := tx.Save(&visual).Error; err != nil {
			return err
		}
		if res.Visual == rules.ResultRejected {
			return saveOutcome(tx, q.ID, q.TestType, rules.ResultNotPerformed)
		}
	}

	switch q.TestType {
	case rules.TestTypeBend:
		if res.Bend != "" {
			return saveOutcome(tx, q.ID, q.TestType, res.Bend)
		}
	case rules.TestTypeUltrasonic:
		if res.Ultrasonic != "" {
			return saveOutcome(tx, q.ID, q.TestType, res.Ultrasonic)
		}
	}
	return nil
}

func saveOutcome(tx *gorm.DB, requestID uint, testType, result string) error {
	performed := result != rules.ResultNotPerformed
	approved := result == rules.ResultApproved

	switch testType {
	case rules.TestTypeBend:
		var test BendTest
		if err := tx.Where(BendTest{RequestID: requestID}).FirstOrInit(&test).Error; err != nil {
			return err
		}
		test.Performed, test.Approved = performed, approved
		return tx.Save(&test).Error
	case rules.TestTypeUltrasonic:
		var test UltrasonicTest
		if err := tx.Where(UltrasonicTest{RequestID: requestID}).FirstOrInit(&test).Error; err != nil {
			return err
		}
		test.Performed, test.Approved = performed, approved
		return tx.Save(&test).Error
	}
	return nil
}
