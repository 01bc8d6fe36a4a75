package models

import (
	"errors"
	"fmt"

	"github.com/grupomaster/raqs/rules"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	ErrCompanyNotFound       = errors.New("company not found")
	ErrCompanyAlreadyExists  = errors.New("company already exists")
	ErrWelderNotFound        = errors.New("welder not found")
	ErrCPFAlreadyRegistered  = errors.New("CPF already registered")
	ErrWelderProtected       = errors.New("welder has qualification requests")
	ErrRequestNotFound       = errors.New("qualification request not found")
	ErrRequestProtected      = errors.New("qualification request has test results or a certificate")
	ErrRequestNotApproved    = errors.New("qualification request is not approved")
	ErrRequestNotInBatch     = errors.New("qualification request does not belong to the audit batch")
	ErrRequestAlreadyBatched = errors.New("qualification request already belongs to another audit batch")
	ErrCertificateNotFound   = errors.New("certificate not found")
	ErrCertificateExists     = errors.New("qualification request already has a certificate")
	ErrBatchNotFound         = errors.New("audit batch not found")
	ErrBatchAlreadyOpen      = errors.New("company already has an open audit batch")
	ErrBatchClosed           = errors.New("audit batch is closed")
	ErrNoRequestsAvailable   = errors.New("no qualification requests available for an audit batch")
)

// InvalidResultsError holds, per request ID, the results that do not fit the
// request's test type.
type InvalidResultsError map[uint]rules.ValidationErrors

func (e InvalidResultsError) Error() string {
	return fmt.Sprintf("test results rejected for %d requests", len(e))
}

// PostgreSQL SQLSTATE codes for integrity violations.
const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// IsUniqueViolation recognizes duplicate key errors from gorm's error
// translation and from the pgx and lib/pq drivers.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || sqlState(err) == pgErrUniqueViolation
}

// IsForeignKeyViolation recognizes rejected deletes of referenced rows.
func IsForeignKeyViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated) || sqlState(err) == pgErrForeignKeyViolation
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// notFound maps gorm's record-not-found onto a domain sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
