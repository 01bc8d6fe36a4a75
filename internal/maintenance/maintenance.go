// Package maintenance holds the batch jobs run from the command line to
// repair and complete stored qualification data.
package maintenance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/grupomaster/raqs/models"
	"github.com/grupomaster/raqs/rules"
	"github.com/sirupsen/logrus"
)

type RequestStore interface {
	GetAllRequests() ([]models.QualificationRequest, error)
	GetRequestsMissingFNumber() ([]models.QualificationRequest, error)
	GetRequestsByConsumable(classifications ...string) ([]models.QualificationRequest, error)
	SaveRequest(request *models.QualificationRequest) error
}

type CertificateStore interface {
	IssueCertificate(requestID uint, opts models.IssueOptions) (*models.Certificate, error)
	HasCertificate(requestID uint) (bool, error)
	GetCertificatesMissingValidity() ([]models.Certificate, error)
	GetCertificatesMissingFields() ([]models.Certificate, error)
	SaveCertificate(cert *models.Certificate) error
}

// Report counts what a job looked at and what it changed (or would change
// on a dry run).
type Report struct {
	Scanned int
	Changed int
	Skipped int
}

func (r Report) String() string {
	return fmt.Sprintf("scanned=%d changed=%d skipped=%d", r.Scanned, r.Changed, r.Skipped)
}

type Maintainer struct {
	requests     RequestStore
	certificates CertificateStore
	logger       logrus.FieldLogger
	now          func() time.Time
}

func New(requests RequestStore, certificates CertificateStore, logger logrus.FieldLogger) *Maintainer {
	return &Maintainer{
		requests:     requests,
		certificates: certificates,
		logger:       logger,
		now:          time.Now,
	}
}

// BackfillFNumbers saves every request without an F-number so the save
// hook derives it from the consumable.
func (m *Maintainer) BackfillFNumbers(ctx context.Context) (Report, error) {
	var report Report
	requests, err := m.requests.GetRequestsMissingFNumber()
	if err != nil {
		return report, fmt.Errorf("load requests: %w", err)
	}

	for i := range requests {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		q := &requests[i]
		report.Scanned++
		if _, ok := rules.FNumber(rules.CanonicalConsumable(q.ConsumableClass)); !ok {
			m.logger.WithFields(logrus.Fields{"request_id": q.ID, "consumable": q.ConsumableClass}).
				Warn("unknown consumable, F-number left empty")
			report.Skipped++
			continue
		}
		if err := m.requests.SaveRequest(q); err != nil {
			return report, fmt.Errorf("save request %d: %w", q.ID, err)
		}
		report.Changed++
	}
	return report, nil
}

// ConsumableFix renames the legacy consumable of one request.
type ConsumableFix struct {
	RequestID uint
	From      string
	To        string
}

func (m *Maintainer) legacyRequests() ([]models.QualificationRequest, map[string]string, error) {
	legacy := rules.LegacyConsumables()
	aliases := make([]string, 0, len(legacy))
	for alias := range legacy {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	requests, err := m.requests.GetRequestsByConsumable(aliases...)
	if err != nil {
		return nil, nil, fmt.Errorf("load requests: %w", err)
	}
	return requests, legacy, nil
}

// PendingConsumableFixes lists the requests still stored with a legacy
// consumable spelling.
func (m *Maintainer) PendingConsumableFixes() ([]ConsumableFix, error) {
	requests, legacy, err := m.legacyRequests()
	if err != nil {
		return nil, err
	}
	fixes := make([]ConsumableFix, 0, len(requests))
	for _, q := range requests {
		fixes = append(fixes, ConsumableFix{RequestID: q.ID, From: q.ConsumableClass, To: legacy[q.ConsumableClass]})
	}
	return fixes, nil
}

// FixConsumables rewrites legacy consumable names and refreshes the derived
// F-numbers.
func (m *Maintainer) FixConsumables(ctx context.Context) (Report, error) {
	var report Report
	requests, legacy, err := m.legacyRequests()
	if err != nil {
		return report, err
	}
	for i := range requests {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		q := &requests[i]
		report.Scanned++
		from := q.ConsumableClass
		q.ConsumableClass = legacy[from]
		if err := m.requests.SaveRequest(q); err != nil {
			return report, fmt.Errorf("save request %d: %w", q.ID, err)
		}
		m.logger.WithFields(logrus.Fields{"request_id": q.ID, "from": from, "to": q.ConsumableClass}).Info("consumable renamed")
		report.Changed++
	}
	return report, nil
}

type GenerateOptions struct {
	DryRun         bool
	Force          bool
	ValidityMonths int
}

// GenerateCertificates issues certificates for approved requests that have
// none. Force reissues existing ones.
func (m *Maintainer) GenerateCertificates(ctx context.Context, opts GenerateOptions) (Report, error) {
	var report Report
	requests, err := m.requests.GetAllRequests()
	if err != nil {
		return report, fmt.Errorf("load requests: %w", err)
	}

	for _, q := range requests {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !rules.CertificateEligible(q.StatusInput()) {
			continue
		}
		report.Scanned++

		exists, err := m.certificates.HasCertificate(q.ID)
		if err != nil {
			return report, fmt.Errorf("check certificate of request %d: %w", q.ID, err)
		}
		if exists && !opts.Force {
			report.Skipped++
			continue
		}
		if opts.DryRun {
			report.Changed++
			continue
		}

		cert, err := m.certificates.IssueCertificate(q.ID, models.IssueOptions{
			IssuedAt:       m.now(),
			ValidityMonths: opts.ValidityMonths,
			Force:          opts.Force,
		})
		if err != nil {
			return report, fmt.Errorf("issue certificate of request %d: %w", q.ID, err)
		}
		m.logger.WithFields(logrus.Fields{"request_id": q.ID, "number": cert.Number}).Info("certificate issued")
		report.Changed++
	}
	return report, nil
}

// BackfillValidity sets the expiry of certificates issued before it was
// stored, counting from the approval of the governing test.
func (m *Maintainer) BackfillValidity(ctx context.Context, validityMonths int) (Report, error) {
	var report Report
	certs, err := m.certificates.GetCertificatesMissingValidity()
	if err != nil {
		return report, fmt.Errorf("load certificates: %w", err)
	}

	for i := range certs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		cert := &certs[i]
		report.Scanned++
		if cert.Request == nil {
			report.Skipped++
			continue
		}
		approvedAt, ok := rules.ApprovalDate(cert.Request.StatusInput())
		if !ok {
			m.logger.WithField("certificate", cert.Number).Warn("no approved test, validity left empty")
			report.Skipped++
			continue
		}
		validUntil := rules.ValidUntil(approvedAt, validityMonths)
		cert.ValidUntil = &validUntil
		if err := m.certificates.SaveCertificate(cert); err != nil {
			return report, fmt.Errorf("save certificate %s: %w", cert.Number, err)
		}
		report.Changed++
	}
	return report, nil
}

// BackfillFields refills the technical ranges of certificates that were
// issued without them.
func (m *Maintainer) BackfillFields(ctx context.Context, dryRun bool) (Report, error) {
	var report Report
	certs, err := m.certificates.GetCertificatesMissingFields()
	if err != nil {
		return report, fmt.Errorf("load certificates: %w", err)
	}

	for i := range certs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		cert := &certs[i]
		report.Scanned++
		if cert.Request == nil {
			report.Skipped++
			continue
		}
		if dryRun {
			report.Changed++
			continue
		}
		if err := m.certificates.SaveCertificate(cert); err != nil {
			return report, fmt.Errorf("save certificate %s: %w", cert.Number, err)
		}
		if cert.MissingTechnicalFields() {
			report.Skipped++
			continue
		}
		report.Changed++
	}
	return report, nil
}
