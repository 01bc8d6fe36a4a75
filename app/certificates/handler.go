package certificates

import (
	"errors"
	"net/http"
	"time"

	"github.com/grupomaster/raqs/app/api"
	"github.com/grupomaster/raqs/internal/events"
	"github.com/grupomaster/raqs/internal/logging"
	"github.com/grupomaster/raqs/models"
)

type CertificateProvider interface {
	IssueCertificate(requestID uint, opts models.IssueOptions) (*models.Certificate, error)
	GetCertificateByID(id uint) (*models.Certificate, error)
	GetCertificatesByCompany(companyID uint) ([]models.Certificate, error)
	GetCompanyByID(id uint) (*models.Company, error)
}

type CertificateHandler struct {
	repo           CertificateProvider
	publisher      events.Publisher
	validityMonths int
	now            func() time.Time
}

func NewCertificateHandler(r CertificateProvider, p events.Publisher, validityMonths int) *CertificateHandler {
	return &CertificateHandler{
		repo:           r,
		publisher:      p,
		validityMonths: validityMonths,
		now:            time.Now,
	}
}

// HandleIssue issues the certificate of an approved request.
func (h *CertificateHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	requestID, err := api.PathID(r, "id")
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cert, err := h.repo.IssueCertificate(requestID, models.IssueOptions{
		IssuedAt:       h.now(),
		ValidityMonths: h.validityMonths,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrRequestNotFound):
			api.WriteError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, models.ErrRequestNotApproved), errors.Is(err, models.ErrCertificateExists):
			api.WriteError(w, http.StatusConflict, err.Error())
		default:
			api.InternalError(w, r, "failed to issue certificate", err)
		}
		return
	}

	response := api.NewCertificate(*cert)
	if err := h.publisher.Publish(r.Context(), events.New(events.TypeCertificateIssued, response)); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to publish "+events.TypeCertificateIssued, err)
	}
	api.WriteJSON(w, http.StatusCreated, response)
}

func (h *CertificateHandler) HandleListByCompany(w http.ResponseWriter, r *http.Request) {
	companyID, err := api.PathID(r, "id")
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.repo.GetCompanyByID(companyID); err != nil {
		if errors.Is(err, models.ErrCompanyNotFound) {
			api.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		api.InternalError(w, r, "failed to fetch company", err)
		return
	}

	certs, err := h.repo.GetCertificatesByCompany(companyID)
	if err != nil {
		api.InternalError(w, r, "failed to fetch certificates", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.NewCertificates(certs))
}

func (h *CertificateHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cert, err := h.repo.GetCertificateByID(id)
	if err != nil {
		if errors.Is(err, models.ErrCertificateNotFound) {
			api.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		api.InternalError(w, r, "failed to fetch certificate", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.NewCertificate(*cert))
}
