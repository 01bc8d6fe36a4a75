package companies

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/grupomaster/raqs/app/api"
	"github.com/grupomaster/raqs/models"
	"github.com/grupomaster/raqs/rules"
)

type CompanyProvider interface {
	CreateCompany(company *models.Company) error
	GetAllCompanies() ([]models.Company, error)
	GetCompanyByID(id uint) (*models.Company, error)
	GetWeldersByCompany(companyID uint) ([]models.Welder, error)
	GetRequestsByCompany(companyID uint) ([]models.QualificationRequest, error)
	GetClosedBatches(companyID uint) ([]models.AuditBatch, error)
}

type DashboardResponse struct {
	Company  api.Company       `json:"company"`
	Welders  []api.Welder      `json:"welders"`
	Requests api.RequestGroups `json:"requests"`
	Batches  []api.Batch       `json:"batches"`
}

type CompanyHandler struct {
	repo CompanyProvider
}

func NewCompanyHandler(r CompanyProvider) *CompanyHandler {
	return &CompanyHandler{repo: r}
}

func (h *CompanyHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}
	if err := api.DecodeJSON(r, &input); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := strings.TrimSpace(input.Name)
	switch {
	case name == "":
		api.WriteValidation(w, rules.ValidationErrors{"name": "this field is required"})
		return
	case utf8.RuneCountInString(name) > 100:
		api.WriteValidation(w, rules.ValidationErrors{"name": "ensure this value has at most 100 characters"})
		return
	}

	company := &models.Company{Name: name}
	if err := h.repo.CreateCompany(company); err != nil {
		if errors.Is(err, models.ErrCompanyAlreadyExists) {
			api.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		api.InternalError(w, r, "failed to create company", err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, api.NewCompany(*company))
}

func (h *CompanyHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	companies, err := h.repo.GetAllCompanies()
	if err != nil {
		api.InternalError(w, r, "failed to fetch companies", err)
		return
	}

	response := make([]api.Company, len(companies))
	for i, c := range companies {
		response[i] = api.NewCompany(c)
	}
	api.WriteJSON(w, http.StatusOK, response)
}

// HandleDashboard shows a client company its welders, their requests split
// by status and the audit batches already closed.
func (h *CompanyHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	company, err := h.repo.GetCompanyByID(id)
	if err != nil {
		if errors.Is(err, models.ErrCompanyNotFound) {
			api.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		api.InternalError(w, r, "failed to fetch company", err)
		return
	}

	welders, err := h.repo.GetWeldersByCompany(company.ID)
	if err != nil {
		api.InternalError(w, r, "failed to fetch welders", err)
		return
	}
	requests, err := h.repo.GetRequestsByCompany(company.ID)
	if err != nil {
		api.InternalError(w, r, "failed to fetch requests", err)
		return
	}
	batches, err := h.repo.GetClosedBatches(company.ID)
	if err != nil {
		api.InternalError(w, r, "failed to fetch audit batches", err)
		return
	}

	api.WriteJSON(w, http.StatusOK, DashboardResponse{
		Company:  api.NewCompany(*company),
		Welders:  api.NewWelders(welders),
		Requests: api.GroupByStatus(requests),
		Batches:  api.NewBatches(batches),
	})
}
