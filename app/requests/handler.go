package requests

import (
	"errors"
	"net/http"

	"github.com/grupomaster/raqs/app/api"
	"github.com/grupomaster/raqs/models"
	"github.com/grupomaster/raqs/rules"
	"github.com/shopspring/decimal"
)

type RequestProvider interface {
	CreateRequest(request *models.QualificationRequest) error
	GetRequestsByWelder(companyID, welderID uint) ([]models.QualificationRequest, error)
	DeleteRequest(id uint) error
}

// Input is the JSON body of a new qualification request.
type Input struct {
	WPS                string              `json:"wps"`
	Stamp              string              `json:"stamp"`
	DesignCode         string              `json:"design_code"`
	Process            string              `json:"process"`
	ConsumableSpec     string              `json:"consumable_spec"`
	ConsumableClass    string              `json:"consumable_class"`
	ConsumableDiameter decimal.Decimal     `json:"consumable_diameter"`
	BaseMetalSpec      string              `json:"base_metal_spec"`
	BaseMetalThickness decimal.NullDecimal `json:"base_metal_thickness"`
	BaseMetalDiameter  *int                `json:"base_metal_diameter"`
	Position           string              `json:"position"`
	Progression        string              `json:"progression"`
	BackingStrip       bool                `json:"backing_strip"`
	ShieldingGas       string              `json:"shielding_gas"`
	Purge              bool                `json:"purge"`
	TransferMode       string              `json:"transfer_mode"`
	TestType           string              `json:"test_type"`
}

func (in Input) toRules() rules.RequestInput {
	return rules.RequestInput{
		WPS:                in.WPS,
		Stamp:              in.Stamp,
		DesignCode:         in.DesignCode,
		Process:            in.Process,
		ConsumableSpec:     in.ConsumableSpec,
		ConsumableClass:    in.ConsumableClass,
		ConsumableDiameter: in.ConsumableDiameter,
		BaseMetalSpec:      in.BaseMetalSpec,
		BaseMetalThickness: in.BaseMetalThickness,
		BaseMetalDiameter:  in.BaseMetalDiameter,
		Position:           in.Position,
		Progression:        in.Progression,
		BackingStrip:       in.BackingStrip,
		ShieldingGas:       in.ShieldingGas,
		Purge:              in.Purge,
		TransferMode:       in.TransferMode,
		TestType:           in.TestType,
	}
}

type RequestHandler struct {
	repo RequestProvider
}

func NewRequestHandler(r RequestProvider) *RequestHandler {
	return &RequestHandler{repo: r}
}

func pathIDs(w http.ResponseWriter, r *http.Request) (companyID, welderID uint, ok bool) {
	companyID, err := api.PathID(r, "companyID")
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	welderID, err = api.PathID(r, "welderID")
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return companyID, welderID, true
}

// HandleCreate registers a qualification request made by a company for a
// welder. Single-choice fields may be omitted and are filled in.
func (h *RequestHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	companyID, welderID, ok := pathIDs(w, r)
	if !ok {
		return
	}

	var input Input
	if err := api.DecodeJSON(r, &input); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	in := input.toRules()
	rules.Normalize(&in)
	if err := rules.Validate(in); err != nil {
		if errs, ok := rules.AsValidationErrors(err); ok {
			api.WriteValidation(w, errs)
			return
		}
		api.InternalError(w, r, "failed to validate request", err)
		return
	}

	request := models.NewQualificationRequest(companyID, welderID, in)
	if err := h.repo.CreateRequest(request); err != nil {
		switch {
		case errors.Is(err, models.ErrCompanyNotFound), errors.Is(err, models.ErrWelderNotFound):
			api.WriteError(w, http.StatusNotFound, err.Error())
		default:
			api.InternalError(w, r, "failed to create request", err)
		}
		return
	}

	api.WriteJSON(w, http.StatusCreated, api.NewRequest(*request))
}

// HandleList returns a welder's requests for one company, split into those
// awaiting results and those already decided.
func (h *RequestHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	companyID, welderID, ok := pathIDs(w, r)
	if !ok {
		return
	}

	requests, err := h.repo.GetRequestsByWelder(companyID, welderID)
	if err != nil {
		api.InternalError(w, r, "failed to fetch requests", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.GroupByStatus(requests))
}

func (h *RequestHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.DeleteRequest(id); err != nil {
		switch {
		case errors.Is(err, models.ErrRequestNotFound):
			api.WriteError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, models.ErrRequestProtected):
			api.WriteError(w, http.StatusConflict, err.Error())
		default:
			api.InternalError(w, r, "failed to delete request", err)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
