package welders

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/grupomaster/raqs/app/api"
	"github.com/grupomaster/raqs/models"
	"github.com/grupomaster/raqs/rules"
)

type WelderProvider interface {
	CreateWelder(welder *models.Welder) error
	GetAllWelders() ([]models.Welder, error)
	GetWelderByCPF(cpf string) (*models.Welder, error)
	DeleteWelder(id uint) error
}

type WelderHandler struct {
	repo WelderProvider
}

func NewWelderHandler(r WelderProvider) *WelderHandler {
	return &WelderHandler{repo: r}
}

func (h *WelderHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
		CPF  string `json:"cpf"`
	}
	if err := api.DecodeJSON(r, &input); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	errs := rules.ValidationErrors{}
	name := strings.TrimSpace(input.Name)
	switch {
	case name == "":
		errs["name"] = "this field is required"
	case utf8.RuneCountInString(name) > 100:
		errs["name"] = "ensure this value has at most 100 characters"
	}
	cpf, err := rules.NormalizeCPF(input.CPF)
	if err != nil {
		errs["cpf"] = err.Error()
	}
	if len(errs) > 0 {
		api.WriteValidation(w, errs)
		return
	}

	welder := &models.Welder{Name: name, CPF: cpf}
	if err := h.repo.CreateWelder(welder); err != nil {
		if errors.Is(err, models.ErrCPFAlreadyRegistered) {
			api.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		api.InternalError(w, r, "failed to create welder", err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, api.NewWelder(*welder))
}

func (h *WelderHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	welders, err := h.repo.GetAllWelders()
	if err != nil {
		api.InternalError(w, r, "failed to fetch welders", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.NewWelders(welders))
}

// HandleGetByCPF looks a welder up by CPF, formatted or digits only, so a
// company can reuse an existing registration.
func (h *WelderHandler) HandleGetByCPF(w http.ResponseWriter, r *http.Request) {
	cpf, err := rules.NormalizeCPF(r.URL.Query().Get("cpf"))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	welder, err := h.repo.GetWelderByCPF(cpf)
	if err != nil {
		if errors.Is(err, models.ErrWelderNotFound) {
			api.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		api.InternalError(w, r, "failed to fetch welder", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.NewWelder(*welder))
}

func (h *WelderHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.DeleteWelder(id); err != nil {
		switch {
		case errors.Is(err, models.ErrWelderNotFound):
			api.WriteError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, models.ErrWelderProtected):
			api.WriteError(w, http.StatusConflict, err.Error())
		default:
			api.InternalError(w, r, "failed to delete welder", err)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
