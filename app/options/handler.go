// Package options serves the dependent choices of the qualification request
// form, recomputed whenever the client changes a driving field.
package options

import (
	"net/http"

	"github.com/grupomaster/raqs/app/api"
	"github.com/grupomaster/raqs/rules"
)

type OptionsHandler struct{}

func NewOptionsHandler() *OptionsHandler {
	return &OptionsHandler{}
}

func selection(r *http.Request) rules.Selection {
	q := r.URL.Query()
	return rules.Selection{
		DesignCode:    q.Get("design_code"),
		Process:       q.Get("process"),
		BaseMetalSpec: q.Get("base_metal_spec"),
		Position:      q.Get("position"),
	}
}

func (h *OptionsHandler) HandleAll(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, rules.Options(selection(r)))
}

func (h *OptionsHandler) HandleTestTypes(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, rules.TestTypeOptions(selection(r).DesignCode))
}

func (h *OptionsHandler) HandleBaseMetal(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, rules.BaseMetalOptions(selection(r).BaseMetalSpec))
}

func (h *OptionsHandler) HandleProgression(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, rules.ProgressionOptions(selection(r).Position))
}

func (h *OptionsHandler) HandleConsumables(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, rules.ConsumableOptions(selection(r).Process))
}
