package batches

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/grupomaster/raqs/app/api"
	"github.com/grupomaster/raqs/internal/events"
	"github.com/grupomaster/raqs/internal/logging"
	"github.com/grupomaster/raqs/models"
	"github.com/grupomaster/raqs/rules"
)

type BatchProvider interface {
	GetAllCompanies() ([]models.Company, error)
	GetUnbatchedRequests(companyID uint) ([]models.QualificationRequest, error)
	GetOpenBatch(companyID uint) (*models.AuditBatch, error)
	GetClosedBatches(companyID uint) ([]models.AuditBatch, error)
	GetBatchByID(batchID uint) (*models.AuditBatch, error)
	CreateBatch(companyID uint, at time.Time) (*models.AuditBatch, int64, error)
	AddRequests(batchID uint, requestID *uint) (int64, error)
	CloseBatch(batchID uint) (*models.AuditBatch, error)
	RecordResults(batchID uint, results map[uint]rules.TestResult) error
}

// BatchDetail is a batch with its requests grouped by welder.
type BatchDetail struct {
	api.Batch
	CompanyName   string               `json:"company_name"`
	TestsComplete bool                 `json:"tests_complete"`
	Welders       []api.WelderRequests `json:"welders"`
}

func newBatchDetail(b *models.AuditBatch) BatchDetail {
	return BatchDetail{
		Batch:         api.NewBatch(*b),
		CompanyName:   b.Company.Name,
		TestsComplete: b.TestsComplete(),
		Welders:       api.GroupByWelder(b.Requests),
	}
}

// CompanyOverview is one company's row on the inspector dashboard.
type CompanyOverview struct {
	Company       api.Company          `json:"company"`
	OpenBatch     *BatchDetail         `json:"open_batch"`
	ClosedBatches []api.Batch          `json:"closed_batches"`
	Welders       []api.WelderRequests `json:"welders"`
}

type BatchHandler struct {
	repo      BatchProvider
	publisher events.Publisher
	now       func() time.Time
}

func NewBatchHandler(r BatchProvider, p events.Publisher) *BatchHandler {
	return &BatchHandler{repo: r, publisher: p, now: time.Now}
}

func (h *BatchHandler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, models.ErrCompanyNotFound),
		errors.Is(err, models.ErrBatchNotFound),
		errors.Is(err, models.ErrRequestNotFound):
		api.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrBatchAlreadyOpen),
		errors.Is(err, models.ErrBatchClosed),
		errors.Is(err, models.ErrNoRequestsAvailable),
		errors.Is(err, models.ErrRequestAlreadyBatched):
		api.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrRequestNotInBatch):
		api.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		api.InternalError(w, r, msg, err)
	}
}

// HandleMasterDashboard lists every client company with its open batch,
// its closed batches and the requests not yet batched. A company whose
// batches are all closed shows only those batches.
func (h *BatchHandler) HandleMasterDashboard(w http.ResponseWriter, r *http.Request) {
	companies, err := h.repo.GetAllCompanies()
	if err != nil {
		api.InternalError(w, r, "failed to fetch companies", err)
		return
	}

	response := make([]CompanyOverview, 0, len(companies))
	for _, c := range companies {
		if c.IsMaster() {
			continue
		}
		overview, err := h.overview(c)
		if err != nil {
			api.InternalError(w, r, "failed to build dashboard", err)
			return
		}
		response = append(response, overview)
	}

	api.WriteJSON(w, http.StatusOK, response)
}

func (h *BatchHandler) overview(c models.Company) (CompanyOverview, error) {
	overview := CompanyOverview{
		Company: api.NewCompany(c),
		Welders: []api.WelderRequests{},
	}

	open, err := h.repo.GetOpenBatch(c.ID)
	switch {
	case errors.Is(err, models.ErrBatchNotFound):
	case err != nil:
		return overview, err
	default:
		loaded, err := h.repo.GetBatchByID(open.ID)
		if err != nil {
			return overview, err
		}
		detail := newBatchDetail(loaded)
		overview.OpenBatch = &detail
	}

	closed, err := h.repo.GetClosedBatches(c.ID)
	if err != nil {
		return overview, err
	}
	overview.ClosedBatches = api.NewBatches(closed)

	if overview.OpenBatch == nil && len(closed) > 0 {
		return overview, nil
	}

	unbatched, err := h.repo.GetUnbatchedRequests(c.ID)
	if err != nil {
		return overview, err
	}
	overview.Welders = api.GroupByWelder(unbatched)
	return overview, nil
}

func (h *BatchHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	companyID, err := api.PathID(r, "id")
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	batch, attached, err := h.repo.CreateBatch(companyID, h.now())
	if err != nil {
		h.writeError(w, r, "failed to create audit batch", err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, map[string]any{
		"batch":    api.NewBatch(*batch),
		"attached": attached,
	})
}

// HandleAddRequests attaches the request named by ?request_id=, or every
// unbatched request of the company when it is absent.
func (h *BatchHandler) HandleAddRequests(w http.ResponseWriter, r *http.Request) {
	batchID, err := api.PathID(r, "id")
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var requestID *uint
	if raw := r.URL.Query().Get("request_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			api.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request_id %q", raw))
			return
		}
		v := uint(id)
		requestID = &v
	}

	added, err := h.repo.AddRequests(batchID, requestID)
	if err != nil {
		h.writeError(w, r, "failed to add requests", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]int64{"added": added})
}

func (h *BatchHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	batchID, err := api.PathID(r, "id")
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	batch, err := h.repo.CloseBatch(batchID)
	if err != nil {
		h.writeError(w, r, "failed to close audit batch", err)
		return
	}

	h.publish(r.Context(), events.New(events.TypeAuditBatchClosed, api.NewBatch(*batch)))
	api.WriteJSON(w, http.StatusOK, api.NewBatch(*batch))
}

// publish never fails the request; the batch is already closed.
func (h *BatchHandler) publish(ctx context.Context, event events.Event) {
	if err := h.publisher.Publish(ctx, event); err != nil {
		logging.LogError(logging.FromContext(ctx), "failed to publish "+event.Type, err)
	}
}

func (h *BatchHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	batchID, err := api.PathID(r, "id")
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	batch, err := h.repo.GetBatchByID(batchID)
	if err != nil {
		h.writeError(w, r, "failed to fetch audit batch", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, newBatchDetail(batch))
}

// ResultInput is one inspector entry of POST /batches/{id}/results.
type ResultInput struct {
	RequestID        uint     `json:"request_id"`
	Visual           string   `json:"visual"`
	RejectionReasons []string `json:"rejection_reasons"`
	Bend             string   `json:"bend"`
	Ultrasonic       string   `json:"ultrasonic"`
}

func (h *BatchHandler) HandleRecordResults(w http.ResponseWriter, r *http.Request) {
	batchID, err := api.PathID(r, "id")
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var input struct {
		Results []ResultInput `json:"results"`
	}
	if err := api.DecodeJSON(r, &input); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	errs := rules.ValidationErrors{}
	if len(input.Results) == 0 {
		errs["results"] = "this field is required"
	}
	results := make(map[uint]rules.TestResult, len(input.Results))
	positions := make(map[uint]int, len(input.Results))
	for i, in := range input.Results {
		prefix := fmt.Sprintf("results[%d].", i)
		if _, dup := positions[in.RequestID]; dup {
			errs[prefix+"request_id"] = "duplicate request"
			continue
		}
		positions[in.RequestID] = i
		res := rules.TestResult{
			Visual:           in.Visual,
			RejectionReasons: in.RejectionReasons,
			Bend:             in.Bend,
			Ultrasonic:       in.Ultrasonic,
		}
		if err := rules.ValidateResult(res); err != nil {
			fieldErrs, _ := rules.AsValidationErrors(err)
			for field, msg := range fieldErrs {
				errs[prefix+field] = msg
			}
			continue
		}
		results[in.RequestID] = res
	}
	if len(errs) > 0 {
		api.WriteValidation(w, errs)
		return
	}

	if err := h.repo.RecordResults(batchID, results); err != nil {
		var invalid models.InvalidResultsError
		if errors.As(err, &invalid) {
			for requestID, fieldErrs := range invalid {
				prefix := fmt.Sprintf("results[%d].", positions[requestID])
				for field, msg := range fieldErrs {
					errs[prefix+field] = msg
				}
			}
			api.WriteValidation(w, errs)
			return
		}
		h.writeError(w, r, "failed to record results", err)
		return
	}

	batch, err := h.repo.GetBatchByID(batchID)
	if err != nil {
		h.writeError(w, r, "failed to fetch audit batch", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, newBatchDetail(batch))
}
