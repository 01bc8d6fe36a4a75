// Package app wires the HTTP handlers into a router.
package app

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/grupomaster/raqs/app/batches"
	"github.com/grupomaster/raqs/app/certificates"
	"github.com/grupomaster/raqs/app/companies"
	"github.com/grupomaster/raqs/app/options"
	"github.com/grupomaster/raqs/app/requests"
	"github.com/grupomaster/raqs/app/welders"
	"github.com/grupomaster/raqs/internal/events"
	"github.com/grupomaster/raqs/internal/logging"
	"github.com/grupomaster/raqs/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Dependencies struct {
	Logger         *logrus.Logger
	DB             *gorm.DB
	Publisher      events.Publisher
	ValidityMonths int
}

func NewRouter(deps *Dependencies) http.Handler {
	store := models.NewStore(deps.DB)

	companyHandler := companies.NewCompanyHandler(store)
	welderHandler := welders.NewWelderHandler(store)
	requestHandler := requests.NewRequestHandler(store)
	optionsHandler := options.NewOptionsHandler()
	batchHandler := batches.NewBatchHandler(store, deps.Publisher)
	certificateHandler := certificates.NewCertificateHandler(store, deps.Publisher, deps.ValidityMonths)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /companies", companyHandler.HandleCreate)
	mux.HandleFunc("GET /companies", companyHandler.HandleGetAll)
	mux.HandleFunc("GET /companies/{id}/dashboard", companyHandler.HandleDashboard)

	mux.HandleFunc("POST /welders", welderHandler.HandleCreate)
	mux.HandleFunc("GET /welders", welderHandler.HandleGetAll)
	mux.HandleFunc("GET /welders/cpf", welderHandler.HandleGetByCPF)
	mux.HandleFunc("DELETE /welders/{id}", welderHandler.HandleDelete)

	mux.HandleFunc("POST /companies/{companyID}/welders/{welderID}/requests", requestHandler.HandleCreate)
	mux.HandleFunc("GET /companies/{companyID}/welders/{welderID}/requests", requestHandler.HandleList)
	mux.HandleFunc("DELETE /requests/{id}", requestHandler.HandleDelete)

	mux.HandleFunc("GET /options", optionsHandler.HandleAll)
	mux.HandleFunc("GET /options/test-types", optionsHandler.HandleTestTypes)
	mux.HandleFunc("GET /options/base-metal", optionsHandler.HandleBaseMetal)
	mux.HandleFunc("GET /options/progression", optionsHandler.HandleProgression)
	mux.HandleFunc("GET /options/consumables", optionsHandler.HandleConsumables)

	mux.HandleFunc("GET /master/dashboard", batchHandler.HandleMasterDashboard)
	mux.HandleFunc("POST /companies/{id}/batches", batchHandler.HandleCreate)
	mux.HandleFunc("POST /batches/{id}/requests", batchHandler.HandleAddRequests)
	mux.HandleFunc("POST /batches/{id}/close", batchHandler.HandleClose)
	mux.HandleFunc("GET /batches/{id}", batchHandler.HandleGet)
	mux.HandleFunc("POST /batches/{id}/results", batchHandler.HandleRecordResults)

	mux.HandleFunc("POST /requests/{id}/certificate", certificateHandler.HandleIssue)
	mux.HandleFunc("GET /companies/{id}/certificates", certificateHandler.HandleListByCompany)
	mux.HandleFunc("GET /certificates/{id}", certificateHandler.HandleGet)

	return withRequestLogging(deps.Logger, mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLogging tags every request with an id, exposes a request
// scoped logger through the context and logs one line per request.
func withRequestLogging(logger *logrus.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		entry := logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
		})

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(logging.WithLogger(r.Context(), entry)))

		entry.WithFields(logrus.Fields{
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("request handled")
	})
}
