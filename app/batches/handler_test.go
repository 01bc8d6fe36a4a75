package batches

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/grupomaster/raqs/internal/events"
	"github.com/grupomaster/raqs/models"
	"github.com/grupomaster/raqs/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- Mocks ---

type MockBatchRepo struct {
	Companies []models.Company
	Unbatched map[uint][]models.QualificationRequest
	Open      map[uint]*models.AuditBatch
	Closed    map[uint][]models.AuditBatch
	Batches   map[uint]*models.AuditBatch
	Err       error

	lastCreatedCompany uint
	lastCreatedAt      time.Time
	lastAddedRequest   *uint
	lastResults        map[uint]rules.TestResult
}

func (m *MockBatchRepo) GetAllCompanies() ([]models.Company, error) {
	return m.Companies, m.Err
}

func (m *MockBatchRepo) GetUnbatchedRequests(companyID uint) ([]models.QualificationRequest, error) {
	return m.Unbatched[companyID], m.Err
}

func (m *MockBatchRepo) GetOpenBatch(companyID uint) (*models.AuditBatch, error) {
	if b, ok := m.Open[companyID]; ok {
		return b, nil
	}
	return nil, models.ErrBatchNotFound
}

func (m *MockBatchRepo) GetClosedBatches(companyID uint) ([]models.AuditBatch, error) {
	return m.Closed[companyID], m.Err
}

func (m *MockBatchRepo) GetBatchByID(batchID uint) (*models.AuditBatch, error) {
	if b, ok := m.Batches[batchID]; ok {
		return b, nil
	}
	return nil, models.ErrBatchNotFound
}

func (m *MockBatchRepo) CreateBatch(companyID uint, at time.Time) (*models.AuditBatch, int64, error) {
	m.lastCreatedCompany = companyID
	m.lastCreatedAt = at
	if m.Err != nil {
		return nil, 0, m.Err
	}
	return &models.AuditBatch{ID: 30, CompanyID: companyID, Date: at, Open: true}, 4, nil
}

func (m *MockBatchRepo) AddRequests(batchID uint, requestID *uint) (int64, error) {
	m.lastAddedRequest = requestID
	if m.Err != nil {
		return 0, m.Err
	}
	if requestID == nil {
		return 3, nil
	}
	return 1, nil
}

func (m *MockBatchRepo) CloseBatch(batchID uint) (*models.AuditBatch, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	b, ok := m.Batches[batchID]
	if !ok {
		return nil, models.ErrBatchNotFound
	}
	b.Open = false
	return b, nil
}

func (m *MockBatchRepo) RecordResults(batchID uint, results map[uint]rules.TestResult) error {
	m.lastResults = results
	return m.Err
}

type MockPublisher struct {
	Events []events.Event
	Err    error
}

func (p *MockPublisher) Publish(ctx context.Context, event events.Event) error {
	p.Events = append(p.Events, event)
	return p.Err
}

func (p *MockPublisher) Close() error { return nil }

// --- Helpers ---

var welderIDs = map[string]uint{"Ana": 1, "Bia": 2, "Caio": 3, "Zeca": 4}

func request(id uint, welder string, testType string) models.QualificationRequest {
	welderID := welderIDs[welder]
	return models.QualificationRequest{
		ID:        id,
		CompanyID: 2,
		WelderID:  welderID,
		Welder:    models.Welder{ID: welderID, Name: welder},
		TestType:  testType,
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var errResp map[string]string
	err := json.NewDecoder(rec.Body).Decode(&errResp)
	assert.NoError(t, err)
	return errResp["error"]
}

// --- Tests: GET /master/dashboard ---

func TestHandleMasterDashboard(t *testing.T) {
	openBatch := &models.AuditBatch{
		ID: 5, CompanyID: 2, Open: true, Company: models.Company{ID: 2, Name: "Petrobras"},
		Requests: []models.QualificationRequest{request(1, "Zeca", rules.TestTypeBend), request(2, "Ana", rules.TestTypeBend)},
	}
	mockRepo := &MockBatchRepo{
		Companies: []models.Company{
			{ID: 1, Name: models.MasterCompanyName},
			{ID: 2, Name: "Petrobras"},
			{ID: 3, Name: "Vale"},
			{ID: 4, Name: "Gerdau"},
		},
		Open:    map[uint]*models.AuditBatch{2: openBatch},
		Batches: map[uint]*models.AuditBatch{5: openBatch},
		Closed: map[uint][]models.AuditBatch{
			3: {{ID: 6, CompanyID: 3}},
		},
		Unbatched: map[uint][]models.QualificationRequest{
			2: {request(7, "Ana", rules.TestTypeBend)},
			3: {request(8, "Bia", rules.TestTypeBend)},
			4: {request(9, "Caio", rules.TestTypeUltrasonic), request(10, "Caio", rules.TestTypeBend)},
		},
	}
	handler := NewBatchHandler(mockRepo, &MockPublisher{})
	rec := httptest.NewRecorder()

	handler.HandleMasterDashboard(rec, httptest.NewRequest("GET", "/master/dashboard", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp []CompanyOverview
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 3, "the master company is not listed")

	petrobras := resp[0]
	require.NotNil(t, petrobras.OpenBatch)
	assert.Equal(t, uint(5), petrobras.OpenBatch.ID)
	assert.Equal(t, "Ana", petrobras.OpenBatch.Welders[0].Welder)
	assert.Equal(t, "Zeca", petrobras.OpenBatch.Welders[1].Welder)
	assert.False(t, petrobras.OpenBatch.TestsComplete)
	assert.Len(t, petrobras.Welders, 1)

	vale := resp[1]
	assert.Nil(t, vale.OpenBatch)
	assert.Len(t, vale.ClosedBatches, 1)
	assert.Empty(t, vale.Welders, "closed batches without an open one hide the welders")

	gerdau := resp[2]
	require.Len(t, gerdau.Welders, 1)
	assert.Len(t, gerdau.Welders[0].Requests, 2)
}

// --- Tests: POST /companies/{id}/batches ---

func TestHandleCreate(t *testing.T) {
	fixedNow := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	testCases := []struct {
		name               string
		id                 string
		err                error
		expectedStatusCode int
		checkResponse      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:               "Created",
			id:                 "2",
			expectedStatusCode: http.StatusCreated,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp struct {
					Batch struct {
						ID   uint      `json:"id"`
						Open bool      `json:"open"`
						Date time.Time `json:"date"`
					} `json:"batch"`
					Attached int64 `json:"attached"`
				}
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, uint(30), resp.Batch.ID)
				assert.True(t, resp.Batch.Open)
				assert.True(t, fixedNow.Equal(resp.Batch.Date))
				assert.EqualValues(t, 4, resp.Attached)
			},
		},
		{
			name:               "Open batch exists",
			id:                 "2",
			err:                models.ErrBatchAlreadyOpen,
			expectedStatusCode: http.StatusConflict,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, "company already has an open audit batch", decodeError(t, rec))
			},
		},
		{
			name:               "Nothing to batch",
			id:                 "2",
			err:                models.ErrNoRequestsAvailable,
			expectedStatusCode: http.StatusConflict,
		},
		{
			name:               "Unknown company",
			id:                 "2",
			err:                models.ErrCompanyNotFound,
			expectedStatusCode: http.StatusNotFound,
		},
		{
			name:               "Repository error",
			id:                 "2",
			err:                errors.New("db down"),
			expectedStatusCode: http.StatusInternalServerError,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, "failed to create audit batch", decodeError(t, rec))
			},
		},
		{
			name:               "Invalid id",
			id:                 "-",
			expectedStatusCode: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			mockRepo := &MockBatchRepo{Err: tc.err}
			handler := NewBatchHandler(mockRepo, &MockPublisher{})
			handler.now = func() time.Time { return fixedNow }
			req := httptest.NewRequest("POST", "/companies/"+tc.id+"/batches", nil)
			req.SetPathValue("id", tc.id)
			rec := httptest.NewRecorder()

			// Act
			handler.HandleCreate(rec, req)

			// Assert
			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.checkResponse != nil {
				tc.checkResponse(t, rec)
			}
		})
	}
}

// --- Tests: POST /batches/{id}/requests ---

func TestHandleAddRequests(t *testing.T) {
	testCases := []struct {
		name               string
		url                string
		err                error
		expectedStatusCode int
		expectedAdded      int64
		checkRepoCall      func(t *testing.T, repo *MockBatchRepo)
	}{
		{
			name:               "All unbatched",
			url:                "/batches/5/requests",
			expectedStatusCode: http.StatusOK,
			expectedAdded:      3,
			checkRepoCall: func(t *testing.T, repo *MockBatchRepo) {
				assert.Nil(t, repo.lastAddedRequest)
			},
		},
		{
			name:               "One request",
			url:                "/batches/5/requests?request_id=11",
			expectedStatusCode: http.StatusOK,
			expectedAdded:      1,
			checkRepoCall: func(t *testing.T, repo *MockBatchRepo) {
				require.NotNil(t, repo.lastAddedRequest)
				assert.Equal(t, uint(11), *repo.lastAddedRequest)
			},
		},
		{
			name:               "Invalid request id",
			url:                "/batches/5/requests?request_id=abc",
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "Closed batch",
			url:                "/batches/5/requests",
			err:                models.ErrBatchClosed,
			expectedStatusCode: http.StatusConflict,
		},
		{
			name:               "Request in another batch",
			url:                "/batches/5/requests?request_id=11",
			err:                models.ErrRequestAlreadyBatched,
			expectedStatusCode: http.StatusConflict,
		},
		{
			name:               "Request of another company",
			url:                "/batches/5/requests?request_id=11",
			err:                models.ErrRequestNotFound,
			expectedStatusCode: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			mockRepo := &MockBatchRepo{Err: tc.err}
			handler := NewBatchHandler(mockRepo, &MockPublisher{})
			req := httptest.NewRequest("POST", tc.url, nil)
			req.SetPathValue("id", "5")
			rec := httptest.NewRecorder()

			// Act
			handler.HandleAddRequests(rec, req)

			// Assert
			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.expectedStatusCode == http.StatusOK {
				var resp map[string]int64
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, tc.expectedAdded, resp["added"])
			}
			if tc.checkRepoCall != nil {
				tc.checkRepoCall(t, mockRepo)
			}
		})
	}
}

// --- Tests: POST /batches/{id}/close ---

func TestHandleClose(t *testing.T) {
	t.Run("Closes and publishes", func(t *testing.T) {
		mockRepo := &MockBatchRepo{Batches: map[uint]*models.AuditBatch{5: {ID: 5, CompanyID: 2, Open: true}}}
		publisher := &MockPublisher{}
		handler := NewBatchHandler(mockRepo, publisher)
		req := httptest.NewRequest("POST", "/batches/5/close", nil)
		req.SetPathValue("id", "5")
		rec := httptest.NewRecorder()

		handler.HandleClose(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, false, resp["open"])
		require.Len(t, publisher.Events, 1)
		assert.Equal(t, events.TypeAuditBatchClosed, publisher.Events[0].Type)
	})

	t.Run("Publish failure does not fail the request", func(t *testing.T) {
		mockRepo := &MockBatchRepo{Batches: map[uint]*models.AuditBatch{5: {ID: 5, CompanyID: 2, Open: true}}}
		handler := NewBatchHandler(mockRepo, &MockPublisher{Err: errors.New("broker down")})
		req := httptest.NewRequest("POST", "/batches/5/close", nil)
		req.SetPathValue("id", "5")
		rec := httptest.NewRecorder()

		handler.HandleClose(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Unknown batch", func(t *testing.T) {
		publisher := &MockPublisher{}
		handler := NewBatchHandler(&MockBatchRepo{}, publisher)
		req := httptest.NewRequest("POST", "/batches/8/close", nil)
		req.SetPathValue("id", "8")
		rec := httptest.NewRecorder()

		handler.HandleClose(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, publisher.Events)
	})
}

// --- Tests: GET /batches/{id} ---

func TestHandleGet(t *testing.T) {
	complete := request(1, "Ana", rules.TestTypeBend)
	complete.VisualTest = &models.VisualTest{Result: rules.ResultApproved}
	complete.BendTest = &models.BendTest{Performed: true, Approved: true}
	batch := &models.AuditBatch{ID: 5, CompanyID: 2, Company: models.Company{Name: "Petrobras"}, Requests: []models.QualificationRequest{complete}}

	mockRepo := &MockBatchRepo{Batches: map[uint]*models.AuditBatch{5: batch}}
	handler := NewBatchHandler(mockRepo, &MockPublisher{})
	req := httptest.NewRequest("GET", "/batches/5", nil)
	req.SetPathValue("id", "5")
	rec := httptest.NewRecorder()

	handler.HandleGet(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp BatchDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Petrobras", resp.CompanyName)
	assert.True(t, resp.TestsComplete)
	require.Len(t, resp.Welders, 1)
	assert.Equal(t, rules.StatusBendApproved, resp.Welders[0].Requests[0].Status)
}

// --- Tests: POST /batches/{id}/results ---

func TestHandleRecordResults(t *testing.T) {
	batch := &models.AuditBatch{ID: 5, CompanyID: 2, Open: true}

	testCases := []struct {
		name               string
		requestBody        string
		err                error
		expectedStatusCode int
		checkResponse      func(t *testing.T, rec *httptest.ResponseRecorder)
		checkRepoCall      func(t *testing.T, repo *MockBatchRepo)
	}{
		{
			name: "Recorded",
			requestBody: `{"results":[
				{"request_id":1,"visual":"APPROVED","bend":"APPROVED"},
				{"request_id":2,"visual":"REJECTED","rejection_reasons":["3","7"]}
			]}`,
			expectedStatusCode: http.StatusOK,
			checkRepoCall: func(t *testing.T, repo *MockBatchRepo) {
				require.Len(t, repo.lastResults, 2)
				assert.Equal(t, rules.ResultApproved, repo.lastResults[1].Bend)
				assert.Equal(t, []string{"3", "7"}, repo.lastResults[2].RejectionReasons)
			},
		},
		{
			name:               "Invalid values",
			requestBody:        `{"results":[{"request_id":1,"visual":"MAYBE"},{"request_id":2,"visual":"APPROVED","rejection_reasons":["1"]}]}`,
			expectedStatusCode: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp map[string]rules.ValidationErrors
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, "select a valid choice", resp["errors"]["results[0].visual"])
				assert.Equal(t, "reasons apply only to a rejected visual test", resp["errors"]["results[1].rejection_reasons"])
			},
			checkRepoCall: func(t *testing.T, repo *MockBatchRepo) {
				assert.Nil(t, repo.lastResults)
			},
		},
		{
			name:               "Rejected visual with an approved bend",
			requestBody:        `{"results":[{"request_id":1,"visual":"REJECTED","bend":"APPROVED"}]}`,
			expectedStatusCode: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp map[string]rules.ValidationErrors
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, "a rejected visual test leaves the bend test not performed", resp["errors"]["results[0].bend"])
			},
			checkRepoCall: func(t *testing.T, repo *MockBatchRepo) {
				assert.Nil(t, repo.lastResults)
			},
		},
		{
			name: "Result for another test type",
			requestBody: `{"results":[
				{"request_id":1,"visual":"APPROVED","bend":"APPROVED"},
				{"request_id":2,"bend":"APPROVED"}
			]}`,
			err:                models.InvalidResultsError{2: {"bend": "the request is not qualified by a bend test"}},
			expectedStatusCode: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp map[string]rules.ValidationErrors
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, rules.ValidationErrors{"results[1].bend": "the request is not qualified by a bend test"}, resp["errors"])
			},
		},
		{
			name:               "Duplicate request",
			requestBody:        `{"results":[{"request_id":1,"bend":"APPROVED"},{"request_id":1,"bend":"REJECTED"}]}`,
			expectedStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:               "Empty results",
			requestBody:        `{"results":[]}`,
			expectedStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:               "Closed batch",
			requestBody:        `{"results":[{"request_id":1,"bend":"APPROVED"}]}`,
			err:                models.ErrBatchClosed,
			expectedStatusCode: http.StatusConflict,
		},
		{
			name:               "Request outside the batch",
			requestBody:        `{"results":[{"request_id":9,"bend":"APPROVED"}]}`,
			err:                models.ErrRequestNotInBatch,
			expectedStatusCode: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, "qualification request does not belong to the audit batch", decodeError(t, rec))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			mockRepo := &MockBatchRepo{Err: tc.err, Batches: map[uint]*models.AuditBatch{5: batch}}
			handler := NewBatchHandler(mockRepo, &MockPublisher{})
			req := httptest.NewRequest("POST", "/batches/5/results", strings.NewReader(tc.requestBody))
			req.SetPathValue("id", "5")
			rec := httptest.NewRecorder()

			// Act
			handler.HandleRecordResults(rec, req)

			// Assert
			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.checkResponse != nil {
				tc.checkResponse(t, rec)
			}
			if tc.checkRepoCall != nil {
				tc.checkRepoCall(t, mockRepo)
			}
		})
	}
}
