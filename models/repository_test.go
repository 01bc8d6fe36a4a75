package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/grupomaster/raqs/rules"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// --- Helpers ---

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func seedCompany(t *testing.T, db *gorm.DB, name string) *Company {
	t.Helper()
	company := &Company{Name: name}
	require.NoError(t, NewCompaniesRepository(db).CreateCompany(company))
	return company
}

func seedWelder(t *testing.T, db *gorm.DB, name, cpf string) *Welder {
	t.Helper()
	welder := &Welder{Name: name, CPF: cpf}
	require.NoError(t, NewWeldersRepository(db).CreateWelder(welder))
	return welder
}

func plateInput(testType string) rules.RequestInput {
	return rules.RequestInput{
		WPS:                "WPS-01",
		DesignCode:         "ASME_VIII",
		Process:            rules.ProcessSMAW,
		ConsumableSpec:     "SFA_5-1",
		ConsumableClass:    "E7018",
		ConsumableDiameter: decimal.RequireFromString("3.2"),
		BaseMetalSpec:      "A-36",
		BaseMetalThickness: decimal.NewNullDecimal(decimal.RequireFromString("12.7")),
		Position:           "1G",
		Progression:        rules.NotApplicable,
		ShieldingGas:       rules.NotApplicable,
		TransferMode:       rules.NotApplicable,
		TestType:           testType,
	}
}

func seedRequest(t *testing.T, db *gorm.DB, company *Company, welder *Welder, testType string) *QualificationRequest {
	t.Helper()
	request := NewQualificationRequest(company.ID, welder.ID, plateInput(testType))
	require.NoError(t, NewRequestsRepository(db).CreateRequest(request))
	return request
}

// --- Tests: companies and welders ---

func TestCompaniesRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewCompaniesRepository(db)

	acme := &Company{Name: "Acme"}
	assert.NoError(t, repo.CreateCompany(acme))
	assert.NotZero(t, acme.ID)

	assert.ErrorIs(t, repo.CreateCompany(&Company{Name: "Acme"}), ErrCompanyAlreadyExists)

	_, err := repo.GetCompanyByID(acme.ID + 100)
	assert.ErrorIs(t, err, ErrCompanyNotFound)

	seedCompany(t, db, MasterCompanyName)
	companies, err := repo.GetAllCompanies()
	assert.NoError(t, err)
	assert.Len(t, companies, 2)
	assert.Equal(t, "Acme", companies[0].Name)
	assert.True(t, companies[1].IsMaster())
}

func TestWeldersRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewWeldersRepository(db)

	joao := seedWelder(t, db, "João Silva", "529.982.247-25")

	t.Run("CPF is unique", func(t *testing.T) {
		err := repo.CreateWelder(&Welder{Name: "Other", CPF: "529.982.247-25"})
		assert.ErrorIs(t, err, ErrCPFAlreadyRegistered)
	})

	t.Run("Lookup by CPF", func(t *testing.T) {
		found, err := repo.GetWelderByCPF("529.982.247-25")
		assert.NoError(t, err)
		assert.Equal(t, joao.ID, found.ID)

		_, err = repo.GetWelderByCPF("111.444.777-35")
		assert.ErrorIs(t, err, ErrWelderNotFound)
	})

	t.Run("Welders of a company", func(t *testing.T) {
		acme := seedCompany(t, db, "Acme")
		seedWelder(t, db, "Maria Souza", "111.444.777-35")
		seedRequest(t, db, acme, joao, rules.TestTypeBend)

		welders, err := repo.GetWeldersByCompany(acme.ID)
		assert.NoError(t, err)
		assert.Len(t, welders, 1)
		assert.Equal(t, joao.ID, welders[0].ID)
	})

	t.Run("Delete refuses welders with requests", func(t *testing.T) {
		assert.ErrorIs(t, repo.DeleteWelder(joao.ID), ErrWelderProtected)

		maria, err := repo.GetWelderByCPF("111.444.777-35")
		require.NoError(t, err)
		assert.NoError(t, repo.DeleteWelder(maria.ID))
		assert.ErrorIs(t, repo.DeleteWelder(maria.ID), ErrWelderNotFound)
	})
}

// --- Tests: qualification requests ---

func TestCreateRequestDerivesFields(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestsRepository(db)
	acme := seedCompany(t, db, "Acme")
	welder := seedWelder(t, db, "João Silva", "529.982.247-25")

	request := seedRequest(t, db, acme, welder, rules.TestTypeBend)

	stored, err := repo.GetRequestByID(request.ID)
	require.NoError(t, err)
	assert.Equal(t, "E-7018", stored.ConsumableClass)
	assert.Equal(t, "4", stored.FNumber)
	assert.Equal(t, "unlimited", stored.QualifiedRange)
	assert.Equal(t, fmt.Sprintf("M00%d-%d", request.ID, time.Now().Year()), stored.CPNumber)
	assert.Equal(t, "João Silva", stored.Welder.Name)
	assert.Equal(t, rules.StatusAwaitingTest, stored.Status())
}

func TestCreateRequestUnknownParents(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestsRepository(db)
	acme := seedCompany(t, db, "Acme")
	welder := seedWelder(t, db, "João Silva", "529.982.247-25")

	err := repo.CreateRequest(NewQualificationRequest(acme.ID+10, welder.ID, plateInput(rules.TestTypeBend)))
	assert.ErrorIs(t, err, ErrCompanyNotFound)

	err = repo.CreateRequest(NewQualificationRequest(acme.ID, welder.ID+10, plateInput(rules.TestTypeBend)))
	assert.ErrorIs(t, err, ErrWelderNotFound)
}

func TestDeleteRequest(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestsRepository(db)
	acme := seedCompany(t, db, "Acme")
	welder := seedWelder(t, db, "João Silva", "529.982.247-25")

	free := seedRequest(t, db, acme, welder, rules.TestTypeBend)
	tested := seedRequest(t, db, acme, welder, rules.TestTypeBend)
	require.NoError(t, db.Create(&VisualTest{RequestID: tested.ID, Result: rules.ResultApproved}).Error)

	assert.ErrorIs(t, repo.DeleteRequest(tested.ID), ErrRequestProtected)
	assert.NoError(t, repo.DeleteRequest(free.ID))
	assert.ErrorIs(t, repo.DeleteRequest(free.ID), ErrRequestNotFound)
}

func TestSaveRequestRefreshesFNumber(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestsRepository(db)
	acme := seedCompany(t, db, "Acme")
	welder := seedWelder(t, db, "João Silva", "529.982.247-25")
	request := seedRequest(t, db, acme, welder, rules.TestTypeBend)

	require.NoError(t, db.Model(request).UpdateColumn("f_number", "").Error)
	missing, err := repo.GetRequestsMissingFNumber()
	require.NoError(t, err)
	require.Len(t, missing, 1)

	assert.NoError(t, repo.SaveRequest(&missing[0]))
	missing, err = repo.GetRequestsMissingFNumber()
	assert.NoError(t, err)
	assert.Empty(t, missing)
}

// --- Tests: audit batches ---

func TestAuditBatchLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuditBatchesRepository(db)
	acme := seedCompany(t, db, "Acme")
	welder := seedWelder(t, db, "João Silva", "529.982.247-25")
	now := time.Now()

	_, _, err := repo.CreateBatch(acme.ID, now)
	assert.ErrorIs(t, err, ErrNoRequestsAvailable)

	_, _, err = repo.CreateBatch(acme.ID+10, now)
	assert.ErrorIs(t, err, ErrCompanyNotFound)

	first := seedRequest(t, db, acme, welder, rules.TestTypeBend)
	seedRequest(t, db, acme, welder, rules.TestTypeUltrasonic)

	batch, attached, err := repo.CreateBatch(acme.ID, now)
	require.NoError(t, err)
	assert.True(t, batch.Open)
	assert.EqualValues(t, 2, attached)

	_, _, err = repo.CreateBatch(acme.ID, now)
	assert.ErrorIs(t, err, ErrBatchAlreadyOpen)

	late := seedRequest(t, db, acme, welder, rules.TestTypeBend)
	added, err := repo.AddRequests(batch.ID, &late.ID)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, added)

	added, err = repo.AddRequests(batch.ID, &first.ID)
	assert.NoError(t, err)
	assert.EqualValues(t, 0, added, "re-adding a member is a no-op")

	loaded, err := repo.GetBatchByID(batch.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Requests, 3)
	assert.False(t, loaded.TestsComplete())

	open, err := repo.GetOpenBatch(acme.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, open.ID)

	closed, err := repo.CloseBatch(batch.ID)
	require.NoError(t, err)
	assert.False(t, closed.Open)

	_, err = repo.AddRequests(batch.ID, nil)
	assert.ErrorIs(t, err, ErrBatchClosed)

	_, err = repo.GetOpenBatch(acme.ID)
	assert.ErrorIs(t, err, ErrBatchNotFound)

	closedBatches, err := repo.GetClosedBatches(acme.ID)
	assert.NoError(t, err)
	assert.Len(t, closedBatches, 1)

	// A new batch only picks up requests made after the previous round.
	seedRequest(t, db, acme, welder, rules.TestTypeBend)
	next, attached, err := repo.CreateBatch(acme.ID, now)
	require.NoError(t, err)
	assert.NotEqual(t, batch.ID, next.ID)
	assert.EqualValues(t, 1, attached)

	_, err = repo.AddRequests(next.ID, &first.ID)
	assert.ErrorIs(t, err, ErrRequestAlreadyBatched)
}

func TestOpenBatchIndex(t *testing.T) {
	db := newTestDB(t)
	acme := seedCompany(t, db, "Acme")

	require.NoError(t, db.Create(&AuditBatch{CompanyID: acme.ID, Date: time.Now(), Open: true}).Error)
	err := db.Create(&AuditBatch{CompanyID: acme.ID, Date: time.Now(), Open: true}).Error
	assert.True(t, IsUniqueViolation(err))

	assert.NoError(t, db.Create(&AuditBatch{CompanyID: acme.ID, Date: time.Now(), Open: false}).Error)
}

func TestRecordResults(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuditBatchesRepository(db)
	requests := NewRequestsRepository(db)
	acme := seedCompany(t, db, "Acme")
	welder := seedWelder(t, db, "João Silva", "529.982.247-25")

	bend := seedRequest(t, db, acme, welder, rules.TestTypeBend)
	ut := seedRequest(t, db, acme, welder, rules.TestTypeUltrasonic)
	batch, _, err := repo.CreateBatch(acme.ID, time.Now())
	require.NoError(t, err)

	outsider := seedRequest(t, db, acme, welder, rules.TestTypeBend)
	err = repo.RecordResults(batch.ID, map[uint]rules.TestResult{
		outsider.ID: {Visual: rules.ResultApproved},
	})
	assert.ErrorIs(t, err, ErrRequestNotInBatch)

	err = repo.RecordResults(batch.ID, map[uint]rules.TestResult{
		bend.ID: {Visual: rules.ResultApproved, Bend: rules.ResultApproved},
		ut.ID:   {Visual: rules.ResultApproved, Bend: rules.ResultApproved},
	})
	var invalid InvalidResultsError
	require.ErrorAs(t, err, &invalid)
	require.Len(t, invalid, 1)
	assert.Contains(t, invalid[ut.ID], "bend")
	stored, err := requests.GetRequestByID(bend.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.VisualTest, "a rejected entry leaves the whole batch untouched")

	err = repo.RecordResults(batch.ID, map[uint]rules.TestResult{
		bend.ID: {Visual: rules.ResultApproved, Bend: rules.ResultApproved},
		ut.ID:   {Visual: rules.ResultRejected, RejectionReasons: []string{"2", "5"}},
	})
	require.NoError(t, err)

	stored, err = requests.GetRequestByID(bend.ID)
	require.NoError(t, err)
	assert.Equal(t, rules.StatusBendApproved, stored.Status())
	assert.True(t, rules.CertificateEligible(stored.StatusInput()))

	stored, err = requests.GetRequestByID(ut.ID)
	require.NoError(t, err)
	assert.Equal(t, rules.StatusVisualRejected, stored.Status())
	assert.Equal(t, []string{"2", "5"}, stored.VisualTest.Reasons())
	require.NotNil(t, stored.UltrasonicTest)
	assert.False(t, stored.UltrasonicTest.Performed)
	assert.False(t, stored.UltrasonicTest.Approved)

	loaded, err := repo.GetBatchByID(batch.ID)
	require.NoError(t, err)
	assert.True(t, loaded.TestsComplete())

	// Resetting the bend test brings the request back to awaiting.
	err = repo.RecordResults(batch.ID, map[uint]rules.TestResult{
		bend.ID: {Bend: rules.ResultNotPerformed},
	})
	require.NoError(t, err)
	stored, err = requests.GetRequestByID(bend.ID)
	require.NoError(t, err)
	assert.Equal(t, rules.StatusAwaitingTest, stored.Status())

	_, err = repo.CloseBatch(batch.ID)
	require.NoError(t, err)
	err = repo.RecordResults(batch.ID, map[uint]rules.TestResult{bend.ID: {Bend: rules.ResultApproved}})
	assert.ErrorIs(t, err, ErrBatchClosed)
}

// --- Tests: certificates ---

func approve(t *testing.T, db *gorm.DB, request *QualificationRequest) {
	t.Helper()
	require.NoError(t, db.Create(&VisualTest{RequestID: request.ID, Result: rules.ResultApproved}).Error)
	require.NoError(t, db.Create(&BendTest{RequestID: request.ID, Performed: true, Approved: true}).Error)
}

func TestIssueCertificate(t *testing.T) {
	db := newTestDB(t)
	repo := NewCertificatesRepository(db)
	acme := seedCompany(t, db, "Acme")
	other := seedCompany(t, db, "Other")
	welder := seedWelder(t, db, "João Silva", "529.982.247-25")
	issuedAt := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	opts := IssueOptions{IssuedAt: issuedAt, ValidityMonths: 6}

	pending := seedRequest(t, db, acme, welder, rules.TestTypeBend)
	_, err := repo.IssueCertificate(pending.ID, opts)
	assert.ErrorIs(t, err, ErrRequestNotApproved)

	_, err = repo.IssueCertificate(pending.ID+100, opts)
	assert.ErrorIs(t, err, ErrRequestNotFound)

	first := seedRequest(t, db, acme, welder, rules.TestTypeBend)
	second := seedRequest(t, db, acme, welder, rules.TestTypeBend)
	foreign := seedRequest(t, db, other, welder, rules.TestTypeBend)
	approve(t, db, first)
	approve(t, db, second)
	approve(t, db, foreign)

	cert, err := repo.IssueCertificate(first.ID, opts)
	require.NoError(t, err)
	assert.Equal(t, "CQS-0001/2026", cert.Number)
	assert.Equal(t, "F1-F4", cert.QualifiedConsumableRange)
	assert.Equal(t, "P1", cert.BaseMetalPNumber)
	assert.Equal(t, "P1-P15F, P34, P41-P49", cert.QualifiedBaseMetalRange)

	var bend BendTest
	require.NoError(t, db.Where("request_id = ?", first.ID).First(&bend).Error)
	require.NotNil(t, cert.ValidUntil)
	assert.True(t, rules.ValidUntil(bend.TestDate, 6).Equal(*cert.ValidUntil))

	cert, err = repo.IssueCertificate(second.ID, opts)
	require.NoError(t, err)
	assert.Equal(t, "CQS-0002/2026", cert.Number)

	cert, err = repo.IssueCertificate(foreign.ID, opts)
	require.NoError(t, err)
	assert.Equal(t, "CQS-0001/2026", cert.Number, "numbering runs per company")

	_, err = repo.IssueCertificate(first.ID, opts)
	assert.ErrorIs(t, err, ErrCertificateExists)

	reissued, err := repo.IssueCertificate(first.ID, IssueOptions{IssuedAt: issuedAt, Force: true})
	require.NoError(t, err)
	assert.Equal(t, "CQS-0003/2026", reissued.Number)

	// Reissuing the latest number of the year moves past it.
	reissued, err = repo.IssueCertificate(first.ID, IssueOptions{IssuedAt: issuedAt, Force: true})
	require.NoError(t, err)
	assert.Equal(t, "CQS-0004/2026", reissued.Number)

	has, err := repo.HasCertificate(first.ID)
	assert.NoError(t, err)
	assert.True(t, has)

	certs, err := repo.GetCertificatesByCompany(acme.ID)
	assert.NoError(t, err)
	assert.Len(t, certs, 2)

	loaded, err := repo.GetCertificateByID(reissued.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", loaded.Company.Name)
	assert.Equal(t, "João Silva", loaded.Request.Welder.Name)

	_, err = repo.GetCertificateByID(reissued.ID + 100)
	assert.ErrorIs(t, err, ErrCertificateNotFound)
}

func TestCertificateBackfillQueries(t *testing.T) {
	db := newTestDB(t)
	repo := NewCertificatesRepository(db)
	acme := seedCompany(t, db, "Acme")
	welder := seedWelder(t, db, "João Silva", "529.982.247-25")
	request := seedRequest(t, db, acme, welder, rules.TestTypeBend)
	approve(t, db, request)

	cert, err := repo.IssueCertificate(request.ID, IssueOptions{IssuedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, db.Model(&Certificate{}).Where("id = ?", cert.ID).
		UpdateColumns(map[string]any{"valid_until": nil, "base_metal_p_number": ""}).Error)

	missingValidity, err := repo.GetCertificatesMissingValidity()
	require.NoError(t, err)
	require.Len(t, missingValidity, 1)
	require.NotNil(t, missingValidity[0].Request)
	assert.NotNil(t, missingValidity[0].Request.BendTest)

	missingFields, err := repo.GetCertificatesMissingFields()
	require.NoError(t, err)
	require.Len(t, missingFields, 1)
	assert.True(t, missingFields[0].MissingTechnicalFields())

	assert.NoError(t, repo.SaveCertificate(&missingFields[0]))
	missingFields, err = repo.GetCertificatesMissingFields()
	assert.NoError(t, err)
	assert.Empty(t, missingFields)
}
