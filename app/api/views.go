package api

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/grupomaster/raqs/models"
	"github.com/grupomaster/raqs/rules"
	"github.com/shopspring/decimal"
)

type Company struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Master bool   `json:"master"`
}

func NewCompany(c models.Company) Company {
	return Company{ID: c.ID, Name: c.Name, Master: c.IsMaster()}
}

type Welder struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	CPF  string `json:"cpf"`
}

func NewWelder(w models.Welder) Welder {
	return Welder{ID: w.ID, Name: w.Name, CPF: w.CPF}
}

func NewWelders(welders []models.Welder) []Welder {
	out := make([]Welder, len(welders))
	for i, w := range welders {
		out[i] = NewWelder(w)
	}
	return out
}

type VisualTest struct {
	Result           string   `json:"result"`
	RejectionReasons []string `json:"rejection_reasons"`
}

type TestOutcome struct {
	TestDate  time.Time `json:"test_date"`
	Performed bool      `json:"performed"`
	Approved  bool      `json:"approved"`
}

type Tests struct {
	Visual     *VisualTest  `json:"visual"`
	Bend       *TestOutcome `json:"bend"`
	Ultrasonic *TestOutcome `json:"ultrasonic"`
}

type Request struct {
	ID                 uint                `json:"id"`
	CompanyID          uint                `json:"company_id"`
	WelderID           uint                `json:"welder_id"`
	WelderName         string              `json:"welder_name,omitempty"`
	CPNumber           string              `json:"cp_number"`
	Stamp              string              `json:"stamp"`
	Date               time.Time           `json:"date"`
	WPS                string              `json:"wps"`
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
	TestTypeLabel      string              `json:"test_type_label"`
	FNumber            string              `json:"f_number"`
	QualifiedRange     string              `json:"qualified_range"`
	AuditBatchID       *uint               `json:"audit_batch_id"`
	Status             rules.Status        `json:"status"`
	StatusLabel        string              `json:"status_label"`
	Tests              Tests               `json:"tests"`
}

func NewRequest(q models.QualificationRequest) Request {
	status := q.Status()
	r := Request{
		ID:                 q.ID,
		CompanyID:          q.CompanyID,
		WelderID:           q.WelderID,
		WelderName:         q.Welder.Name,
		CPNumber:           q.CPNumber,
		Stamp:              q.Stamp,
		Date:               q.Date,
		WPS:                q.WPS,
		DesignCode:         q.DesignCode,
		Process:            q.Process,
		ConsumableSpec:     q.ConsumableSpec,
		ConsumableClass:    q.ConsumableClass,
		ConsumableDiameter: q.ConsumableDiameter,
		BaseMetalSpec:      q.BaseMetalSpec,
		BaseMetalThickness: q.BaseMetalThickness,
		BaseMetalDiameter:  q.BaseMetalDiameter,
		Position:           q.Position,
		Progression:        q.Progression,
		BackingStrip:       q.BackingStrip,
		ShieldingGas:       q.ShieldingGas,
		Purge:              q.Purge,
		TransferMode:       q.TransferMode,
		TestType:           q.TestType,
		TestTypeLabel:      rules.Label(rules.TestTypes, q.TestType),
		FNumber:            q.FNumber,
		QualifiedRange:     q.QualifiedRange,
		AuditBatchID:       q.AuditBatchID,
		Status:             status,
		StatusLabel:        status.Label(),
	}
	if q.VisualTest != nil {
		r.Tests.Visual = &VisualTest{Result: q.VisualTest.Result, RejectionReasons: q.VisualTest.Reasons()}
	}
	if q.BendTest != nil {
		r.Tests.Bend = &TestOutcome{TestDate: q.BendTest.TestDate, Performed: q.BendTest.Performed, Approved: q.BendTest.Approved}
	}
	if q.UltrasonicTest != nil {
		r.Tests.Ultrasonic = &TestOutcome{TestDate: q.UltrasonicTest.TestDate, Performed: q.UltrasonicTest.Performed, Approved: q.UltrasonicTest.Approved}
	}
	return r
}

// RequestGroups splits requests into those awaiting a result and the rest.
type RequestGroups struct {
	Open     []Request `json:"open"`
	Finished []Request `json:"finished"`
}

func GroupByStatus(requests []models.QualificationRequest) RequestGroups {
	groups := RequestGroups{Open: []Request{}, Finished: []Request{}}
	for _, q := range requests {
		r := NewRequest(q)
		if r.Status.Open() {
			groups.Open = append(groups.Open, r)
		} else {
			groups.Finished = append(groups.Finished, r)
		}
	}
	return groups
}

type WelderRequests struct {
	WelderID uint      `json:"welder_id"`
	Welder   string    `json:"welder"`
	CPF      string    `json:"cpf"`
	Requests []Request `json:"requests"`
}

// GroupByWelder groups requests per welder, sorted by name. Welder must be
// preloaded.
func GroupByWelder(requests []models.QualificationRequest) []WelderRequests {
	index := map[uint]int{}
	groups := []WelderRequests{}
	for _, q := range requests {
		i, ok := index[q.WelderID]
		if !ok {
			i = len(groups)
			index[q.WelderID] = i
			groups = append(groups, WelderRequests{WelderID: q.WelderID, Welder: q.Welder.Name, CPF: q.Welder.CPF})
		}
		groups[i].Requests = append(groups[i].Requests, NewRequest(q))
	}
	slices.SortFunc(groups, func(a, b WelderRequests) int {
		if c := strings.Compare(a.Welder, b.Welder); c != 0 {
			return c
		}
		return cmp.Compare(a.WelderID, b.WelderID)
	})
	return groups
}

type Batch struct {
	ID        uint      `json:"id"`
	CompanyID uint      `json:"company_id"`
	Date      time.Time `json:"date"`
	Open      bool      `json:"open"`
}

func NewBatch(b models.AuditBatch) Batch {
	return Batch{ID: b.ID, CompanyID: b.CompanyID, Date: b.Date, Open: b.Open}
}

func NewBatches(batches []models.AuditBatch) []Batch {
	out := make([]Batch, len(batches))
	for i, b := range batches {
		out[i] = NewBatch(b)
	}
	return out
}

type Certificate struct {
	ID                       uint       `json:"id"`
	Number                   string     `json:"number"`
	RequestID                uint       `json:"request_id"`
	CompanyID                uint       `json:"company_id"`
	WelderName               string     `json:"welder_name,omitempty"`
	WelderCPF                string     `json:"welder_cpf,omitempty"`
	CPNumber                 string     `json:"cp_number,omitempty"`
	IssueDate                time.Time  `json:"issue_date"`
	ValidUntil               *time.Time `json:"valid_until"`
	QualifiedConsumableRange string     `json:"qualified_consumable_range"`
	QualifiedBaseMetalRange  string     `json:"qualified_base_metal_range"`
	BaseMetalPNumber         string     `json:"base_metal_p_number"`
}

func NewCertificate(c models.Certificate) Certificate {
	out := Certificate{
		ID:                       c.ID,
		Number:                   c.Number,
		RequestID:                c.RequestID,
		CompanyID:                c.CompanyID,
		IssueDate:                c.IssueDate,
		ValidUntil:               c.ValidUntil,
		QualifiedConsumableRange: c.QualifiedConsumableRange,
		QualifiedBaseMetalRange:  c.QualifiedBaseMetalRange,
		BaseMetalPNumber:         c.BaseMetalPNumber,
	}
	if c.Request != nil {
		out.WelderName = c.Request.Welder.Name
		out.WelderCPF = c.Request.Welder.CPF
		out.CPNumber = c.Request.CPNumber
	}
	return out
}

func NewCertificates(certs []models.Certificate) []Certificate {
	out := make([]Certificate, len(certs))
	for i, c := range certs {
		out[i] = NewCertificate(c)
	}
	return out
}
