package maintenance

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/grupomaster/raqs/models"
	"github.com/grupomaster/raqs/rules"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type SeedStore interface {
	CreateCompany(company *models.Company) error
	CreateWelder(welder *models.Welder) error
	CreateRequest(request *models.QualificationRequest) error
}

type SeedOptions struct {
	Companies int
	Welders   int
	// RequestsPerWelder is the upper bound; each welder gets at least one.
	RequestsPerWelder int
}

type SeedReport struct {
	Companies int
	Welders   int
	Requests  int
}

// Seed fills a development database with the master company, fake client
// companies, welders with valid CPFs and valid qualification requests.
func Seed(store SeedStore, faker *gofakeit.Faker, opts SeedOptions, logger logrus.FieldLogger) (SeedReport, error) {
	var report SeedReport

	master := &models.Company{Name: models.MasterCompanyName}
	if err := store.CreateCompany(master); err != nil && !errors.Is(err, models.ErrCompanyAlreadyExists) {
		return report, fmt.Errorf("create master company: %w", err)
	}

	companies := make([]*models.Company, 0, opts.Companies)
	for len(companies) < opts.Companies {
		company := &models.Company{Name: faker.Company()}
		if err := store.CreateCompany(company); err != nil {
			if errors.Is(err, models.ErrCompanyAlreadyExists) {
				continue
			}
			return report, fmt.Errorf("create company: %w", err)
		}
		companies = append(companies, company)
	}
	report.Companies = len(companies)
	if len(companies) == 0 {
		return report, nil
	}

	perWelder := max(opts.RequestsPerWelder, 1)
	for report.Welders < opts.Welders {
		cpf, err := rules.CompleteCPF(faker.Numerify("#########"))
		if err != nil {
			return report, err
		}
		welder := &models.Welder{Name: faker.Name(), CPF: cpf}
		if err := store.CreateWelder(welder); err != nil {
			if errors.Is(err, models.ErrCPFAlreadyRegistered) {
				continue
			}
			return report, fmt.Errorf("create welder: %w", err)
		}
		report.Welders++

		for range faker.Number(1, perWelder) {
			company := companies[faker.Number(0, len(companies)-1)]
			in, ok := RandomRequest(faker)
			if !ok {
				welderLogger(logger, welder).Warn("no valid request generated")
				continue
			}
			request := models.NewQualificationRequest(company.ID, welder.ID, in)
			if err := store.CreateRequest(request); err != nil {
				return report, fmt.Errorf("create request: %w", err)
			}
			report.Requests++
		}
	}
	return report, nil
}

func welderLogger(logger logrus.FieldLogger, welder *models.Welder) logrus.FieldLogger {
	return logger.WithFields(logrus.Fields{"welder_id": welder.ID, "cpf": welder.CPF})
}

func pick(faker *gofakeit.Faker, choices []rules.Choice) string {
	return choices[faker.Number(0, len(choices)-1)].Value
}

// RandomRequest builds a procedure that passes validation by choosing each
// field among the options enabled by the fields before it.
func RandomRequest(faker *gofakeit.Faker) (rules.RequestInput, bool) {
	for range 10 {
		in := randomInput(faker)
		if rules.Validate(in) == nil {
			return in, true
		}
	}
	return rules.RequestInput{}, false
}

func randomInput(faker *gofakeit.Faker) rules.RequestInput {
	process := pick(faker, rules.Processes)
	consumables := rules.ConsumablesFor(process)
	consumable := consumables[faker.Number(0, len(consumables)-1)]
	designCode := pick(faker, rules.DesignCodes)
	baseMetal := pick(faker, rules.BaseMetals())

	in := rules.RequestInput{
		WPS:             faker.Numerify("WPS-###"),
		Stamp:           strings.ToUpper(faker.LetterN(3)),
		DesignCode:      designCode,
		Process:         process,
		ConsumableSpec:  consumable.Spec,
		ConsumableClass: consumable.Classification,
		BaseMetalSpec:   baseMetal,
		BackingStrip:    faker.Bool(),
		Purge:           faker.Bool(),
		TestType:        pick(faker, rules.TestTypeOptions(designCode).Choices),
	}

	fields := rules.BaseMetalOptions(baseMetal)
	switch {
	case fields.Thickness.Required:
		in.BaseMetalThickness = decimal.NewNullDecimal(decimal.RequireFromString(pick(faker, fields.Thickness.Choices)))
	case fields.Diameter.Required:
		diameter, _ := strconv.Atoi(pick(faker, fields.Diameter.Choices))
		in.BaseMetalDiameter = &diameter
	}
	in.Position = pick(faker, fields.Positions.Choices)

	opts := rules.Options(rules.Selection{
		DesignCode:    in.DesignCode,
		Process:       in.Process,
		BaseMetalSpec: in.BaseMetalSpec,
		Position:      in.Position,
	})
	if !opts.Progressions.ReadOnly {
		in.Progression = pick(faker, opts.Progressions.Choices)
	}
	if !opts.TransferModes.ReadOnly {
		in.TransferMode = pick(faker, opts.TransferModes.Choices)
	}
	rules.Normalize(&in)
	return in
}
