package rules

import (
	"errors"
	"maps"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	msgRequired      = "this field is required"
	msgInvalidChoice = "select a valid choice"
	msgDisabled      = "this field does not apply to the selected base metal"
)

// ValidationErrors maps a field name to the reason it was rejected.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := slices.Sorted(maps.Keys(v))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + v[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) add(field, msg string) {
	if _, ok := v[field]; !ok {
		v[field] = msg
	}
}

func (v ValidationErrors) err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// AsValidationErrors unwraps err into field errors when it carries them.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	ok := errors.As(err, &v)
	return v, ok
}

// RequestInput carries the welding procedure of a qualification request as
// submitted by a client company.
type RequestInput struct {
	WPS                string
	Stamp              string
	DesignCode         string
	Process            string
	ConsumableSpec     string
	ConsumableClass    string
	ConsumableDiameter decimal.Decimal
	BaseMetalSpec      string
	BaseMetalThickness decimal.NullDecimal
	BaseMetalDiameter  *int
	Position           string
	Progression        string
	BackingStrip       bool
	ShieldingGas       string
	Purge              bool
	TransferMode       string
	TestType           string
}

func (in RequestInput) selection() Selection {
	return Selection{
		DesignCode:    in.DesignCode,
		Process:       in.Process,
		BaseMetalSpec: in.BaseMetalSpec,
		Position:      in.Position,
	}
}

// Normalize fills fields that have a single legal value and clears the ones
// the selected base metal disables.
func Normalize(in *RequestInput) {
	in.WPS = strings.TrimSpace(in.WPS)
	in.Stamp = strings.TrimSpace(in.Stamp)
	in.ConsumableClass = CanonicalConsumable(in.ConsumableClass)

	opts := Options(in.selection())

	fill := func(field *string, o FieldOptions) {
		if *field == "" && o.ReadOnly && len(o.Choices) == 1 {
			*field = o.Choices[0].Value
		}
	}
	fill(&in.Progression, opts.Progressions)
	fill(&in.ShieldingGas, opts.ShieldingGas)
	fill(&in.TransferMode, opts.TransferModes)

	if in.ConsumableDiameter.IsZero() && opts.Diameters.ReadOnly && len(opts.Diameters.Choices) == 1 {
		in.ConsumableDiameter = decimal.RequireFromString(opts.Diameters.Choices[0].Value)
	}

	switch {
	case IsPlate(in.BaseMetalSpec):
		in.BaseMetalDiameter = nil
	case IsPipe(in.BaseMetalSpec):
		in.BaseMetalThickness = decimal.NullDecimal{}
	}
}

// Validate checks every categorical field against the options computed from
// the rest of the request.
func Validate(in RequestInput) error {
	errs := ValidationErrors{}
	opts := Options(in.selection())

	if in.WPS == "" {
		errs.add("wps", msgRequired)
	} else if utf8.RuneCountInString(in.WPS) > 10 {
		errs.add("wps", "ensure this value has at most 10 characters")
	}
	if utf8.RuneCountInString(in.Stamp) > 10 {
		errs.add("stamp", "ensure this value has at most 10 characters")
	}

	choice := func(field, value string, o FieldOptions) {
		switch {
		case value == "" && o.Required:
			errs.add(field, msgRequired)
		case value != "" && !hasChoice(o.Choices, value):
			errs.add(field, msgInvalidChoice)
		}
	}
	choice("design_code", in.DesignCode, opts.DesignCodes)
	choice("process", in.Process, opts.Processes)
	choice("base_metal_spec", in.BaseMetalSpec, opts.BaseMetals)
	choice("position", in.Position, opts.Positions)
	choice("progression", in.Progression, opts.Progressions)
	choice("shielding_gas", in.ShieldingGas, opts.ShieldingGas)
	choice("transfer_mode", in.TransferMode, opts.TransferModes)
	choice("test_type", in.TestType, opts.TestTypes)
	choice("consumable_spec", in.ConsumableSpec, opts.Specs)
	choice("consumable_class", in.ConsumableClass, opts.Classes)

	if c, ok := LookupConsumable(in.ConsumableClass); ok && in.ConsumableSpec != "" && c.Spec != in.ConsumableSpec {
		errs.add("consumable_class", "classification does not belong to "+SpecLabel(in.ConsumableSpec))
	}

	if in.ConsumableDiameter.IsZero() {
		errs.add("consumable_diameter", msgRequired)
	} else {
		choice("consumable_diameter", decimalChoice(in.ConsumableDiameter, opts.Diameters.Choices), opts.Diameters)
	}

	switch {
	case !in.BaseMetalThickness.Valid && opts.Thickness.Required:
		errs.add("base_metal_thickness", msgRequired)
	case in.BaseMetalThickness.Valid && !opts.Thickness.Enabled:
		errs.add("base_metal_thickness", msgDisabled)
	case in.BaseMetalThickness.Valid:
		choice("base_metal_thickness", decimalChoice(in.BaseMetalThickness.Decimal, opts.Thickness.Choices), opts.Thickness)
	}

	switch {
	case in.BaseMetalDiameter == nil && opts.Diameter.Required:
		errs.add("base_metal_diameter", msgRequired)
	case in.BaseMetalDiameter != nil && !opts.Diameter.Enabled:
		errs.add("base_metal_diameter", msgDisabled)
	case in.BaseMetalDiameter != nil:
		choice("base_metal_diameter", strconv.Itoa(*in.BaseMetalDiameter), opts.Diameter)
	}

	return errs.err()
}

// decimalChoice returns the choice value numerically equal to d, so that
// 12.70 matches "12.7". Unmatched values come back as d's own string.
func decimalChoice(d decimal.Decimal, choices []Choice) string {
	for _, c := range choices {
		if v, err := decimal.NewFromString(c.Value); err == nil && v.Equal(d) {
			return c.Value
		}
	}
	return d.String()
}

const (
	ResultApproved     = "APPROVED"
	ResultRejected     = "REJECTED"
	ResultNotPerformed = "NOT_PERFORMED"
)

// TestResult is an inspector's entry for one request of an audit batch.
type TestResult struct {
	Visual           string
	RejectionReasons []string
	Bend             string
	Ultrasonic       string
}

// ValidateResult checks an inspector's entry. Empty values leave the
// corresponding record untouched.
func ValidateResult(r TestResult) error {
	errs := ValidationErrors{}
	if r.Visual != "" && r.Visual != ResultApproved && r.Visual != ResultRejected {
		errs.add("visual", msgInvalidChoice)
	}
	for _, reason := range r.RejectionReasons {
		if !hasChoice(VisualChecklist, reason) {
			errs.add("rejection_reasons", msgInvalidChoice)
		}
	}
	if len(r.RejectionReasons) > 0 && r.Visual != ResultRejected {
		errs.add("rejection_reasons", "reasons apply only to a rejected visual test")
	}
	for field, v := range map[string]string{"bend": r.Bend, "ultrasonic": r.Ultrasonic} {
		switch {
		case v == "" || v == ResultNotPerformed:
		case v != ResultApproved && v != ResultRejected:
			errs.add(field, msgInvalidChoice)
		case r.Visual == ResultRejected:
			errs.add(field, "a rejected visual test leaves the "+field+" test not performed")
		}
	}
	return errs.err()
}

// ValidateResultFor also rejects results of a test the request does not
// call for.
func ValidateResultFor(testType string, r TestResult) error {
	errs := ValidationErrors{}
	if err := ValidateResult(r); err != nil {
		errs, _ = AsValidationErrors(err)
	}
	if r.Bend != "" && testType != TestTypeBend {
		errs.add("bend", "the request is not qualified by a bend test")
	}
	if r.Ultrasonic != "" && testType != TestTypeUltrasonic {
		errs.add("ultrasonic", "the request is not qualified by an ultrasonic test")
	}
	return errs.err()
}
