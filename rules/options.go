package rules

// FieldOptions describes how a form field behaves for the current selection.
type FieldOptions struct {
	Choices  []Choice `json:"choices"`
	Enabled  bool     `json:"enabled"`
	Required bool     `json:"required"`
	ReadOnly bool     `json:"read_only"`
}

// Selection holds the form values that drive the other fields.
type Selection struct {
	DesignCode    string
	Process       string
	BaseMetalSpec string
	Position      string
}

type BaseMetalFields struct {
	Thickness FieldOptions `json:"base_metal_thickness"`
	Diameter  FieldOptions `json:"base_metal_diameter"`
	Positions FieldOptions `json:"position"`
}

type ConsumableFields struct {
	Classes       FieldOptions `json:"consumable_class"`
	Specs         FieldOptions `json:"consumable_spec"`
	Diameters     FieldOptions `json:"consumable_diameter"`
	ShieldingGas  FieldOptions `json:"shielding_gas"`
	TransferModes FieldOptions `json:"transfer_mode"`
}

type FormOptions struct {
	DesignCodes  FieldOptions `json:"design_code"`
	Processes    FieldOptions `json:"process"`
	BaseMetals   FieldOptions `json:"base_metal_spec"`
	TestTypes    FieldOptions `json:"test_type"`
	Progressions FieldOptions `json:"progression"`
	BaseMetalFields
	ConsumableFields
}

func editable(choices []Choice) FieldOptions {
	return FieldOptions{Choices: choices, Enabled: true}
}

func required(choices []Choice) FieldOptions {
	return FieldOptions{Choices: choices, Enabled: true, Required: true}
}

func fixed(choices []Choice) FieldOptions {
	return FieldOptions{Choices: choices, Enabled: true, Required: true, ReadOnly: true}
}

func disabled() FieldOptions {
	return FieldOptions{Choices: []Choice{}}
}

// TestTypeOptions restricts AWS D1.1 qualifications to mechanical bend tests.
func TestTypeOptions(designCode string) FieldOptions {
	if designCode == DesignCodeAWSD11 {
		return required(only(TestTypes, TestTypeBend))
	}
	return required(TestTypes)
}

// BaseMetalOptions enables thickness for plates and diameter for pipes and
// drops the positions that cannot be welded on that product form.
func BaseMetalOptions(spec string) BaseMetalFields {
	switch {
	case IsPlate(spec):
		return BaseMetalFields{
			Thickness: required(BaseMetalThicknesses),
			Diameter:  disabled(),
			Positions: required(except(Positions, "5G", "6G")),
		}
	case IsPipe(spec):
		return BaseMetalFields{
			Thickness: disabled(),
			Diameter:  required(BaseMetalDiameters),
			Positions: required(except(Positions, "3G", "4G")),
		}
	default:
		return BaseMetalFields{
			Thickness: editable(BaseMetalThicknesses),
			Diameter:  editable(BaseMetalDiameters),
			Positions: required(Positions),
		}
	}
}

// ProgressionOptions: 6G is always uphill, vertical positions choose, the
// rest have no progression.
func ProgressionOptions(position string) FieldOptions {
	switch position {
	case "6G":
		return fixed(only(Progressions, ProgressionUphill))
	case "3G", "3F", "5G":
		return required(only(Progressions, ProgressionUphill, ProgressionDownhill))
	default:
		return fixed(only(Progressions, NotApplicable))
	}
}

// ConsumableOptions narrows the filler metal, gas, wire diameter and
// transfer mode fields to what a process accepts.
func ConsumableOptions(process string) ConsumableFields {
	classes := make([]Choice, 0)
	for _, c := range ConsumablesFor(process) {
		classes = append(classes, Choice{Value: c.Classification, Label: c.Classification})
	}

	f := ConsumableFields{
		Classes:       required(classes),
		Specs:         required(SpecsFor(process)),
		Diameters:     required(ConsumableDiameters),
		ShieldingGas:  fixed(only(ShieldingGases, NotApplicable)),
		TransferModes: fixed(only(TransferModes, NotApplicable)),
	}

	switch process {
	case ProcessSMAW:
		f.Diameters = fixed(only(ConsumableDiameters, "3.2"))
	case ProcessGTAW:
		f.Diameters = fixed(only(ConsumableDiameters, "3.2"))
		f.ShieldingGas = fixed(only(ShieldingGases, GasArgon))
	case ProcessGMAW:
		f.Diameters = fixed(only(ConsumableDiameters, "1.2"))
		f.ShieldingGas = fixed(only(ShieldingGases, GasArCO2))
		f.TransferModes = fixed(only(TransferModes, TransferShortCircuit))
	case ProcessFCAW:
		f.Diameters = fixed(only(ConsumableDiameters, "1.2"))
		f.ShieldingGas = fixed(only(ShieldingGases, GasCO2))
		f.TransferModes = required(except(TransferModes, NotApplicable))
	}
	return f
}

// Options computes every dependent field for a selection.
func Options(sel Selection) FormOptions {
	return FormOptions{
		DesignCodes:      required(DesignCodes),
		Processes:        required(Processes),
		BaseMetals:       required(BaseMetals()),
		TestTypes:        TestTypeOptions(sel.DesignCode),
		Progressions:     ProgressionOptions(sel.Position),
		BaseMetalFields:  BaseMetalOptions(sel.BaseMetalSpec),
		ConsumableFields: ConsumableOptions(sel.Process),
	}
}
