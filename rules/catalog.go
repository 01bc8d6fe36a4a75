package rules

import "slices"

// Choice is a selectable value with its display label.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

const (
	DesignCodeAWSD11 = "AWS_D1-1"

	ProcessSMAW = "SMAW"
	ProcessGTAW = "GTAW"
	ProcessGMAW = "GMAW"
	ProcessFCAW = "FCAW"

	ProgressionUphill   = "UPHILL"
	ProgressionDownhill = "DOWNHILL"
	NotApplicable       = "NA"

	GasArgon = "ARGON"
	GasArCO2 = "AR_CO2"
	GasCO2   = "CO2"

	TransferShortCircuit = "SHORT_CIRCUIT"
	TransferGlobular     = "GLOBULAR"
	TransferSpray        = "SPRAY"

	TestTypeBend       = "BEND"
	TestTypeUltrasonic = "ULTRASONIC"
)

var DesignCodes = []Choice{
	{"ASME_I", "ASME I - 2023"},
	{"ASME_VIII", "ASME VIII Div.1/Div.2 - 2023"},
	{"ASME_B31-1", "ASME B31.1 - 2022"},
	{"ASME_B31-3", "ASME B31.3 - 2022"},
	{"ASME_B31-4", "ASME B31.4 - 2022"},
	{"ASME_B31-8", "ASME B31.8 - 2022"},
	{"API_620", "API 620 - 2021"},
	{"API_650", "API 650 - 2021"},
	{DesignCodeAWSD11, "AWS D1.1 - 2022"},
}

var Processes = []Choice{
	{ProcessSMAW, "SMAW - Soldagem com eletrodo revestido"},
	{ProcessGTAW, "GTAW - Soldagem TIG"},
	{ProcessGMAW, "GMAW - Soldagem MIG"},
	{ProcessFCAW, "FCAW - Soldagem com arame tubular"},
}

// Plates and pipes are told apart by spec; the form fields depend on it.
var (
	PlateBaseMetals = []Choice{
		{"A-36", "A-36 - Chapa AC"},
		{"SB536", "SB536 - Chapa Incoloy"},
		{"A-309", "A-309 - Chapa"},
		{"A-312", "A-312 - Chapa"},
	}
	PipeBaseMetals = []Choice{
		{"A-106", "A-106 - Tubo AC"},
		{"16MO3", "16MO3 - Tubo AC"},
	}
)

var BaseMetalThicknesses = []Choice{
	{"12.7", "12,7 mm"},
	{"8.7", "8,7 mm"},
}

var BaseMetalDiameters = []Choice{
	{"8", `8"`},
	{"2", `2"`},
}

var ConsumableDiameters = []Choice{
	{"1.2", "1,2 mm"},
	{"3.2", "3,2 mm"},
}

var Positions = []Choice{
	{"1G", "1G - Plana"},
	{"2G", "2G - Horizontal"},
	{"3G", "3G - Vertical"},
	{"4G", "4G - Sobre-Cabeça"},
	{"5G", "5G - Vertical"},
	{"6G", "6G - Inclinado 45º"},
	{"1F", "1F - Plana"},
	{"2F", "2F - Horizontal"},
	{"3F", "3F - Vertical"},
	{"4F", "4F - Sobre-Cabeça"},
}

var Progressions = []Choice{
	{ProgressionUphill, "Ascendente"},
	{ProgressionDownhill, "Descendente"},
	{NotApplicable, "N/A"},
}

var ShieldingGases = []Choice{
	{GasArgon, "Argônio"},
	{GasArCO2, "Ar+CO²"},
	{GasCO2, "CO²"},
	{NotApplicable, "N/A"},
}

var TransferModes = []Choice{
	{NotApplicable, "N/A"},
	{TransferShortCircuit, "Curto Circuito"},
	{TransferGlobular, "Globular"},
	{TransferSpray, "Spray"},
}

var TestTypes = []Choice{
	{TestTypeBend, "Dobramento Mecânico"},
	{TestTypeUltrasonic, "Ultrassom"},
}

// VisualChecklist lists the items a visual inspector can cite when rejecting
// a coupon.
var VisualChecklist = []Choice{
	{"1", "Segue as regras básicas, segurança e utiliza corretamente os EPI's básicos e específicos"},
	{"2", "Identifica corretamente os equipamentos e acessórios de soldagem apresentados"},
	{"3", "Utiliza corretamente os equipamentos e acessórios de soldagem"},
	{"4", "Segue corretamente as variáveis de soldagem determinadas na EPS"},
	{"5", "Mantém um padrão uniforme e linear das camadas de solda"},
	{"6", "Deposita o material em passes uniformes, mantendo um padrão linear"},
	{"7", "Face (mordedura, poros, sobreposição, trinca, deposição insuficiente, reforço excessivo, abertura de arco, respingo)"},
	{"8", "Raiz (mordedura da raiz, falta de penetração, falta de fusão, perfuração, concavidade, penetração excessiva)"},
}

// BaseMetals returns plates followed by pipes.
func BaseMetals() []Choice {
	return slices.Concat(PlateBaseMetals, PipeBaseMetals)
}

func IsPlate(spec string) bool { return hasChoice(PlateBaseMetals, spec) }

func IsPipe(spec string) bool { return hasChoice(PipeBaseMetals, spec) }

// Label returns the display label of value within choices, or value itself.
func Label(choices []Choice, value string) string {
	for _, c := range choices {
		if c.Value == value {
			return c.Label
		}
	}
	return value
}

func hasChoice(choices []Choice, value string) bool {
	return slices.ContainsFunc(choices, func(c Choice) bool { return c.Value == value })
}

func only(choices []Choice, values ...string) []Choice {
	out := make([]Choice, 0, len(values))
	for _, c := range choices {
		if slices.Contains(values, c.Value) {
			out = append(out, c)
		}
	}
	return out
}

func except(choices []Choice, values ...string) []Choice {
	out := make([]Choice, 0, len(choices))
	for _, c := range choices {
		if !slices.Contains(values, c.Value) {
			out = append(out, c)
		}
	}
	return out
}
