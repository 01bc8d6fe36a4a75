package rules

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed consumables.yaml
var consumablesYAML []byte

// Consumable is one filler metal classification accepted by the company.
type Consumable struct {
	Classification string   `yaml:"classification"`
	Process        string   `yaml:"process"`
	Spec           string   `yaml:"spec"`
	FNumber        string   `yaml:"f_number"`
	Aliases        []string `yaml:"aliases"`
}

type consumableTable struct {
	Specs       map[string][]string `yaml:"specs"`
	Consumables []Consumable        `yaml:"consumables"`

	byName map[string]Consumable
}

var consumables = mustParseConsumables(consumablesYAML)

func parseConsumables(data []byte) (*consumableTable, error) {
	var t consumableTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse consumable table: %w", err)
	}

	t.byName = make(map[string]Consumable)
	for _, c := range t.Consumables {
		if c.Classification == "" || c.FNumber == "" {
			return nil, fmt.Errorf("consumable %q: classification and f_number are required", c.Classification)
		}
		for _, name := range append([]string{c.Classification}, c.Aliases...) {
			key := consumableKey(name)
			if _, dup := t.byName[key]; dup {
				return nil, fmt.Errorf("consumable %q declared twice", name)
			}
			t.byName[key] = c
		}
	}
	return &t, nil
}

func mustParseConsumables(data []byte) *consumableTable {
	t, err := parseConsumables(data)
	if err != nil {
		panic(err)
	}
	return t
}

func consumableKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// LookupConsumable finds a consumable by classification or by one of its
// legacy spellings.
func LookupConsumable(name string) (Consumable, bool) {
	c, ok := consumables.byName[consumableKey(name)]
	return c, ok
}

// CanonicalConsumable rewrites legacy spellings (E7018, ER-70S-6, ...) to the
// classification used by the rule table. Unknown names are returned trimmed.
func CanonicalConsumable(name string) string {
	if c, ok := LookupConsumable(name); ok {
		return c.Classification
	}
	return strings.TrimSpace(name)
}

// FNumber derives the ASME F-number of a consumable classification.
func FNumber(classification string) (string, bool) {
	c, ok := LookupConsumable(classification)
	if !ok {
		return "", false
	}
	return c.FNumber, true
}

// ConsumablesFor lists the classifications accepted for a process.
func ConsumablesFor(process string) []Consumable {
	var out []Consumable
	for _, c := range consumables.Consumables {
		if c.Process == process {
			out = append(out, c)
		}
	}
	return out
}

// SpecsFor lists the SFA specifications accepted for a process.
func SpecsFor(process string) []Choice {
	specs := consumables.Specs[process]
	out := make([]Choice, 0, len(specs))
	for _, s := range specs {
		out = append(out, Choice{Value: s, Label: SpecLabel(s)})
	}
	return out
}

// SpecLabel renders "SFA_5-18" as "SFA 5.18".
func SpecLabel(spec string) string {
	return strings.NewReplacer("_", " ", "-", ".").Replace(spec)
}

// LegacyConsumables maps every alias in the table to its classification.
func LegacyConsumables() map[string]string {
	out := make(map[string]string)
	for _, c := range consumables.Consumables {
		for _, a := range c.Aliases {
			out[a] = c.Classification
		}
	}
	return out
}
