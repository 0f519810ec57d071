// Package selector describes where each dashboard statistic lives in the
// rendered page. The locators are data, not code, so a layout change on the
// dashboard can be fixed by shipping a new YAML file.
package selector

import (
	"fmt"
	"os"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/xpath"
	"github.com/use-agent/transwatch/models"
	"gopkg.in/yaml.v3"
)

// Strategy is the lookup language of a locator expression.
type Strategy string

const (
	StrategyXPath Strategy = "xpath"
	StrategyCSS   Strategy = "css"
)

// CurrentVersion is the selector file format this build reads. Files with
// any other version are rejected rather than half-understood.
const CurrentVersion = 1

// Locator tells the scraper how to find one field.
type Locator struct {
	Field    models.Field `yaml:"field"`
	Strategy Strategy     `yaml:"strategy"`
	Expr     string       `yaml:"expr"`

	// Wait makes the lookup poll until the element appears or the wait
	// budget runs out. Without it the lookup is a single attempt.
	Wait bool `yaml:"wait"`
}

// Set is an ordered list of locators, one per field.
type Set struct {
	Version  int       `yaml:"version"`
	Locators []Locator `yaml:"locators"`
}

// languageRow is the Turkish row of the project language list.
const languageRow = "/html/body/div[4]/div[1]/div/div[3]/div[2]/div[1]/div[1]/div[2]/div/div[44]"

// Default returns the built-in locator set: absolute positions into the
// Crowdin project page, with a bounded wait on the first field only.
func Default() Set {
	return Set{
		Version: CurrentVersion,
		Locators: []Locator{
			{Field: models.FieldTranslatedPercent, Strategy: StrategyXPath, Expr: languageRow + "/div[3]/span[1]", Wait: true},
			{Field: models.FieldApprovedPercent, Strategy: StrategyXPath, Expr: languageRow + "/div[3]/span[3]"},
			{Field: models.FieldWordsToTranslate, Strategy: StrategyXPath, Expr: languageRow + "/div[4]"},
		},
	}
}

// Load reads and validates a YAML locator set from path.
func Load(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, models.NewCheckError(models.ErrCodeSelectorInvalid, "failed to read selector file", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML locator set. Locators without a
// strategy default to xpath.
func Parse(data []byte) (Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Set{}, models.NewCheckError(models.ErrCodeSelectorInvalid, "failed to parse selector file", err)
	}
	for i := range s.Locators {
		if s.Locators[i].Strategy == "" {
			s.Locators[i].Strategy = StrategyXPath
		}
	}
	if err := s.Validate(); err != nil {
		return Set{}, err
	}
	return s, nil
}

// LoadOrDefault returns the set at path, or Default when path is empty.
func LoadOrDefault(path string) (Set, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks the format version, that every known field has exactly
// one locator and that every expression compiles.
func (s Set) Validate() error {
	if s.Version != CurrentVersion {
		return invalid(fmt.Sprintf("unsupported selector format version %d, want %d", s.Version, CurrentVersion), nil)
	}
	seen := make(map[models.Field]bool, len(s.Locators))
	for i, loc := range s.Locators {
		if !loc.Field.Valid() {
			return invalid(fmt.Sprintf("locator %d: unknown field %q", i, loc.Field), nil)
		}
		if seen[loc.Field] {
			return invalid(fmt.Sprintf("locator %d: duplicate field %q", i, loc.Field), nil)
		}
		seen[loc.Field] = true

		if loc.Expr == "" {
			return invalid(fmt.Sprintf("locator %d (%s): empty expression", i, loc.Field), nil)
		}
		if err := loc.compile(); err != nil {
			return invalid(fmt.Sprintf("locator %d (%s): bad %s expression", i, loc.Field, loc.Strategy), err)
		}
	}
	for _, f := range models.Fields {
		if !seen[f] {
			return invalid(fmt.Sprintf("no locator for field %q", f), nil)
		}
	}
	return nil
}

// First returns the first locator, which gates page readiness.
func (s Set) First() (Locator, bool) {
	if len(s.Locators) == 0 {
		return Locator{}, false
	}
	return s.Locators[0], true
}

func (l Locator) compile() error {
	switch l.Strategy {
	case StrategyXPath:
		_, err := xpath.Compile(l.Expr)
		return err
	case StrategyCSS:
		_, err := cascadia.Parse(l.Expr)
		return err
	default:
		return fmt.Errorf("unknown strategy %q", l.Strategy)
	}
}

func invalid(msg string, err error) error {
	return models.NewCheckError(models.ErrCodeSelectorInvalid, msg, err)
}
