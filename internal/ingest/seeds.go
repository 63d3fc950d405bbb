package ingest

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/AA-Fatima/599-cal/internal/model"
	"github.com/AA-Fatima/599-cal/internal/units"
)

// LoadSynonyms reads a yaml map of term to canonical name.
func LoadSynonyms(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read synonyms")
	}
	var table map[string]string
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, eris.Wrap(err, "ingest: parse synonyms")
	}
	return table, nil
}

type unitRateDoc struct {
	Rates []struct {
		Item  string  `yaml:"item"`
		Unit  string  `yaml:"unit"`
		Grams float64 `yaml:"grams"`
	} `yaml:"rates"`
}

// LoadUnitRates reads a yaml list of conversion rates. An empty item
// means the generic rate for that unit.
func LoadUnitRates(path string) ([]units.Rate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read unit rates")
	}
	var doc unitRateDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrap(err, "ingest: parse unit rates")
	}

	rates := make([]units.Rate, 0, len(doc.Rates))
	for _, r := range doc.Rates {
		item := r.Item
		if item == "" {
			item = units.GenericItem
		}
		if r.Unit == "" || r.Grams <= 0 {
			return nil, eris.Errorf("ingest: invalid rate %q/%q: grams must be positive", r.Item, r.Unit)
		}
		rates = append(rates, units.Rate{Item: item, Unit: r.Unit, Grams: r.Grams})
	}
	return rates, nil
}

// LoadNutritionRecords reads a json array of per-100g records. Records
// without a name or with non-positive calories are rejected: zero-calorie
// reference rows would silently zero every query that hits them.
func LoadNutritionRecords(path string) ([]model.NutritionRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read nutrition records")
	}
	var records []model.NutritionRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, eris.Wrap(err, "ingest: parse nutrition records")
	}

	for i, r := range records {
		if r.Name == "" {
			return nil, eris.Errorf("ingest: record %d: missing name", i)
		}
		if r.Calories <= 0 {
			return nil, eris.Errorf("ingest: record %q: calories must be positive", r.Name)
		}
		if r.ExternalID == 0 {
			return nil, eris.Errorf("ingest: record %q: missing external id", r.Name)
		}
	}
	return records, nil
}
