package predictor

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed weights.yaml
var defaultWeightsYAML []byte

// Weights is the scoring configuration of a Predictor. A Predictor copies
// the tables it is given, so callers may not mutate them afterwards.
type Weights struct {
	Categorical  map[string]map[string]int `yaml:"categorical"`
	Flat         map[string]int            `yaml:"flat"`
	CompanyBonus string                    `yaml:"company_bonus"`
	Features     []FeatureRef              `yaml:"features"`
}

// FeatureRef names a factor for the feature importance listing.
type FeatureRef struct {
	Label  string `yaml:"label"`
	Factor string `yaml:"factor"`
}

var loadDefaults = sync.OnceValues(func() (Weights, error) {
	return LoadWeights(bytes.NewReader(defaultWeightsYAML))
})

// DefaultWeights returns a fresh copy of the built-in weight tables.
func DefaultWeights() Weights {
	w, err := loadDefaults()
	if err != nil {
		panic(fmt.Sprintf("predictor: embedded weights are invalid: %v", err))
	}
	return w.clone()
}

// LoadWeights decodes and validates a YAML weight document.
func LoadWeights(r io.Reader) (Weights, error) {
	var w Weights
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		return Weights{}, fmt.Errorf("decode weights: %w", err)
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

func (w Weights) Validate() error {
	if len(w.Categorical) == 0 && len(w.Flat) == 0 {
		return fmt.Errorf("weights: no factors defined")
	}
	for name, options := range w.Categorical {
		if len(options) == 0 {
			return fmt.Errorf("weights: categorical factor %q has no options", name)
		}
		if _, dup := w.Flat[name]; dup {
			return fmt.Errorf("weights: factor %q is both categorical and flat", name)
		}
	}
	if w.CompanyBonus != "" {
		if _, ok := w.Flat[w.CompanyBonus]; !ok {
			return fmt.Errorf("weights: company bonus factor %q is not a flat factor", w.CompanyBonus)
		}
	}
	for _, f := range w.Features {
		if _, ok := w.Categorical[f.Factor]; ok {
			continue
		}
		if _, ok := w.Flat[f.Factor]; !ok {
			return fmt.Errorf("weights: feature %q references unknown factor %q", f.Label, f.Factor)
		}
	}
	return nil
}

func (w Weights) clone() Weights {
	out := Weights{
		Categorical:  make(map[string]map[string]int, len(w.Categorical)),
		Flat:         make(map[string]int, len(w.Flat)),
		CompanyBonus: w.CompanyBonus,
		Features:     append([]FeatureRef(nil), w.Features...),
	}
	for name, options := range w.Categorical {
		cp := make(map[string]int, len(options))
		for k, v := range options {
			cp[k] = v
		}
		out.Categorical[name] = cp
	}
	for k, v := range w.Flat {
		out.Flat[k] = v
	}
	return out
}

// ceiling is the highest option of a categorical factor.
func ceiling(options map[string]int) int {
	first := true
	best := 0
	for _, points := range options {
		if first || points > best {
			best = points
			first = false
		}
	}
	return best
}
