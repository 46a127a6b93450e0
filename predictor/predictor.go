// Package predictor estimates how likely a lead is to convert from a handful
// of intake answers. It is a weighted rule set, not a trained model.
package predictor

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// DefaultJitterSpread is the half-width of the random offset used by New
// when no jitter source is given.
const DefaultJitterSpread = 5.0

// Confidence buckets how extreme a probability is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// Factors is the raw intake form keyed by factor name.
type Factors map[string]interface{}

// Result is the outcome of a prediction. Error is only set when the input
// could not be scored, in which case the other fields hold neutral defaults.
type Result struct {
	Probability     float64    `json:"probability"`
	WillConvert     bool       `json:"will_convert"`
	Confidence      Confidence `json:"confidence"`
	Score           int        `json:"score"`
	MaxScore        int        `json:"max_score"`
	Recommendations []string   `json:"recommendations"`
	Error           string     `json:"error,omitempty"`
}

// Feature is one row of the feature importance listing.
type Feature struct {
	Label      string `json:"label"`
	Importance int    `json:"importance"`
}

type Predictor struct {
	weights Weights
	jitter  JitterSource
}

// New builds a Predictor. A nil jitter source means uniform jitter of
// DefaultJitterSpread.
func New(weights Weights, jitter JitterSource) (*Predictor, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if jitter == nil {
		jitter = UniformJitter{Spread: DefaultJitterSpread}
	}
	return &Predictor{weights: weights.clone(), jitter: jitter}, nil
}

// NewDefault builds a Predictor over the built-in weight tables.
func NewDefault(jitter JitterSource) *Predictor {
	p, err := New(DefaultWeights(), jitter)
	if err != nil {
		panic(err)
	}
	return p
}

// Predict scores the factors. It never fails: malformed input produces a
// neutral result with Error set.
func (p *Predictor) Predict(factors Factors) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = failure(fmt.Errorf("%v", r))
		}
	}()

	score, maxScore, err := p.score(factors)
	if err != nil {
		return failure(err)
	}

	probability := 50.0
	if maxScore > 0 {
		probability = float64(score) / float64(maxScore) * 100
	}
	probability += p.jitter.Jitter()
	probability = math.Round(clamp(probability, 0, 100)*10) / 10

	return Result{
		Probability:     probability,
		WillConvert:     probability > 50,
		Confidence:      ConfidenceFor(probability),
		Score:           score,
		MaxScore:        maxScore,
		Recommendations: Recommendations(factors, probability),
	}
}

func (p *Predictor) score(factors Factors) (score, maxScore int, err error) {
	for name, options := range p.weights.Categorical {
		raw, present := factors[name]
		if !present {
			continue
		}
		value, ok, err := categoryValue(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("factor %s: %w", name, err)
		}
		if !ok {
			continue
		}
		if points, known := options[value]; known {
			score += points
			maxScore += ceiling(options)
		}
	}

	for name, weight := range p.weights.Flat {
		raw, present := factors[name]
		if !present {
			continue
		}
		if truthy(raw) {
			score += weight
		}
		maxScore += weight
	}

	// The company bonus repeats the has_company weight on purpose.
	if p.weights.CompanyBonus != "" && truthy(factors["company"]) {
		bonus := p.weights.Flat[p.weights.CompanyBonus]
		score += bonus
		maxScore += bonus
	}
	return score, maxScore, nil
}

// FeatureImportance lists the configured features with their peak weight.
func (p *Predictor) FeatureImportance() []Feature {
	out := make([]Feature, 0, len(p.weights.Features))
	for _, f := range p.weights.Features {
		importance, ok := p.weights.Flat[f.Factor]
		if !ok {
			importance = ceiling(p.weights.Categorical[f.Factor])
		}
		out = append(out, Feature{Label: f.Label, Importance: importance})
	}
	return out
}

// ConfidenceFor buckets a probability. The bands are checked in order and
// the first match wins, so 25 is Medium.
func ConfidenceFor(probability float64) Confidence {
	if probability > 80 || probability < 20 {
		return ConfidenceHigh
	}
	if probability > 60 || probability < 40 {
		return ConfidenceMedium
	}
	return ConfidenceLow
}

func failure(err error) Result {
	return Result{
		Probability: 50,
		WillConvert: false,
		Confidence:  ConfidenceLow,
		Error:       err.Error(),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// categoryValue extracts the option name of a categorical answer. Scalars
// that are not strings simply match nothing; composite values are rejected.
func categoryValue(raw interface{}) (string, bool, error) {
	switch v := raw.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("unsupported value of type %T", raw)
	}
}

// truthy interprets form values: checkboxes arrive as "on", JSON clients
// send booleans.
func truthy(raw interface{}) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "false", "0", "off", "no":
			return false
		}
		return true
	case float64:
		return v != 0
	case int:
		return v != 0
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	s := fmt.Sprint(raw)
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
