package matching

import (
	"strings"
	"sync/atomic"

	"afh-workers/internal/models"
)

// DefaultNeutralScore is used for a dimension when either side lacks the data.
const DefaultNeutralScore = 50

// Weights is the relative importance of each dimension.
type Weights map[models.Dimension]float64

// DefaultWeights returns the stock weighting. The values sum to 1.
func DefaultWeights() Weights {
	return Weights{
		models.DimensionLocation:     0.20,
		models.DimensionBudget:       0.20,
		models.DimensionCare:         0.25,
		models.DimensionMedical:      0.15,
		models.DimensionDailyHelp:    0.10,
		models.DimensionAvailability: 0.05,
		models.DimensionPreferences:  0.05,
	}
}

// WeightsFromConfig overlays configured values on the defaults. Keys match
// dimensions ignoring case and underscores, since viper lowercases map keys.
// Unknown keys are dropped. A configuration with no positive weight yields
// the defaults.
func WeightsFromConfig(raw map[string]float64) Weights {
	normalized := make(map[string]float64, len(raw))
	for k, v := range raw {
		normalized[weightKey(k)] = v
	}

	w := DefaultWeights()
	for _, d := range models.Dimensions {
		if v, ok := normalized[weightKey(string(d))]; ok {
			w[d] = v
		}
	}
	if w.total() <= 0 {
		return DefaultWeights()
	}
	return w
}

func weightKey(k string) string {
	return strings.ToLower(strings.ReplaceAll(k, "_", ""))
}

func (w Weights) total() float64 {
	var sum float64
	for _, d := range models.Dimensions {
		if v := w[d]; v > 0 {
			sum += v
		}
	}
	return sum
}

// Clone returns an independent copy.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Scorer holds the live weighting so it can be swapped on config reload
// while jobs are being scored.
type Scorer struct {
	weights atomic.Pointer[Weights]
	neutral int
}

// NewScorer returns a Scorer. A neutral score outside [0,100] falls back to the default.
func NewScorer(weights Weights, neutral int) *Scorer {
	if neutral <= 0 || neutral > 100 {
		neutral = DefaultNeutralScore
	}
	s := &Scorer{neutral: neutral}
	s.SetWeights(weights)
	return s
}

// SetWeights replaces the weighting used by subsequent Score calls.
func (s *Scorer) SetWeights(weights Weights) {
	if weights == nil || weights.total() <= 0 {
		weights = DefaultWeights()
	}
	w := weights.Clone()
	s.weights.Store(&w)
}

// Weights returns a copy of the active weighting.
func (s *Scorer) Weights() Weights {
	return (*s.weights.Load()).Clone()
}

// Score scores one facility with the active weighting.
func (s *Scorer) Score(needs models.CareNeeds, facility models.Facility) models.MatchScore {
	return Score(needs, facility, Options{Weights: *s.weights.Load(), NeutralScore: s.neutral})
}
