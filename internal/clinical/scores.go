package clinical

import (
	"encoding/json"
	"math"
)

// MaxTotal is the highest achievable total score.
const MaxTotal = 10.0

// NormalizeScore maps a raw model score onto {0, 0.5, 1}:
// [0,0.25) to 0, [0.25,0.75) to 0.5, [0.75,1] to 1. Values outside [0,1]
// clamp to the nearest bound; NaN scores 0.
func NormalizeScore(raw float64) float64 {
	switch {
	case math.IsNaN(raw):
		return 0
	case raw < 0.25:
		return 0
	case raw < 0.75:
		return 0.5
	default:
		return 1
	}
}

// ScoreSet holds one normalized score per field. Total and percentage are
// always derived from the field scores.
type ScoreSet struct {
	scores map[Field]float64
}

// NewScoreSet builds a ScoreSet from raw per-field scores. Unknown fields are
// dropped, missing fields score 0, and every score is normalized.
func NewScoreSet(raw map[Field]float64) ScoreSet {
	s := ScoreSet{scores: make(map[Field]float64, len(Fields))}
	for _, f := range Fields {
		s.scores[f] = NormalizeScore(raw[f])
	}
	return s
}

// ScoresFromAnalysis builds a ScoreSet from per-field assessments.
func ScoresFromAnalysis(analysis map[Field]FieldAssessment) ScoreSet {
	raw := make(map[Field]float64, len(analysis))
	for f, a := range analysis {
		raw[f] = a.Score
	}
	return NewScoreSet(raw)
}

// Score returns the normalized score for f.
func (s ScoreSet) Score(f Field) float64 {
	return s.scores[f]
}

// Total returns the sum of the ten field scores.
func (s ScoreSet) Total() float64 {
	var total float64
	for _, f := range Fields {
		total += s.scores[f]
	}
	return total
}

// Percentage returns Total/10*100 rounded to two decimals.
func (s ScoreSet) Percentage() float64 {
	return math.Round(s.Total()/MaxTotal*100*100) / 100
}

// Quality is the bucket a percentage falls into.
type Quality string

const (
	Excellent        Quality = "excellent"
	Good             Quality = "good"
	Satisfactory     Quality = "satisfactory"
	NeedsImprovement Quality = "needs_improvement"
	Critical         Quality = "critical"
)

// Qualities lists the buckets from best to worst.
var Qualities = []Quality{Excellent, Good, Satisfactory, NeedsImprovement, Critical}

// QualityOf buckets a percentage.
func QualityOf(percentage float64) Quality {
	switch {
	case percentage >= 90:
		return Excellent
	case percentage >= 80:
		return Good
	case percentage >= 60:
		return Satisfactory
	case percentage >= 30:
		return NeedsImprovement
	default:
		return Critical
	}
}

// Quality returns the bucket of the set's percentage.
func (s ScoreSet) Quality() Quality {
	return QualityOf(s.Percentage())
}

// LowQuality reports a percentage below 60.
func LowQuality(percentage float64) bool {
	return percentage < 60
}

// HighQuality reports a percentage of at least 80.
func HighQuality(percentage float64) bool {
	return percentage >= 80
}

// MarshalJSON renders the per-field scores with the derived values.
func (s ScoreSet) MarshalJSON() ([]byte, error) {
	scores := make(map[Field]float64, len(Fields))
	for _, f := range Fields {
		scores[f] = s.scores[f]
	}
	return json.Marshal(struct {
		Scores     map[Field]float64 `json:"scores"`
		Total      float64           `json:"total"`
		Percentage float64           `json:"percentage"`
		Quality    Quality           `json:"quality"`
	}{scores, s.Total(), s.Percentage(), s.Quality()})
}

// Bounds returns the percentage interval [lo, hi) of the bucket. The
// excellent bucket has no upper bound and reports hi as +Inf.
func (q Quality) Bounds() (lo, hi float64, ok bool) {
	switch q {
	case Excellent:
		return 90, math.Inf(1), true
	case Good:
		return 80, 90, true
	case Satisfactory:
		return 60, 80, true
	case NeedsImprovement:
		return 30, 60, true
	case Critical:
		return math.Inf(-1), 30, true
	}
	return 0, 0, false
}
