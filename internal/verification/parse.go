package verification

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/JaimeStill/auditor/internal/clinical"
	"github.com/JaimeStill/auditor/pkg/formatting"
)

type response struct {
	Status          *string                  `json:"status"`
	Narrative       string                   `json:"narrative"`
	Result          string                   `json:"result"`
	Recommendations string                   `json:"recommendations"`
	FieldAnalysis   map[string]fieldResponse `json:"field_analysis"`
}

type fieldResponse struct {
	Score   rawScore `json:"score"`
	Comment string   `json:"comment"`
}

// rawScore accepts a JSON number or a numeric string.
type rawScore float64

func (s *rawScore) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		str = strings.ReplaceAll(strings.TrimSpace(str), ",", ".")
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return err
		}
		*s = rawScore(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = rawScore(v)
	return nil
}

// Parse decodes the JSON object in a model response, whether bare, fenced,
// or embedded in prose. Anything undecodable, a missing or unknown status,
// a missing narrative, or a missing field analysis returns
// ErrMalformedResponse. The legacy result key stands in for narrative.
func Parse(content string) (Result, error) {
	resp, err := formatting.Parse[response](content)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if resp.Status == nil {
		return Result{}, fmt.Errorf("%w: missing status", ErrMalformedResponse)
	}
	status, ok := clinical.ParseStatus(*resp.Status)
	if !ok {
		return Result{}, fmt.Errorf("%w: unknown status %q", ErrMalformedResponse, *resp.Status)
	}
	if resp.FieldAnalysis == nil {
		return Result{}, fmt.Errorf("%w: missing field_analysis", ErrMalformedResponse)
	}

	narrative := strings.TrimSpace(cmp.Or(resp.Narrative, resp.Result))
	if narrative == "" {
		return Result{}, fmt.Errorf("%w: missing narrative", ErrMalformedResponse)
	}

	analysis := make(map[clinical.Field]clinical.FieldAssessment, len(clinical.Fields))
	for name, fr := range resp.FieldAnalysis {
		f := clinical.Field(strings.ToLower(strings.TrimSpace(name)))
		if !f.Valid() {
			continue
		}
		analysis[f] = clinical.FieldAssessment{
			Score:   clinical.NormalizeScore(float64(fr.Score)),
			Comment: strings.TrimSpace(fr.Comment),
		}
	}

	return Result{
		Status:          status,
		Narrative:       narrative,
		Recommendations: strings.TrimSpace(resp.Recommendations),
		FieldAnalysis:   analysis,
	}, nil
}
