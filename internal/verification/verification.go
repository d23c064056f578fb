// Package verification judges a sanitized advisory sheet against retrieved
// protocols and diagnosis codes using a completion model.
package verification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/auditor/internal/clinical"
	"github.com/JaimeStill/auditor/internal/knowledge"
	"github.com/JaimeStill/auditor/internal/providers"
)

// Narrative and recommendations recorded when no judgement is available.
const (
	UnresolvedNarrative       = "Не удалось извлечь медицинскую информацию для проверки"
	UnresolvedRecommendations = "Требуется ручная проверка или загрузите КЛ повторно"
)

// Result is the outcome of one verification. Err is set when the model
// judgement could not be obtained and Status is Unresolved.
type Result struct {
	Status          clinical.Status
	Narrative       string
	Recommendations string
	FieldAnalysis   map[clinical.Field]clinical.FieldAssessment
	Err             error
}

// Unresolved returns the terminal default result carrying cause.
func Unresolved(cause error) Result {
	return Result{
		Status:          clinical.Unresolved,
		Narrative:       UnresolvedNarrative,
		Recommendations: UnresolvedRecommendations,
		FieldAnalysis:   map[clinical.Field]clinical.FieldAssessment{},
		Err:             cause,
	}
}

// Scores derives the normalized score set from the field analysis.
func (r Result) Scores() clinical.ScoreSet {
	return clinical.ScoresFromAnalysis(r.FieldAnalysis)
}

// Orchestrator builds prompts, calls the completion provider, and parses
// the judgement.
type Orchestrator struct {
	completer providers.Completer
	logger    *slog.Logger
}

// New creates an Orchestrator.
func New(completer providers.Completer, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		completer: completer,
		logger:    logger.With("system", "verification"),
	}
}

// Verify never fails: provider errors and malformed responses yield the
// unresolved default with Err set.
func (o *Orchestrator) Verify(
	ctx context.Context,
	sanitized string,
	protocols []knowledge.Protocol,
	codes []knowledge.DiagnosisCode,
	fields clinical.FieldSet,
) Result {
	if strings.TrimSpace(sanitized) == "" {
		return Unresolved(ErrNoContent)
	}

	prompt := BuildPrompt(sanitized, protocols, codes, fields)

	content, err := o.completer.Complete(ctx, prompt)
	if err != nil {
		o.logger.Error("completion failed", "error", err)
		return Unresolved(fmt.Errorf("complete: %w", err))
	}

	result, err := Parse(content)
	if err != nil {
		o.logger.Warn("unusable verification response", "error", err, "length", len(content))
		return Unresolved(err)
	}

	o.logger.Debug(
		"verification complete",
		"status", result.Status,
		"protocols", len(protocols),
		"codes", len(codes),
	)
	return result
}
