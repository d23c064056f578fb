// Package pipeline verifies pending advisory sheets: it redacts personal
// data, extracts clinical fields, retrieves knowledge, asks the model for a
// judgement, promotes the sheet to its verified record, and links the
// attending physician.
package pipeline

import (
	"context"

	"github.com/JaimeStill/auditor/internal/clinical"
	"github.com/JaimeStill/auditor/internal/jobs"
	"github.com/JaimeStill/auditor/internal/knowledge"
	"github.com/JaimeStill/auditor/internal/physicians"
	"github.com/JaimeStill/auditor/internal/sheets"
	"github.com/JaimeStill/auditor/internal/verification"
)

// Knowledge is the knowledge base as seen by the pipeline.
type Knowledge interface {
	knowledge.Retriever
	Embed(ctx context.Context, text string) []float32
}

// Verifier judges a sanitized sheet. *verification.Orchestrator implements it.
type Verifier interface {
	Verify(
		ctx context.Context,
		sanitized string,
		protocols []knowledge.Protocol,
		codes []knowledge.DiagnosisCode,
		fields clinical.FieldSet,
	) verification.Result
}

// Outcome is the result of processing one pending sheet. Degradations
// lists the non-fatal stage failures met along the way.
type Outcome struct {
	Recording    string                `json:"recording"`
	Sheet        *sheets.VerifiedSheet `json:"sheet"`
	Scores       clinical.ScoreSet     `json:"scores"`
	Physician    *physicians.Physician `json:"physician,omitempty"`
	Degradations []*StageError         `json:"degradations,omitempty"`
}

// Resolved reports whether the sheet received a model judgement.
func (o *Outcome) Resolved() bool {
	return o.Sheet != nil && o.Sheet.Status != clinical.Unresolved
}

// Summary reports a bulk run.
type Summary struct {
	Total      int      `json:"total"`
	Success    int      `json:"success"`
	Unresolved int      `json:"unresolved"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
}

// System defines the public contract for sheet verification.
type System interface {
	Handler() *Handler

	Process(ctx context.Context, recording string) (*Outcome, error)
	ProcessAll(ctx context.Context) Summary
	EnqueueAll(ctx context.Context) (int, error)
	Register(registry *jobs.Registry)
}
