package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/auditor/internal/clinical"
	"github.com/JaimeStill/auditor/internal/extraction"
	"github.com/JaimeStill/auditor/internal/jobs"
	"github.com/JaimeStill/auditor/internal/knowledge"
	"github.com/JaimeStill/auditor/internal/physicians"
	"github.com/JaimeStill/auditor/internal/providers"
	"github.com/JaimeStill/auditor/internal/sanitizer"
	"github.com/JaimeStill/auditor/internal/sheets"
	"github.com/JaimeStill/auditor/internal/verification"
	"github.com/JaimeStill/auditor/pkg/pagination"
)

// Runtime bundles the systems the pipeline drives. Physicians may be nil
// to skip identity resolution; Scheduler may be nil when nothing is queued.
type Runtime struct {
	Sheets      sheets.System
	Knowledge   Knowledge
	Verifier    Verifier
	Physicians  physicians.Resolver
	Scheduler   jobs.Scheduler
	Metrics     *Metrics
	LinkByTaxID bool
	Logger      *slog.Logger
}

type pipeline struct {
	rt         Runtime
	cfg        Config
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the verification pipeline.
func New(rt Runtime, cfg Config, pagination pagination.Config) System {
	return &pipeline{
		rt:         rt,
		cfg:        cfg,
		logger:     rt.Logger.With("system", "pipeline"),
		pagination: pagination,
	}
}

func (p *pipeline) Handler() *Handler {
	return NewHandler(p, p.rt.Sheets, p.logger, p.pagination)
}

// Process verifies the pending sheet of recording. The verified record is
// written whether or not the model produced a judgement; only a failure to
// write it is returned, and the pending sheet is then kept for a retry.
// Identity hints are read from the original text before redaction.
func (p *pipeline) Process(ctx context.Context, recording string) (*Outcome, error) {
	start := time.Now()

	pending, err := p.rt.Sheets.FindPending(ctx, recording)
	if err != nil {
		return nil, fmt.Errorf("load pending sheet %s: %w", recording, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.SheetTimeoutDuration())
	defer cancel()

	out := &Outcome{Recording: recording}
	hints, named := physicians.ExtractHints(pending.Body)

	result, fields := p.verify(ctx, pending.Body, out)

	sheet, err := p.rt.Sheets.Promote(ctx, sheets.PromoteCommand{
		Recording:        pending.Recording,
		Body:             pending.Body,
		Status:           result.Status,
		Narrative:        result.Narrative,
		Recommendations:  result.Recommendations,
		UploadedBy:       pending.UploadedBy,
		OriginalFilename: pending.OriginalFilename,
	})
	if err != nil {
		se := &StageError{Stage: StagePromote, Kind: KindPersistence, Err: err}
		p.degrade(out, se)
		return nil, se
	}
	out.Sheet = sheet

	// An unresolved result still replaces the breakdown of an earlier run,
	// with zero scores and whatever fields were extracted.
	out.Scores = result.Scores()
	if err := p.rt.Sheets.SaveBreakdown(ctx, sheet.ID, fields, result.FieldAnalysis); err != nil {
		p.degrade(out, &StageError{Stage: StageBreakdown, Kind: KindPersistence, Err: err})
	}

	if err := p.rt.Sheets.DeletePending(ctx, recording); err != nil && !errors.Is(err, sheets.ErrNotFound) {
		p.degrade(out, &StageError{Stage: StageCleanup, Kind: KindPersistence, Err: err})
	}

	p.identify(ctx, hints, named, sheet.ID, out)

	p.rt.Metrics.IncrementVerification(sheet.Status)
	p.rt.Metrics.ObserveDuration(time.Since(start))

	p.logger.Info("sheet verified",
		"recording", recording,
		"status", sheet.Status,
		"percentage", out.Scores.Percentage(),
		"degradations", len(out.Degradations),
		"duration", time.Since(start),
	)
	return out, nil
}

// verify runs redaction, extraction, retrieval, and the model call. Terminal
// stage failures short-circuit to the unresolved result.
func (p *pipeline) verify(ctx context.Context, body string, out *Outcome) (verification.Result, clinical.FieldSet) {
	if strings.TrimSpace(body) == "" {
		se := &StageError{Stage: StageLoad, Kind: KindUnreadable, Err: ErrEmptySheet}
		p.degrade(out, se)
		return verification.Unresolved(se), clinical.FieldSet{}
	}

	sanitized := sanitizer.ExtractMedicalContent(body)
	if sanitized == "" {
		se := &StageError{Stage: StageSanitize, Kind: KindUnsanitizable, Err: ErrNoMedicalText}
		p.degrade(out, se)
		return verification.Unresolved(se), clinical.FieldSet{}
	}

	fields := extraction.Extract(sanitized)
	protocols, codes := p.retrieve(ctx, sanitized, out)

	result := p.rt.Verifier.Verify(ctx, sanitized, protocols, codes, fields)
	if result.Err != nil {
		p.degrade(out, &StageError{Stage: StageVerify, Kind: KindMalformedResponse, Err: result.Err})
	}

	return result, fields
}

// retrieve runs the protocol and diagnosis code lookups concurrently. A
// failed lookup contributes an empty list.
func (p *pipeline) retrieve(ctx context.Context, text string, out *Outcome) ([]knowledge.Protocol, []knowledge.DiagnosisCode) {
	embedding := p.rt.Knowledge.Embed(ctx, text)
	if providers.IsZero(embedding) {
		p.degrade(out, &StageError{Stage: StageRetrieve, Kind: KindRetrievalDegraded, Err: ErrNoEmbedding})
	}

	var (
		protocols            []knowledge.Protocol
		codes                []knowledge.DiagnosisCode
		protocolErr, codeErr error
		g                    errgroup.Group
	)

	g.Go(func() error {
		protocols, protocolErr = p.rt.Knowledge.FindProtocols(ctx, text, embedding)
		return nil
	})
	g.Go(func() error {
		codes, codeErr = p.rt.Knowledge.FindDiagnosisCodes(ctx, text, embedding)
		return nil
	})
	g.Wait()

	if protocolErr != nil {
		protocols = nil
		p.degrade(out, &StageError{Stage: StageRetrieve, Kind: KindRetrievalDegraded, Err: fmt.Errorf("protocols: %w", protocolErr)})
	}
	if codeErr != nil {
		codes = nil
		p.degrade(out, &StageError{Stage: StageRetrieve, Kind: KindRetrievalDegraded, Err: fmt.Errorf("diagnosis codes: %w", codeErr)})
	}

	return protocols, codes
}

// identify links the attending physician to the verified sheet. Failures
// leave the sheet unlinked.
func (p *pipeline) identify(ctx context.Context, hints physicians.Hints, named bool, sheetID uuid.UUID, out *Outcome) {
	if p.rt.Physicians == nil {
		return
	}

	resolved := false

	if named {
		doc, err := p.rt.Physicians.FindOrCreate(ctx, hints)
		if err == nil {
			err = p.rt.Physicians.Link(ctx, doc.ID, sheetID)
		}
		if err != nil {
			p.degrade(out, &StageError{Stage: StageIdentity, Kind: KindIdentityUnresolved, Err: err})
		} else {
			out.Physician = doc
			resolved = true
		}
	}

	if hints.TaxID != "" && p.rt.LinkByTaxID {
		doc, err := p.rt.Physicians.LinkByTaxID(ctx, hints.TaxID, sheetID)
		switch {
		case err == nil:
			if out.Physician == nil {
				out.Physician = doc
			}
			resolved = true
		case !errors.Is(err, physicians.ErrNotFound):
			p.degrade(out, &StageError{Stage: StageIdentity, Kind: KindIdentityUnresolved, Err: err})
		}
	}

	if !resolved && !named {
		p.degrade(out, &StageError{Stage: StageIdentity, Kind: KindIdentityUnresolved, Err: ErrNoPhysician})
	}
}

func (p *pipeline) degrade(out *Outcome, se *StageError) {
	out.Degradations = append(out.Degradations, se)
	p.rt.Metrics.IncrementDegradation(se.Kind)

	level := slog.LevelWarn
	if se.Fatal() {
		level = slog.LevelError
	}
	p.logger.Log(context.Background(), level, "stage degraded",
		"recording", out.Recording,
		"stage", se.Stage,
		"kind", se.Kind,
		"error", se.Err,
	)
}

// ProcessAll verifies every pending sheet with bounded concurrency.
func (p *pipeline) ProcessAll(ctx context.Context) Summary {
	summary := Summary{Errors: []string{}}

	recordings, err := p.rt.Sheets.PendingRecordings(ctx)
	if err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		return summary
	}
	summary.Total = len(recordings)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for _, rec := range recordings {
		g.Go(func() error {
			out, err := p.Process(gctx, rec)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err != nil:
				summary.Failed++
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", rec, err))
			case out.Resolved():
				summary.Success++
			default:
				summary.Unresolved++
			}
			return nil
		})
	}
	g.Wait()

	p.logger.Info("bulk verification complete",
		"total", summary.Total,
		"success", summary.Success,
		"unresolved", summary.Unresolved,
		"failed", summary.Failed,
	)
	return summary
}

// EnqueueAll schedules one verification job per pending sheet.
func (p *pipeline) EnqueueAll(ctx context.Context) (int, error) {
	if p.rt.Scheduler == nil {
		return 0, ErrNoScheduler
	}

	recordings, err := p.rt.Sheets.PendingRecordings(ctx)
	if err != nil {
		return 0, err
	}

	var errs []error
	enqueued := 0
	for _, rec := range recordings {
		if err := p.rt.Scheduler.Enqueue(ctx, jobs.Job{Kind: jobs.KindVerify, Recording: rec}); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rec, err))
			continue
		}
		enqueued++
	}

	p.logger.Info("verification jobs enqueued", "count", enqueued, "failed", len(errs))
	return enqueued, errors.Join(errs...)
}

// Register installs the verification job handlers. A missing pending
// sheet means an earlier delivery already verified it, so the job succeeds.
func (p *pipeline) Register(registry *jobs.Registry) {
	registry.Register(jobs.KindVerify, jobs.HandlerFunc(func(ctx context.Context, job jobs.Job) error {
		_, err := p.Process(ctx, job.Recording)
		if errors.Is(err, sheets.ErrNotFound) {
			p.logger.Info("pending sheet already processed", "recording", job.Recording)
			return nil
		}
		return err
	}))

	registry.Register(jobs.KindVerifyAll, jobs.HandlerFunc(func(ctx context.Context, _ jobs.Job) error {
		_, err := p.EnqueueAll(ctx)
		return err
	}))
}
