package api

import (
	"github.com/JaimeStill/auditor/internal/config"
	"github.com/JaimeStill/auditor/internal/documents"
	"github.com/JaimeStill/auditor/internal/jobs"
	"github.com/JaimeStill/auditor/internal/knowledge"
	"github.com/JaimeStill/auditor/internal/physicians"
	"github.com/JaimeStill/auditor/internal/pipeline"
	"github.com/JaimeStill/auditor/internal/sheets"
	"github.com/JaimeStill/auditor/internal/verification"
)

// Domain holds all domain systems that comprise the API.
// Queue is nil when jobs run inline.
type Domain struct {
	Sheets     sheets.System
	Knowledge  knowledge.System
	Documents  documents.System
	Physicians physicians.System
	Pipeline   pipeline.System
	Scheduler  jobs.Scheduler
	Queue      *jobs.Queue
}

// NewDomain creates all domain systems from the API runtime. With Redis
// configured, uploads are verified by queue workers; otherwise sheets wait
// for an explicit verification request, which then runs inline.
func NewDomain(runtime *Runtime, cfg *config.Config) *Domain {
	db := runtime.Database.Connection()

	sheetsSystem := sheets.New(db, runtime.Logger, runtime.Pagination)

	knowledgeSystem := knowledge.New(
		db,
		runtime.Embedder,
		cfg.Knowledge,
		runtime.Logger,
		runtime.Pagination,
	)

	physiciansSystem := physicians.New(
		db,
		nil,
		cfg.Identity,
		runtime.Logger,
		runtime.Pagination,
	)

	var (
		scheduler jobs.Scheduler
		registry  *jobs.Registry
		queue     *jobs.Queue
		uploads   jobs.Scheduler
	)

	if runtime.Redis != nil {
		queue = jobs.NewQueue(runtime.Redis.Client(), cfg.Queue, runtime.Logger)
		scheduler, registry, uploads = queue, &queue.Registry, queue
	} else {
		inline := jobs.NewInline(runtime.Logger)
		scheduler, registry = inline, &inline.Registry
	}

	pipelineSystem := pipeline.New(pipeline.Runtime{
		Sheets:      sheetsSystem,
		Knowledge:   knowledgeSystem,
		Verifier:    verification.New(runtime.Completer, runtime.Logger),
		Physicians:  physiciansSystem,
		Scheduler:   scheduler,
		Metrics:     pipeline.NewMetrics(runtime.Metrics),
		LinkByTaxID: cfg.Identity.TaxIDLinking(),
		Logger:      runtime.Logger,
	}, cfg.Pipeline, runtime.Pagination)
	pipelineSystem.Register(registry)

	docsSystem := documents.New(
		sheetsSystem,
		runtime.Storage,
		uploads,
		cfg.Storage.KeyPrefix,
		runtime.Logger,
	)

	return &Domain{
		Sheets:     sheetsSystem,
		Knowledge:  knowledgeSystem,
		Documents:  docsSystem,
		Physicians: physiciansSystem,
		Pipeline:   pipelineSystem,
		Scheduler:  scheduler,
		Queue:      queue,
	}
}
