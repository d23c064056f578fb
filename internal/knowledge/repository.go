package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/auditor/internal/providers"
	"github.com/JaimeStill/auditor/pkg/pagination"
	"github.com/JaimeStill/auditor/pkg/query"
	"github.com/JaimeStill/auditor/pkg/repository"
)

type repo struct {
	db         *sql.DB
	embedder   providers.Embedder
	cfg        Config
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a knowledge repository implementing the System interface.
func New(
	db *sql.DB,
	embedder providers.Embedder,
	cfg Config,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		embedder:   embedder,
		cfg:        cfg,
		logger:     logger.With("system", "knowledge"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.cfg, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) Embed(ctx context.Context, text string) []float32 {
	return providers.SafeEmbed(ctx, r.embedder, text, r.cfg.MaxEmbedInput, r.logger)
}

// FindProtocols fuses nearest-neighbour protocols with per-keyword
// substring matches. Either path failing degrades to an empty list for
// that path; only a failure of both is returned.
func (r *repo) FindProtocols(ctx context.Context, text string, embedding []float32) ([]Protocol, error) {
	limit := r.cfg.ProtocolLimit

	vector, vecErr := r.nearestProtocols(ctx, embedding, limit*2)
	if vecErr != nil {
		r.logger.Warn("protocol vector search failed", "error", vecErr)
	}

	keyword, kwErr := r.protocolsByKeyword(ctx, Keywords(text, r.cfg.MaxKeywords))
	if kwErr != nil {
		r.logger.Warn("protocol keyword search failed", "error", kwErr)
	}

	if vecErr != nil && kwErr != nil {
		return nil, fmt.Errorf("find protocols: %w", errors.Join(vecErr, kwErr))
	}

	return Fuse(vector, keyword, protocolKey, limit), nil
}

// FindDiagnosisCodes fuses codes named in the text with nearest-neighbour
// codes, capped at CodeLimit. Named codes lead on ties.
func (r *repo) FindDiagnosisCodes(ctx context.Context, text string, embedding []float32) ([]DiagnosisCode, error) {
	direct, directErr := r.codesByValue(ctx, CodeTokens(text))
	if directErr != nil {
		r.logger.Warn("diagnosis code lookup failed", "error", directErr)
	}

	vector, vecErr := r.nearestCodes(ctx, embedding, r.cfg.CodeLimit)
	if vecErr != nil {
		r.logger.Warn("diagnosis code vector search failed", "error", vecErr)
	}

	if directErr != nil && vecErr != nil {
		return nil, fmt.Errorf("find diagnosis codes: %w", errors.Join(directErr, vecErr))
	}

	return Fuse(direct, vector, codeKey, r.cfg.CodeLimit), nil
}

func (r *repo) nearestProtocols(ctx context.Context, embedding []float32, k int) ([]Protocol, error) {
	if len(embedding) == 0 || providers.IsZero(embedding) {
		return nil, nil
	}

	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE p.embedding IS NOT NULL ORDER BY p.embedding <=> $1 LIMIT $2",
		protocolProjection.Columns(), protocolProjection.From(),
	)
	return repository.QueryMany(ctx, r.db, q, []any{pgvector.NewVector(embedding), k}, scanProtocol)
}

func (r *repo) protocolsByKeyword(ctx context.Context, keywords []string) ([]Protocol, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE p.title ILIKE $1 OR p.content ILIKE $1 ORDER BY p.title LIMIT $2",
		protocolProjection.Columns(), protocolProjection.From(),
	)

	var results []Protocol
	for _, kw := range keywords {
		found, err := repository.QueryMany(ctx, r.db, q, []any{"%" + kw + "%", r.cfg.PerKeyword}, scanProtocol)
		if err != nil {
			return results, err
		}
		results = append(results, found...)
	}
	return results, nil
}

func (r *repo) nearestCodes(ctx context.Context, embedding []float32, k int) ([]DiagnosisCode, error) {
	if len(embedding) == 0 || providers.IsZero(embedding) {
		return nil, nil
	}

	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE c.embedding IS NOT NULL ORDER BY c.embedding <=> $1 LIMIT $2",
		codeProjection.Columns(), codeProjection.From(),
	)
	return repository.QueryMany(ctx, r.db, q, []any{pgvector.NewVector(embedding), k}, scanDiagnosisCode)
}

func (r *repo) codesByValue(ctx context.Context, codes []string) ([]DiagnosisCode, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	values := make([]any, len(codes))
	order := make(map[string]int, len(codes))
	for i, c := range codes {
		values[i] = c
		order[c] = i
	}

	q, args := query.NewBuilder(codeProjection).WhereIn("Code", values).Build()
	found, err := repository.QueryMany(ctx, r.db, q, args, scanDiagnosisCode)
	if err != nil {
		return nil, err
	}

	sorted := make([]DiagnosisCode, 0, len(found))
	slots := make([]*DiagnosisCode, len(codes))
	for i := range found {
		slots[order[found[i].Code]] = &found[i]
	}
	for _, d := range slots {
		if d != nil {
			sorted = append(sorted, *d)
		}
	}
	return sorted, nil
}

func (r *repo) UpsertProtocol(ctx context.Context, cmd ProtocolCommand) (*Protocol, error) {
	cmd.Title = strings.TrimSpace(cmd.Title)
	cmd.Content = strings.TrimSpace(cmd.Content)
	if cmd.Title == "" || cmd.Content == "" {
		return nil, fmt.Errorf("%w: title and content are required", ErrInvalidEntry)
	}

	embedding := r.vectorParam(ctx, cmd.Title+"\n"+cmd.Content)

	q := fmt.Sprintf(`
		INSERT INTO protocols AS p (title, code, content, source, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (title) DO UPDATE SET
			code = EXCLUDED.code,
			content = EXCLUDED.content,
			source = EXCLUDED.source,
			embedding = EXCLUDED.embedding,
			updated_at = NOW()
		RETURNING %s`, protocolProjection.Columns())

	args := []any{cmd.Title, cmd.Code, cmd.Content, cmd.Source, embedding}
	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Protocol, error) {
		return repository.QueryOne(ctx, tx, q, args, scanProtocol)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("protocol upserted", "id", p.ID, "title", p.Title, "embedded", p.Embedded)
	return &p, nil
}

func (r *repo) UpsertDiagnosisCode(ctx context.Context, cmd DiagnosisCodeCommand) (*DiagnosisCode, error) {
	cmd.Code = strings.ToUpper(strings.TrimSpace(cmd.Code))
	cmd.Title = strings.TrimSpace(cmd.Title)
	if cmd.Code == "" || cmd.Title == "" {
		return nil, fmt.Errorf("%w: code and title are required", ErrInvalidEntry)
	}

	entry := DiagnosisCode{Code: cmd.Code, Title: cmd.Title, Description: cmd.Description}
	embedding := r.vectorParam(ctx, entry.EmbeddingText())

	q := fmt.Sprintf(`
		INSERT INTO diagnosis_codes AS c (code, title, description, source, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			source = EXCLUDED.source,
			embedding = EXCLUDED.embedding,
			updated_at = NOW()
		RETURNING %s`, codeProjection.Columns())

	args := []any{cmd.Code, cmd.Title, cmd.Description, cmd.Source, embedding}
	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (DiagnosisCode, error) {
		return repository.QueryOne(ctx, tx, q, args, scanDiagnosisCode)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("diagnosis code upserted", "code", d.Code, "embedded", d.Embedded)
	return &d, nil
}

// vectorParam embeds text and returns nil for a zero vector so the row
// stores NULL and stays out of similarity search.
func (r *repo) vectorParam(ctx context.Context, text string) any {
	v := r.Embed(ctx, text)
	if providers.IsZero(v) {
		return nil
	}
	return pgvector.NewVector(v)
}

func (r *repo) ListProtocols(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Protocol], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(protocolProjection, protocolSort).
		WhereSearch(page.Search, "Title", "Code")
	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	return repository.QueryPage(ctx, r.db, qb, page, scanProtocol)
}

func (r *repo) ListDiagnosisCodes(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[DiagnosisCode], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(codeProjection, codeSort).
		WhereSearch(page.Search, "Code", "Title")
	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	return repository.QueryPage(ctx, r.db, qb, page, scanDiagnosisCode)
}

func (r *repo) ImportProtocols(ctx context.Context, text, source string) ImportSummary {
	return importAll(ctx, r.cfg.ImportWorkers, ParseProtocols(text, source), func(ctx context.Context, cmd ProtocolCommand) error {
		_, err := r.UpsertProtocol(ctx, cmd)
		if err != nil {
			return fmt.Errorf("%s: %w", cmd.Title, err)
		}
		return nil
	})
}

func (r *repo) ImportDiagnosisCodes(ctx context.Context, text, source string) ImportSummary {
	return importAll(ctx, r.cfg.ImportWorkers, ParseDiagnosisCodes(text, source), func(ctx context.Context, cmd DiagnosisCodeCommand) error {
		_, err := r.UpsertDiagnosisCode(ctx, cmd)
		if err != nil {
			return fmt.Errorf("%s: %w", cmd.Code, err)
		}
		return nil
	})
}

func importAll[T any](ctx context.Context, workers int, items []T, upsert func(context.Context, T) error) ImportSummary {
	errs := make([]error, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, item := range items {
		g.Go(func() error {
			errs[i] = upsert(gctx, item)
			return nil
		})
	}
	g.Wait()

	summary := ImportSummary{Errors: []string{}}
	for _, err := range errs {
		if err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		summary.Imported++
	}
	return summary
}
