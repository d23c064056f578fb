package sheets

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/auditor/internal/clinical"
	"github.com/JaimeStill/auditor/pkg/pagination"
	"github.com/JaimeStill/auditor/pkg/query"
	"github.com/JaimeStill/auditor/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a sheet repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "sheets"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) CreatePending(ctx context.Context, cmd PendingCommand) (*PendingSheet, error) {
	cmd.Recording = strings.TrimSpace(cmd.Recording)
	if cmd.Recording == "" || strings.TrimSpace(cmd.Body) == "" {
		return nil, fmt.Errorf("%w: recording and body are required", ErrInvalidSheet)
	}

	q := fmt.Sprintf(`
		INSERT INTO pending_sheets AS p (recording, body, uploaded_by, original_filename, storage_key, content_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, pendingProjection.Columns())

	args := []any{cmd.Recording, cmd.Body, cmd.UploadedBy, cmd.OriginalFilename, cmd.StorageKey, cmd.ContentType}
	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (PendingSheet, error) {
		return repository.QueryOne(ctx, tx, q, args, scanPending)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("pending sheet created", "id", p.ID, "recording", p.Recording)
	return &p, nil
}

func (r *repo) FindPending(ctx context.Context, recording string) (*PendingSheet, error) {
	q, args := query.NewBuilder(pendingProjection).BuildSingle("Recording", recording)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanPending)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) ListPending(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[PendingSheet], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(pendingProjection, pendingSort).
		WhereSearch(page.Search, "Recording", "OriginalFilename")
	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	return repository.QueryPage(ctx, r.db, qb, page, scanPending)
}

func (r *repo) PendingRecordings(ctx context.Context) ([]string, error) {
	rows, err := repository.QueryMany(
		ctx, r.db,
		"SELECT recording FROM pending_sheets ORDER BY created_at",
		nil,
		func(s repository.Scanner) (string, error) {
			var rec string
			err := s.Scan(&rec)
			return rec, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("list pending recordings: %w", err)
	}
	return rows, nil
}

func (r *repo) DeletePending(ctx context.Context, recording string) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM pending_sheets WHERE recording = $1",
			recording,
		)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("pending sheet deleted", "recording", recording)
	return nil
}

// Promote inserts or updates the verified record for cmd.Recording, so
// reprocessing a recording never duplicates it.
func (r *repo) Promote(ctx context.Context, cmd PromoteCommand) (*VerifiedSheet, error) {
	if !cmd.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, cmd.Status)
	}

	q := fmt.Sprintf(`
		INSERT INTO verified_sheets AS v (recording, body, status, verification, recommendations, verified_at, uploaded_by, original_filename)
		VALUES ($1, $2, $3, $4, $5, NOW(), $6, $7)
		ON CONFLICT (recording) DO UPDATE SET
			body = EXCLUDED.body,
			status = EXCLUDED.status,
			verification = EXCLUDED.verification,
			recommendations = EXCLUDED.recommendations,
			verified_at = EXCLUDED.verified_at,
			uploaded_by = COALESCE(EXCLUDED.uploaded_by, v.uploaded_by),
			original_filename = COALESCE(EXCLUDED.original_filename, v.original_filename),
			updated_at = NOW()
		RETURNING %s`, verifiedColumns.Columns())

	args := []any{
		cmd.Recording,
		cmd.Body,
		string(cmd.Status),
		cmd.Narrative,
		cmd.Recommendations,
		cmd.UploadedBy,
		cmd.OriginalFilename,
	}

	v, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (VerifiedSheet, error) {
		return repository.QueryOne(ctx, tx, q, args, scanPromoted)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("sheet promoted", "id", v.ID, "recording", v.Recording, "status", v.Status)
	return &v, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Detail, error) {
	q, args := query.NewBuilder(verifiedProjection).BuildSingle("ID", id)
	return r.detail(ctx, q, args)
}

func (r *repo) FindByRecording(ctx context.Context, recording string) (*Detail, error) {
	q, args := query.NewBuilder(verifiedProjection).BuildSingle("Recording", recording)
	return r.detail(ctx, q, args)
}

func (r *repo) detail(ctx context.Context, q string, args []any) (*Detail, error) {
	v, err := repository.QueryOne(ctx, r.db, q, args, scanVerified)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	d := &Detail{VerifiedSheet: v}

	fields, err := loadFields(ctx, r.db, v.ID)
	if err != nil {
		return nil, fmt.Errorf("load fields: %w", err)
	}
	d.Fields = fields

	scores, err := loadScores(ctx, r.db, v.ID)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	d.Scores = scores

	return d, nil
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[VerifiedSheet], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(verifiedProjection, verifiedSort).
		WhereSearch(page.Search, "Recording", "OriginalFilename")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	return repository.QueryPage(ctx, r.db, qb, page, scanVerified)
}

func (r *repo) Statistics(ctx context.Context, filters Filters) (*Statistics, error) {
	stats := &Statistics{
		ByStatus:  make(map[clinical.Status]int, len(clinical.Statuses)),
		ByQuality: make(map[clinical.Quality]int, len(clinical.Qualities)),
	}
	for _, s := range clinical.Statuses {
		stats.ByStatus[s] = 0
	}
	for _, q := range clinical.Qualities {
		stats.ByQuality[q] = 0
	}

	qb := filters.Apply(query.NewBuilder(verifiedProjection))

	q, args := qb.BuildAggregate("v.status, COUNT(*)", "v.status")
	rows, err := repository.QueryMany(ctx, r.db, q, args, scanStatusCount)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	for _, row := range rows {
		stats.ByStatus[row.status] = row.count
		stats.Total += row.count
	}

	q, args = qb.BuildAggregate(qualityBucket+", COUNT(*)", "1")
	buckets, err := repository.QueryMany(ctx, r.db, q, args, scanQualityCount)
	if err != nil {
		return nil, fmt.Errorf("count by quality: %w", err)
	}
	for _, b := range buckets {
		if b.quality != "" {
			stats.ByQuality[b.quality] = b.count
		}
	}

	q, args = qb.BuildAggregate("COALESCE(AVG(s.percentage), 0)::float8", "")
	avg, err := repository.QueryValue[float64](ctx, r.db, q, args...)
	if err != nil {
		return nil, fmt.Errorf("average percentage: %w", err)
	}
	stats.AveragePercentage = avg

	pending, err := repository.QueryValue[int](ctx, r.db, "SELECT COUNT(*) FROM pending_sheets")
	if err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}
	stats.Pending = pending

	return stats, nil
}

const qualityBucket = `CASE
		WHEN s.percentage IS NULL THEN ''
		WHEN s.percentage >= 90 THEN 'excellent'
		WHEN s.percentage >= 80 THEN 'good'
		WHEN s.percentage >= 60 THEN 'satisfactory'
		WHEN s.percentage >= 30 THEN 'needs_improvement'
		ELSE 'critical'
	END`

type statusCount struct {
	status clinical.Status
	count  int
}

type qualityCount struct {
	quality clinical.Quality
	count   int
}

func scanStatusCount(s repository.Scanner) (statusCount, error) {
	var c statusCount
	err := s.Scan(&c.status, &c.count)
	return c, err
}

func scanQualityCount(s repository.Scanner) (qualityCount, error) {
	var c qualityCount
	err := s.Scan(&c.quality, &c.count)
	return c, err
}
