package sheets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/auditor/internal/clinical"
	"github.com/JaimeStill/auditor/pkg/repository"
)

// SaveBreakdown replaces the field and score rows of a verified sheet in one
// transaction. An empty field set skips the field row; scores are always
// written.
func (r *repo) SaveBreakdown(
	ctx context.Context,
	sheetID uuid.UUID,
	fields clinical.FieldSet,
	analysis map[clinical.Field]clinical.FieldAssessment,
) error {
	scores := clinical.ScoresFromAnalysis(analysis)
	writeFields := fields.Validate() == nil
	if !writeFields {
		r.logger.Warn("field set empty, skipping field row", "sheet_id", sheetID)
	}

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sheet_fields WHERE verified_sheet_id = $1", sheetID); err != nil {
			return struct{}{}, fmt.Errorf("delete fields: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM sheet_scores WHERE verified_sheet_id = $1", sheetID); err != nil {
			return struct{}{}, fmt.Errorf("delete scores: %w", err)
		}

		if writeFields {
			if err := insertFields(ctx, tx, sheetID, fields, analysis); err != nil {
				return struct{}{}, err
			}
		}

		return struct{}{}, insertScores(ctx, tx, sheetID, scores)
	})
	if err != nil {
		return fmt.Errorf("save breakdown: %w", err)
	}

	r.logger.Info("breakdown saved", "sheet_id", sheetID, "percentage", scores.Percentage())
	return nil
}

func commentColumn(f clinical.Field) string {
	return string(f) + "_comment"
}

func scoreColumn(f clinical.Field) string {
	return string(f) + "_score"
}

func insertFields(
	ctx context.Context,
	tx *sql.Tx,
	sheetID uuid.UUID,
	fields clinical.FieldSet,
	analysis map[clinical.Field]clinical.FieldAssessment,
) error {
	diagnoses, err := json.Marshal(fields.Diagnoses)
	if err != nil {
		return fmt.Errorf("encode diagnoses: %w", err)
	}

	columns := []string{"verified_sheet_id"}
	args := []any{sheetID}

	for _, f := range clinical.Fields {
		columns = append(columns, string(f))
		if f == clinical.Diagnoses {
			args = append(args, string(diagnoses))
		} else {
			args = append(args, fields.Text(f))
		}
	}

	for _, f := range clinical.Fields {
		columns = append(columns, commentColumn(f))
		args = append(args, comment(fields, analysis, f))
	}

	q := fmt.Sprintf(
		"INSERT INTO sheet_fields (%s) VALUES (%s)",
		strings.Join(columns, ", "),
		placeholders(len(args)),
	)
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert fields: %w", err)
	}
	return nil
}

// comment prefers the model's assessment comment over one already on the field set.
func comment(fields clinical.FieldSet, analysis map[clinical.Field]clinical.FieldAssessment, f clinical.Field) *string {
	if a, ok := analysis[f]; ok {
		if c := strings.TrimSpace(a.Comment); c != "" {
			return &c
		}
	}
	if c := strings.TrimSpace(fields.Comments[f]); c != "" {
		return &c
	}
	return nil
}

func insertScores(ctx context.Context, tx *sql.Tx, sheetID uuid.UUID, scores clinical.ScoreSet) error {
	columns := []string{"verified_sheet_id"}
	args := []any{sheetID}

	for _, f := range clinical.Fields {
		columns = append(columns, scoreColumn(f))
		args = append(args, scores.Score(f))
	}

	q := fmt.Sprintf(
		"INSERT INTO sheet_scores (%s) VALUES (%s)",
		strings.Join(columns, ", "),
		placeholders(len(args)),
	)
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert scores: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	p := make([]string, n)
	for i := range p {
		p[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(p, ", ")
}

func loadFields(ctx context.Context, q repository.Querier, sheetID uuid.UUID) (*clinical.FieldSet, error) {
	columns := make([]string, 0, 2*len(clinical.Fields))
	for _, f := range clinical.Fields {
		columns = append(columns, string(f))
	}
	for _, f := range clinical.Fields {
		columns = append(columns, commentColumn(f))
	}

	stmt := fmt.Sprintf(
		"SELECT %s FROM sheet_fields WHERE verified_sheet_id = $1",
		strings.Join(columns, ", "),
	)

	texts := make([]sql.NullString, len(clinical.Fields))
	comments := make([]sql.NullString, len(clinical.Fields))
	dest := make([]any, 0, len(columns))
	for i := range texts {
		dest = append(dest, &texts[i])
	}
	for i := range comments {
		dest = append(dest, &comments[i])
	}

	if err := q.QueryRowContext(ctx, stmt, sheetID).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	set := &clinical.FieldSet{Comments: make(map[clinical.Field]string)}
	for i, f := range clinical.Fields {
		if f == clinical.Diagnoses {
			if texts[i].Valid && texts[i].String != "" {
				if err := json.Unmarshal([]byte(texts[i].String), &set.Diagnoses); err != nil {
					return nil, fmt.Errorf("decode diagnoses: %w", err)
				}
			}
		} else {
			set.SetText(f, texts[i].String)
		}
		if comments[i].Valid {
			set.Comments[f] = comments[i].String
		}
	}

	return set, nil
}

func loadScores(ctx context.Context, q repository.Querier, sheetID uuid.UUID) (*clinical.ScoreSet, error) {
	columns := make([]string, len(clinical.Fields))
	for i, f := range clinical.Fields {
		columns[i] = scoreColumn(f) + "::float8"
	}

	stmt := fmt.Sprintf(
		"SELECT %s FROM sheet_scores WHERE verified_sheet_id = $1",
		strings.Join(columns, ", "),
	)

	values := make([]float64, len(clinical.Fields))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}

	if err := q.QueryRowContext(ctx, stmt, sheetID).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	raw := make(map[clinical.Field]float64, len(values))
	for i, f := range clinical.Fields {
		raw[f] = values[i]
	}
	set := clinical.NewScoreSet(raw)
	return &set, nil
}
