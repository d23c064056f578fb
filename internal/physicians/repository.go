package physicians

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/auditor/pkg/pagination"
	"github.com/JaimeStill/auditor/pkg/query"
	"github.com/JaimeStill/auditor/pkg/repository"
)

const fallbackLockKey = "physicians:fallback-email"

var errEmailAllocation = errors.New("fallback email allocation failed")

type repo struct {
	db         *sql.DB
	directory  Directory
	cfg        Config
	logger     *slog.Logger
	pagination pagination.Config
	now        func() time.Time
}

// New creates a physician repository implementing the System interface.
// A nil directory disables the external lookup.
func New(db *sql.DB, directory Directory, cfg Config, logger *slog.Logger, pagination pagination.Config) System {
	if directory == nil {
		directory = NoDirectory{}
	}
	return &repo{
		db:         db,
		directory:  directory,
		cfg:        cfg,
		logger:     logger.With("system", "physicians"),
		pagination: pagination,
		now:        time.Now,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

// FindOrCreate resolves hints to a physician account. Matching runs from
// the cheapest signal to the most expensive: email, exact name, name with
// Kazakh letters normalized, then the external directory. When nothing
// matches an account is created, with a sequential fallback email if the
// hints carry none. Matched accounts have blank attributes filled in.
func (r *repo) FindOrCreate(ctx context.Context, h Hints) (*Physician, error) {
	h = trimHints(h)
	if h.IsEmpty() {
		return nil, ErrInsufficientHints
	}

	if h.Email != "" {
		p, err := r.findByEmail(ctx, h.Email)
		if err == nil {
			return r.fillBlanks(ctx, p, h, "email"), nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	if h.HasName() {
		for _, normalized := range []bool{false, true} {
			p, err := r.findByName(ctx, h, normalized)
			if err == nil {
				strategy := "name"
				if normalized {
					strategy = "normalized_name"
				}
				return r.fillBlanks(ctx, p, h, strategy), nil
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
		}

		if found := r.lookup(ctx, h); found != nil {
			merged := mergeHints(h, *found)
			p, err := r.create(ctx, merged)
			if err == nil {
				r.logger.Info("physician created from directory", "id", p.ID)
				return p, nil
			}
			if errors.Is(err, ErrDuplicate) && merged.Email != "" {
				if p, err := r.findByEmail(ctx, merged.Email); err == nil {
					return r.fillBlanks(ctx, p, merged, "directory_email"), nil
				}
			}
			r.logger.Warn("directory match not stored", "error", err)
		}
	}

	p, err := r.create(ctx, h)
	if err != nil {
		return nil, err
	}
	r.logger.Info("physician created", "id", p.ID, "supervised", p.SupervisorID != nil)
	return p, nil
}

func (r *repo) Link(ctx context.Context, physicianID, sheetID uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO physician_sheets (physician_id, verified_sheet_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			physicianID, sheetID,
		); err != nil {
			return struct{}{}, fmt.Errorf("link physician: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO supervisor_sheets (supervisor_id, verified_sheet_id)
			SELECT supervisor_id, $2 FROM physicians
			WHERE id = $1 AND supervisor_id IS NOT NULL
			ON CONFLICT DO NOTHING`,
			physicianID, sheetID,
		); err != nil {
			return struct{}{}, fmt.Errorf("link supervisor: %w", err)
		}

		return struct{}{}, nil
	})
	if repository.IsForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	r.logger.Info("physician linked", "physician_id", physicianID, "sheet_id", sheetID)
	return nil
}

func (r *repo) LinkByTaxID(ctx context.Context, taxID string, sheetID uuid.UUID) (*Physician, error) {
	taxID = strings.TrimSpace(taxID)
	if taxID == "" {
		return nil, ErrInsufficientHints
	}

	qb := query.NewBuilder(projection).WhereEquals("TaxID", taxID)
	q, args := qb.BuildSingleOrNull()

	p, err := repository.QueryOne(ctx, r.db, q, args, scanPhysician)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if err := r.Link(ctx, p.ID, sheetID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Physician, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanPhysician)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Physician], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "LastName", "FirstName", "Email", "Clinic")
	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	return repository.QueryPage(ctx, r.db, qb, page, scanPhysician)
}

func (r *repo) Sheets(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}

	ids, err := repository.QueryMany(
		ctx, r.db,
		"SELECT verified_sheet_id FROM physician_sheets WHERE physician_id = $1 ORDER BY created_at",
		[]any{id},
		func(s repository.Scanner) (uuid.UUID, error) {
			var id uuid.UUID
			err := s.Scan(&id)
			return id, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("list physician sheets: %w", err)
	}
	return ids, nil
}

func (r *repo) findByEmail(ctx context.Context, email string) (Physician, error) {
	q, args := query.NewBuilder(projection).BuildSingle("Email", email)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanPhysician)
	if err != nil {
		return Physician{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return p, nil
}

// findByName matches last and first name. An account whose middle name is
// blank or unknown matches any hint; otherwise the hint must carry the same
// middle name, and that exact match is preferred. When normalized is set
// both sides are compared with Kazakh letters replaced.
func (r *repo) findByName(ctx context.Context, h Hints, normalized bool) (Physician, error) {
	if normalized {
		h = h.Normalized()
	}

	last := nameExpr("last_name", normalized)
	first := nameExpr("first_name", normalized)
	middle := nameExpr("middle_name", normalized)

	q := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s = $2
			AND (($3::text <> '' AND %s = $3::text) OR COALESCE(p.middle_name, '') IN ('', $4, $5))
		ORDER BY (%s = $3::text) DESC, p.created_at
		LIMIT 1`,
		projection.Columns(), projection.From(),
		last, first,
		middle,
		middle,
	)

	args := []any{h.LastName, h.FirstName, h.MiddleName, NotSpecified, Unknown}
	p, err := repository.QueryOne(ctx, r.db, q, args, scanPhysician)
	if err != nil {
		return Physician{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return p, nil
}

func nameExpr(column string, normalized bool) string {
	expr := "COALESCE(p." + column + ", '')"
	if !normalized {
		return expr
	}
	return fmt.Sprintf("translate(%s, '%s', '%s')", expr, kazakhLetters, russianLetters)
}

func (r *repo) lookup(ctx context.Context, h Hints) *Hints {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.DirectoryTimeoutDuration())
	defer cancel()

	found, err := r.directory.Find(ctx, h)
	if err != nil {
		if !errors.Is(err, ErrNotInDirectory) {
			r.logger.Warn("physician directory lookup failed", "error", err)
		}
		return nil
	}
	return found
}

// fillBlanks stores attributes from h that p is missing. Update failures
// are logged and the stored account is returned unchanged.
func (r *repo) fillBlanks(ctx context.Context, p Physician, h Hints, strategy string) *Physician {
	updated, changed := mergeBlanks(p, h)

	if updated.SupervisorID == nil {
		id, err := findSupervisor(ctx, r.db, updated.Clinic)
		if err != nil {
			r.logger.Warn("supervisor lookup failed", "error", err)
		} else if id != nil {
			updated.SupervisorID = id
			changed = true
		}
	}

	r.logger.Info("physician matched", "id", p.ID, "strategy", strategy, "updated", changed)
	if !changed {
		return &p
	}

	q := fmt.Sprintf(`
		UPDATE physicians AS p SET
			specialization = $2,
			department = $3,
			clinic = $4,
			tax_id = $5,
			supervisor_id = $6,
			updated_at = NOW()
		WHERE p.id = $1
		RETURNING %s`, projection.Columns())

	args := []any{p.ID, updated.Specialization, updated.Department, updated.Clinic, updated.TaxID, updated.SupervisorID}
	saved, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Physician, error) {
		return repository.QueryOne(ctx, tx, q, args, scanPhysician)
	})
	if err != nil {
		r.logger.Warn("physician update failed", "id", p.ID, "error", err)
		return &p
	}
	return &saved
}

func (r *repo) create(ctx context.Context, h Hints) (*Physician, error) {
	rec := newRecord(h, r.now())

	p, err := r.insert(ctx, rec)
	if errors.Is(err, errEmailAllocation) {
		r.logger.Error("fallback email allocation failed", "error", err)
		rec.Email = fallbackEmail(r.now().UnixNano(), r.cfg.EmailDomain)
		p, err = r.insert(ctx, rec)
	}
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) insert(ctx context.Context, rec record) (Physician, error) {
	q := fmt.Sprintf(`
		INSERT INTO physicians AS p (email, last_name, first_name, middle_name, specialization, department, clinic, tax_id, identifier, supervisor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING %s`, projection.Columns())

	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Physician, error) {
		email := rec.Email
		if email == "" {
			next, err := r.nextFallbackEmail(ctx, tx)
			if err != nil {
				return Physician{}, fmt.Errorf("%w: %w", errEmailAllocation, err)
			}
			email = next
		}

		supervisorID, err := findSupervisor(ctx, tx, rec.Clinic)
		if err != nil {
			return Physician{}, err
		}

		args := []any{
			email,
			rec.LastName,
			rec.FirstName,
			rec.MiddleName,
			rec.Specialization,
			rec.Department,
			rec.Clinic,
			rec.TaxID,
			rec.Identifier,
			supervisorID,
		}
		return repository.QueryOne(ctx, tx, q, args, scanPhysician)
	})
}

// nextFallbackEmail allocates the next doctor-N address. The advisory lock
// serializes allocation across processes until tx ends.
func (r *repo) nextFallbackEmail(ctx context.Context, tx *sql.Tx) (string, error) {
	if err := repository.AdvisoryLock(ctx, tx, fallbackLockKey); err != nil {
		return "", err
	}

	emails, err := repository.QueryMany(
		ctx, tx,
		"SELECT email FROM physicians WHERE email LIKE $1 FOR UPDATE",
		[]any{"doctor-%@" + r.cfg.EmailDomain},
		func(s repository.Scanner) (string, error) {
			var e string
			err := s.Scan(&e)
			return e, err
		},
	)
	if err != nil {
		return "", fmt.Errorf("read fallback emails: %w", err)
	}

	return fallbackEmail(nextFallbackNumber(emails), r.cfg.EmailDomain), nil
}

var fallbackNumber = regexp.MustCompile(`^doctor-(\d+)@`)

func nextFallbackNumber(emails []string) int64 {
	var highest int64
	for _, e := range emails {
		m := fallbackNumber.FindStringSubmatch(e)
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1
}

func fallbackEmail(n int64, domain string) string {
	return fmt.Sprintf("doctor-%d@%s", n, domain)
}

func findSupervisor(ctx context.Context, q repository.Querier, clinic string) (*uuid.UUID, error) {
	if Blank(clinic) {
		return nil, nil
	}

	var id uuid.UUID
	err := q.QueryRowContext(ctx,
		"SELECT id FROM supervisors WHERE clinic = $1 ORDER BY created_at LIMIT 1",
		clinic,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find supervisor: %w", err)
	}
	return &id, nil
}
