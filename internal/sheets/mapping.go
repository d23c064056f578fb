package sheets

import (
	"math"
	"net/url"
	"time"

	"github.com/JaimeStill/auditor/internal/clinical"
	"github.com/JaimeStill/auditor/pkg/query"
	"github.com/JaimeStill/auditor/pkg/repository"
)

var pendingProjection = query.
	NewProjectionMap("public", "pending_sheets", "p").
	Project("id", "ID").
	Project("recording", "Recording").
	Project("body", "Body").
	Project("uploaded_by", "UploadedBy").
	Project("original_filename", "OriginalFilename").
	Project("storage_key", "StorageKey").
	Project("content_type", "ContentType").
	Project("created_at", "CreatedAt")

var verifiedColumns = query.
	NewProjectionMap("public", "verified_sheets", "v").
	Project("id", "ID").
	Project("recording", "Recording").
	Project("body", "Body").
	Project("status", "Status").
	Project("verification", "Narrative").
	Project("recommendations", "Recommendations").
	Project("verified_at", "VerifiedAt").
	Project("uploaded_by", "UploadedBy").
	Project("original_filename", "OriginalFilename").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var verifiedProjection = query.
	NewProjectionMap("public", "verified_sheets", "v").
	Project("id", "ID").
	Project("recording", "Recording").
	Project("body", "Body").
	Project("status", "Status").
	Project("verification", "Narrative").
	Project("recommendations", "Recommendations").
	Project("verified_at", "VerifiedAt").
	Project("uploaded_by", "UploadedBy").
	Project("original_filename", "OriginalFilename").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	LeftJoin("public", "sheet_scores", "s", "s.verified_sheet_id = v.id").
	ProjectFrom("s", "percentage::float8", "Percentage")

var (
	pendingSort  = query.SortField{Field: "CreatedAt"}
	verifiedSort = query.SortField{Field: "VerifiedAt", Descending: true}
)

// Filters contains optional criteria for verified sheet queries. Nil fields
// are ignored. Recording uses case-insensitive contains matching; From and
// To bound VerifiedAt as [From, To); Quality selects a percentage bucket.
type Filters struct {
	Status     *string    `json:"status,omitempty"`
	Recording  *string    `json:"recording,omitempty"`
	UploadedBy *string    `json:"uploaded_by,omitempty"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
	Quality    *string    `json:"quality,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.
		WhereEquals("Status", f.Status).
		WhereContains("Recording", f.Recording).
		WhereEquals("UploadedBy", f.UploadedBy).
		WhereAtLeast("VerifiedAt", f.From).
		WhereBefore("VerifiedAt", f.To)

	if f.Quality != nil {
		if lo, hi, ok := clinical.Quality(*f.Quality).Bounds(); ok {
			if !math.IsInf(lo, -1) {
				b.WhereAtLeast("Percentage", lo)
			}
			if !math.IsInf(hi, 1) {
				b.WhereBefore("Percentage", hi)
			}
		}
	}

	return b
}

// Validate rejects unknown status and quality values.
func (f Filters) Validate() error {
	if f.Status != nil && !clinical.Status(*f.Status).Valid() {
		return ErrInvalidStatus
	}
	if f.Quality != nil {
		if _, _, ok := clinical.Quality(*f.Quality).Bounds(); !ok {
			return ErrInvalidSheet
		}
	}
	return nil
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Dates accept RFC 3339 or YYYY-MM-DD.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if r := values.Get("recording"); r != "" {
		f.Recording = &r
	}

	if u := values.Get("uploaded_by"); u != "" {
		f.UploadedBy = &u
	}

	if t, ok := parseDate(values.Get("from")); ok {
		f.From = &t
	}

	if t, ok := parseDate(values.Get("to")); ok {
		f.To = &t
	}

	if q := values.Get("quality"); q != "" {
		f.Quality = &q
	}

	return f
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func scanPending(s repository.Scanner) (PendingSheet, error) {
	var p PendingSheet
	err := s.Scan(
		&p.ID,
		&p.Recording,
		&p.Body,
		&p.UploadedBy,
		&p.OriginalFilename,
		&p.StorageKey,
		&p.ContentType,
		&p.CreatedAt,
	)
	return p, err
}

func scanVerifiedColumns(v *VerifiedSheet) []any {
	return []any{
		&v.ID,
		&v.Recording,
		&v.Body,
		&v.Status,
		&v.Narrative,
		&v.Recommendations,
		&v.VerifiedAt,
		&v.UploadedBy,
		&v.OriginalFilename,
		&v.CreatedAt,
		&v.UpdatedAt,
	}
}

func scanPromoted(s repository.Scanner) (VerifiedSheet, error) {
	var v VerifiedSheet
	err := s.Scan(scanVerifiedColumns(&v)...)
	return v, err
}

func scanVerified(s repository.Scanner) (VerifiedSheet, error) {
	var v VerifiedSheet
	err := s.Scan(append(scanVerifiedColumns(&v), &v.Percentage)...)
	return v, err
}
