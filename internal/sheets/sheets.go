// Package sheets persists advisory sheets awaiting verification and the
// verified records with their field and score breakdowns.
package sheets

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/auditor/internal/clinical"
	"github.com/JaimeStill/auditor/pkg/pagination"
)

// PendingSheet is an uploaded sheet awaiting verification.
type PendingSheet struct {
	ID               uuid.UUID `json:"id"`
	Recording        string    `json:"recording"`
	Body             string    `json:"body"`
	UploadedBy       *string   `json:"uploaded_by,omitempty"`
	OriginalFilename *string   `json:"original_filename,omitempty"`
	StorageKey       *string   `json:"storage_key,omitempty"`
	ContentType      *string   `json:"content_type,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// PendingCommand creates a PendingSheet.
type PendingCommand struct {
	Recording        string
	Body             string
	UploadedBy       *string
	OriginalFilename *string
	StorageKey       *string
	ContentType      *string
}

// VerifiedSheet is the outcome of verifying one recording. Percentage is
// nil until a score breakdown has been saved.
type VerifiedSheet struct {
	ID               uuid.UUID       `json:"id"`
	Recording        string          `json:"recording"`
	Body             string          `json:"body"`
	Status           clinical.Status `json:"status"`
	Narrative        string          `json:"verification"`
	Recommendations  string          `json:"recommendations"`
	VerifiedAt       time.Time       `json:"verified_at"`
	UploadedBy       *string         `json:"uploaded_by,omitempty"`
	OriginalFilename *string         `json:"original_filename,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Percentage       *float64        `json:"percentage,omitempty"`
}

// Detail is a verified sheet with its breakdown. Fields and Scores are nil
// when no breakdown row exists.
type Detail struct {
	VerifiedSheet
	Fields *clinical.FieldSet `json:"fields,omitempty"`
	Scores *clinical.ScoreSet `json:"scores,omitempty"`
}

// PromoteCommand upserts the verified record of a recording.
type PromoteCommand struct {
	Recording        string
	Body             string
	Status           clinical.Status
	Narrative        string
	Recommendations  string
	UploadedBy       *string
	OriginalFilename *string
}

// Statistics summarizes verified sheets matching a filter.
type Statistics struct {
	Total             int                      `json:"total"`
	Pending           int                      `json:"pending"`
	ByStatus          map[clinical.Status]int  `json:"by_status"`
	ByQuality         map[clinical.Quality]int `json:"by_quality"`
	AveragePercentage float64                  `json:"average_percentage"`
}

// System defines the public contract for sheet persistence.
type System interface {
	Handler() *Handler

	CreatePending(ctx context.Context, cmd PendingCommand) (*PendingSheet, error)
	FindPending(ctx context.Context, recording string) (*PendingSheet, error)
	ListPending(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[PendingSheet], error)
	PendingRecordings(ctx context.Context) ([]string, error)
	DeletePending(ctx context.Context, recording string) error

	Promote(ctx context.Context, cmd PromoteCommand) (*VerifiedSheet, error)
	SaveBreakdown(ctx context.Context, sheetID uuid.UUID, fields clinical.FieldSet, analysis map[clinical.Field]clinical.FieldAssessment) error

	Find(ctx context.Context, id uuid.UUID) (*Detail, error)
	FindByRecording(ctx context.Context, recording string) (*Detail, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[VerifiedSheet], error)
	Statistics(ctx context.Context, filters Filters) (*Statistics, error)
}
