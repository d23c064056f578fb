// Package physicians resolves the physician who authored an advisory sheet
// to a stored account and links the account to verified sheets.
package physicians

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/auditor/pkg/pagination"
)

// Placeholder values stored for attributes the source did not provide.
const (
	NotSpecified = "Не указано"
	Unknown      = "Неизвестно"
)

// Physician is a stored physician account.
type Physician struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	LastName       string     `json:"last_name"`
	FirstName      string     `json:"first_name"`
	MiddleName     *string    `json:"middle_name,omitempty"`
	Specialization string     `json:"specialization"`
	Department     string     `json:"department"`
	Clinic         string     `json:"clinic"`
	TaxID          *string    `json:"-"`
	Identifier     string     `json:"identifier"`
	SupervisorID   *uuid.UUID `json:"supervisor_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FullName joins the name parts that are set.
func (p Physician) FullName() string {
	parts := []string{p.LastName, p.FirstName}
	if p.MiddleName != nil {
		parts = append(parts, *p.MiddleName)
	}
	return joinFilled(parts...)
}

// Hints are the identity attributes known about a physician, either read
// from a sheet or returned by the external directory. Empty fields are unknown.
type Hints struct {
	LastName       string `json:"last_name,omitempty"`
	FirstName      string `json:"first_name,omitempty"`
	MiddleName     string `json:"middle_name,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	Department     string `json:"department,omitempty"`
	Clinic         string `json:"clinic,omitempty"`
	Email          string `json:"email,omitempty"`
	TaxID          string `json:"-"`
}

// FullName joins the name parts that are set.
func (h Hints) FullName() string {
	return joinFilled(h.LastName, h.FirstName, h.MiddleName)
}

// HasName reports whether both last and first name are known.
func (h Hints) HasName() bool {
	return strings.TrimSpace(h.LastName) != "" && strings.TrimSpace(h.FirstName) != ""
}

// IsEmpty reports whether the hints carry nothing to resolve by.
func (h Hints) IsEmpty() bool {
	return !h.HasName() && strings.TrimSpace(h.Email) == ""
}

// Directory looks physicians up in an external registry. Find returns
// ErrNotInDirectory when the registry has no match.
type Directory interface {
	Find(ctx context.Context, hints Hints) (*Hints, error)
}

// NoDirectory is a Directory that never finds anyone.
type NoDirectory struct{}

func (NoDirectory) Find(context.Context, Hints) (*Hints, error) {
	return nil, ErrNotInDirectory
}

// Resolver matches sheet authors to physician accounts.
type Resolver interface {
	FindOrCreate(ctx context.Context, hints Hints) (*Physician, error)
	Link(ctx context.Context, physicianID, sheetID uuid.UUID) error
	LinkByTaxID(ctx context.Context, taxID string, sheetID uuid.UUID) (*Physician, error)
}

// System defines the public contract for physician accounts.
type System interface {
	Resolver

	Handler() *Handler

	Find(ctx context.Context, id uuid.UUID) (*Physician, error)
	List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Physician], error)
	Sheets(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

func joinFilled(parts ...string) string {
	filled := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			filled = append(filled, p)
		}
	}
	return strings.Join(filled, " ")
}
