package physicians

import (
	"strings"
	"time"
)

// record holds the column values of a physician about to be inserted.
type record struct {
	Email          string
	LastName       string
	FirstName      string
	MiddleName     *string
	Specialization string
	Department     string
	Clinic         string
	TaxID          *string
	Identifier     string
}

func newRecord(h Hints, now time.Time) record {
	rec := record{
		Email:          h.Email,
		LastName:       orDefault(h.LastName, Unknown),
		FirstName:      orDefault(h.FirstName, Unknown),
		Specialization: orDefault(h.Specialization, NotSpecified),
		Department:     orDefault(h.Department, NotSpecified),
		Clinic:         h.Clinic,
		Identifier:     Identifier(h.LastName, h.FirstName, now),
	}

	if h.MiddleName != "" {
		rec.MiddleName = &h.MiddleName
	}
	if h.TaxID != "" {
		rec.TaxID = &h.TaxID
	}
	if Blank(rec.Clinic) {
		rec.Clinic = ClinicFor(h.Department)
	}

	return rec
}

// mergeBlanks copies attributes from h into the ones p is missing and
// reports whether anything changed. A missing clinic falls back to one
// derived from the hinted department.
func mergeBlanks(p Physician, h Hints) (Physician, bool) {
	changed := false

	if Blank(p.Specialization) && h.Specialization != "" {
		p.Specialization = h.Specialization
		changed = true
	}

	if Blank(p.Department) && h.Department != "" {
		p.Department = h.Department
		changed = true
	}

	if Blank(p.Clinic) {
		switch {
		case h.Clinic != "":
			p.Clinic = h.Clinic
			changed = true
		case h.Department != "":
			p.Clinic = ClinicFor(h.Department)
			changed = true
		}
	}

	if p.TaxID == nil && h.TaxID != "" {
		taxID := h.TaxID
		p.TaxID = &taxID
		changed = true
	}

	return p, changed
}

// mergeHints overlays directory results on sheet hints. The sheet keeps
// the tax ID since directories do not publish it.
func mergeHints(sheet, directory Hints) Hints {
	directory = trimHints(directory)
	merged := sheet

	for _, f := range []struct {
		dst *string
		src string
	}{
		{&merged.LastName, directory.LastName},
		{&merged.FirstName, directory.FirstName},
		{&merged.MiddleName, directory.MiddleName},
		{&merged.Specialization, directory.Specialization},
		{&merged.Department, directory.Department},
		{&merged.Clinic, directory.Clinic},
		{&merged.Email, directory.Email},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}

	return merged
}

func trimHints(h Hints) Hints {
	h.LastName = strings.TrimSpace(h.LastName)
	h.FirstName = strings.TrimSpace(h.FirstName)
	h.MiddleName = strings.TrimSpace(h.MiddleName)
	h.Specialization = strings.TrimSpace(h.Specialization)
	h.Department = strings.TrimSpace(h.Department)
	h.Clinic = strings.TrimSpace(h.Clinic)
	h.Email = strings.ToLower(strings.TrimSpace(h.Email))
	h.TaxID = strings.TrimSpace(h.TaxID)
	return h
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
