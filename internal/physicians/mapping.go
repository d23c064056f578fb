package physicians

import (
	"github.com/JaimeStill/auditor/pkg/query"
	"github.com/JaimeStill/auditor/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "physicians", "p").
	Project("id", "ID").
	Project("email", "Email").
	Project("last_name", "LastName").
	Project("first_name", "FirstName").
	Project("middle_name", "MiddleName").
	Project("specialization", "Specialization").
	Project("department", "Department").
	Project("clinic", "Clinic").
	Project("tax_id", "TaxID").
	Project("identifier", "Identifier").
	Project("supervisor_id", "SupervisorID").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "LastName"}

func scanPhysician(s repository.Scanner) (Physician, error) {
	var p Physician
	err := s.Scan(
		&p.ID,
		&p.Email,
		&p.LastName,
		&p.FirstName,
		&p.MiddleName,
		&p.Specialization,
		&p.Department,
		&p.Clinic,
		&p.TaxID,
		&p.Identifier,
		&p.SupervisorID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}
