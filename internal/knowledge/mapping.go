package knowledge

import (
	"github.com/JaimeStill/auditor/pkg/query"
	"github.com/JaimeStill/auditor/pkg/repository"
)

var protocolProjection = query.
	NewProjectionMap("public", "protocols", "p").
	Project("id", "ID").
	Project("title", "Title").
	Project("code", "Code").
	Project("content", "Content").
	Project("source", "Source").
	Project("embedding IS NOT NULL", "Embedded").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var codeProjection = query.
	NewProjectionMap("public", "diagnosis_codes", "c").
	Project("id", "ID").
	Project("code", "Code").
	Project("title", "Title").
	Project("description", "Description").
	Project("source", "Source").
	Project("embedding IS NOT NULL", "Embedded").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var (
	protocolSort = query.SortField{Field: "Title"}
	codeSort     = query.SortField{Field: "Code"}
)

func scanProtocol(s repository.Scanner) (Protocol, error) {
	var p Protocol
	err := s.Scan(
		&p.ID,
		&p.Title,
		&p.Code,
		&p.Content,
		&p.Source,
		&p.Embedded,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func scanDiagnosisCode(s repository.Scanner) (DiagnosisCode, error) {
	var d DiagnosisCode
	err := s.Scan(
		&d.ID,
		&d.Code,
		&d.Title,
		&d.Description,
		&d.Source,
		&d.Embedded,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

func protocolKey(p Protocol) string { return p.ID.String() }

func codeKey(d DiagnosisCode) string { return d.Code }
