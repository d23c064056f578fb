// Package clinical defines the structured vocabulary shared by the
// verification pipeline: the ten clinical fields of an advisory sheet,
// verification statuses, and per-field quality scores.
package clinical

import "strings"

// Field names one of the ten clinical sections of an advisory sheet.
type Field string

const (
	Complaints          Field = "complaints"
	AnamnesisMorbi      Field = "anamnesis_morbi"
	AnamnesisVitae      Field = "anamnesis_vitae"
	PhysicalExamination Field = "physical_examination"
	StudyProtocol       Field = "study_protocol"
	Diagnoses           Field = "diagnoses"
	Referrals           Field = "referrals"
	Prescriptions       Field = "prescriptions"
	Recommendations     Field = "recommendations"
	Notes               Field = "notes"
)

// Fields lists every clinical field in document order.
var Fields = []Field{
	Complaints,
	AnamnesisMorbi,
	AnamnesisVitae,
	PhysicalExamination,
	StudyProtocol,
	Diagnoses,
	Referrals,
	Prescriptions,
	Recommendations,
	Notes,
}

var labels = map[Field]string{
	Complaints:          "Жалобы",
	AnamnesisMorbi:      "Анамнез заболевания",
	AnamnesisVitae:      "Анамнез жизни",
	PhysicalExamination: "Объективные данные",
	StudyProtocol:       "Протокол исследования",
	Diagnoses:           "Диагнозы",
	Referrals:           "Направления",
	Prescriptions:       "Назначения",
	Recommendations:     "Рекомендации",
	Notes:               "Примечание",
}

// Label returns the display heading of the field.
func (f Field) Label() string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// Valid reports whether f is one of the ten known fields.
func (f Field) Valid() bool {
	_, ok := labels[f]
	return ok
}

// Diagnosis is the structured diagnoses field.
type Diagnosis struct {
	Code           string `json:"code,omitempty"`
	PrimaryDisease string `json:"primary_disease,omitempty"`
	DiagnosisType  string `json:"diagnosis_type,omitempty"`
}

// IsEmpty reports whether no diagnosis sub-field is set.
func (d Diagnosis) IsEmpty() bool {
	return strings.TrimSpace(d.Code) == "" &&
		strings.TrimSpace(d.PrimaryDisease) == "" &&
		strings.TrimSpace(d.DiagnosisType) == ""
}

// FieldSet is the structured decomposition of one advisory sheet.
type FieldSet struct {
	Complaints          string    `json:"complaints"`
	AnamnesisMorbi      string    `json:"anamnesis_morbi"`
	AnamnesisVitae      string    `json:"anamnesis_vitae"`
	PhysicalExamination string    `json:"physical_examination"`
	StudyProtocol       string    `json:"study_protocol"`
	Diagnoses           Diagnosis `json:"diagnoses"`
	Referrals           string    `json:"referrals"`
	Prescriptions       string    `json:"prescriptions"`
	Recommendations     string    `json:"recommendations"`
	Notes               string    `json:"notes"`

	// Comments holds the optional reviewer comment per field.
	Comments map[Field]string `json:"comments,omitempty"`
}

func (s *FieldSet) textField(f Field) *string {
	switch f {
	case Complaints:
		return &s.Complaints
	case AnamnesisMorbi:
		return &s.AnamnesisMorbi
	case AnamnesisVitae:
		return &s.AnamnesisVitae
	case PhysicalExamination:
		return &s.PhysicalExamination
	case StudyProtocol:
		return &s.StudyProtocol
	case Referrals:
		return &s.Referrals
	case Prescriptions:
		return &s.Prescriptions
	case Recommendations:
		return &s.Recommendations
	case Notes:
		return &s.Notes
	}
	return nil
}

// Text returns the value of a free-text field. Diagnoses and unknown fields return "".
func (s FieldSet) Text(f Field) string {
	if p := s.textField(f); p != nil {
		return *p
	}
	return ""
}

// SetText assigns a free-text field. Diagnoses and unknown fields are ignored.
func (s *FieldSet) SetText(f Field, value string) {
	if p := s.textField(f); p != nil {
		*p = value
	}
}

// Present reports whether field f carries a non-blank value.
func (s FieldSet) Present(f Field) bool {
	if f == Diagnoses {
		return !s.Diagnoses.IsEmpty()
	}
	return strings.TrimSpace(s.Text(f)) != ""
}

// IsEmpty reports whether every field is blank.
func (s FieldSet) IsEmpty() bool {
	for _, f := range Fields {
		if s.Present(f) {
			return false
		}
	}
	return true
}

// Validate returns ErrEmptyFieldSet when no field carries a value.
func (s FieldSet) Validate() error {
	if s.IsEmpty() {
		return ErrEmptyFieldSet
	}
	return nil
}

// FieldAssessment is the judgement for one field: a normalized score and a short comment.
type FieldAssessment struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment,omitempty"`
}

var emptyMarkers = []string{
	"не указано",
	"не заполнено",
	"нет данных",
	"н/д",
	"отсутствует",
	"—",
	"-",
	".",
	"…",
}

// Filled reports whether value carries content beyond a placeholder such as "не указано".
func Filled(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return false
	}
	for _, m := range emptyMarkers {
		if v == m {
			return false
		}
	}
	return true
}
