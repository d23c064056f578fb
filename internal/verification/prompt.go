package verification

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/auditor/internal/clinical"
	"github.com/JaimeStill/auditor/internal/extraction"
	"github.com/JaimeStill/auditor/internal/knowledge"
)

// Per-item limits keep the prompt bounded.
const (
	ProtocolLimit = 2000
	FieldLimit    = 500
)

const instructions = `Ты медицинский аудитор. Проверь консультативный лист на соответствие клиническим протоколам МЗ РК и кодам МКБ-10.`

const responseFormat = `Проанализируй консультативный лист и ответь СТРОГО в формате JSON:
{
  "status": "compliant" или "partial" или "non-compliant",
  "narrative": "подробное описание результата проверки",
  "recommendations": "рекомендации по исправлению (если есть)",
  "field_analysis": {
%s
  }
}

Критерии статуса:
- "compliant" - полное соответствие протоколам и МКБ
- "partial" - частичное соответствие, есть незначительные отклонения
- "non-compliant" - существенные нарушения протоколов или неверные коды МКБ

Для каждого из 10 разделов укажи score от 0 до 1 (0 - раздел отсутствует или заполнен неверно, 0.5 - заполнен частично, 1 - заполнен полностью и корректно) и краткий comment.

Ответь ТОЛЬКО JSON без дополнительного текста.`

// BuildPrompt assembles the verification prompt from retrieved knowledge,
// the sanitized sheet, and the extracted fields. Only present fields are
// rendered.
func BuildPrompt(
	sanitized string,
	protocols []knowledge.Protocol,
	codes []knowledge.DiagnosisCode,
	fields clinical.FieldSet,
) string {
	var b strings.Builder

	b.WriteString(instructions)
	b.WriteString("\n\nПРОТОКОЛЫ МЗ РК:\n")
	b.WriteString(protocolSection(protocols))
	b.WriteString("\n\nКОДЫ МКБ:\n")
	b.WriteString(codeSection(codes))
	b.WriteString("\n\nКОНСУЛЬТАТИВНЫЙ ЛИСТ (без персональных данных):\n")
	b.WriteString(sanitized)

	if section := fieldSection(fields); section != "" {
		b.WriteString("\n\nИЗВЛЕЧЕННЫЕ РАЗДЕЛЫ:\n")
		b.WriteString(section)
	}

	b.WriteString("\n\n")
	fmt.Fprintf(&b, responseFormat, analysisTemplate())

	return b.String()
}

func protocolSection(protocols []knowledge.Protocol) string {
	parts := make([]string, 0, len(protocols))
	for _, p := range protocols {
		parts = append(parts, p.Title+":\n"+extraction.Truncate(p.Content, ProtocolLimit))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func codeSection(codes []knowledge.DiagnosisCode) string {
	parts := make([]string, 0, len(codes))
	for _, c := range codes {
		line := c.Code + ": " + c.Title
		if c.Description != nil && *c.Description != "" {
			line += "\n" + *c.Description
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "\n")
}

func fieldSection(fields clinical.FieldSet) string {
	var parts []string

	for _, f := range clinical.Fields {
		if !fields.Present(f) {
			continue
		}
		if f == clinical.Diagnoses {
			parts = append(parts, f.Label()+":\n"+diagnosisLines(fields.Diagnoses))
			continue
		}
		parts = append(parts, f.Label()+": "+extraction.Truncate(fields.Text(f), FieldLimit))
	}

	return strings.Join(parts, "\n")
}

func diagnosisLines(d clinical.Diagnosis) string {
	var lines []string
	if d.Code != "" {
		lines = append(lines, "  Код МКБ: "+d.Code)
	}
	if d.PrimaryDisease != "" {
		lines = append(lines, "  Основное заболевание: "+extraction.Truncate(d.PrimaryDisease, FieldLimit))
	}
	if d.DiagnosisType != "" {
		lines = append(lines, "  Вид диагноза: "+d.DiagnosisType)
	}
	return strings.Join(lines, "\n")
}

func analysisTemplate() string {
	lines := make([]string, len(clinical.Fields))
	for i, f := range clinical.Fields {
		sep := ","
		if i == len(clinical.Fields)-1 {
			sep = ""
		}
		lines[i] = fmt.Sprintf(`    "%s": {"score": 0.0, "comment": "замечание по разделу «%s»"}%s`, f, f.Label(), sep)
	}
	return strings.Join(lines, "\n")
}
