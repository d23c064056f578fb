package extraction

import (
	"regexp"

	"github.com/JaimeStill/auditor/internal/clinical"
)

// Alternative is one way of locating a field. The value runs from the end of
// the Heading match to the earliest Terminator match after it, or to the end
// of the text when Terminator is nil or never matches. With LineOnly set the
// value stops at the first newline instead.
type Alternative struct {
	Heading    *regexp.Regexp
	Terminator *regexp.Regexp
	LineOnly   bool
}

// Rule lists the alternatives for one field in priority order.
type Rule struct {
	Field        clinical.Field
	Alternatives []Alternative
}

func heading(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + expr)
}

func until(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + expr)
}

var (
	complaintsEnd   = until(`anamnesis|анамнез|объективн|диагноз|назначени|рекоменд`)
	examinationEnd  = until(`протокол|диагноз|назначени|рекоменд|направлени`)
	studyEnd        = until(`диагноз|назначени|рекоменд|направлени`)
	vitaeEnd        = until(`объективн|диагноз|назначени|рекоменд|протокол`)
	referralsEnd    = until(`назначени|рекоменд|диагноз`)
	prescriptionEnd = until(`рекоменд|примечани`)
)

// Rules holds the ordered alternatives for the nine free-text fields.
var Rules = []Rule{
	{
		Field: clinical.Complaints,
		Alternatives: []Alternative{
			{Heading: heading(`жалобы[:\s]+`), Terminator: complaintsEnd},
			{Heading: heading(`жалобы пациента[:\s]+`), Terminator: complaintsEnd},
		},
	},
	{
		Field: clinical.AnamnesisMorbi,
		Alternatives: []Alternative{
			{Heading: heading(`anamnesis\s+morbi[:\s]+`), Terminator: until(`anamnesis\s+vitae|объективн|диагноз|назначени|рекоменд`)},
			{Heading: heading(`анамнез\s+заболевания[:\s]+`), Terminator: until(`анамнез\s+жизни|объективн|диагноз|назначени|рекоменд`)},
			{Heading: heading(`история\s+заболевания[:\s]+`), Terminator: until(`история\s+жизни|объективн|диагноз|назначени|рекоменд`)},
		},
	},
	{
		Field: clinical.AnamnesisVitae,
		Alternatives: []Alternative{
			{Heading: heading(`anamnesis\s+vitae[:\s]+`), Terminator: vitaeEnd},
			{Heading: heading(`анамнез\s+жизни[:\s]+`), Terminator: vitaeEnd},
			{Heading: heading(`история\s+жизни[:\s]+`), Terminator: vitaeEnd},
		},
	},
	{
		Field: clinical.PhysicalExamination,
		Alternatives: []Alternative{
			{Heading: heading(`объективн(?:ый|ого)?\s+(?:осмотр|статус)[:\s]+`), Terminator: examinationEnd},
			{Heading: heading(`физикальн(?:ый|ого)?\s+осмотр[:\s]+`), Terminator: examinationEnd},
			{Heading: heading(`status\s+(?:praesens|localis)[:\s]+`), Terminator: examinationEnd},
		},
	},
	{
		Field: clinical.StudyProtocol,
		Alternatives: []Alternative{
			{Heading: heading(`протокол\s+исследования[:\s]+`), Terminator: studyEnd},
			{Heading: heading(`результат(?:ы)?\s+исследовани(?:й|я)[:\s]+`), Terminator: studyEnd},
			{Heading: heading(`лабораторн(?:ые|ых)?\s+(?:данные|исследования)[:\s]+`), Terminator: studyEnd},
		},
	},
	{
		Field: clinical.Referrals,
		Alternatives: []Alternative{
			{Heading: heading(`направлени(?:я|е)[:\s]+`), Terminator: referralsEnd},
			{Heading: heading(`консультаци(?:я|и)[:\s]+`), Terminator: referralsEnd},
		},
	},
	{
		Field: clinical.Prescriptions,
		Alternatives: []Alternative{
			{Heading: heading(`назначени(?:я|е)[:\s]+`), Terminator: prescriptionEnd},
			{Heading: heading(`лечение[:\s]+`), Terminator: prescriptionEnd},
			{Heading: heading(`терапия[:\s]+`), Terminator: prescriptionEnd},
		},
	},
	{
		Field: clinical.Recommendations,
		Alternatives: []Alternative{
			{Heading: heading(`рекоменд(?:ации|аций)(?:\s+врача)?[:\s]+`), Terminator: until(`примечани|заключение|notes`)},
			{Heading: heading(`заключение[:\s]+`), Terminator: until(`примечани|notes`)},
		},
	},
	{
		Field: clinical.Notes,
		Alternatives: []Alternative{
			{Heading: heading(`примечани(?:е|я)[:\s]+`), LineOnly: true},
			{Heading: heading(`notes?[:\s]+`), LineOnly: true},
		},
	},
}

// Diagnosis sub-patterns. Code, disease, and type are searched only inside
// the located diagnosis section.
var (
	diagnosisSection = Alternative{
		Heading:    heading(`диагноз(?:ы)?[:\s]+`),
		Terminator: until(`направлени|назначени|рекоменд|примечани`),
	}

	codeLabelled = regexp.MustCompile(`(?i)(?:код\s+мкб|мкб)[:\s-]*([A-Z]\d{2}(?:\.\d{1,2})?)`)
	codeShaped   = regexp.MustCompile(`(?i)\b[A-Z]\d{2}(?:\.\d{1,2})?\b`)

	primaryDisease = Alternative{
		Heading:    heading(`(?:основн(?:ое|ой)\s+заболевани(?:е|я)|клинический\s+диагноз)[:\s-]*`),
		Terminator: until(`\(|код|вид|\n`),
	}

	diagnosisTypes = []Alternative{
		{Heading: heading(`вид\s+диагноза[:\s-]*`), LineOnly: true},
		{Heading: heading(`(?:^|[^\p{L}])тип[:\s-]+`), LineOnly: true},
	}
)
