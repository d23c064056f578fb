package extraction_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/JaimeStill/auditor/internal/clinical"
	"github.com/JaimeStill/auditor/internal/extraction"
)

const sheet = "Жалобы: головная боль, слабость.\n" +
	"Анамнез заболевания: болеет в течение недели.\n" +
	"Анамнез жизни: без особенностей.\n" +
	"Объективный осмотр: состояние удовлетворительное.\n" +
	"Протокол исследования: глюкоза 9.1 ммоль/л.\n" +
	"Диагноз: Основное заболевание: Сахарный диабет 2 типа (E11.9)\n" +
	"Код МКБ: E11.9\n" +
	"Вид диагноза: основной\n" +
	"Направления: эндокринолог.\n" +
	"Назначения: метформин 500 мг.\n" +
	"Рекомендации: диета.\n" +
	"Примечание: повторный прием через месяц."

func TestExtractFullSheet(t *testing.T) {
	fields, trace := extraction.ExtractTrace(sheet)

	tests := []struct {
		field     clinical.Field
		want      string
		wantIndex int
	}{
		{clinical.Complaints, "головная боль, слабость.", 0},
		{clinical.AnamnesisMorbi, "болеет в течение недели.", 1},
		{clinical.AnamnesisVitae, "без особенностей.", 1},
		{clinical.PhysicalExamination, "состояние удовлетворительное.", 0},
		{clinical.StudyProtocol, "глюкоза 9.1 ммоль/л.", 0},
		{clinical.Referrals, "эндокринолог.", 0},
		{clinical.Prescriptions, "метформин 500 мг.", 0},
		{clinical.Recommendations, "диета.", 0},
		{clinical.Notes, "повторный прием через месяц.", 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			if got := fields.Text(tt.field); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.field, got, tt.want)
			}
			if idx, ok := trace.Fired(tt.field); !ok || idx != tt.wantIndex {
				t.Errorf("trace[%s] = %d, %v; want %d", tt.field, idx, ok, tt.wantIndex)
			}
		})
	}

	want := clinical.Diagnosis{
		Code:           "E11.9",
		PrimaryDisease: "Сахарный диабет 2 типа",
		DiagnosisType:  "основной",
	}
	if fields.Diagnoses != want {
		t.Errorf("diagnoses = %+v, want %+v", fields.Diagnoses, want)
	}
	if _, ok := trace.Fired(clinical.Diagnoses); !ok {
		t.Error("diagnoses trace should report the section")
	}
}

func TestExtractLaterAlternatives(t *testing.T) {
	fields, trace := extraction.ExtractTrace("История заболевания: 3 дня\nЛечение: покой")

	if idx, _ := trace.Fired(clinical.AnamnesisMorbi); idx != 2 {
		t.Errorf("anamnesis_morbi alternative = %d, want 2", idx)
	}
	if idx, _ := trace.Fired(clinical.Prescriptions); idx != 1 {
		t.Errorf("prescriptions alternative = %d, want 1", idx)
	}
	if fields.Prescriptions != "покой" {
		t.Errorf("prescriptions = %q, want покой", fields.Prescriptions)
	}
}

func TestExtractBlankAlternativeFallsThrough(t *testing.T) {
	fields, trace := extraction.ExtractTrace("Назначения: \nРекомендации: диета\nЛечение: инсулин")

	if fields.Prescriptions != "инсулин" {
		t.Errorf("prescriptions = %q, want инсулин", fields.Prescriptions)
	}
	if idx, _ := trace.Fired(clinical.Prescriptions); idx != 1 {
		t.Errorf("prescriptions alternative = %d, want 1", idx)
	}
}

func TestExtractNoMarkers(t *testing.T) {
	for _, input := range []string{"", "   ", "просто текст без разделов"} {
		fields, trace := extraction.ExtractTrace(input)
		if !fields.IsEmpty() {
			t.Errorf("ExtractTrace(%q) = %+v, want empty", input, fields)
		}
		for _, f := range clinical.Fields {
			if _, ok := trace.Fired(f); ok {
				t.Errorf("ExtractTrace(%q) trace[%s] fired", input, f)
			}
		}
	}
}

func TestExtractDiagnosis(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  clinical.Diagnosis
	}{
		{
			name:  "code-shaped fallback",
			input: "Диагноз: J06.9 ОРВИ\nНазначения: покой",
			want:  clinical.Diagnosis{Code: "J06.9"},
		},
		{
			name:  "lowercase labelled code",
			input: "Диагнозы: МКБ: e11.9\nРекомендации: диета",
			want:  clinical.Diagnosis{Code: "E11.9"},
		},
		{
			name:  "clinical diagnosis label",
			input: "Диагноз:\nКлинический диагноз: Гипертензия код I10\nТип: сопутствующий",
			want: clinical.Diagnosis{
				Code:           "I10",
				PrimaryDisease: "Гипертензия",
				DiagnosisType:  "сопутствующий",
			},
		},
		{
			name:  "no section",
			input: "Жалобы: кашель",
			want:  clinical.Diagnosis{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extraction.Extract(tt.input).Diagnoses
			if got != tt.want {
				t.Errorf("diagnoses = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	got := extraction.Normalize("  a\r\nb\t\tc   d  ")
	if got != "a\nb c d" {
		t.Errorf("Normalize() = %q, want %q", got, "a\nb c d")
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"blank", "  \n ", ""},
		{"list markers", "- пункт один\n- пункт два", "пункт один\nпункт два"},
		{"bullet after blank run", "- пункт один\n\n\n\n• пункт два", "пункт один\nпункт два"},
		{"blank line run collapsed", "один\n\n\n\nдва", "один\n\nдва"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extraction.Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanTruncates(t *testing.T) {
	got := extraction.Clean(strings.Repeat("ж", 3500))

	if n := utf8.RuneCountInString(got); n != extraction.MaxFieldLength {
		t.Errorf("length = %d, want %d", n, extraction.MaxFieldLength)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("truncated value should end with an omission marker")
	}

	short := "короткий текст"
	if got := extraction.Truncate(short, 500); got != short {
		t.Errorf("Truncate() = %q, want unchanged", got)
	}
}
