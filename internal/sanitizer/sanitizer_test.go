package sanitizer_test

import (
	"strings"
	"testing"

	"github.com/JaimeStill/auditor/internal/sanitizer"
)

func TestSanitizePlaceholders(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"full name", "Пациент: Иванов Иван Иванович\nЖалобы", "Пациент: [ИМЯ СКРЫТО]\nЖалобы"},
		{"two-part name", "ФИО: Сидорова Анна", "ФИО: [ИМЯ СКРЫТО]"},
		{"full tax id", "ИИН: 900101300123", "ИИН: [ИИН СКРЫТ]"},
		{"partial tax id", "ИИН 9001 0130 0123", "ИИН [ИИН СКРЫТ]"},
		{"phone", "Тел: +7 701 123 45 67", "Тел: [ТЕЛЕФОН СКРЫТ]"},
		{"phone with eight", "Тел: 8(701)1234567", "Тел: [ТЕЛЕФОН СКРЫТ]"},
		{"masked phone", "Тел: +7 701 ***45", "Тел: [ТЕЛЕФОН СКРЫТ]"},
		{"birth date", "Дата рождения: 01.02.1990", "[ДАТА РОЖДЕНИЯ СКРЫТА]"},
		{"age", "Возраст: 45 лет", "Возраст: [ВОЗРАСТ СКРЫТ]"},
		{"sex", "Пол: женский", "Пол: [ПОЛ СКРЫТ]"},
		{"address", "Адрес: г. Алматы, ул. Абая 1\nЖалобы", "[АДРЕС СКРЫТ]\nЖалобы"},
		{"workplace", "Место работы: ТОО Ромашка", "[МЕСТО РАБОТЫ СКРЫТО]"},
		{"residual masked name", "Ива*** направлен", "[ИМЯ СКРЫТО] направлен"},
		{"residual masked number", "номер 123***", "номер [НОМЕР СКРЫТ]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeWordBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"year is not an age", "болеет с 2024 года"},
		{"thirteen digits are not a tax id", "код 1234567890123"},
		{"sex marker inside a word", "мужество и терпение"},
		{"clinical text", "Жалобы: головная боль, слабость"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Sanitize(tt.input); got != tt.input {
				t.Errorf("Sanitize(%q) = %q, want unchanged", tt.input, got)
			}
		})
	}
}

func TestSanitizeBlank(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		if got := sanitizer.Sanitize(in); got != "" {
			t.Errorf("Sanitize(%q) = %q, want empty", in, got)
		}
	}
}

func TestRedactCounts(t *testing.T) {
	res := sanitizer.Redact("Пациент: Иванов Иван\nТел: +7 701 123 45 67\nИИН 900101300123")

	tests := []struct {
		category sanitizer.Category
		want     int
	}{
		{sanitizer.Name, 1},
		{sanitizer.Phone, 1},
		{sanitizer.TaxID, 1},
		{sanitizer.Address, 0},
	}

	for _, tt := range tests {
		if got := res.Counts[tt.category]; got != tt.want {
			t.Errorf("Counts[%s] = %d, want %d", tt.category, got, tt.want)
		}
	}
	if res.Total() != 3 {
		t.Errorf("Total() = %d, want 3", res.Total())
	}
	if strings.Contains(res.Text, "Иванов") || strings.Contains(res.Text, "900101300123") {
		t.Errorf("identifiers leaked: %q", res.Text)
	}
}

const sheet = "Записи по приему # 123456\n" +
	"12.03.2024 (10:00 - 10:30) Первичный прием\n" +
	"Пациент: Иванов Иван Иванович, 45 лет, ИИН 900101300123\n" +
	"Жалобы: головная боль\n" +
	"Диагноз: E11.9\n" +
	"Врач: Петров Петр Петрович 880101300456\n"

func TestExtractMedicalContent(t *testing.T) {
	got := sanitizer.ExtractMedicalContent(sheet)

	if !strings.HasPrefix(got, "Жалобы: головная боль") {
		t.Errorf("medical content should start after the patient line, got %q", got)
	}
	for _, leaked := range []string{"Иванов", "900101300123", "880101300456", "Записи по приему"} {
		if strings.Contains(got, leaked) {
			t.Errorf("medical content leaks %q: %q", leaked, got)
		}
	}
	if !strings.Contains(got, "E11.9") {
		t.Errorf("medical content lost the diagnosis code: %q", got)
	}
}

func TestExtractMedicalContentWithoutHeader(t *testing.T) {
	got := sanitizer.ExtractMedicalContent("Пациент: Иванов Иван\nЖалобы: кашель")
	want := "Пациент: [ИМЯ СКРЫТО]\nЖалобы: кашель"
	if got != want {
		t.Errorf("ExtractMedicalContent() = %q, want %q", got, want)
	}
}

func TestExtractMedicalContentHeaderOnly(t *testing.T) {
	got := sanitizer.ExtractMedicalContent("12.03.2024 (10:00 - 10:30) прием\nПациент: Иванов Иван\n")
	if got != "" {
		t.Errorf("ExtractMedicalContent() = %q, want empty", got)
	}
}

func TestExtractPatientName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"labelled", sheet, "Иванов Иван Иванович"},
		{"masked", "Пациент: Иванов Ив** Иванович", "Иванов Ив Иванович"},
		{"extra spaces", "ФИО:   Сидорова   Анна", "Сидорова Анна"},
		{"absent", "Жалобы: кашель", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.ExtractPatientName(tt.input); got != tt.want {
				t.Errorf("ExtractPatientName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractDoctorTaxID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"after label", sheet, "880101300456"},
		{"specialist label", "Специалист: Ахметова А.А. ИИН 770202400789", "770202400789"},
		{"different line", "Врач: Петров\nИИН 880101300456", ""},
		{"no label", "ИИН 880101300456", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.ExtractDoctorTaxID(tt.input); got != tt.want {
				t.Errorf("ExtractDoctorTaxID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIdentityExtractionIndependentOfSanitize(t *testing.T) {
	name := sanitizer.ExtractPatientName(sheet)
	taxID := sanitizer.ExtractDoctorTaxID(sheet)

	_ = sanitizer.Sanitize(sheet)
	_ = sanitizer.ExtractMedicalContent(sheet)

	if got := sanitizer.ExtractPatientName(sheet); got != name {
		t.Errorf("ExtractPatientName after Sanitize = %q, want %q", got, name)
	}
	if got := sanitizer.ExtractDoctorTaxID(sheet); got != taxID {
		t.Errorf("ExtractDoctorTaxID after Sanitize = %q, want %q", got, taxID)
	}
}

func TestExtractRecordingNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{sheet, "123456"},
		{"записи по приему 789", "789"},
		{"Записи  по  приему#42", "42"},
		{"Консультативный лист", ""},
	}

	for _, tt := range tests {
		if got := sanitizer.ExtractRecordingNumber(tt.input); got != tt.want {
			t.Errorf("ExtractRecordingNumber(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
