package verification_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/JaimeStill/auditor/internal/clinical"
	"github.com/JaimeStill/auditor/internal/knowledge"
	"github.com/JaimeStill/auditor/internal/verification"
)

type fakeCompleter struct {
	content string
	err     error
	prompt  string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.content, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const fullResponse = `Вот результат проверки:
` + "```json" + `
{
  "status": "partial",
  "narrative": "Диагноз соответствует протоколу, {назначения} неполные",
  "recommendations": "Уточнить дозировку",
  "field_analysis": {
    "complaints": {"score": 0.9, "comment": "ок"},
    "anamnesis_morbi": {"score": 0.5, "comment": ""},
    "diagnoses": {"score": "0,8", "comment": "код указан"},
    "prescriptions": {"score": 0.2, "comment": "нет дозировки"},
    "unknown_field": {"score": 1}
  }
}
` + "```"

func TestParse(t *testing.T) {
	r, err := verification.Parse(fullResponse)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if r.Status != clinical.Partial {
		t.Errorf("Status = %s, want partial", r.Status)
	}
	if !strings.Contains(r.Narrative, "{назначения}") {
		t.Errorf("Narrative = %q", r.Narrative)
	}

	tests := []struct {
		field clinical.Field
		want  float64
	}{
		{clinical.Complaints, 1},
		{clinical.AnamnesisMorbi, 0.5},
		{clinical.Diagnoses, 1},
		{clinical.Prescriptions, 0},
	}
	for _, tt := range tests {
		if got := r.FieldAnalysis[tt.field].Score; got != tt.want {
			t.Errorf("score[%s] = %v, want %v", tt.field, got, tt.want)
		}
	}

	if len(r.FieldAnalysis) != 4 {
		t.Errorf("FieldAnalysis has %d entries, want 4 known fields", len(r.FieldAnalysis))
	}
	if r.Scores().Total() != 2.5 {
		t.Errorf("Total() = %v, want 2.5", r.Scores().Total())
	}
}

func TestParseAcceptsLegacyResultKey(t *testing.T) {
	r, err := verification.Parse(`{"status":"Non-Compliant","result":"нарушения","field_analysis":{}}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if r.Status != clinical.NonCompliant || r.Narrative != "нарушения" {
		t.Errorf("result = %+v", r)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"prose", "Извините, не могу выполнить проверку."},
		{"empty", ""},
		{"truncated", `{"status": "compliant", "narrative": "ok", "field_analysis": {`},
		{"missing status", `{"narrative": "ok", "field_analysis": {}}`},
		{"missing analysis", `{"status": "compliant", "narrative": "ok"}`},
		{"missing narrative", `{"status": "compliant", "field_analysis": {}}`},
		{"blank narrative and result", `{"status": "compliant", "narrative": " ", "result": "", "field_analysis": {}}`},
		{"unknown status", `{"status": "green", "narrative": "ok", "field_analysis": {}}`},
		{"unresolved is not a judgement", `{"status": "unresolved", "narrative": "ok", "field_analysis": {}}`},
		{"bad score", `{"status": "compliant", "narrative": "ok", "field_analysis": {"notes": {"score": "много"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := verification.Parse(tt.content); !errors.Is(err, verification.ErrMalformedResponse) {
				t.Errorf("Parse() = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestVerifyMalformedFallsBackToUnresolved(t *testing.T) {
	o := verification.New(&fakeCompleter{content: "not json at all"}, discard())

	r := o.Verify(context.Background(), "Жалобы: кашель", nil, nil, clinical.FieldSet{})

	if r.Status != clinical.Unresolved {
		t.Errorf("Status = %s, want unresolved", r.Status)
	}
	if len(r.FieldAnalysis) != 0 {
		t.Errorf("FieldAnalysis = %v, want empty", r.FieldAnalysis)
	}
	if !errors.Is(r.Err, verification.ErrMalformedResponse) {
		t.Errorf("Err = %v, want ErrMalformedResponse", r.Err)
	}
	if r.Scores().Percentage() != 0 {
		t.Errorf("Percentage() = %v, want 0", r.Scores().Percentage())
	}
}

func TestVerifyProviderError(t *testing.T) {
	boom := errors.New("quota exceeded")
	o := verification.New(&fakeCompleter{err: boom}, discard())

	r := o.Verify(context.Background(), "Жалобы: кашель", nil, nil, clinical.FieldSet{})
	if r.Status != clinical.Unresolved || !errors.Is(r.Err, boom) {
		t.Errorf("result = %+v", r)
	}
	if r.Narrative != verification.UnresolvedNarrative {
		t.Errorf("Narrative = %q", r.Narrative)
	}
}

func TestVerifyBlankContentSkipsProvider(t *testing.T) {
	fc := &fakeCompleter{content: fullResponse}
	o := verification.New(fc, discard())

	r := o.Verify(context.Background(), "  \n", nil, nil, clinical.FieldSet{})
	if !errors.Is(r.Err, verification.ErrNoContent) {
		t.Errorf("Err = %v, want ErrNoContent", r.Err)
	}
	if fc.prompt != "" {
		t.Error("provider should not be called without content")
	}
}

func TestVerifySuccess(t *testing.T) {
	fc := &fakeCompleter{content: fullResponse}
	o := verification.New(fc, discard())

	r := o.Verify(context.Background(), "Жалобы: кашель", nil, nil, clinical.FieldSet{Complaints: "кашель"})
	if r.Err != nil || r.Status != clinical.Partial {
		t.Errorf("result = %+v", r)
	}
}

func TestBuildPrompt(t *testing.T) {
	desc := "Без осложнений"
	protocols := []knowledge.Protocol{
		{Title: "Сахарный диабет 2 типа", Content: strings.Repeat("п", 2500)},
	}
	codes := []knowledge.DiagnosisCode{
		{Code: "E11.9", Title: "Инсулиннезависимый сахарный диабет", Description: &desc},
		{Code: "I10", Title: "Эссенциальная гипертензия"},
	}
	fields := clinical.FieldSet{
		Complaints: strings.Repeat("ж", 800),
		Diagnoses:  clinical.Diagnosis{Code: "E11.9", DiagnosisType: "основной"},
	}

	prompt := verification.BuildPrompt("САНИТИЗИРОВАННЫЙ ТЕКСТ", protocols, codes, fields)

	for _, want := range []string{
		"Сахарный диабет 2 типа:\n",
		"E11.9: Инсулиннезависимый сахарный диабет\nБез осложнений",
		"I10: Эссенциальная гипертензия",
		"САНИТИЗИРОВАННЫЙ ТЕКСТ",
		"  Код МКБ: E11.9",
		"  Вид диагноза: основной",
		`"non-compliant"`,
		`"narrative": "`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if strings.Contains(prompt, strings.Repeat("п", verification.ProtocolLimit+1)) {
		t.Error("protocol content should be truncated")
	}
	if strings.Contains(prompt, strings.Repeat("ж", verification.FieldLimit+1)) {
		t.Error("field value should be truncated")
	}
	if strings.Contains(prompt, clinical.Referrals.Label()+":") {
		t.Error("absent fields should not be rendered")
	}
	if strings.Contains(prompt, "Основное заболевание:") {
		t.Error("blank diagnosis sub-fields should not be rendered")
	}
	for _, f := range clinical.Fields {
		if !strings.Contains(prompt, `"`+string(f)+`": {"score"`) {
			t.Errorf("response template missing %s", f)
		}
	}
}
