// Package sanitizer strips patient personal data from advisory sheet text
// before it reaches retrieval or the verification model, and extracts the
// identifiers that must be read from the original text first.
//
// Every function is pure: inputs are never modified, so identity
// extraction on the original text returns the same values whether or not
// Sanitize has already run.
package sanitizer

import (
	"regexp"
	"strings"
)

// Result is the outcome of a redaction pass.
type Result struct {
	Text   string
	Counts map[Category]int
}

// Total returns the number of replacements across all categories.
func (r Result) Total() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}

// Redact replaces personal data in text with category placeholders and
// reports how many replacements each category made.
func Redact(text string) Result {
	res := Result{Counts: make(map[Category]int)}
	if strings.TrimSpace(text) == "" {
		return res
	}

	out := text
	for _, r := range rules {
		var n int
		out, n = r.apply(out)
		if n > 0 {
			res.Counts[r.category] += n
		}
	}

	res.Text = out
	return res
}

// Sanitize returns text with personal data replaced by category placeholders.
func Sanitize(text string) string {
	return Redact(text).Text
}

// RedactMedicalContent locates the end of the administrative header and
// redacts only what follows it. Without a header the whole text is redacted.
func RedactMedicalContent(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Counts: make(map[Category]int)}
	}
	if start, ok := medicalStart(text); ok {
		return Redact(text[start:])
	}
	return Redact(text)
}

// ExtractMedicalContent returns the sanitized clinical body of text. A blank
// result means no medical content could be isolated.
func ExtractMedicalContent(text string) string {
	return strings.TrimSpace(RedactMedicalContent(text).Text)
}

// medicalStart returns the offset just past the patient-info line that
// follows the "dd.mm.yyyy (hh:mm - hh:mm)" visit header line.
func medicalStart(text string) (int, bool) {
	loc := visitHeader.FindStringIndex(text)
	if loc == nil {
		return 0, false
	}

	headerEnd := strings.IndexByte(text[loc[1]:], '\n')
	if headerEnd < 0 {
		return 0, false
	}
	headerEnd += loc[1]

	patientEnd := strings.IndexByte(text[headerEnd+1:], '\n')
	if patientEnd < 0 {
		return headerEnd + 1, true
	}
	return headerEnd + 1 + patientEnd + 1, true
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ExtractPatientName returns the patient name from the original text with
// mask stars removed, or "" when none is labelled.
func ExtractPatientName(text string) string {
	for _, loc := range findAll(patientName, text, true) {
		name := text[loc[2]:loc[3]]
		name = strings.ReplaceAll(name, "*", "")
		name = strings.TrimSpace(whitespaceRun.ReplaceAllString(name, " "))
		if name != "" {
			return name
		}
	}
	return ""
}

// ExtractDoctorTaxID returns the first 12-digit number found within 200
// characters after a physician label, or "".
func ExtractDoctorTaxID(text string) string {
	for _, m := range doctorLine.FindAllStringSubmatch(text, -1) {
		line := m[1]
		for _, loc := range findAll(twelveDigits, line, true) {
			return line[loc[0]:loc[1]]
		}
	}
	return ""
}

// ExtractRecordingNumber returns the digits following the "Записи по приему #"
// marker, or "".
func ExtractRecordingNumber(text string) string {
	if m := recordingMark.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
