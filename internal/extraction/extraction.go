// Package extraction splits advisory sheet text into the ten structured
// clinical fields. Each field is located by an ordered list of heading
// alternatives; the first alternative yielding a non-blank value wins.
// Extraction never fails: missing sections produce empty fields.
package extraction

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/JaimeStill/auditor/internal/clinical"
)

// MaxFieldLength bounds every cleaned field value, in characters.
const MaxFieldLength = 3000

const omission = "..."

// Trace records, per field, the index of the alternative that produced the
// value, or -1 when none did. Diagnoses report 0 when the section was found.
type Trace map[clinical.Field]int

// Fired returns the alternative index for f and whether any alternative fired.
func (t Trace) Fired(f clinical.Field) (int, bool) {
	idx, ok := t[f]
	if !ok || idx < 0 {
		return -1, false
	}
	return idx, true
}

// Extract returns the field set found in text.
func Extract(text string) clinical.FieldSet {
	fields, _ := ExtractTrace(text)
	return fields
}

// ExtractTrace returns the field set found in text and which alternative
// produced each field.
func ExtractTrace(text string) (clinical.FieldSet, Trace) {
	var fields clinical.FieldSet
	trace := make(Trace, len(clinical.Fields))
	for _, f := range clinical.Fields {
		trace[f] = -1
	}

	if strings.TrimSpace(text) == "" {
		return fields, trace
	}

	normalized := Normalize(text)

	for _, rule := range Rules {
		for i, alt := range rule.Alternatives {
			value, ok := alt.capture(normalized)
			if !ok {
				continue
			}
			fields.SetText(rule.Field, Clean(value))
			trace[rule.Field] = i
			break
		}
	}

	if section, ok := diagnosisSection.capture(normalized); ok {
		fields.Diagnoses = extractDiagnosis(section)
		trace[clinical.Diagnoses] = 0
	}

	return fields, trace
}

// capture returns the trimmed value following the first heading match.
// It reports false when the heading is absent or the value is blank.
func (a Alternative) capture(text string) (string, bool) {
	loc := a.Heading.FindStringIndex(text)
	if loc == nil {
		return "", false
	}

	rest := text[loc[1]:]
	end := len(rest)

	switch {
	case a.LineOnly:
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			end = i
		}
	case a.Terminator != nil:
		if t := a.Terminator.FindStringIndex(rest); t != nil {
			end = t[0]
		}
	}

	value := strings.TrimSpace(rest[:end])
	return value, value != ""
}

func extractDiagnosis(section string) clinical.Diagnosis {
	var d clinical.Diagnosis

	if m := codeLabelled.FindStringSubmatch(section); m != nil {
		d.Code = strings.ToUpper(m[1])
	} else if code := codeShaped.FindString(section); code != "" {
		d.Code = strings.ToUpper(code)
	}

	if v, ok := primaryDisease.capture(section); ok {
		d.PrimaryDisease = Clean(v)
	}
	for _, alt := range diagnosisTypes {
		if v, ok := alt.capture(section); ok {
			d.DiagnosisType = Clean(v)
			break
		}
	}

	return d
}

var (
	spaceRun    = regexp.MustCompile(`[ ]{2,}`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
	listMarkers = regexp.MustCompile(`(?m)^\s*[-•]\s*`)
)

// Normalize unifies line endings, converts tabs to spaces, collapses runs of
// spaces, and trims the text.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", " ")
	text = spaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Clean collapses blank-line runs, strips leading list markers, trims, and
// truncates the value to MaxFieldLength characters.
func Clean(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = blankLines.ReplaceAllString(text, "\n\n")
	text = listMarkers.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	return Truncate(text, MaxFieldLength)
}

// Truncate shortens text to at most limit characters, ending in "..." when cut.
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	keep := max(limit-len(omission), 0)
	runes := []rune(text)
	return string(runes[:keep]) + omission
}
