package physicians

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/JaimeStill/auditor/internal/sanitizer"
)

// Kazakh letters and their Russian look-alikes, position by position.
// The same pair is handed to SQL translate() for stored names.
const (
	kazakhLetters  = "әғқңөұүһіӘҒҚҢӨҰҮҺІ"
	russianLetters = "агкноуухиАГКНОУУХИ"
)

var kazakhReplacer = func() *strings.Replacer {
	from := []rune(kazakhLetters)
	to := []rune(russianLetters)
	pairs := make([]string, 0, len(from)*2)
	for i := range from {
		pairs = append(pairs, string(from[i]), string(to[i]))
	}
	return strings.NewReplacer(pairs...)
}()

// NormalizeName replaces Kazakh-specific letters with their Russian
// counterparts so spellings of one name compare equal.
func NormalizeName(s string) string {
	return kazakhReplacer.Replace(s)
}

// Normalized returns h with every name part passed through NormalizeName.
func (h Hints) Normalized() Hints {
	h.LastName = NormalizeName(h.LastName)
	h.FirstName = NormalizeName(h.FirstName)
	h.MiddleName = NormalizeName(h.MiddleName)
	return h
}

// Blank reports whether a stored attribute is empty or holds a placeholder.
func Blank(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || v == NotSpecified || v == Unknown
}

// ClinicFor derives a clinic name from a department when the sheet names
// no clinic.
func ClinicFor(department string) string {
	if Blank(department) {
		return NotSpecified
	}
	return "Медицинский центр (" + strings.TrimSpace(department) + ")"
}

// Identifier builds a physician identifier from the initials of the last
// and first names and a Unix timestamp.
func Identifier(lastName, firstName string, at time.Time) string {
	return fmt.Sprintf("%s%s-%d", initial(lastName), initial(firstName), at.Unix())
}

func initial(s string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(s))
	if r == utf8.RuneError {
		return "X"
	}
	return string(r)
}

const (
	upper = `А-ЯЁӘҒҚҢӨҰҮҺІ`
	lower = `а-яёәғқңөұүһі`
	word  = `[` + upper + `][` + lower + `]+`
	name  = `(` + word + `(?:[ \t]+` + word + `){1,2})`
	lead  = `(?:^|[^\p{L}])`
	sep   = `[ \t:]+`
)

var specialties = []string{
	"Педиатр", "Уролог", "Терапевт", "Хирург", "Кардиолог", "Невролог",
	"Офтальмолог", "Отоларинголог", "Гинеколог", "Дерматолог", "Эндокринолог",
	"Гастроэнтеролог", "Пульмонолог", "Нефролог", "Ревматолог", "Онколог",
	"Психиатр", "Психолог", "Стоматолог", "Ортопед", "Травматолог",
}

// hintPattern matches a physician label followed by a name. When
// specialty is set, the label itself names the specialization.
type hintPattern struct {
	re        *regexp.Regexp
	specialty bool
}

var hintPatterns = []hintPattern{
	{re: regexp.MustCompile(lead + `(?i:лечащий\s+врач|врач|доктор|специалист)` + sep + name)},
	{re: regexp.MustCompile(lead + `(?i:провел\s+консультацию|принимающий\s+врач)` + sep + name)},
	{
		re:        regexp.MustCompile(lead + `(?i:(` + strings.Join(specialties, "|") + `))` + sep + name),
		specialty: true,
	},
}

var (
	quotedCabinet = regexp.MustCompile(`(?i)\(кабинет\s+["'«]([^"'»]+)["'»]\s*\)`)
	plainCabinet  = regexp.MustCompile(`(?i)\(кабинет\s+([^)]+)\)`)
	nameNoise     = regexp.MustCompile(`[*\d]`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

// ExtractHints reads the attending physician from the raw sheet text: the
// name after a physician or specialty label, the specialization named by
// that label, and the department from a "(кабинет ...)" suffix on the same
// line. It reports false when no name is found. The physician tax ID is
// read independently and may be set even then.
func ExtractHints(text string) (Hints, bool) {
	h := Hints{TaxID: sanitizer.ExtractDoctorTaxID(text)}

	for _, p := range hintPatterns {
		m := p.re.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}

		nameStart, nameEnd := m[len(m)-2], m[len(m)-1]
		full := strings.TrimSpace(spaceRun.ReplaceAllString(nameNoise.ReplaceAllString(text[nameStart:nameEnd], ""), " "))
		if full == "" {
			continue
		}
		h.LastName, h.FirstName, h.MiddleName = splitName(full)

		if p.specialty {
			h.Specialization = capitalize(text[m[2]:m[3]])
		}

		rest := text[nameEnd:]
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			rest = rest[:i]
		}
		if dm := quotedCabinet.FindStringSubmatch(rest); dm != nil {
			h.Department = strings.TrimSpace(dm[1])
		} else if dm := plainCabinet.FindStringSubmatch(rest); dm != nil {
			h.Department = strings.TrimSpace(dm[1])
		}
		if h.Department == "" {
			h.Department = h.Specialization
		}

		return h, true
	}

	return h, false
}

func splitName(full string) (last, first, middle string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", "", ""
	case 1:
		return parts[0], "", ""
	case 2:
		return parts[0], parts[1], ""
	case 3:
		return parts[0], parts[1], parts[2]
	default:
		return parts[0], strings.Join(parts[1:], " "), ""
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
