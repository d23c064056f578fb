package sanitizer

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

// Category identifies the kind of personal data a rule redacts.
type Category string

const (
	Name       Category = "name"
	TaxID      Category = "tax_id"
	Phone      Category = "phone"
	BirthDate  Category = "birth_date"
	Age        Category = "age"
	Sex        Category = "sex"
	Address    Category = "address"
	Workplace  Category = "workplace"
	MaskedName Category = "masked_name"
	MaskedID   Category = "masked_number"
)

// Placeholders replacing each category of personal data.
const (
	NamePlaceholder      = "[ИМЯ СКРЫТО]"
	TaxIDPlaceholder     = "[ИИН СКРЫТ]"
	PhonePlaceholder     = "[ТЕЛЕФОН СКРЫТ]"
	BirthDatePlaceholder = "[ДАТА РОЖДЕНИЯ СКРЫТА]"
	AgePlaceholder       = "[ВОЗРАСТ СКРЫТ]"
	SexPlaceholder       = "[ПОЛ СКРЫТ]"
	AddressPlaceholder   = "[АДРЕС СКРЫТ]"
	WorkplacePlaceholder = "[МЕСТО РАБОТЫ СКРЫТО]"
	NumberPlaceholder    = "[НОМЕР СКРЫТ]"
)

// rule replaces matches of re with replacement. When group is non-zero only
// that capture group is replaced. Bounded rules reject matches whose
// neighbouring runes are letters, digits, or underscores.
type rule struct {
	category    Category
	re          *regexp.Regexp
	replacement string
	group       int
	bounded     bool
}

var (
	patientName = regexp.MustCompile(
		`(?i)(?:фио\s+пациента|пациент(?:ка)?|фио|больн(?:ой|ая))[\s:]+` +
			`([А-ЯЁа-яё]+[ \t*]+[А-ЯЁа-яё*]+(?:[ \t*]+[А-ЯЁа-яё*]+)?)`,
	)

	doctorLine    = regexp.MustCompile(`(?i)(?:лечащий\s+врач|врач|доктор|специалист)[\s:]*([^\n]{1,200})`)
	twelveDigits  = regexp.MustCompile(`\d{12}`)
	recordingMark = regexp.MustCompile(`(?i)Записи\s+по\s+приему\s*#?\s*(\d+)`)
	visitHeader   = regexp.MustCompile(`\d{1,2}\.\d{1,2}\.\d{4}\s*\(\s*\d{1,2}:\d{2}\s*-\s*\d{1,2}:\d{2}\s*\)`)
)

// rules run in order; later rules see the output of earlier ones.
var rules = []rule{
	{category: Name, re: patientName, replacement: NamePlaceholder, group: 1, bounded: true},
	{category: TaxID, re: twelveDigits, replacement: TaxIDPlaceholder, bounded: true},
	{category: TaxID, re: regexp.MustCompile(`\d{3,4}[\s*]+\d{3,4}[\s*]+\d{3,4}`), replacement: TaxIDPlaceholder, bounded: true},
	{category: Phone, re: regexp.MustCompile(`(?:\+7|8)[\s\-]?\(?\d{3}\)?[\s\-]?\d{3}[\s\-]?\d{2}[\s\-]?\d{2}`), replacement: PhonePlaceholder},
	{category: Phone, re: regexp.MustCompile(`\+7\s*\d{3}[\s*]+\d{2,5}`), replacement: PhonePlaceholder},
	{
		category:    BirthDate,
		re:          regexp.MustCompile(`(?i)(?:дата\s*рождения|д\.р\.|родился|родилась)[\s:]*\d{1,2}[.\-/]\d{1,2}[.\-/]\d{2,4}`),
		replacement: BirthDatePlaceholder,
	},
	{category: Age, re: regexp.MustCompile(`(?i)\d{1,3}\s*(?:года|год|лет)`), replacement: AgePlaceholder, bounded: true},
	{category: Sex, re: regexp.MustCompile(`(?i)(?:мужской|женский|муж|жен)`), replacement: SexPlaceholder, bounded: true},
	{category: Address, re: regexp.MustCompile(`(?i)(?:адрес|проживает|прописан)[\s:]*[^\n]+`), replacement: AddressPlaceholder},
	{category: Workplace, re: regexp.MustCompile(`(?i)(?:место\s*работы|работает)[\s:]*[^\n]+`), replacement: WorkplacePlaceholder},
	{category: MaskedName, re: regexp.MustCompile(`[А-ЯЁа-яё]+\*+[А-ЯЁа-яё]*\**`), replacement: NamePlaceholder},
	{category: MaskedID, re: regexp.MustCompile(`\d+\*+\d*`), replacement: NumberPlaceholder},
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func atBoundary(text string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

// findAll returns the submatch indexes of every non-overlapping match of re
// in text. With bounded set, a match touching a word rune on either side is
// discarded and the search resumes one rune past its start.
func findAll(re *regexp.Regexp, text string, bounded bool) [][]int {
	var out [][]int
	pos := 0

	for pos <= len(text) {
		loc := re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		for i := range loc {
			if loc[i] >= 0 {
				loc[i] += pos
			}
		}

		start, end := loc[0], loc[1]
		if bounded && !atBoundary(text, start, end) {
			_, size := utf8.DecodeRuneInString(text[start:])
			pos = start + max(size, 1)
			continue
		}

		out = append(out, loc)
		if end == start {
			_, size := utf8.DecodeRuneInString(text[end:])
			pos = end + max(size, 1)
		} else {
			pos = end
		}
	}

	return out
}

// apply runs r over text and returns the rewritten text and the number of replacements.
func (r rule) apply(text string) (string, int) {
	matches := findAll(r.re, text, r.bounded)
	if len(matches) == 0 {
		return text, 0
	}

	var out []byte
	last := 0
	count := 0
	for _, loc := range matches {
		start, end := loc[2*r.group], loc[2*r.group+1]
		if start < 0 || start < last {
			continue
		}
		out = append(out, text[last:start]...)
		out = append(out, r.replacement...)
		last = end
		count++
	}
	out = append(out, text[last:]...)

	return string(out), count
}
