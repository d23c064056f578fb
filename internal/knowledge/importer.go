package knowledge

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/JaimeStill/auditor/internal/extraction"
)

const (
	maxCodeTitle       = 500
	maxCodeDescription = 2000
	maxProtocolTitle   = 200
)

var (
	codeLine         = regexp.MustCompile(`(?i)^([A-Z]\d{2}(?:\.\d{1,2})?(?:-[A-Z]?\d{2}(?:\.\d)?)?)\s*[:\-–]?\s*(.+)`)
	codeStart        = regexp.MustCompile(`(?i)^[A-Z]\d{2}`)
	codeMention      = regexp.MustCompile(`(?i)([A-Z]\d{2}(?:\.\d{1,2})?)\s*[:\-–]?\s*([^.!\n]{10,})`)
	protocolBoundary = regexp.MustCompile(`(?i)(?:КЛИНИЧЕСКИЙ\s+)?ПРОТОКОЛ\s+(?:ДИАГНОСТИКИ|ЛЕЧЕНИЯ)`)
	protocolTitle    = regexp.MustCompile(`(?i)(?:КЛИНИЧЕСКИЙ\s+)?ПРОТОКОЛ\s+(?:ДИАГНОСТИКИ\s+И\s+ЛЕЧЕНИЯ|ЛЕЧЕНИЯ|ДИАГНОСТИКИ)\s*[:\n]?\s*([^\n]+)`)
	protocolCode     = regexp.MustCompile(`(?i)(?:№|номер|код)[\s:]*([А-Яа-яA-Za-z\d\-]+)`)
)

// ParseDiagnosisCodes reads one code per line in the form "E11.9 Title",
// collecting the following non-code lines as its description. Without
// any such line it falls back to code mentions anywhere in the text.
// Later duplicates replace earlier ones.
func ParseDiagnosisCodes(text, source string) []DiagnosisCodeCommand {
	var src *string
	if source != "" {
		src = &source
	}

	var entries []DiagnosisCodeCommand
	index := make(map[string]int)
	current := -1
	var description []string

	flush := func() {
		if current < 0 {
			return
		}
		if d := strings.TrimSpace(strings.Join(description, "\n")); d != "" {
			d = extraction.Truncate(d, maxCodeDescription)
			entries[current].Description = &d
		} else {
			entries[current].Description = nil
		}
		description = description[:0]
	}

	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		m := codeLine.FindStringSubmatch(line)
		if m == nil {
			if current >= 0 && !codeStart.MatchString(line) {
				description = append(description, line)
			}
			continue
		}

		flush()
		cmd := DiagnosisCodeCommand{
			Code:   strings.ToUpper(m[1]),
			Title:  extraction.Truncate(strings.TrimSpace(m[2]), maxCodeTitle),
			Source: src,
		}
		if at, ok := index[cmd.Code]; ok {
			entries[at] = cmd
			current = at
			continue
		}
		index[cmd.Code] = len(entries)
		current = len(entries)
		entries = append(entries, cmd)
	}
	flush()

	if len(entries) > 0 {
		return entries
	}

	for _, m := range codeMention.FindAllStringSubmatch(text, -1) {
		code := strings.ToUpper(m[1])
		if _, ok := index[code]; ok {
			continue
		}
		index[code] = len(entries)
		entries = append(entries, DiagnosisCodeCommand{
			Code:   code,
			Title:  extraction.Truncate(strings.TrimSpace(m[2]), maxCodeTitle),
			Source: src,
		})
	}

	return entries
}

// ParseProtocols splits text into protocols at each protocol heading.
// Text without at least two sections is a single protocol titled by its
// heading or, failing that, by the source file name.
func ParseProtocols(text, source string) []ProtocolCommand {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var src *string
	if source != "" {
		src = &source
	}

	bounds := []int{0}
	for _, loc := range protocolBoundary.FindAllStringIndex(text, -1) {
		if loc[0] > 0 {
			bounds = append(bounds, loc[0])
		}
	}

	if len(bounds) == 1 {
		title := protocolTitleOf(text)
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		}
		return []ProtocolCommand{{Title: title, Code: protocolCodeOf(text), Content: text, Source: src}}
	}

	var protocols []ProtocolCommand
	for i, start := range bounds {
		end := len(text)
		if i+1 < len(bounds) {
			end = bounds[i+1]
		}
		section := strings.TrimSpace(text[start:end])
		if section == "" {
			continue
		}

		title := protocolTitleOf(section)
		if title == "" {
			title = "Протокол из " + filepath.Base(source)
		}
		protocols = append(protocols, ProtocolCommand{
			Title:   title,
			Code:    protocolCodeOf(section),
			Content: section,
			Source:  src,
		})
	}

	return protocols
}

func protocolTitleOf(text string) string {
	m := protocolTitle.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return extraction.Truncate(strings.TrimSpace(m[1]), maxProtocolTitle)
}

func protocolCodeOf(text string) *string {
	m := protocolCode.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	code := strings.TrimSpace(m[1])
	return &code
}
