package knowledge

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	protocolSource = "Клинические протоколы МЗ РК"
	codeSource     = "МКБ-10"
	blockSeparator = "\n\n---\n\n"
)

// EstimateTokens approximates the model token count of s at four
// characters per token.
func EstimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

// Context renders protocols then codes as labelled blocks, stopping before
// the first block that would push the estimated token total past budget.
func Context(protocols []Protocol, codes []DiagnosisCode, budget int) string {
	var blocks []string
	used := 0

	add := func(block string) bool {
		n := EstimateTokens(block)
		if budget > 0 && used+n > budget {
			return false
		}
		blocks = append(blocks, block)
		used += n
		return true
	}

	for _, p := range protocols {
		source := protocolSource
		if p.Source != nil && *p.Source != "" {
			source = *p.Source
		}
		if !add(formatBlock(source, "протокол", p.Title, p.Content)) {
			return strings.Join(blocks, blockSeparator)
		}
	}

	for _, c := range codes {
		body := ""
		if c.Description != nil {
			body = *c.Description
		}
		if !add(formatBlock(codeSource, "мкб", c.Code+" "+c.Title, body)) {
			break
		}
	}

	return strings.Join(blocks, blockSeparator)
}

func formatBlock(source, kind, title, content string) string {
	return strings.TrimSpace(fmt.Sprintf(
		"Источник: %s\nТип: %s\nЗаголовок: %s\n\n%s",
		source, kind, title, content,
	))
}
