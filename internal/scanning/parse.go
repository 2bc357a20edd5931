package scanning

import (
	"strings"
)

// cleanTranscript strips the wrapping that LLM engines add around a
// transcription: markdown code fences and trailing whitespace on each line.
func cleanTranscript(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)

	// Remove opening markdown code blocks, including a language tag
	if strings.HasPrefix(text, "```") {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		} else {
			text = ""
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
