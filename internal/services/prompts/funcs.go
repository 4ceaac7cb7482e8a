package prompts

import (
	"fmt"
	"text/template"
)

var funcs = template.FuncMap{
	"duration": durationFunc,
	"truncate": truncateFunc,
	"inc":      func(i int) int { return i + 1 },
}

// durationFunc formats seconds as H:MM:SS or M:SS
func durationFunc(seconds float64) string {
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// truncateFunc caps text at max runes, marking the cut
func truncateFunc(text string, max int) string {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}
	return string(runes[:max]) + " [...]"
}
