package setupdialog

import "strings"

// Category describes how a log line should be rendered. It is derived
// from the line's text on every render and never stored.
type Category int

const (
	CategoryCommand Category = iota
	CategorySuccess
	CategoryError
	CategoryProgress
	CategoryDivider
	CategoryStep
	CategoryBlank
	CategoryPlain
)

// Classify derives the display category for a line. Rules are checked in
// priority order; the first match wins.
func Classify(text string) Category {
	trimmed := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "$"):
		return CategoryCommand
	case strings.HasPrefix(text, "✓"):
		return CategorySuccess
	case strings.HasPrefix(text, "✗"), strings.HasPrefix(text, "⚠"):
		return CategoryError
	case strings.Contains(text, "Progress:"),
		strings.Contains(text, "%"),
		strings.Contains(text, "["):
		return CategoryProgress
	case strings.Contains(text, "---"), strings.Contains(text, "==="):
		return CategoryDivider
	case strings.HasPrefix(trimmed, "Step "):
		return CategoryStep
	case trimmed == "":
		return CategoryBlank
	default:
		return CategoryPlain
	}
}
