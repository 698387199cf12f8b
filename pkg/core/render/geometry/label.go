package geometry

import "strings"

// Glyph costs in pixels at the label font size.
const (
	narrowGlyph     = 3
	lowerGlyph      = 6
	mediumGlyph     = 7
	upperGlyph      = 8
	underscoreGlyph = 9
)

const narrowGlyphs = "il1[]!|.,"

// LabelWidth estimates the rendered width of s. It approximates a
// proportional font closely enough to size margins; it is not a text
// measurement.
func LabelWidth(s string) int {
	w := 0
	for _, r := range s {
		w += glyphWidth(r)
	}
	return w
}

func glyphWidth(r rune) int {
	switch {
	case strings.ContainsRune(narrowGlyphs, r):
		return narrowGlyph
	case r == '_':
		return underscoreGlyph
	case r >= 'A' && r <= 'Z':
		return upperGlyph
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return lowerGlyph
	default:
		return mediumGlyph
	}
}
