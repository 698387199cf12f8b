package dag

import (
	"html"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// Commit is one node of the history graph.
//
// Message holds markup-escaped text: NewCommit escapes '<', '>' and '&' (and
// quotes) and replaces control characters XML cannot carry with U+FFFD, so
// the message can be placed in SVG or HTML output verbatim.
// Construct commits with NewCommit; a Commit built by hand is taken as-is.
type Commit struct {
	ID      string    // Content hash, unique across the graph
	Parents []string  // Parent IDs in git order; the first parent continues the lane
	Message string    // Markup-escaped commit message
	Author  string    // Author display name
	Time    time.Time // Author timestamp
	Color   int       // Lane color index, assigned by the graph during layout
}

// NewCommit returns a commit with its message escaped for markup output.
// The parent slice is copied.
func NewCommit(id string, parents []string, message, author string, when time.Time) Commit {
	return Commit{
		ID:      id,
		Parents: slices.Clone(parents),
		Message: html.EscapeString(markupSafe(message)),
		Author:  author,
		Time:    when,
	}
}

// markupSafe replaces runes outside the XML 1.0 character range, including
// invalid UTF-8, with U+FFFD.
func markupSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t', r == '\n', r == '\r':
			return r
		case r < 0x20, r == 0xFFFE, r == 0xFFFF:
			return utf8.RuneError
		}
		return r
	}, s)
}

// IsMerge reports whether the commit has more than one parent.
func (c Commit) IsMerge() bool { return len(c.Parents) > 1 }

// IsRoot reports whether the commit has no parents.
func (c Commit) IsRoot() bool { return len(c.Parents) == 0 }

// FirstParent returns the first parent ID, or "" for a root commit.
func (c Commit) FirstParent() string {
	if len(c.Parents) == 0 {
		return ""
	}
	return c.Parents[0]
}

// Subject returns the first line of the message.
func (c Commit) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")
	return strings.TrimSpace(subject)
}

// ShortID returns the first seven characters of the ID.
func (c Commit) ShortID() string {
	if len(c.ID) <= 7 {
		return c.ID
	}
	return c.ID[:7]
}
