package dag

import "strings"

// RefKind classifies a reference by its full name.
type RefKind int

const (
	// RefLocal is a local branch (refs/heads/... or a bare name).
	RefLocal RefKind = iota
	// RefRemote is a remote-tracking branch (refs/remotes/...).
	RefRemote
	// RefTag is a tag (refs/tags/...). Tags are labels only and never traced.
	RefTag
	// RefHead is the symbolic checkout position.
	RefHead
)

const (
	prefixHeads   = "refs/heads/"
	prefixRemotes = "refs/remotes/"
	prefixTags    = "refs/tags/"
	headName      = "HEAD"
)

func (k RefKind) String() string {
	switch k {
	case RefRemote:
		return "remote"
	case RefTag:
		return "tag"
	case RefHead:
		return "head"
	default:
		return "local"
	}
}

// KindOf returns the kind of the named reference.
func KindOf(name string) RefKind {
	switch {
	case name == headName:
		return RefHead
	case strings.HasPrefix(name, prefixRemotes):
		return RefRemote
	case strings.HasPrefix(name, prefixTags):
		return RefTag
	default:
		return RefLocal
	}
}

// ShortName strips the refs/heads/, refs/remotes/ or refs/tags/ prefix.
func ShortName(name string) string {
	for _, p := range []string{prefixHeads, prefixRemotes, prefixTags} {
		if s, ok := strings.CutPrefix(name, p); ok {
			return s
		}
	}
	return name
}

// Ref is a named pointer at a commit.
type Ref struct {
	Name   string  // Full reference name
	Target string  // Commit ID the reference points at
	Kind   RefKind // Derived from Name
	Tide   string  // Last known remote-side commit for this ref, display only
}

// Short returns the display name of the reference.
func (r Ref) Short() string { return ShortName(r.Name) }
