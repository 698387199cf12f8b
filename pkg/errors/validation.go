package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// repoNameRegex matches names under which the server exposes a repository.
var repoNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateRepoName validates the name a repository is served under.
// Names map to configured paths, never to the filesystem directly, but are
// still restricted to a conservative alphabet.
func ValidateRepoName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "repository name cannot be empty")
	}
	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "repository name too long (max 128 characters)")
	}
	if !repoNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid repository name: %q", name)
	}
	return nil
}

// ValidateRefName checks a reference name given on the command line or in a
// request, following the rules of git check-ref-format that matter for
// safety:
//   - No empty names or names longer than 256 characters
//   - No control characters, spaces or any of ~^:?*[\
//   - No leading '-' (would read as an option)
//   - No "..", "@{" or "//" sequences
//   - No trailing '/', '.' or ".lock"
func ValidateRefName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidRef, "reference name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidRef, "reference name too long (max 256 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) || r == ' ' {
			return New(ErrCodeInvalidRef, "reference name contains invalid characters")
		}
	}
	if strings.ContainsAny(name, `~^:?*[\`) {
		return New(ErrCodeInvalidRef, "reference name contains invalid characters: %q", name)
	}
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, "/") {
		return New(ErrCodeInvalidRef, "reference name cannot start with %q", name[:1])
	}
	for _, seq := range []string{"..", "@{", "//"} {
		if strings.Contains(name, seq) {
			return New(ErrCodeInvalidRef, "reference name contains %q", seq)
		}
	}
	if strings.HasSuffix(name, "/") || strings.HasSuffix(name, ".") || strings.HasSuffix(name, ".lock") {
		return New(ErrCodeInvalidRef, "invalid reference name ending: %q", name)
	}
	return nil
}

var commitPrefixRegex = regexp.MustCompile(`^[0-9a-f]{4,64}$`)

// ValidateCommitPrefix validates a full commit ID or an abbreviation of at
// least four lowercase hex digits.
func ValidateCommitPrefix(prefix string) error {
	if !commitPrefixRegex.MatchString(prefix) {
		return New(ErrCodeInvalidInput, "invalid commit id: %q", prefix)
	}
	return nil
}

// ValidateFormat checks name against the supported output formats.
func ValidateFormat(name string, supported []string) error {
	for _, s := range supported {
		if s == name {
			return nil
		}
	}
	return New(ErrCodeInvalidFormat, "unsupported format %q (supported: %s)", name, strings.Join(supported, ", "))
}
