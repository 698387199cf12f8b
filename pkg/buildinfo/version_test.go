package buildinfo

import (
	"strings"
	"testing"
)

func TestShort(t *testing.T) {
	tests := []struct {
		version, commit string
		want            string
	}{
		{"v1.2.3", "1a2b3c4d5e6f", "v1.2.3 (1a2b3c4)"},
		{"dev", "none", "dev (none)"},
	}
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	for _, tt := range tests {
		Version, Commit = tt.version, tt.commit
		if got := Short(); got != tt.want {
			t.Errorf("Short() = %q, want %q", got, tt.want)
		}
	}
}

func TestTemplate(t *testing.T) {
	if !strings.Contains(Template(), "{{.Name}} version "+Version) {
		t.Errorf("Template() = %q", Template())
	}
	if !strings.Contains(String(), "commit: "+Commit) {
		t.Errorf("String() = %q", String())
	}
}
