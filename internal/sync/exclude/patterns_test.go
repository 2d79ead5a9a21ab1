package exclude

import "testing"

func TestMatcher_IsExcluded(t *testing.T) {
	m := New([]string{"build/", "tmp", "  ", "./docs/draft", `win\path`})

	tests := []struct {
		path string
		want bool
	}{
		{"build/out.o", true},
		{"build", false},
		{"tmp", true},
		{"tmp/x.txt", true},
		{"tmpfile.txt", true},
		{"docs/draft/a.md", true},
		{"docs/final/a.md", false},
		{"./tmp/x", true},
		{"win/path/x.c", true},
		{"src/main.c", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := m.IsExcluded(tt.path); got != tt.want {
			t.Errorf("IsExcluded(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestMatcher_Nil(t *testing.T) {
	var m *Matcher
	if m.IsExcluded("anything") {
		t.Error("nil matcher should exclude nothing")
	}
	if m.Prefixes() != nil {
		t.Error("nil matcher should have no prefixes")
	}
}

func TestMatcher_Prefixes(t *testing.T) {
	m := New([]string{"a", "", "./b"})
	got := m.Prefixes()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Prefixes() = %v", got)
	}
}
