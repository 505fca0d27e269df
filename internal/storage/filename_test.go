package storage

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		urlKey string
		want   string
	}{
		{
			name:   "host and single path segment",
			urlKey: "http://wiki.test/home",
			want:   "wiki-test-home.txt",
		},
		{
			name:   "root page uses host only",
			urlKey: "https://dnd5e.wikidot.com",
			want:   "dnd5e-wikidot-com.txt",
		},
		{
			name:   "namespace colon becomes dash",
			urlKey: "https://dnd5e.wikidot.com/spell:fireball",
			want:   "dnd5e-wikidot-com-spell-fireball.txt",
		},
		{
			name:   "nested path segments are joined",
			urlKey: "http://wiki.test/a/b/c",
			want:   "wiki-test-a-b-c.txt",
		},
		{
			name:   "port separator is dropped",
			urlKey: "http://wiki.test:8080/rules",
			want:   "wiki-test8080-rules.txt",
		},
		{
			name:   "query does not change the name",
			urlKey: "http://wiki.test/rules?x=1",
			want:   "wiki-test-rules.txt",
		},
		{
			name:   "unsafe characters are removed",
			urlKey: "http://wiki.test/a%22b*c",
			want:   "wiki-test-a%22bc.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Filename(tt.urlKey); got != tt.want {
				t.Errorf("Filename(%q) = %q, want %q", tt.urlKey, got, tt.want)
			}
		})
	}
}

func TestFilenameLengthCap(t *testing.T) {
	t.Parallel()

	long := "http://wiki.test/" + strings.Repeat("x", 500)
	got := Filename(long)

	base := strings.TrimSuffix(got, PageExt)
	if n := utf8.RuneCountInString(base); n != MaxNameLength {
		t.Errorf("expected base name of %d chars, got %d", MaxNameLength, n)
	}
	if !strings.HasSuffix(got, ".txt") {
		t.Errorf("expected .txt suffix, got %q", got)
	}
}

func TestFilenameIsDeterministic(t *testing.T) {
	t.Parallel()

	key := "http://wiki.test/dragon-heist"
	if Filename(key) != Filename(key) {
		t.Error("expected the same key to map to the same name")
	}
	if Filename(key) == Filename("http://wiki.test/dragon-heist-2") {
		t.Error("expected different paths to map to different names")
	}
}

func TestSanitizeNameFallback(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", `<>:"|?*`} {
		if got := sanitizeName(in); got != "page" {
			t.Errorf("sanitizeName(%q) = %q, want page", in, got)
		}
	}
}
