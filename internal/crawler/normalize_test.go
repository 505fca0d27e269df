package crawler

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		link string
		base string
		want string
	}{
		{name: "relative path", link: "rules", base: "http://wiki.test/home", want: "http://wiki.test/rules"},
		{name: "root relative with trailing slash", link: "/rules/", base: "http://wiki.test/home", want: "http://wiki.test/rules"},
		{name: "repeated trailing slashes", link: "/rules//", base: "http://wiki.test/home", want: "http://wiki.test/rules"},
		{name: "fragment only", link: "#toc", base: "http://wiki.test/home", want: "http://wiki.test/home"},
		{name: "absolute with fragment", link: "http://wiki.test/page#x", base: "", want: "http://wiki.test/page"},
		{name: "scheme relative", link: "//wiki.test/a/", base: "https://other.test/", want: "https://wiki.test/a"},
		{name: "query kept", link: "?page=2", base: "http://wiki.test/home", want: "http://wiki.test/home?page=2"},
		{name: "host lower-cased", link: "HTTP://Wiki.Test/Page", base: "", want: "http://wiki.test/Page"},
		{name: "root collapses", link: "http://wiki.test/", base: "", want: "http://wiki.test"},
		{name: "wiki colon path", link: "/spell:fireball", base: "http://wiki.test/", want: "http://wiki.test/spell:fireball"},
		{name: "port kept", link: "/a", base: "http://wiki.test:8080/b", want: "http://wiki.test:8080/a"},
		{name: "dot segments resolved", link: "../x/./y", base: "http://wiki.test/a/b/c", want: "http://wiki.test/a/x/y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Normalize(tt.link, tt.base)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q, %q) = %q, want %q", tt.link, tt.base, got, tt.want)
			}
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		link string
		base string
		want error
	}{
		{name: "empty", link: "  ", base: "http://wiki.test/", want: ErrEmptyLink},
		{name: "javascript", link: "javascript:void(0)", base: "http://wiki.test/", want: ErrUnsupportedScheme},
		{name: "mailto", link: "mailto:admin@wiki.test", base: "http://wiki.test/", want: ErrUnsupportedScheme},
		{name: "file", link: "file:///etc/passwd", base: "", want: ErrUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Normalize(tt.link, tt.base); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("relative without base", func(t *testing.T) {
		t.Parallel()

		if _, err := Normalize("rules", ""); err == nil {
			t.Error("expected error for relative link without base")
		}
	})
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	links := []string{
		"http://wiki.test/home/",
		"http://wiki.test/a//",
		"https://wiki.test/spell:fire ball",
		"http://wiki.test/x?q=1#frag",
		"http://wiki.test/a|b",
		"http://wiki.test/caf%C3%A9/",
	}
	for _, link := range links {
		once, err := Normalize(link, "")
		if err != nil {
			t.Fatalf("Normalize(%q): %v", link, err)
		}
		twice, err := Normalize(once, once)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", once, err)
		}
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", link, once, twice)
		}
	}
}
