package store

import "testing"

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello, World!":        "hello-world",
		"  Leading and trailing  ": "leading-and-trailing",
		"Go 1.25 released":     "go-1-25-released",
		"already-a-slug":       "already-a-slug",
		"Ünïcode Títle":        "n-code-t-tle",
		"!!!":                  "",
		"":                     "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q)=%q, want %q", in, got, want)
		}
	}
}
