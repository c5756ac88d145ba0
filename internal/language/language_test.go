package language

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"es", "es"},
		{"ES", "es"},
		{"en-US", "en-US"},
		{"spa", "es"},
		{"", "und"},
		{"not-a-language!", "und"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.input); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestDisplay(t *testing.T) {
	if got := Display("es"); got != "Spanish" {
		t.Fatalf("Display(es) = %q", got)
	}
	if got := Display(""); got != "Unknown" {
		t.Fatalf("Display('') = %q", got)
	}
}
