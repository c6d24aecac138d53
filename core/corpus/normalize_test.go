package corpus

import "testing"

func TestNormalizeHeading(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"already normal", "chapter one", "chapter one"},
		{"trims and lowercases", "  Chapter One  ", "chapter one"},
		{"collapses runs", "Chapter\t\tOne\n Two", "chapter one two"},
		{"unicode kept", "Bāb al-Ḥurūf", "bāb al-ḥurūf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeHeading(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeHeading(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeSearchText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"quotes folded", "“quoted” and ‘single’", `"quoted" and 'single'`},
		{"dashes folded", "pages 4–7 — see note", "pages 4-7 - see note"},
		{"ellipsis folded", "and so on…", "and so on..."},
		{"nbsp collapsed", "a  b", "a b"},
		{"lowercased", "The QUICK Fox", "the quick fox"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeSearchText(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeSearchText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// Both normalizers must be idempotent: applying them twice yields the
// same result as applying them once.
func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"  Chapter\tOne ",
		"“Smart — quotes…”",
		"Bāb al-Ḥurūf   wa-l-Asmāʾ",
		"already normalized text",
	}

	for _, s := range inputs {
		h := NormalizeHeading(s)
		if NormalizeHeading(h) != h {
			t.Errorf("NormalizeHeading not idempotent for %q: %q -> %q", s, h, NormalizeHeading(h))
		}
		st := NormalizeSearchText(s)
		if NormalizeSearchText(st) != st {
			t.Errorf("NormalizeSearchText not idempotent for %q: %q -> %q", s, st, NormalizeSearchText(st))
		}
	}
}
