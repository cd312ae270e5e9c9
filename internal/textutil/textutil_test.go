package textutil

import "testing"

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  just text ", "just text"},
		{"quote link", `<a href="#p123" class="quotelink">&gt;&gt;123</a><br>check these`, ">>123\ncheck these"},
		{"greentext", `<span class="quote">&gt;be me</span><br><br>read the greeks`, ">be me\n\nread the greeks"},
		{"entities", "Tom &amp; Jerry&#039;s", "Tom & Jerry's"},
		{"wbr", "long<wbr>word", "longword"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripMarkup(tc.in); got != tc.want {
				t.Fatalf("StripMarkup(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("ünïcödé", 3); got != "ünï" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("anything", 0); got != "anything" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := map[string]string{
		"Keyword":       "keyword",
		" get/results ": "get_results",
		"__":            "unknown",
		"":              "unknown",
		"reply-count":   "reply-count",
	}
	for in, want := range tests {
		if got := SanitizeToken(in); got != want {
			t.Fatalf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTernary(t *testing.T) {
	if Ternary(true, "a", "b") != "a" || Ternary(false, 1, 2) != 2 {
		t.Fatal("Ternary returned the wrong branch")
	}
}
