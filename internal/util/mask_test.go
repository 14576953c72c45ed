package util

import "testing"

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"alice@example.com": "a…@e….com",
		"a@b.io":            "a@b.io",
		"":                  "",
		"ab":                "***",
		"notanemail":        "n…l",
	}
	for in, want := range cases {
		if got := MaskEmail(in); got != want {
			t.Errorf("MaskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaskToken(t *testing.T) {
	if got := MaskToken("abc123"); got != "***" {
		t.Errorf("short token not fully masked: %q", got)
	}
	got := MaskToken("gho_abcdefghijklmnop")
	if got != "gho_…mnop" {
		t.Errorf("MaskToken = %q", got)
	}
}
