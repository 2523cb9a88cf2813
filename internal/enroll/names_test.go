package enroll

import "testing"

func TestRemoveDiacritics(t *testing.T) {
	cases := map[string]string{
		"Müller":   "Muller",
		"Dvořák":   "Dvorak",
		"Ærøskøbing": "Ærøskøbing", // ø and Æ are letters, not marks
		"plain":    "plain",
	}
	for in, want := range cases {
		if got := RemoveDiacritics(in); got != want {
			t.Errorf("RemoveDiacritics(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizePersonName(t *testing.T) {
	cases := map[string]string{
		"  Jürgen   Müller ": "jurgen muller",
		"ALICE":              "alice",
		"":                   "",
	}
	for in, want := range cases {
		if got := NormalizePersonName(in); got != want {
			t.Errorf("NormalizePersonName(%q) = %q, want %q", in, got, want)
		}
	}
}
