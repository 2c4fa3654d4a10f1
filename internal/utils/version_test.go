package utils

import "testing"

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		current string
		target  string
		want    int
	}{
		{"1.2.3", "1.2.3", 0},
		{"1.2.4", "1.2.3", 1},
		{"1.2.2", "1.2.3", -1},
		{"2.0", "1.9.9", 1},
		{"1.0.0", "1.0", 0},
		{"", "1.0", -1},
		{"1.0-beta", "1.0", 0},
	}
	for _, tc := range cases {
		if got := CompareVersions(tc.current, tc.target); got != tc.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tc.current, tc.target, got, tc.want)
		}
	}
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(6)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("expected 6 chars, got %d", len(code))
	}
	// zero and negative lengths fall back to the default
	code, err = GenerateCode(0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("expected default length 6, got %d", len(code))
	}
}
