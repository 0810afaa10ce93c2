package config

import "testing"

func TestParseExtraDirectives(t *testing.T) {
	tests := []struct {
		name string
		line string
		want ExtraDirectives
	}{
		{"empty", "", ExtraDirectives{}},
		{"hole fill only", "--hole-fill", ExtraDirectives{HoleFill: true}},
		{
			"both flags", "--hole-fill --band-count 12",
			ExtraDirectives{HoleFill: true, BandCount: 12},
		},
		{"quoted noise ignored", `--band-count 8 --unknown "some value"`, ExtraDirectives{BandCount: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExtraDirectives(tt.line)
			if err != nil {
				t.Fatalf("ParseExtraDirectives(%q): %v", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("ParseExtraDirectives(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseExtraDirectivesBadBandCount(t *testing.T) {
	if _, err := ParseExtraDirectives("--band-count notanumber"); err == nil {
		t.Fatal("expected error for non-integer --band-count value")
	}
	if _, err := ParseExtraDirectives("--band-count"); err == nil {
		t.Fatal("expected error for missing --band-count value")
	}
}
