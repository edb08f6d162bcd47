package number

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"already e164", "+391234", "+391234", true},
		{"double-zero prefix", "00391234", "+391234", true},
		{"national number unchanged", "3331234567", "3331234567", true},
		{"formatting stripped", "+39 (333) 123-4567", "+393331234567", true},
		{"leading whitespace kept plus", "  +39 333 1234", "+393331234", true},
		{"empty", "", "", false},
		{"blank", "   ", "", false},
		{"no digits", "abc", "", false},
		{"bare plus", "+", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("Normalize(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestIsEmergency(t *testing.T) {
	tests := []struct {
		number string
		want   bool
	}{
		{"112", true},
		{"911", true},
		{"+39112", false},
		{"1122", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			if got := IsEmergency(tt.number); got != tt.want {
				t.Errorf("IsEmergency(%q) = %v, want %v", tt.number, got, tt.want)
			}
		})
	}
}
