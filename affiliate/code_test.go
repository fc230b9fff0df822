package affiliate

import (
	"strings"
	"testing"
)

func TestGenerateCodeShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if len(code) != CodeLength {
			t.Fatalf("expected %d characters, got %q", CodeLength, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
	}
}

func TestGenerateCodeVariety(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		seen[code] = true
	}
	// 36^8 possible codes; 1000 draws colliding down to fewer than 990
	// distinct values would indicate a broken generator.
	if len(seen) < 990 {
		t.Errorf("expected near-unique codes, got %d distinct of 1000", len(seen))
	}
}

func TestGenerateCodeUniform(t *testing.T) {
	// A generator that maps raw bytes onto the alphabet by plain modulo
	// favors the first 256%36 = 4 characters. Count how often A-D appear
	// across 40000 character draws: uniform draws land near 4/36 of the
	// total (4444), the skewed mapping near 32/256 (5000).
	const draws = 5000
	count := 0
	for i := 0; i < draws; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		for _, r := range code {
			if r >= 'A' && r <= 'D' {
				count++
			}
		}
	}
	if count > 4700 {
		t.Errorf("first four alphabet characters drawn %d times of %d, want ~4444", count, draws*CodeLength)
	}
}
