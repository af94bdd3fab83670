package security

import (
	"strconv"
	"testing"
)

func TestGenerateSecureTokenUnique(t *testing.T) {
	first, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}
	second, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}

	if first == "" || second == "" {
		t.Fatal("GenerateSecureToken returned empty string")
	}
	if first == second {
		t.Fatal("two generated tokens should differ")
	}
}

func TestGenerateSecureTokenInvalidLength(t *testing.T) {
	if _, err := GenerateSecureToken(0); err == nil {
		t.Fatal("expected error for zero length")
	}
	if _, err := GenerateSecureToken(-8); err == nil {
		t.Fatal("expected error for negative length")
	}
}

func TestGenerateTwoFactorCodeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateTwoFactorCode()
		if err != nil {
			t.Fatalf("GenerateTwoFactorCode returned error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("unexpected code length: %q", code)
		}

		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code is not numeric: %q", code)
		}
		if n < twoFactorCodeMin || n > twoFactorCodeMax {
			t.Fatalf("code out of range: %d", n)
		}
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	first := HashToken("value")
	second := HashToken("value")

	if first != second {
		t.Fatal("HashToken should be deterministic")
	}
	if len(first) != 64 {
		t.Fatalf("unexpected digest length: %d", len(first))
	}
	if first == HashToken("other") {
		t.Fatal("different values should hash differently")
	}
}
