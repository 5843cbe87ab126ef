package domain

import (
	"strings"
	"testing"
)

func TestGenerateToken(t *testing.T) {
	plain, hash, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if !ValidateTokenFormat(plain) {
		t.Errorf("ValidateTokenFormat(%q) = false", plain)
	}
	if !strings.HasPrefix(hash, TokenHashPrefix) || len(hash) != 69 {
		t.Errorf("hash = %q", hash)
	}
	if hash != HashToken(plain) {
		t.Error("hash should equal HashToken(plaintext)")
	}
}

func TestVerifyToken(t *testing.T) {
	plain, hash, _ := GenerateToken()

	if !VerifyToken(plain, hash) {
		t.Error("VerifyToken should accept matching token")
	}
	if VerifyToken(plain+"x", hash) {
		t.Error("VerifyToken should reject different token")
	}
	if VerifyToken(plain, strings.TrimPrefix(hash, TokenHashPrefix)) {
		t.Error("VerifyToken should reject hash without prefix")
	}
}

func TestValidateTokenFormat(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"wrong prefix", "tmtk_" + strings.Repeat("a", TokenBodyLength), false},
		{"too short", TokenPrefix + "abc", false},
		{"invalid base64", TokenPrefix + strings.Repeat("!", TokenBodyLength), false},
		{"valid", TokenPrefix + strings.Repeat("A", TokenBodyLength-1) + "Q", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateTokenFormat(tt.token); got != tt.want {
				t.Errorf("ValidateTokenFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMaskToken(t *testing.T) {
	plain, _, _ := GenerateToken()
	masked := MaskToken(plain)
	if !strings.HasPrefix(masked, TokenPrefix) || !strings.Contains(masked, "...") {
		t.Errorf("MaskToken() = %q", masked)
	}
	if strings.Contains(masked, plain[5:20]) {
		t.Error("MaskToken leaked token body")
	}
	if MaskToken("short") != "***REDACTED***" {
		t.Error("short values should be fully redacted")
	}
}
