package auth

import (
	"encoding/hex"
	"testing"

	"pokerplan/internal/constants"
)

func TestGenerateOpaqueToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		token, err := GenerateOpaqueToken(constants.CapabilityTokenBytes)
		if err != nil {
			t.Fatalf("GenerateOpaqueToken() error = %v", err)
		}
		if len(token) != constants.CapabilityTokenBytes*2 {
			t.Fatalf("token length = %d, want %d", len(token), constants.CapabilityTokenBytes*2)
		}
		if _, err := hex.DecodeString(token); err != nil {
			t.Fatalf("token %q is not hex: %v", token, err)
		}
		if seen[token] {
			t.Fatalf("token %q generated twice", token)
		}
		seen[token] = true
	}
}
