package db

import (
	"strings"
	"testing"

	"pokerplan/internal/constants"
)

func TestGenerateID(t *testing.T) {
	id, err := GenerateID("usr")
	if err != nil {
		t.Fatalf("GenerateID() error = %v", err)
	}

	if !strings.HasPrefix(id, "usr_") {
		t.Fatalf("id = %q, want usr_ prefix", id)
	}
	if len(id) != len("usr_")+constants.IDRandomBytes*2 {
		t.Fatalf("id length = %d, want %d", len(id), len("usr_")+constants.IDRandomBytes*2)
	}

	other, err := GenerateID("usr")
	if err != nil {
		t.Fatalf("GenerateID() error = %v", err)
	}
	if id == other {
		t.Fatal("two generated IDs are identical")
	}
}
