package store

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDValue(t *testing.T) {
	id := uuid.NewString()
	v, err := uuidValue(id)
	if err != nil {
		t.Fatalf("uuidValue(%q): %v", id, err)
	}
	if !v.Valid {
		t.Fatal("expected valid uuid")
	}
	if uuidString(v) != id {
		t.Fatalf("round trip mismatch: %s != %s", uuidString(v), id)
	}

	if _, err := uuidValue("not-a-uuid"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := uuidValue(""); err == nil {
		t.Fatal("expected parse error for empty id")
	}
}

func TestOptionalUUID(t *testing.T) {
	v, err := optionalUUID("")
	if err != nil {
		t.Fatalf("optionalUUID(\"\"): %v", err)
	}
	if v.Valid {
		t.Fatal("empty id must map to NULL")
	}
	if uuidString(v) != "" {
		t.Fatalf("NULL must render empty, got %q", uuidString(v))
	}

	id := uuid.NewString()
	v, err = optionalUUID(id)
	if err != nil {
		t.Fatalf("optionalUUID(%q): %v", id, err)
	}
	if !v.Valid || uuidString(v) != id {
		t.Fatalf("expected %s, got %v", id, v)
	}

	if _, err := optionalUUID("garbage"); err == nil {
		t.Fatal("expected parse error")
	}
}
