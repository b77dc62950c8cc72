package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Format(t *testing.T) {
	gen := UUIDv7()
	id := gen()
	if len(id) != 36 {
		t.Fatalf("UUIDv7: got length %d, want 36", len(id))
	}
	if strings.Count(id, "-") != 4 {
		t.Fatalf("UUIDv7: malformed %q", id)
	}
	// Version nibble must be 7.
	if id[14] != '7' {
		t.Fatalf("UUIDv7: version nibble is %c, want 7 (%q)", id[14], id)
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	// WHAT: Successive v7 IDs sort in generation order.
	// WHY: Row IDs double as insertion-order tiebreakers in queries.
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 100; i++ {
		id := gen()
		if id < prev {
			t.Fatalf("UUIDv7: %q sorts before earlier %q", id, prev)
		}
		prev = id
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("tgt_", UUIDv7())
	id := gen()
	if !strings.HasPrefix(id, "tgt_") {
		t.Fatalf("Prefixed: got %q", id)
	}
}

func TestParse(t *testing.T) {
	id := New()
	got, err := Parse(id)
	if err != nil {
		t.Fatalf("Parse(%q): %v", id, err)
	}
	if got != id {
		t.Fatalf("Parse: got %q, want %q", got, id)
	}
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Fatal("Parse should reject junk")
	}
}
