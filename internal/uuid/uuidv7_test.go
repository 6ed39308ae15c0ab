package uuid

import "testing"

func TestNew(t *testing.T) {
	t.Run("generates_valid_v7", func(t *testing.T) {
		id := New()
		if !IsValid(id) {
			t.Fatalf("expected valid uuid, got %q", id)
		}
		if id[14] != '7' {
			t.Errorf("expected version 7, got %q", id)
		}
	})

	t.Run("monotonic_within_process", func(t *testing.T) {
		prev := New()
		for i := 0; i < 1000; i++ {
			next := New()
			if next <= prev {
				t.Fatalf("expected %q > %q at iteration %d", next, prev, i)
			}
			prev = next
		}
	})
}

func TestParse(t *testing.T) {
	got, err := Parse("0190F1E2-3B4C-7D5E-8F60-718293A4B5C6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0190f1e2-3b4c-7d5e-8f60-718293a4b5c6" {
		t.Errorf("expected lower-cased uuid, got %q", got)
	}

	if _, err := Parse("not-a-uuid"); err == nil {
		t.Error("expected error for invalid uuid")
	}
	if IsValid("") {
		t.Error("empty string must not be a valid uuid")
	}
}
