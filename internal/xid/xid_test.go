package xid

import (
	"regexp"
	"testing"
)

func TestNewMatchesSaleIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^INV-[0-9A-Z]{6}$`)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := New("INV")
		if !pattern.MatchString(id) {
			t.Fatalf("unexpected id format %q", id)
		}
		seen[id] = true
	}
	if len(seen) < 190 {
		t.Fatalf("expected near-unique ids, got %d distinct of 200", len(seen))
	}
}

func TestNewKeepsPrefix(t *testing.T) {
	for _, prefix := range []string{"INV", "ORD", "PAY"} {
		id := New(prefix)
		if len(id) != len(prefix)+7 {
			t.Fatalf("unexpected length for %q", id)
		}
		if id[:len(prefix)+1] != prefix+"-" {
			t.Fatalf("expected prefix %s-, got %q", prefix, id)
		}
	}
}

func TestBarcodeIsSixDigits(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9]{6}$`)
	for i := 0; i < 100; i++ {
		if code := Barcode(); !pattern.MatchString(code) {
			t.Fatalf("unexpected barcode %q", code)
		}
	}
}
