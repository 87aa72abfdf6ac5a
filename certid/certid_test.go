package certid

import (
	"strings"
	"testing"
)

func TestNewFormat(t *testing.T) {
	id, err := New()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !strings.HasPrefix(id, Prefix) {
		t.Fatalf("expected prefix %s got %s", Prefix, id)
	}
	if len(id) != len(Prefix)+SuffixLen {
		t.Fatalf("unexpected length %d: %s", len(id), id)
	}
	if !IsValid(id) {
		t.Fatalf("generated id failed validation: %s", id)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  masa-pledge-abc234 "); got != "MASA-PLEDGE-ABC234" {
		t.Fatalf("unexpected normalization: %s", got)
	}
}

func TestIsValid(t *testing.T) {
	if IsValid("MASA-PLEDGE-") {
		t.Fatalf("empty suffix accepted")
	}
	if IsValid("OTHER-PLEDGE-ABC234") {
		t.Fatalf("wrong prefix accepted")
	}
	if IsValid("MASA-PLEDGE-ABC10O") {
		t.Fatalf("ambiguous characters accepted")
	}
	if !IsValid("MASA-PLEDGE-XYZ789") {
		t.Fatalf("well-formed id rejected")
	}
}
