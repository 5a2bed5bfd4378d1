package utils

import (
	"strings"
	"testing"
)

func TestCanonicalJSON_KeyOrderIndependent(t *testing.T) {
	a := map[string]any{
		"dealId":   "D-100",
		"currency": "AED",
		"totals":   map[string]any{"total": "118.13", "subtotal": "112.50"},
	}
	b := map[string]any{
		"totals":   map[string]any{"subtotal": "112.50", "total": "118.13"},
		"currency": "AED",
		"dealId":   "D-100",
	}

	ca, err := CanonicalJSON(a)
	if err != nil {
		t.Fatalf("canonicalize a: %v", err)
	}
	cb, err := CanonicalJSON(b)
	if err != nil {
		t.Fatalf("canonicalize b: %v", err)
	}
	if ca != cb {
		t.Fatalf("logically equal maps canonicalized differently:\n%s\n%s", ca, cb)
	}
}

func TestCanonicalJSON_SortedAndCompact(t *testing.T) {
	in := map[string]any{
		"b": []any{map[string]any{"z": "1", "a": "2"}},
		"a": "x",
	}
	got, err := CanonicalJSON(in)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"a":"x","b":[{"a":"2","z":"1"}]}`
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if strings.ContainsAny(got, " \n\t") {
		t.Fatalf("canonical form must be compact, got %q", got)
	}
}

func TestCanonicalJSON_ArraysKeepOrder(t *testing.T) {
	got, err := CanonicalJSON(map[string]any{"lines": []any{"c", "a", "b"}})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"lines":["c","a","b"]}`
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestCanonicalJSON_RejectsCycles(t *testing.T) {
	m := map[string]any{}
	m["self"] = m
	if _, err := CanonicalJSON(m); err == nil {
		t.Fatal("expected an error for a cyclic structure")
	}
}

func TestSHA256Hex(t *testing.T) {
	// Known vector: sha256 of the empty string.
	got := SHA256Hex("")
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestCanonicalHash_StableAcrossRuns(t *testing.T) {
	in := map[string]any{"qty": "2.000", "sku": "PLT-01"}
	_, h1, err := CanonicalHash(in)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	_, h2, err := CanonicalHash(in)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h1))
	}
}
