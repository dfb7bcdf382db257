// Package server origin policy tests.
package server

import (
	"net/http/httptest"
	"testing"
)

// TestOriginPolicyAllowList verifies exact-match checking against the
// configured origins.
func TestOriginPolicyAllowList(t *testing.T) {
	policy := NewOriginPolicy([]string{"http://localhost:8080", "https://app.example.com"})

	for origin, want := range map[string]bool{
		"http://localhost:8080":   true,
		"https://app.example.com": true,
		"http://evil.example.com": false,
		"https://localhost:8080":  false,
	} {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Origin", origin)
		if got := policy.Check(r); got != want {
			t.Errorf("Check(%q) = %v, want %v", origin, got, want)
		}
	}
}

// TestOriginPolicyWildcard verifies that "*" admits any well-formed origin.
func TestOriginPolicyWildcard(t *testing.T) {
	policy := NewOriginPolicy([]string{"*"})

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://anywhere.example.com")
	if !policy.Check(r) {
		t.Error("Wildcard policy rejected a well-formed origin")
	}
}

// TestOriginPolicyRejectsMissingHeader verifies that requests without an
// Origin header are always rejected, wildcard included.
func TestOriginPolicyRejectsMissingHeader(t *testing.T) {
	for _, origins := range [][]string{
		{"http://localhost:8080"},
		{"*"},
	} {
		policy := NewOriginPolicy(origins)
		r := httptest.NewRequest("GET", "/ws", nil)
		if policy.Check(r) {
			t.Errorf("Policy %v accepted a request without an Origin header", origins)
		}
	}
}

// TestOriginPolicyNormalizesCase verifies that scheme and host comparisons are
// case-insensitive.
func TestOriginPolicyNormalizesCase(t *testing.T) {
	policy := NewOriginPolicy([]string{"HTTP://LocalHost:8080"})

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "http://localhost:8080")
	if !policy.Check(r) {
		t.Error("Policy rejected an origin differing only in case")
	}
}

// TestOriginPolicySkipsInvalidEntries verifies that unparseable configured
// origins are dropped without poisoning the rest of the list.
func TestOriginPolicySkipsInvalidEntries(t *testing.T) {
	policy := NewOriginPolicy([]string{"not a url", "", "http://localhost:8080"})

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "http://localhost:8080")
	if !policy.Check(r) {
		t.Error("Valid origin rejected after invalid configuration entries")
	}

	r.Header.Set("Origin", "not a url")
	if policy.Check(r) {
		t.Error("Invalid origin header accepted")
	}
}
