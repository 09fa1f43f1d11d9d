package httputil

import (
	"context"
	"encoding/base64"
	"testing"
)

func TestGenerateNonce(t *testing.T) {
	seen := make(map[string]bool)
	for range 20 {
		nonce := GenerateNonce()
		raw, err := base64.RawURLEncoding.DecodeString(nonce)
		if err != nil {
			t.Fatalf("nonce %q is not raw base64url: %v", nonce, err)
		}
		if len(raw) != nonceBytes {
			t.Errorf("expected %d random bytes, got %d", nonceBytes, len(raw))
		}
		if seen[nonce] {
			t.Fatalf("nonce %q repeated", nonce)
		}
		seen[nonce] = true
	}
}

func TestNonceSource(t *testing.T) {
	tests := map[string]string{
		"abc": "'nonce-abc'",
		"":    "'none'",
	}
	for nonce, want := range tests {
		if got := NonceSource(nonce); got != want {
			t.Errorf("NonceSource(%q) = %q, want %q", nonce, got, want)
		}
	}
}

func TestNonceContextRoundTrip(t *testing.T) {
	if got := NonceFromContext(context.Background()); got != "" {
		t.Errorf("expected empty nonce without middleware, got %q", got)
	}

	ctx := ContextWithNonce(context.Background(), "slide-nonce")
	if got := NonceFromContext(ctx); got != "slide-nonce" {
		t.Errorf("expected stored nonce, got %q", got)
	}
}
