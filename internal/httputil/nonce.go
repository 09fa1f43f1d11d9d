package httputil

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
)

const nonceBytes = 16

type nonceKey struct{}

// GenerateNonce returns a fresh CSP nonce, or "" when the system RNG fails.
func GenerateNonce() string {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		slog.Error("csp: nonce generation failed", "error", err)
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// NonceSource is the CSP source expression for nonce. An empty nonce yields
// "'none'" so a failed RNG read blocks inline code instead of allowing it.
func NonceSource(nonce string) string {
	if nonce == "" {
		return "'none'"
	}
	return "'nonce-" + nonce + "'"
}

func ContextWithNonce(ctx context.Context, nonce string) context.Context {
	return context.WithValue(ctx, nonceKey{}, nonce)
}

// NonceFromContext returns the nonce the security middleware put in the
// CSP header of the current response. Inline <script> and <style> on the
// viewer page carry it.
func NonceFromContext(ctx context.Context) string {
	v, _ := ctx.Value(nonceKey{}).(string)
	return v
}
