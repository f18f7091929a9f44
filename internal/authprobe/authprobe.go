// Package authprobe determines whether a request carries a verifiable bearer
// credential. Unlike an auth middleware it never rejects: verification failure
// only downgrades the caller to the anonymous rate-limit tier.
package authprobe

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Result is the per-request auth decision. Never persisted.
type Result struct {
	PrincipalID   string
	Authenticated bool
}

// Verifier checks a bearer token against the identity provider and returns
// the principal it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (principalID string, err error)
}

// Probe inspects inbound requests for bearer credentials.
type Probe struct {
	verifier Verifier
	logger   *slog.Logger
	parser   *jwt.Parser
}

// New creates a Probe. A nil verifier means every caller is anonymous, which
// is the correct degraded mode when no identity provider is configured.
func New(verifier Verifier, logger *slog.Logger) *Probe {
	return &Probe{
		verifier: verifier,
		logger:   logger,
		parser:   jwt.NewParser(),
	}
}

var anonymous = Result{}

// Probe classifies the request. It performs at most one outbound call, to the
// identity provider, and only when the header carries a structurally valid JWT.
func (p *Probe) Probe(ctx context.Context, r *http.Request) Result {
	token, ok := bearerToken(r)
	if !ok {
		return anonymous
	}

	// Cheap structural check before spending a network round trip. The
	// signature is NOT verified here; that is the provider's job.
	if _, _, err := p.parser.ParseUnverified(token, jwt.MapClaims{}); err != nil {
		p.logger.DebugContext(ctx, "bearer token is not a well-formed JWT", "error", err)
		return anonymous
	}

	if p.verifier == nil {
		return anonymous
	}

	principalID, err := p.verifier.Verify(ctx, token)
	if err != nil {
		// Verification failure is never fatal to the request.
		p.logger.DebugContext(ctx, "token verification failed", "error", err)
		return anonymous
	}
	if principalID == "" {
		return anonymous
	}

	return Result{PrincipalID: principalID, Authenticated: true}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	after, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || after == "" {
		return "", false
	}
	return after, true
}
