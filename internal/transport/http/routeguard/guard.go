// Package routeguard classifies request paths into allow and redirect
// verdicts based on session presence. It holds no per-request state and
// performs no I/O, so it can run on every inbound request.
package routeguard

import (
	"net/url"
	"strings"
)

// Verdict is the outcome of a guard decision.
type Verdict struct {
	Allow      bool
	RedirectTo string
}

// Config declares the path classification for a deployment.
type Config struct {
	// ProtectedPrefixes require a valid session assertion.
	ProtectedPrefixes []string
	// AuthPrefixes are sign-in and sign-up surfaces that authenticated
	// visitors are bounced away from.
	AuthPrefixes []string
	// Locales are path prefixes stripped before classification, so
	// /fr/dashboard classifies the same as /dashboard.
	Locales []string
	// SignInPath receives unauthenticated visitors to protected paths.
	SignInPath string
	// DashboardPath receives authenticated visitors to auth-only paths.
	DashboardPath string
}

// Guard decides per-request access from path and authentication state.
type Guard struct {
	cfg Config
}

// New constructs a guard. Empty sign-in and dashboard paths fall back to the
// conventional defaults.
func New(cfg Config) *Guard {
	if cfg.SignInPath == "" {
		cfg.SignInPath = "/auth/signin"
	}
	if cfg.DashboardPath == "" {
		cfg.DashboardPath = "/dashboard"
	}
	return &Guard{cfg: cfg}
}

// Decide maps (path, authenticated) to a verdict. Role checks are downstream
// concerns of the protected handlers, not of the guard.
func (g *Guard) Decide(path string, authenticated bool) Verdict {
	locale, normalized := g.splitLocale(path)

	switch {
	case g.matchesPrefix(normalized, g.cfg.ProtectedPrefixes) && !authenticated:
		target := g.localized(locale, g.cfg.SignInPath)
		callback := url.QueryEscape(path)
		return Verdict{RedirectTo: target + "?callbackUrl=" + callback}
	case g.matchesPrefix(normalized, g.cfg.AuthPrefixes) && authenticated:
		return Verdict{RedirectTo: g.localized(locale, g.cfg.DashboardPath)}
	default:
		return Verdict{Allow: true}
	}
}

// splitLocale strips a leading locale segment when it matches a supported
// locale, returning the locale and the remaining path. Classification then
// needs only the bare prefix form.
func (g *Guard) splitLocale(path string) (locale, rest string) {
	trimmed := strings.TrimPrefix(path, "/")
	segment, remainder, found := strings.Cut(trimmed, "/")

	for _, candidate := range g.cfg.Locales {
		if segment != candidate {
			continue
		}
		if !found {
			return segment, "/"
		}
		return segment, "/" + remainder
	}

	return "", path
}

func (g *Guard) matchesPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func (g *Guard) localized(locale, path string) string {
	if locale == "" {
		return path
	}
	return "/" + locale + path
}
