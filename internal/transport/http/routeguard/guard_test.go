package routeguard

import "testing"

func newTestGuard() *Guard {
	return New(Config{
		ProtectedPrefixes: []string{"/dashboard", "/profile", "/admin"},
		AuthPrefixes:      []string{"/auth/signin", "/auth/signup"},
		Locales:           []string{"en", "hy", "ru", "fr"},
	})
}

func TestDecideTable(t *testing.T) {
	guard := newTestGuard()

	cases := []struct {
		name          string
		path          string
		authenticated bool
		wantAllow     bool
		wantRedirect  string
	}{
		{"public path unauthenticated", "/about", false, true, ""},
		{"public path authenticated", "/about", true, true, ""},
		{"protected unauthenticated", "/dashboard", false, false, "/auth/signin?callbackUrl=%2Fdashboard"},
		{"protected subpath unauthenticated", "/dashboard/settings", false, false, "/auth/signin?callbackUrl=%2Fdashboard%2Fsettings"},
		{"protected authenticated", "/dashboard", true, true, ""},
		{"auth page unauthenticated", "/auth/signin", false, true, ""},
		{"auth page authenticated", "/auth/signin", true, false, "/dashboard"},
		{"signup authenticated", "/auth/signup", true, false, "/dashboard"},
		{"prefix is not a match without separator", "/dashboarding", false, true, ""},
		{"localized protected unauthenticated", "/fr/dashboard", false, false, "/fr/auth/signin?callbackUrl=%2Ffr%2Fdashboard"},
		{"localized protected authenticated", "/hy/dashboard", true, true, ""},
		{"localized auth page authenticated", "/ru/auth/signin", true, false, "/ru/dashboard"},
		{"unknown locale treated literally", "/de/dashboard", false, true, ""},
		{"bare locale path", "/en", false, true, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict := guard.Decide(tc.path, tc.authenticated)

			if verdict.Allow != tc.wantAllow {
				t.Fatalf("Decide(%q, %v).Allow = %v, want %v", tc.path, tc.authenticated, verdict.Allow, tc.wantAllow)
			}
			if verdict.RedirectTo != tc.wantRedirect {
				t.Fatalf("Decide(%q, %v).RedirectTo = %q, want %q", tc.path, tc.authenticated, verdict.RedirectTo, tc.wantRedirect)
			}
		})
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	guard := New(Config{ProtectedPrefixes: []string{"/app"}})

	verdict := guard.Decide("/app", false)
	if verdict.Allow {
		t.Fatal("protected path should not be allowed unauthenticated")
	}
	if verdict.RedirectTo != "/auth/signin?callbackUrl=%2Fapp" {
		t.Fatalf("unexpected redirect: %q", verdict.RedirectTo)
	}

	guard = New(Config{AuthPrefixes: []string{"/auth/signin"}})
	verdict = guard.Decide("/auth/signin", true)
	if verdict.RedirectTo != "/dashboard" {
		t.Fatalf("unexpected dashboard redirect: %q", verdict.RedirectTo)
	}
}
