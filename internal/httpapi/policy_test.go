package httpapi

import (
	"testing"

	"github.com/ludwingperezt/mobileappws/internal/auth"
)

func principal(userID string, perms ...string) auth.Principal {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return auth.Principal{Email: userID + "@example.com", UserID: userID, Permissions: set}
}

func TestDefaultPolicy(t *testing.T) {
	var (
		anon  auth.Principal
		u1    = principal("U1", auth.RoleUser, auth.AuthorityRead, auth.AuthorityWrite)
		u2    = principal("U2", auth.RoleUser, auth.AuthorityRead, auth.AuthorityWrite)
		admin = principal("A1", auth.RoleAdmin, auth.AuthorityRead, auth.AuthorityWrite, auth.AuthorityDelete)
	)
	p := DefaultPolicy()

	cases := []struct {
		name   string
		method string
		path   string
		who    auth.Principal
		want   Decision
	}{
		{"signup is public", "POST", "/users", anon, Allow},
		{"login is public", "POST", "/users/login", anon, Allow},
		{"verification is public", "GET", "/users/email-verification", anon, Allow},
		{"reset request is public", "POST", "/users/reset-password-request", anon, Allow},
		{"reset request alias is public", "POST", "/users/password-reset-request", anon, Allow},
		{"reset is public", "POST", "/users/password-reset", anon, Allow},
		{"root is public", "GET", "/", anon, Allow},
		{"metrics is public", "GET", "/metrics", anon, Allow},
		{"docs subtree is public", "GET", "/docs/index.html", anon, Allow},
		{"docs root is public", "GET", "/docs", anon, Allow},
		{"public only for listed method", "GET", "/users/login", anon, Unauthenticated},

		{"list needs a principal", "GET", "/users", anon, Unauthenticated},
		{"list allowed for any user", "GET", "/users", u1, Allow},
		{"unknown path needs a principal", "GET", "/nope", anon, Unauthenticated},

		{"owner reads self", "GET", "/users/U1", u1, Allow},
		{"other user forbidden", "GET", "/users/U1", u2, Forbidden},
		{"admin reads anyone", "GET", "/users/U1", admin, Allow},
		{"anonymous read", "GET", "/users/U1", anon, Unauthenticated},
		{"owner updates self", "PUT", "/users/U1", u1, Allow},
		{"other user update forbidden", "PUT", "/users/U1", u2, Forbidden},
		{"owner addresses", "GET", "/users/U1/addresses", u1, Allow},
		{"owner single address", "GET", "/users/U1/addresses/X9", u1, Allow},
		{"other addresses forbidden", "GET", "/users/U1/addresses/X9", u2, Forbidden},
		{"trailing slash same rule", "GET", "/users/U1/", u2, Forbidden},

		{"delete needs authority", "DELETE", "/users/U1", u1, Forbidden},
		{"delete by admin", "DELETE", "/users/U1", admin, Allow},
		{"delete anonymous", "DELETE", "/users/U1", anon, Unauthenticated},

		{"admin role route", "GET", "/user-security/roles/admin", admin, Allow},
		{"admin role route user", "GET", "/user-security/roles/admin", u1, Forbidden},
		{"delete authority route", "GET", "/user-security/authorities/delete", u1, Forbidden},
		{"delete authority route admin", "GET", "/user-security/authorities/delete", admin, Allow},
		{"owner demo self", "DELETE", "/user-security/owner/U1", u1, Allow},
		{"owner demo other", "DELETE", "/user-security/owner/U1", u2, Forbidden},
		{"owner demo admin", "DELETE", "/user-security/owner/U1", admin, Allow},
		{"encoded slash is one segment", "GET", "/users/U1%2Faddresses", u1, Forbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.Evaluate(tc.method, tc.path, tc.who); got != tc.want {
				t.Fatalf("%s %s: expected %s, got %s", tc.method, tc.path, tc.want, got)
			}
		})
	}
}

func TestPolicyFirstMatchWins(t *testing.T) {
	p := NewPolicy(
		Rule{Pattern: "/things/public", Requirement: Public()},
		Rule{Pattern: "/things/**", Requirement: Role("ROLE_X")},
	)
	if got := p.Evaluate("GET", "/things/public", auth.Principal{}); got != Allow {
		t.Fatalf("expected allow, got %s", got)
	}
	if got := p.Evaluate("GET", "/things/other", principal("U1")); got != Forbidden {
		t.Fatalf("expected forbidden, got %s", got)
	}
	if got := p.Evaluate("GET", "/things/other", principal("U1", "ROLE_X")); got != Allow {
		t.Fatalf("expected allow, got %s", got)
	}
}

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern, path string
		ok            bool
		param         string
	}{
		{"/users", "/users", true, ""},
		{"/users", "/users/x", false, ""},
		{"/users/{id}", "/users/abc", true, "abc"},
		{"/users/{id}", "/users", false, ""},
		{"/users/{id}", "/users//", false, ""},
		{"/users/**", "/users", true, ""},
		{"/users/**", "/users/a/b/c", true, ""},
		{"/users/{id}/addresses/**", "/users/abc/addresses", true, "abc"},
		{"/users/{id}/addresses/**", "/users/abc/other", false, ""},
		{"/", "/", true, ""},
	}
	for _, tc := range cases {
		params, ok := matchPattern(tc.pattern, tc.path)
		if ok != tc.ok {
			t.Fatalf("%s vs %s: expected match=%v", tc.pattern, tc.path, tc.ok)
		}
		if ok && params["id"] != tc.param {
			t.Fatalf("%s vs %s: expected id=%q, got %q", tc.pattern, tc.path, tc.param, params["id"])
		}
	}
}
