package httpapi

import (
	"strings"

	"github.com/ludwingperezt/mobileappws/internal/auth"
)

// Decision is the outcome of evaluating the access policy for one request.
type Decision int

const (
	Allow Decision = iota
	// Unauthenticated means the route needs an identity and the request had none.
	Unauthenticated
	// Forbidden means an identity was present but lacks the required grant.
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

type requirementKind int

const (
	reqPublic requirementKind = iota
	reqAuthenticated
	reqAuthority
	reqRole
	reqOwnerOrAdmin
)

// Requirement is what a rule demands from the caller.
type Requirement struct {
	kind  requirementKind
	name  string
	param string
}

// Public lets anyone through, with or without a principal.
func Public() Requirement { return Requirement{kind: reqPublic} }

// Authenticated requires any principal.
func Authenticated() Requirement { return Requirement{kind: reqAuthenticated} }

// Authority requires the named authority, e.g. DELETE_AUTHORITY.
func Authority(name string) Requirement { return Requirement{kind: reqAuthority, name: name} }

// Role requires the named role, e.g. ROLE_ADMIN.
func Role(name string) Requirement { return Requirement{kind: reqRole, name: name} }

// OwnerOrAdmin requires that the path parameter param equals the caller's
// public user id, or that the caller is an admin.
func OwnerOrAdmin(param string) Requirement {
	return Requirement{kind: reqOwnerOrAdmin, param: param}
}

func (r Requirement) check(p auth.Principal, params map[string]string) Decision {
	if r.kind == reqPublic {
		return Allow
	}
	if p.Anonymous() {
		return Unauthenticated
	}
	switch r.kind {
	case reqAuthenticated:
		return Allow
	case reqAuthority, reqRole:
		if p.Has(r.name) {
			return Allow
		}
	case reqOwnerOrAdmin:
		if p.IsAdmin() || (p.UserID != "" && params[r.param] == p.UserID) {
			return Allow
		}
	}
	return Forbidden
}

// Rule binds a requirement to a method and a path pattern. An empty Method
// matches every method. Patterns are slash-separated: "{name}" captures one
// segment and a trailing "**" matches any remainder, including nothing.
type Rule struct {
	Method      string
	Pattern     string
	Requirement Requirement
}

// Policy is an ordered rule table. The first matching rule decides.
type Policy struct {
	rules    []Rule
	fallback Requirement
}

// NewPolicy builds a policy; requests no rule matches need authentication.
func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: append([]Rule(nil), rules...), fallback: Authenticated()}
}

// DefaultPolicy is the rule table of the service.
func DefaultPolicy() *Policy {
	var rules []Rule
	add := func(req Requirement, method string, patterns ...string) {
		for _, p := range patterns {
			rules = append(rules, Rule{Method: method, Pattern: p, Requirement: req})
		}
	}

	add(Public(), "POST", "/users", "/users/login", "/users/reset-password-request", "/users/password-reset-request", "/users/password-reset")
	add(Public(), "GET", "/users/email-verification", "/", "/healthz", "/readyz", "/metrics", "/openapi.yaml", "/docs/**")

	add(Authority(auth.AuthorityDelete), "DELETE", "/users/**")
	add(Role(auth.RoleAdmin), "GET", "/user-security/roles/admin")
	add(Authority(auth.AuthorityDelete), "GET", "/user-security/authorities/delete")

	add(OwnerOrAdmin("userid"), "DELETE", "/user-security/owner/{userid}")
	add(OwnerOrAdmin("id"), "GET", "/users/{id}", "/users/{id}/addresses/**")
	add(OwnerOrAdmin("id"), "PUT", "/users/{id}")

	return NewPolicy(rules...)
}

// Evaluate decides whether principal may perform method on path.
func (p *Policy) Evaluate(method, path string, principal auth.Principal) Decision {
	for _, rule := range p.rules {
		if rule.Method != "" && !strings.EqualFold(rule.Method, method) {
			continue
		}
		params, ok := matchPattern(rule.Pattern, path)
		if !ok {
			continue
		}
		return rule.Requirement.check(principal, params)
	}
	return p.fallback.check(principal, nil)
}

func matchPattern(pattern, path string) (map[string]string, bool) {
	pat := splitPath(pattern)
	segs := splitPath(path)
	var params map[string]string
	for i, p := range pat {
		if p == "**" && i == len(pat)-1 {
			return params, true
		}
		if i >= len(segs) {
			return nil, false
		}
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			if segs[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string, 1)
			}
			params[p[1:len(p)-1]] = segs[i]
			continue
		}
		if p != segs[i] {
			return nil, false
		}
	}
	return params, len(pat) == len(segs)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
