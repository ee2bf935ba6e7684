package middleware

import (
	"sort"
	"strings"
)

// Access is what a matched rule requires of the request.
type Access int

const (
	// AccessProtected requires a valid session; the session is renewed on every hit.
	AccessProtected Access = iota + 1
	// AccessGuestOnly is for pages that authenticated users should not see, such as the
	// login form. Guests pass through; authenticated users are sent home.
	AccessGuestOnly
)

func (a Access) String() string {
	switch a {
	case AccessProtected:
		return "protected"
	case AccessGuestOnly:
		return "guest_only"
	default:
		return "unknown"
	}
}

// Matcher decides whether a request path falls under a rule.
type Matcher interface {
	Match(path string) bool
	String() string
}

type prefixMatcher struct {
	prefix string
}

// Prefix matches p itself and every path below it. The match stops at segment
// boundaries: Prefix("/profile") does not match "/profiles".
func Prefix(p string) Matcher {
	return prefixMatcher{prefix: strings.TrimSuffix(p, "/")}
}

func (m prefixMatcher) Match(path string) bool {
	if path == m.prefix {
		return true
	}
	return strings.HasPrefix(path, m.prefix+"/")
}

func (m prefixMatcher) String() string { return "prefix:" + m.prefix }

type exactMatcher struct {
	path string
}

// Exact matches p only.
func Exact(p string) Matcher {
	return exactMatcher{path: p}
}

func (m exactMatcher) Match(path string) bool { return path == m.path }

func (m exactMatcher) String() string { return "exact:" + m.path }

type segmentMatcher struct {
	root    string
	exclude map[string]struct{}
}

// Segment matches root followed by exactly one non-empty path segment, unless that
// segment is one of exclude. Segment("/post", "create-post", "edit") matches "/post/my-slug"
// but not "/post/create-post", "/post/edit", "/post/" or "/post/a/b".
func Segment(root string, exclude ...string) Matcher {
	set := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		set[e] = struct{}{}
	}
	return segmentMatcher{root: strings.TrimSuffix(root, "/"), exclude: set}
}

func (m segmentMatcher) Match(path string) bool {
	rest, ok := strings.CutPrefix(path, m.root+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return false
	}
	_, excluded := m.exclude[rest]
	return !excluded
}

func (m segmentMatcher) String() string {
	names := make([]string, 0, len(m.exclude))
	for name := range m.exclude {
		names = append(names, name)
	}
	return "segment:" + m.root + "/*" + excludeSuffix(names)
}

func excludeSuffix(names []string) string {
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return "!{" + strings.Join(names, ",") + "}"
}

// Rule pairs a matcher with the access it enforces.
type Rule struct {
	Match  Matcher
	Access Access
}

// Policy is an ordered rule list. The first matching rule wins.
type Policy []Rule

// Lookup returns the first rule matching path.
func (p Policy) Lookup(path string) (Rule, bool) {
	for _, rule := range p {
		if rule.Match != nil && rule.Match.Match(path) {
			return rule, true
		}
	}
	return Rule{}, false
}

// DefaultPolicy is the blog's route table: profile, post authoring and post detail pages
// need a session; the login page is guest-only.
func DefaultPolicy() Policy {
	return Policy{
		{Match: Prefix("/profile"), Access: AccessProtected},
		{Match: Prefix("/post/create-post"), Access: AccessProtected},
		{Match: Prefix("/post/edit"), Access: AccessProtected},
		{Match: Segment("/post", "create-post", "edit"), Access: AccessProtected},
		{Match: Exact("/auth"), Access: AccessGuestOnly},
	}
}
