package middleware

import "testing"

func TestDefaultPolicyClassification(t *testing.T) {
	policy := DefaultPolicy()

	cases := []struct {
		path   string
		access Access
		ok     bool
	}{
		{"/profile", AccessProtected, true},
		{"/profile/settings", AccessProtected, true},
		{"/profiles", 0, false},
		{"/post/create-post", AccessProtected, true},
		{"/post/edit", AccessProtected, true},
		{"/post/edit/abc", AccessProtected, true},
		{"/post/hello-world", AccessProtected, true},
		{"/post/", 0, false},
		{"/post", 0, false},
		{"/post/a/b", 0, false},
		{"/auth", AccessGuestOnly, true},
		{"/auth/callback", 0, false},
		{"/", 0, false},
		{"/about", 0, false},
	}

	for _, tc := range cases {
		rule, ok := policy.Lookup(tc.path)
		if ok != tc.ok {
			t.Fatalf("%s: matched=%v, want %v", tc.path, ok, tc.ok)
		}
		if ok && rule.Access != tc.access {
			t.Fatalf("%s: access=%v, want %v", tc.path, rule.Access, tc.access)
		}
	}
}

func TestSegmentExcludesLiterals(t *testing.T) {
	m := Segment("/post", "create-post", "edit")

	for _, p := range []string{"/post/create-post", "/post/edit"} {
		if m.Match(p) {
			t.Fatalf("expected %s to be excluded", p)
		}
	}
	if !m.Match("/post/create-posts") {
		t.Fatal("expected non-literal slug to match")
	}
	if got := m.String(); got != "segment:/post/*!{create-post,edit}" {
		t.Fatalf("unexpected String(): %s", got)
	}
}

func TestPolicyFirstMatchWins(t *testing.T) {
	policy := Policy{
		{Match: Exact("/x"), Access: AccessGuestOnly},
		{Match: Prefix("/x"), Access: AccessProtected},
	}

	rule, ok := policy.Lookup("/x")
	if !ok || rule.Access != AccessGuestOnly {
		t.Fatalf("expected first rule, got %+v ok=%v", rule, ok)
	}
	rule, ok = policy.Lookup("/x/y")
	if !ok || rule.Access != AccessProtected {
		t.Fatalf("expected prefix rule, got %+v ok=%v", rule, ok)
	}
}

func TestPrefixTrailingSlashIgnored(t *testing.T) {
	m := Prefix("/profile/")
	if !m.Match("/profile") || !m.Match("/profile/x") {
		t.Fatal("expected trailing slash to be normalized")
	}
}

func TestPolicySkipsNilMatcher(t *testing.T) {
	policy := Policy{{Access: AccessProtected}}
	if _, ok := policy.Lookup("/anything"); ok {
		t.Fatal("nil matcher must never match")
	}
}
