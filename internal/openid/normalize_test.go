package openid

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"example.com", "http://example.com/"},
		{"example.com/alice", "http://example.com/alice"},
		{"HTTP://Example.COM/Alice", "http://example.com/Alice"},
		{"https://example.com/alice#profile", "https://example.com/alice"},
		{"  example.com  ", "http://example.com/"},
		{"xri://=alice", "=alice"},
		{"=alice", "=alice"},
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	if _, err := Normalize("   "); err == nil {
		t.Fatal("empty identifier accepted")
	}
}
