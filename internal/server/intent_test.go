package server

import "testing"

func TestClassifyHostMatchesWritePattern(t *testing.T) {
	cfg := loadTestConfig(t, `^upload\.`)

	cases := []struct {
		host string
		want Intent
	}{
		{"upload.example.com", IntentReadWrite},
		{"UPLOAD.Example.COM", IntentReadWrite},
		{"upload.example.com:9000", IntentReadWrite},
		{"upload.example.com.", IntentReadWrite},
		{"read.example.com", IntentReadOnly},
		{"read.example.com:9000", IntentReadOnly},
		{"example.com", IntentReadOnly},
		{"", IntentReadOnly},
		{"   ", IntentReadOnly},
	}

	for _, tc := range cases {
		if got := ClassifyHost(tc.host, cfg); got != tc.want {
			t.Fatalf("host %q: expected %s, got %s", tc.host, tc.want, got)
		}
	}
}

func TestClassifyHostDefaultsToReadOnly(t *testing.T) {
	// 默认写模式 ^$ 不匹配任何 Host。
	cfg := loadTestConfig(t, "")

	for _, host := range []string{"upload.example.com", "anything.at.all", "localhost:5000"} {
		if got := ClassifyHost(host, cfg); got != IntentReadOnly {
			t.Fatalf("host %q: expected read-only under default pattern, got %s", host, got)
		}
	}
}

func TestNormalizeHost(t *testing.T) {
	cases := []struct {
		raw  string
		host string
		port int
	}{
		{"Example.COM", "example.com", 0},
		{"example.com:8080", "example.com", 8080},
		{"example.com.", "example.com", 0},
		{" example.com ", "example.com", 0},
		{"", "", 0},
	}

	for _, tc := range cases {
		host, port := normalizeHost(tc.raw)
		if host != tc.host || port != tc.port {
			t.Fatalf("normalizeHost(%q) = (%q, %d), expected (%q, %d)", tc.raw, host, port, tc.host, tc.port)
		}
	}
}
