package config

import (
	"strings"
	"testing"
	"time"
)

const validConfig = `
server:
  signing_key: "0123456789abcdef0123456789abcdef"
gate:
  admin_emails:
    - a@x.com
  idle_timeout: 2h
issuers:
  - name: local
    type: static
    users:
      - email: a@x.com
        password_hash: "$2a$10$abc"
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Gate.IdleTimeout != 2*time.Hour {
		t.Errorf("IdleTimeout = %v, want 2h", cfg.Gate.IdleTimeout)
	}
	if cfg.Gate.CheckInterval != 60*time.Second {
		t.Errorf("CheckInterval = %v, want 60s", cfg.Gate.CheckInterval)
	}
	if cfg.Gate.LoginPath != DefaultLoginPath {
		t.Errorf("LoginPath = %q, want %q", cfg.Gate.LoginPath, DefaultLoginPath)
	}
	if cfg.Sessions.Backend != "memory" {
		t.Errorf("Sessions.Backend = %q, want memory", cfg.Sessions.Backend)
	}
	if len(cfg.Issuers) != 1 || cfg.Issuers[0].Type != "static" {
		t.Fatalf("Issuers = %+v", cfg.Issuers)
	}
	if _, ok := cfg.Issuers[0].Config["users"]; !ok {
		t.Errorf("inline issuer options were not captured: %+v", cfg.Issuers[0].Config)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "Short Signing Key",
			input:   "server: {signing_key: short}\nissuers: [{name: a, type: static}]",
			wantErr: "signing_key",
		},
		{
			name:    "No Issuers",
			input:   "server: {signing_key: 0123456789abcdef0123456789abcdef}",
			wantErr: "at least one issuer",
		},
		{
			name: "Unknown Session Backend",
			input: `server: {signing_key: 0123456789abcdef0123456789abcdef}
issuers: [{name: a, type: static}]
sessions: {backend: etcd}`,
			wantErr: "sessions.backend",
		},
		{
			name: "Same Login And Unauthorized Path",
			input: `server: {signing_key: 0123456789abcdef0123456789abcdef}
issuers: [{name: a, type: static}]
gate: {login_path: /x, unauthorized_path: /x}`,
			wantErr: "must differ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatalf("Parse() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" a@x.com, ,B@x.com ,")
	if len(got) != 2 || got[0] != "a@x.com" || got[1] != "B@x.com" {
		t.Errorf("SplitList() = %q", got)
	}
}
