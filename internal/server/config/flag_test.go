package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-w", "127.0.0.1:8081", "-n", "sqlite3", "-d", "file:test.db",
				"-s", "secret", "-t", "15m", "-i", "issuer", "-seed", "users.yaml",
				"-log-level", "debug", "-log-format", "text",
			},
			expected: &Config{
				EndpointAddrGRPC:            "127.0.0.1:9090",
				EndpointAddrHTTP:            "127.0.0.1:8081",
				DatabaseDriver:              "sqlite3",
				DatabaseDSN:                 "file:test.db",
				SecretKey:                   "secret",
				AccessTokenValidityDuration: 15 * time.Minute,
				TokenIssuer:                 "issuer",
				SeedFile:                    "users.yaml",
				LogLevel:                    "debug",
				LogFormat:                   "text",
			},
		},
		{
			name:     "unknown flags are filtered out",
			args:     []string{"-x", "1", "-c", "cfg.json", "-s", "secret"},
			expected: &Config{SecretKey: "secret"},
		},
		{
			name:     "equals form",
			args:     []string{"-d=dsn"},
			expected: &Config{DatabaseDSN: "dsn"},
		},
		{
			name:    "bad duration",
			args:    []string{"-t", "never"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withArgs(t, tt.args...)

			config := &Config{}
			err := parseFlags(config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
