package config

import (
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseWith(t *testing.T, vars map[string]string) Config {
	t.Helper()
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: vars})
	require.NoError(t, err)
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := parseWith(t, map[string]string{})

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DBDriverMySQL, cfg.DB.Driver)
	assert.Equal(t, AuthProviderFirebase, cfg.AuthProvider)
	assert.Equal(t, BlobProviderNone, cfg.BlobProvider)
	assert.Equal(t, int16(20), cfg.FeedPageSize)
	assert.Equal(t, []string{"http://localhost:19006"}, cfg.FEOrigins)
}

func TestOriginsAreSemicolonSeparated(t *testing.T) {
	cfg := parseWith(t, map[string]string{"FE_ORIGINS": "https://a.example;https://b.example"})
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.FEOrigins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{
			name: "sqlite with local auth",
			vars: map[string]string{
				"DB_DRIVER":     "sqlite",
				"AUTH_PROVIDER": "local",
				"JWT_SECRET":    "0123456789abcdef0123456789abcdef",
			},
		},
		{
			name:    "mysql without host",
			vars:    map[string]string{"DB_DRIVER": "mysql"},
			wantErr: "DB_HOST and DB_USER",
		},
		{
			name: "local auth with short secret",
			vars: map[string]string{
				"DB_DRIVER":     "sqlite",
				"AUTH_PROVIDER": "local",
				"JWT_SECRET":    "short",
			},
			wantErr: "JWT_SECRET",
		},
		{
			name: "s3 without bucket",
			vars: map[string]string{
				"DB_DRIVER":     "sqlite",
				"BLOB_PROVIDER": "s3",
			},
			wantErr: "BLOB_BUCKET",
		},
		{
			name: "push without arns",
			vars: map[string]string{
				"DB_DRIVER":    "sqlite",
				"PUSH_ENABLED": "true",
			},
			wantErr: "PUSH_ENABLED",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := parseWith(t, tt.vars)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
