package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.RegistrationSessionTTL)
	assert.Equal(t, time.Minute, cfg.SubmitLockTTL)
	assert.Zero(t, cfg.UpstreamTimeout)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL_MINUTES", "15")
	t.Setenv("UPSTREAM_TIMEOUT", "10s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("MEILISEARCH_HOST", "meilisearch")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.JWTTTL)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "http://meilisearch:7700", cfg.MeiliSearchHost)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad session ttl", map[string]string{"REGISTRATION_SESSION_TTL": "soon"}},
		{"bad upstream timeout", map[string]string{"UPSTREAM_TIMEOUT": "10"}},
		{"bad jwt ttl", map[string]string{"JWT_TTL_MINUTES": "-5"}},
		{"missing secret in production", map[string]string{"APP_ENV": "production", "JWT_SECRET": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "development")
			t.Setenv("JWT_SECRET", "x")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBUser: "u", DBPass: "p", DBName: "n", DBPort: "5433"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5433 sslmode=disable", cfg.DSN())
}
