package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFrom(t *testing.T) {
	testCases := []struct {
		name    string
		json    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, c AppConfig)
	}{
		{
			name: "json values win over defaults",
			json: `{"app":{"AppPort":"9000","JWTSecret":"from-file","AllowedOrigins":["https://a.example"]},
				"database":{"DBName":"forum"},"log":{"Level":"debug","GinMode":"debug"}}`,
			check: func(t *testing.T, c AppConfig) {
				assert.Equal(t, "9000", c.AppPort)
				assert.Equal(t, "from-file", c.JWTSecret)
				assert.Equal(t, []string{"https://a.example"}, c.AllowedOrigins)
				assert.Equal(t, "forum", c.DBName)
				assert.Equal(t, "debug", c.LogLevel)
				assert.Equal(t, "debug", c.GinMode)
				// untouched keys fall back to defaults
				assert.Equal(t, "3306", c.DBPort)
				assert.Equal(t, 60, c.RateLimitPerMinute)
				assert.Equal(t, 30, c.ReconcileIntervalMinutes)
			},
		},
		{
			name: "environment overrides json",
			json: `{"app":{"AppPort":"9000","JWTSecret":"from-file"}}`,
			env: map[string]string{
				"APP_PORT":             "9100",
				"JWT_SECRET":           "from-env",
				"CORS_ALLOWED_ORIGINS": "https://a.example,https://b.example",
				"LOG_COMPRESS":         "true",
			},
			check: func(t *testing.T, c AppConfig) {
				assert.Equal(t, "9100", c.AppPort)
				assert.Equal(t, "from-env", c.JWTSecret)
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
				assert.True(t, c.LogCompress)
			},
		},
		{
			name: "oauth redirect base follows site url",
			json: `{"app":{"JWTSecret":"s"}}`,
			env:  map[string]string{"SITE_URL": "https://forum.example"},
			check: func(t *testing.T, c AppConfig) {
				assert.Equal(t, "https://forum.example", c.OAuthRedirectBase)
			},
		},
		{
			name:    "missing secret",
			json:    `{"app":{"AppPort":"9000"}}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			json:    `{"app":`,
			wantErr: true,
		},
		{
			name:    "invalid env integer",
			json:    `{"app":{"JWTSecret":"s"}}`,
			env:     map[string]string{"REDIS_PORT": "not-a-port"},
			wantErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			c, err := loadFrom(writeConfig(t, tc.json))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.check(t, c)
		})
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "only-env")
	c, err := loadFrom(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "only-env", c.JWTSecret)
	assert.Equal(t, "8888", c.AppPort)
	assert.Equal(t, "media", c.MediaRoot)
}

func TestDSN(t *testing.T) {
	c := AppConfig{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "3307", DBName: "forum"}
	assert.Equal(t, "u:p@tcp(db:3307)/forum?charset=utf8mb4&parseTime=True&loc=Local", DSN(c))

	c.DatabaseURI = "root@tcp(x)/y"
	assert.Equal(t, "root@tcp(x)/y", DSN(c))
}

func TestToGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, toGormLogLevel("debug"))
	assert.Equal(t, logger.Warn, toGormLogLevel(""))
	assert.Equal(t, logger.Error, toGormLogLevel("error"))
	assert.Equal(t, logger.Silent, toGormLogLevel("silent"))
}
