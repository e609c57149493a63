package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, "mysql", c.DBDriver)
	require.Equal(t, "8080", c.ServerPort)
	require.Equal(t, "local", c.ArtifactBackend)
	require.Equal(t, "0 7 * * *", c.ReminderSchedule)
	require.Equal(t, 7*24*time.Hour, c.TriageWindow())
	require.Equal(t, 21*24*time.Hour, c.ReviewWindow())
	require.Equal(t, 24*time.Hour, c.JWTExpiry())
	require.False(t, c.IsProduction())
	require.Equal(t, []string{"http://localhost:3000"}, c.Origins())
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	require.ErrorContains(t, err, "JWT_SECRET must not be empty")

	os.Unsetenv("JWT_SECRET")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "sqlite"}, `unsupported DB_DRIVER "sqlite"`},
		{"s3 without bucket", map[string]string{"ARTIFACT_BACKEND": "s3"}, "S3_BUCKET is required"},
		{"unknown backend", map[string]string{"ARTIFACT_BACKEND": "ftp"}, `unsupported ARTIFACT_BACKEND "ftp"`},
		{"zero window", map[string]string{"REVIEW_WINDOW_DAYS": "0"}, "must be positive"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "secret")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("ALLOWED_ORIGINS", "https://journal.example.org, ,https://admin.example.org")
	t.Setenv("TRIAGE_WINDOW_DAYS", "3")
	t.Setenv("JWT_EXPIRE_HOURS", "2")

	c, err := Load()
	require.NoError(t, err)
	require.True(t, c.IsProduction())
	require.Equal(t, 3*24*time.Hour, c.TriageWindow())
	require.Equal(t, 2*time.Hour, c.JWTExpiry())
	require.Equal(t, []string{"https://journal.example.org", "https://admin.example.org"}, c.Origins())
	require.Contains(t, c.PostgresDSN(), "port=5432")
	require.Contains(t, c.MySQLDSN(), "@tcp(127.0.0.1:5432)/journal")
}
