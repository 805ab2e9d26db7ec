package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markb/pgfngen/internal/model"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultPrincipal, cfg.Principal)
	assert.Equal(t, "public.users", cfg.UserTable)
	assert.Equal(t, "id", cfg.UserKey)
	assert.Equal(t, "user_name", cfg.UserName)
	assert.Equal(t, 256, cfg.Limits.Columns)
	assert.Equal(t, 32, cfg.Limits.Params)
	assert.Equal(t, 128, cfg.Limits.DetailColumns)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"PGFNGEN_PRINCIPAL":        "app_owner",
		"PGFNGEN_USER_TABLE":       "auth.accounts",
		"PGFNGEN_MAX_COLUMNS":      "16",
		"PGFNGEN_LOG_LEVEL":        "debug",
		"PGFNGEN_USER_NAME_COLUMN": "display_name",
	})
	require.NoError(t, err)

	assert.Equal(t, "app_owner", cfg.Principal)
	assert.Equal(t, 16, cfg.Limits.Columns)
	assert.Equal(t, "debug", cfg.Log.Level)

	s := cfg.RenderSettings()
	assert.Equal(t, "app_owner", s.Principal)
	assert.Equal(t, model.QualifiedName{Schema: "auth", Name: "accounts"}, s.UserTable)
	assert.Equal(t, "display_name", s.UserName)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"bad log level", map[string]string{"PGFNGEN_LOG_LEVEL": "loud"}},
		{"bad log format", map[string]string{"PGFNGEN_LOG_FORMAT": "xml"}},
		{"zero columns", map[string]string{"PGFNGEN_MAX_COLUMNS": "0"}},
		{"not a number", map[string]string{"PGFNGEN_MAX_PARAMS": "many"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.vars)
			assert.Error(t, err)
		})
	}
}

func TestValidate_EmptyPrincipal(t *testing.T) {
	cfg := Default()
	cfg.Principal = " "
	assert.ErrorContains(t, cfg.Validate(), "principal")
}
