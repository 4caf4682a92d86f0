package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, time.Minute, cfg.Reminder.Interval())
	assert.Equal(t, 10*time.Minute, cfg.Reminder.Lead())
	assert.Equal(t, 30*time.Minute, cfg.Slots.Offset())
	assert.Equal(t, 15*time.Minute, cfg.Slots.Step())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	yaml := `
listen: ":9000"
datafile: /var/lib/planner/events.txt
reminder:
  leadminutes: 15
  enabled: false
slots:
  maxattempts: 20
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("PLANNER_SLOTS_MAXATTEMPTS", "40")
	t.Setenv("PLANNER_CORS_ALLOWEDORIGINS", "http://a.example,http://b.example")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "/var/lib/planner/events.txt", cfg.DataFile)
	assert.Equal(t, 15, cfg.Reminder.LeadMinutes)
	assert.False(t, cfg.Reminder.Enabled)
	assert.Equal(t, 1, cfg.Reminder.WindowMinutes, "untouched keys keep their defaults")
	assert.Equal(t, 40, cfg.Slots.MaxAttempts)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Cors.AllowedOrigins)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := Load(path)

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Application)
		wantErr string
	}{
		{"defaults", func(*Application) {}, ""},
		{"empty listen", func(a *Application) { a.Listen = "" }, "listen must not be empty"},
		{"empty data file", func(a *Application) { a.DataFile = "" }, "datafile must not be empty"},
		{"zero interval", func(a *Application) { a.Reminder.IntervalSeconds = 0 }, "reminder.intervalseconds must be positive"},
		{"negative step", func(a *Application) { a.Slots.StepMinutes = -15 }, "slots.stepminutes must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)

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

func TestLoad_RejectsInvalidEnv(t *testing.T) {
	t.Setenv("PLANNER_REMINDER_CAPACITY", "0")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reminder.capacity")
}
