package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/fakeyudi/limitedwip/internal/vcs"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

// Property 7: config merge precedence
func TestConfigMergePrecedence(t *testing.T) {
	optInt := func(t *rapid.T, label string) *int {
		if rapid.Bool().Draw(t, "has_"+label) {
			return intPtr(rapid.IntRange(1, 999).Draw(t, label))
		}
		return nil
	}
	optBool := func(t *rapid.T, label string) *bool {
		if rapid.Bool().Draw(t, "has_"+label) {
			return boolPtr(rapid.Bool().Draw(t, label))
		}
		return nil
	}
	fileGen := rapid.Custom(func(t *rapid.T) *File {
		f := &File{}
		if rapid.Bool().Draw(t, "has_watchdog") {
			f.Watchdog = &WatchdogFile{
				Enabled:          optBool(t, "enabled"),
				MaxLinesInChange: optInt(t, "max_lines"),
			}
		}
		return f
	})

	rapid.Check(t, func(t *rapid.T) {
		global := fileGen.Draw(t, "global")
		project := fileGen.Draw(t, "project")

		merged := Merge(global, project)
		defaults := Defaults()

		pick := func(get func(*File) *int, def int) int {
			if v := get(project); v != nil {
				return *v
			}
			if v := get(global); v != nil {
				return *v
			}
			return def
		}
		maxLines := func(f *File) *int {
			if f.Watchdog == nil {
				return nil
			}
			return f.Watchdog.MaxLinesInChange
		}
		if want := pick(maxLines, defaults.Watchdog.MaxLinesInChange); merged.Watchdog.MaxLinesInChange != want {
			t.Fatalf("max_lines_in_change: want %d, got %d", want, merged.Watchdog.MaxLinesInChange)
		}

		wantEnabled := defaults.Watchdog.Enabled
		for _, f := range []*File{global, project} {
			if f.Watchdog != nil && f.Watchdog.Enabled != nil {
				wantEnabled = *f.Watchdog.Enabled
			}
		}
		if merged.Watchdog.Enabled != wantEnabled {
			t.Fatalf("watchdog.enabled: want %v, got %v", wantEnabled, merged.Watchdog.Enabled)
		}
	})
}

func TestDefaultsValues(t *testing.T) {
	d := Defaults()

	assert.True(t, d.Watchdog.Enabled)
	assert.Equal(t, 80, d.Watchdog.MaxLinesInChange)
	assert.Equal(t, 1, d.Watchdog.NotificationIntervalMinutes)
	assert.False(t, d.Watchdog.DisableCommitsAboveThreshold)
	assert.False(t, d.AutoRevert.Enabled)
	assert.Equal(t, 2, d.AutoRevert.MinutesTillRevert)
	assert.True(t, d.AutoRevert.NotifyOnRevert)
	assert.True(t, d.AutoRevert.ShowTimerInToolbar)
	assert.Equal(t, vcs.RevertStash, d.AutoRevert.Mode)
	assert.False(t, d.Limbo.Enabled)
	assert.True(t, d.Limbo.NotifyOnRevert)
	assert.NoError(t, d.Validate())
}

func TestLoadProjectYAML(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".limitedwip.yaml"), `
watchdog:
  max_lines_in_change: 50
  disable_commits_above_threshold: true
auto_revert:
  enabled: true
  minutes_till_revert: 10
  mode: Discard
limbo:
  enabled: true
exclusions: ["*.lock"]
`)

	f, err := LoadProject(root)
	require.NoError(t, err)
	require.NotNil(t, f)

	cfg := Merge(nil, f)
	assert.Equal(t, 50, cfg.Watchdog.MaxLinesInChange)
	assert.True(t, cfg.Watchdog.DisableCommitsAboveThreshold)
	assert.True(t, cfg.Watchdog.Enabled, "unset keys keep defaults")
	assert.True(t, cfg.AutoRevert.Enabled)
	assert.Equal(t, 10, cfg.AutoRevert.MinutesTillRevert)
	assert.Equal(t, vcs.RevertDiscard, cfg.AutoRevert.Mode)
	assert.True(t, cfg.Limbo.Enabled)
	assert.True(t, cfg.Limbo.NotifyOnRevert)
	assert.Equal(t, []string{"*.lock"}, cfg.Exclusions)
}

func TestExplicitFalseOverridesGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFile(t, filepath.Join(home, ".config", "limitedwip", "config.json"),
		`{"auto_revert": {"enabled": true, "minutes_till_revert": 5}}`)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".limitedwip.json"), `{"auto_revert": {"enabled": false}}`)

	cfg, err := Load(root)

	require.NoError(t, err)
	assert.False(t, cfg.AutoRevert.Enabled)
	assert.Equal(t, 5, cfg.AutoRevert.MinutesTillRevert)
}

func TestLoadMissingFilesReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadParseError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".limitedwip.json"), "{invalid json")

	_, err := LoadProject(root)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr), "expected *ParseError, got %T: %v", err, err)
	assert.Contains(t, err.Error(), ".limitedwip.json")
}

func TestSettingsConversion(t *testing.T) {
	cfg := Defaults()
	cfg.Watchdog.NotificationIntervalMinutes = 10
	cfg.AutoRevert.MinutesTillRevert = 3

	assert.Equal(t, 600, cfg.WatchdogSettings().NotificationIntervalSeconds)
	assert.Equal(t, 180, cfg.AutoRevertSettings().SecondsTillRevert())
}

func TestValidateRanges(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"zero lines", func(c *Config) { c.Watchdog.MaxLinesInChange = 0 }, "watchdog.max_lines_in_change"},
		{"too many lines", func(c *Config) { c.Watchdog.MaxLinesInChange = 1000 }, "watchdog.max_lines_in_change"},
		{"zero interval", func(c *Config) { c.Watchdog.NotificationIntervalMinutes = 0 }, "watchdog.notification_interval_minutes"},
		{"zero minutes", func(c *Config) { c.AutoRevert.MinutesTillRevert = 0 }, "auto_revert.minutes_till_revert"},
		{"100 minutes", func(c *Config) { c.AutoRevert.MinutesTillRevert = 100 }, "auto_revert.minutes_till_revert"},
		{"bad mode", func(c *Config) { c.AutoRevert.Mode = "shred" }, "auto_revert.mode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.edit(&cfg)

			var verr *ValidationError
			require.ErrorAs(t, cfg.Validate(), &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestProjectPath(t *testing.T) {
	root := t.TempDir()
	assert.Equal(t, filepath.Join(root, ".limitedwip.yaml"), ProjectPath(root))

	writeFile(t, filepath.Join(root, ".limitedwip.json"), "{}")
	assert.Equal(t, filepath.Join(root, ".limitedwip.json"), ProjectPath(root))
}

func TestWatchReloadsValidChanges(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	path := filepath.Join(root, ".limitedwip.yaml")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan Config, 4)
	go func() {
		_ = Watch(ctx, root, Defaults(), zerolog.Nop(), func(c Config) { got <- c })
	}()
	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)

	writeFile(t, path, "watchdog:\n  max_lines_in_change: 0\n")
	writeFile(t, path, "watchdog:\n  max_lines_in_change: 40\n")

	select {
	case cfg := <-got:
		assert.Equal(t, 40, cfg.Watchdog.MaxLinesInChange, "invalid intermediate config must be skipped")
	case <-time.After(2 * time.Second):
		t.Fatal("no config reload delivered")
	}
}
