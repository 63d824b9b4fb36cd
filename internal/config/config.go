package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"

	"github.com/fakeyudi/limitedwip/internal/autorevert"
	"github.com/fakeyudi/limitedwip/internal/limbo"
	"github.com/fakeyudi/limitedwip/internal/vcs"
	"github.com/fakeyudi/limitedwip/internal/watchdog"
)

// Config holds the resolved limitedwip settings.
type Config struct {
	Watchdog   WatchdogConfig   `json:"watchdog" yaml:"watchdog"`
	AutoRevert AutoRevertConfig `json:"auto_revert" yaml:"auto_revert"`
	Limbo      LimboConfig      `json:"limbo" yaml:"limbo"`
	Exclusions []string         `json:"exclusions" yaml:"exclusions"`
	LogLevel   string           `json:"log_level" yaml:"log_level"`
}

type WatchdogConfig struct {
	Enabled                      bool `json:"enabled" yaml:"enabled"`
	MaxLinesInChange             int  `json:"max_lines_in_change" yaml:"max_lines_in_change"`
	NotificationIntervalMinutes  int  `json:"notification_interval_minutes" yaml:"notification_interval_minutes"`
	DisableCommitsAboveThreshold bool `json:"disable_commits_above_threshold" yaml:"disable_commits_above_threshold"`
}

type AutoRevertConfig struct {
	Enabled            bool           `json:"enabled" yaml:"enabled"`
	MinutesTillRevert  int            `json:"minutes_till_revert" yaml:"minutes_till_revert"`
	NotifyOnRevert     bool           `json:"notify_on_revert" yaml:"notify_on_revert"`
	ShowTimerInToolbar bool           `json:"show_timer_in_toolbar" yaml:"show_timer_in_toolbar"`
	Mode               vcs.RevertMode `json:"mode" yaml:"mode"`
}

// LimboConfig gates commits on a passing test run since the last commit.
type LimboConfig struct {
	Enabled        bool `json:"enabled" yaml:"enabled"`
	NotifyOnRevert bool `json:"notify_on_revert" yaml:"notify_on_revert"`
}

// File is a config file as written by the user. Unset keys are nil so that
// an explicit false or 0 still overrides a lower layer.
type File struct {
	Watchdog   *WatchdogFile   `json:"watchdog" yaml:"watchdog"`
	AutoRevert *AutoRevertFile `json:"auto_revert" yaml:"auto_revert"`
	Limbo      *LimboFile      `json:"limbo" yaml:"limbo"`
	Exclusions []string        `json:"exclusions" yaml:"exclusions"`
	LogLevel   string          `json:"log_level" yaml:"log_level"`

	// Path is where the file was read from.
	Path string `json:"-" yaml:"-"`
}

type WatchdogFile struct {
	Enabled                      *bool `json:"enabled" yaml:"enabled"`
	MaxLinesInChange             *int  `json:"max_lines_in_change" yaml:"max_lines_in_change"`
	NotificationIntervalMinutes  *int  `json:"notification_interval_minutes" yaml:"notification_interval_minutes"`
	DisableCommitsAboveThreshold *bool `json:"disable_commits_above_threshold" yaml:"disable_commits_above_threshold"`
}

type AutoRevertFile struct {
	Enabled            *bool   `json:"enabled" yaml:"enabled"`
	MinutesTillRevert  *int    `json:"minutes_till_revert" yaml:"minutes_till_revert"`
	NotifyOnRevert     *bool   `json:"notify_on_revert" yaml:"notify_on_revert"`
	ShowTimerInToolbar *bool   `json:"show_timer_in_toolbar" yaml:"show_timer_in_toolbar"`
	Mode               *string `json:"mode" yaml:"mode"`
}

type LimboFile struct {
	Enabled        *bool `json:"enabled" yaml:"enabled"`
	NotifyOnRevert *bool `json:"notify_on_revert" yaml:"notify_on_revert"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Watchdog: WatchdogConfig{
			Enabled:                     true,
			MaxLinesInChange:            80,
			NotificationIntervalMinutes: 1,
		},
		AutoRevert: AutoRevertConfig{
			MinutesTillRevert:  2,
			NotifyOnRevert:     true,
			ShowTimerInToolbar: true,
			Mode:               vcs.RevertStash,
		},
		Limbo:      LimboConfig{NotifyOnRevert: true},
		Exclusions: []string{},
		LogLevel:   "info",
	}
}

var fileNames = []string{"config.yaml", "config.yml", "config.json"}

var projectFileNames = []string{".limitedwip.yaml", ".limitedwip.yml", ".limitedwip.json"}

// GlobalDir returns ~/.config/limitedwip.
func GlobalDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "limitedwip"), nil
}

// LoadGlobal reads the first of config.{yaml,yml,json} in GlobalDir.
// Returns nil (no error) if none exists.
func LoadGlobal() (*File, error) {
	dir, err := GlobalDir()
	if err != nil {
		return nil, err
	}
	return loadFirst(dir, fileNames)
}

// LoadProject reads .limitedwip.{yaml,yml,json} in root.
// Returns nil (no error) if none exists.
func LoadProject(root string) (*File, error) {
	return loadFirst(root, projectFileNames)
}

// ProjectPath returns the project config file in root, or the default name
// if none exists yet.
func ProjectPath(root string) string {
	for _, name := range projectFileNames {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(root, projectFileNames[0])
}

func loadFirst(dir string, names []string) (*File, error) {
	for _, name := range names {
		f, err := LoadFile(filepath.Join(dir, name))
		if err != nil || f != nil {
			return f, err
		}
	}
	return nil, nil
}

// LoadFile parses the JSON or YAML file at path, chosen by extension.
// Returns nil (no error) if the file is absent.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	f.Path = path
	return &f, nil
}

// Merge layers global then project over Defaults. Either may be nil.
func Merge(global, project *File) Config {
	result := Defaults()
	apply(&result, global)
	apply(&result, project)
	return result
}

func apply(c *Config, f *File) {
	if f == nil {
		return
	}
	if w := f.Watchdog; w != nil {
		setBool(&c.Watchdog.Enabled, w.Enabled)
		setInt(&c.Watchdog.MaxLinesInChange, w.MaxLinesInChange)
		setInt(&c.Watchdog.NotificationIntervalMinutes, w.NotificationIntervalMinutes)
		setBool(&c.Watchdog.DisableCommitsAboveThreshold, w.DisableCommitsAboveThreshold)
	}
	if a := f.AutoRevert; a != nil {
		setBool(&c.AutoRevert.Enabled, a.Enabled)
		setInt(&c.AutoRevert.MinutesTillRevert, a.MinutesTillRevert)
		setBool(&c.AutoRevert.NotifyOnRevert, a.NotifyOnRevert)
		setBool(&c.AutoRevert.ShowTimerInToolbar, a.ShowTimerInToolbar)
		if a.Mode != nil {
			c.AutoRevert.Mode = vcs.RevertMode(strings.ToLower(strings.TrimSpace(*a.Mode)))
		}
	}
	if l := f.Limbo; l != nil {
		setBool(&c.Limbo.Enabled, l.Enabled)
		setBool(&c.Limbo.NotifyOnRevert, l.NotifyOnRevert)
	}
	if len(f.Exclusions) > 0 {
		c.Exclusions = f.Exclusions
	}
	if f.LogLevel != "" {
		c.LogLevel = f.LogLevel
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// WatchdogSettings converts the config to the watchdog's snapshot.
func (c Config) WatchdogSettings() watchdog.Settings {
	return watchdog.Settings{
		Enabled:                      c.Watchdog.Enabled,
		MaxLinesInChange:             c.Watchdog.MaxLinesInChange,
		NotificationIntervalSeconds:  c.Watchdog.NotificationIntervalMinutes * 60,
		DisableCommitsAboveThreshold: c.Watchdog.DisableCommitsAboveThreshold,
	}
}

// AutoRevertSettings converts the config to the auto-revert snapshot.
func (c Config) AutoRevertSettings() autorevert.Settings {
	return autorevert.Settings{
		Enabled:            c.AutoRevert.Enabled,
		MinutesTillRevert:  c.AutoRevert.MinutesTillRevert,
		NotifyOnRevert:     c.AutoRevert.NotifyOnRevert,
		ShowTimerInToolbar: c.AutoRevert.ShowTimerInToolbar,
	}
}

// LimboSettings converts the config to the limbo snapshot.
func (c Config) LimboSettings() limbo.Settings {
	return limbo.Settings{Enabled: c.Limbo.Enabled, NotifyOnRevert: c.Limbo.NotifyOnRevert}
}

// YAML renders the config for display.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
