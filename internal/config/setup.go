package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fakeyudi/limitedwip/internal/vcs"
)

// RunSetup asks for each setting on out, reading answers from in. An empty
// answer keeps the value from existing. The result is validated.
func RunSetup(in io.Reader, out io.Writer, existing Config) (Config, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	askBool := func(prompt string, defaultVal bool) (bool, error) {
		def := "n"
		if defaultVal {
			def = "y"
		}
		ans, err := ask(prompt+" (y/n)", def)
		if err != nil {
			return false, err
		}
		ans = strings.ToLower(ans)
		return ans == "y" || ans == "yes", nil
	}

	askInt := func(prompt string, defaultVal int) (int, error) {
		ans, err := ask(prompt, strconv.Itoa(defaultVal))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(ans)
		if err != nil {
			return 0, fmt.Errorf("%s: %q is not a number", strings.TrimSpace(prompt), ans)
		}
		return n, nil
	}

	c := existing
	var err error

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(out, "  │   limitedwip — project setup    │")
	fmt.Fprintln(out, "  └─────────────────────────────────┘")
	fmt.Fprintln(out)

	if c.Watchdog.Enabled, err = askBool("  Remind me when the change grows too big", c.Watchdog.Enabled); err != nil {
		return c, err
	}
	if c.Watchdog.Enabled {
		if c.Watchdog.MaxLinesInChange, err = askInt("  Maximum lines in a change", c.Watchdog.MaxLinesInChange); err != nil {
			return c, err
		}
		if c.Watchdog.NotificationIntervalMinutes, err = askInt("  Minutes between reminders", c.Watchdog.NotificationIntervalMinutes); err != nil {
			return c, err
		}
		if c.Watchdog.DisableCommitsAboveThreshold, err = askBool("  Block commits above the limit", c.Watchdog.DisableCommitsAboveThreshold); err != nil {
			return c, err
		}
	}

	if c.AutoRevert.Enabled, err = askBool("  Enable auto-revert", c.AutoRevert.Enabled); err != nil {
		return c, err
	}
	if c.AutoRevert.Enabled {
		if c.AutoRevert.MinutesTillRevert, err = askInt("  Minutes until revert", c.AutoRevert.MinutesTillRevert); err != nil {
			return c, err
		}
		mode, err := ask("  Revert mode (stash/discard)", string(c.AutoRevert.Mode))
		if err != nil {
			return c, err
		}
		c.AutoRevert.Mode = vcs.RevertMode(strings.ToLower(mode))
	}

	if c.Limbo.Enabled, err = askBool("  Require a passing test run before each commit", c.Limbo.Enabled); err != nil {
		return c, err
	}

	fmt.Fprintln(out)
	return c, c.Validate()
}

// SaveProject writes cfg as the project file in root and returns its path.
// An existing JSON project file is replaced by YAML.
func SaveProject(root string, cfg Config) (string, error) {
	data, err := cfg.YAML()
	if err != nil {
		return "", err
	}
	path := ProjectPath(root)
	if filepath.Ext(path) == ".json" {
		if err := os.Remove(path); err != nil {
			return "", err
		}
		path = filepath.Join(root, projectFileNames[0])
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return path, nil
}
