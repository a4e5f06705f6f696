// Package settings persists the operator settings between runs: the last used port and the
// max value of each axis.
package settings

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/viper"

	"github.com/fornellas/xyzctl/stepper"
)

// DefaultPath is where settings are stored, relative to the working directory.
const DefaultPath = "settings.toml"

const (
	configType = "toml"
	keyPort    = "settings.com_port"
	keyXMax    = "settings.x_max"
	keyYMax    = "settings.y_max"
	keyZMax    = "settings.z_max"
)

var limitKeys = map[stepper.Axis]string{
	stepper.AxisX: keyXMax,
	stepper.AxisY: keyYMax,
	stepper.AxisZ: keyZMax,
}

type Settings struct {
	Port string
	XMax int
	YMax int
	ZMax int
}

// Default returns settings with no port and default axis limits.
func Default() *Settings {
	return &Settings{
		XMax: stepper.DefaultAxisLimit,
		YMax: stepper.DefaultAxisLimit,
		ZMax: stepper.DefaultAxisLimit,
	}
}

func (s *Settings) limitPtr(axis stepper.Axis) *int {
	switch axis {
	case stepper.AxisX:
		return &s.XMax
	case stepper.AxisY:
		return &s.YMax
	case stepper.AxisZ:
		return &s.ZMax
	default:
		panic(fmt.Sprintf("bug: unexpected axis: %#v", axis))
	}
}

// Limit returns the max value of the axis.
func (s *Settings) Limit(axis stepper.Axis) int {
	return *s.limitPtr(axis)
}

func (s *Settings) SetLimit(axis stepper.Axis, limit int) {
	*s.limitPtr(axis) = limit
}

// ApplyTo copies the axis limits to session.
func (s *Settings) ApplyTo(session *stepper.Session) {
	for _, axis := range stepper.Axes {
		session.SetMax(axis, strconv.Itoa(s.Limit(axis)))
	}
}

// isIni reports whether path holds settings in the INI format, with a [Settings] section, used
// by settings.txt files.
func isIni(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini", ".txt":
		return true
	default:
		return false
	}
}

// parseIni returns the keys of all sections, lowercased. Both "key = value" and "key: value"
// are accepted, and lines starting with # or ; are comments.
func parseIni(data []byte) (map[string]any, error) {
	config := map[string]any{}
	var current map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			name := strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			current = map[string]any{}
			config[name] = current
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("line %d: key outside of a section", lineNumber)
		}
		i := strings.IndexAny(line, "=:")
		if i < 0 {
			return nil, fmt.Errorf("line %d: expected key = value", lineNumber)
		}
		key := strings.ToLower(strings.TrimSpace(line[:i]))
		current[key] = strings.TrimSpace(line[i+1:])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return config, nil
}

func renderIni(s *Settings) []byte {
	var b bytes.Buffer
	fmt.Fprintln(&b, "[Settings]")
	fmt.Fprintf(&b, "com_port = %s\n", s.Port)
	fmt.Fprintf(&b, "x_max = %d\n", s.XMax)
	fmt.Fprintf(&b, "y_max = %d\n", s.YMax)
	fmt.Fprintf(&b, "z_max = %d\n", s.ZMax)
	fmt.Fprintln(&b)
	return b.Bytes()
}

// Load reads settings from path, in the INI format when it ends in .ini or .txt and in TOML
// otherwise. A missing file is not an error: defaults are returned.
// Missing or non numeric axis limits get stepper.DefaultAxisLimit.
func Load(ctx context.Context, path string) (*Settings, error) {
	logger := log.MustLogger(ctx)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("Settings file not found, using default values", "path", path)
			return Default(), nil
		}
		return nil, fmt.Errorf("settings: %w", err)
	}

	v := viper.New()
	if isIni(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("settings: %w", err)
		}
		config, err := parseIni(data)
		if err != nil {
			return nil, fmt.Errorf("settings: failed to read %s: %w", path, err)
		}
		if err := v.MergeConfigMap(config); err != nil {
			return nil, fmt.Errorf("settings: failed to read %s: %w", path, err)
		}
	} else {
		v.SetConfigFile(path)
		v.SetConfigType(configType)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("settings: failed to read %s: %w", path, err)
		}
	}

	s := &Settings{
		Port: v.GetString(keyPort),
	}
	for axis, key := range limitKeys {
		s.SetLimit(axis, stepper.ParseLimit(v.GetString(key)))
	}

	logger.Info("Loaded settings", "path", path, "port", s.Port, "x-max", s.XMax, "y-max", s.YMax, "z-max", s.ZMax)
	return s, nil
}

// Save writes settings to path, replacing its contents. Paths ending in .ini or .txt are written
// in the INI format.
func Save(ctx context.Context, path string, s *Settings) error {
	logger := log.MustLogger(ctx)

	if isIni(path) {
		if err := os.WriteFile(path, renderIni(s), os.FileMode(0644)); err != nil {
			return fmt.Errorf("settings: failed to write %s: %w", path, err)
		}
		logger.Info("Settings saved", "path", path)
		return nil
	}

	v := viper.New()
	v.SetConfigType(configType)
	v.Set(keyPort, s.Port)
	for axis, key := range limitKeys {
		v.Set(key, s.Limit(axis))
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("settings: failed to write %s: %w", path, err)
	}

	logger.Info("Settings saved", "path", path)
	return nil
}
