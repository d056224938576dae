// Package config resolves qrshare settings from built-in defaults, an
// optional YAML file, QRSHARE_* environment variables and command-line
// flags, in increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Terminal display modes.
const (
	DisplayAuto     = "auto"
	DisplayQREncode = "qrencode"
	DisplayBuiltin  = "builtin"
	DisplayNone     = "none"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrInvalid marks a setting that failed to parse or validate.
var ErrInvalid = errors.New("invalid config")

// Config holds every tunable of a run.
type Config struct {
	// Port 0 means a random ephemeral port.
	Port      int    `yaml:"port"`
	Scale     int    `yaml:"scale"`
	Border    int    `yaml:"border"`
	Level     string `yaml:"level"`
	Output    string `yaml:"output"`
	Display   string `yaml:"display"`
	QREncode  string `yaml:"qrencode"`
	Once      bool   `yaml:"once"`
	Debug     bool   `yaml:"debug"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Scale:     10,
		Border:    4,
		Level:     "M",
		Output:    "qr_code.png",
		Display:   DisplayAuto,
		QREncode:  "qrencode",
		LogFormat: FormatText,
	}
}

// OpError records which step failed on which file.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s (path=%s): %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// DefaultPath is $XDG_CONFIG_HOME/qrshare/config.yaml or the platform
// equivalent. It returns "" when no config directory is known.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "qrshare", "config.yaml")
}

// LoadFile merges the YAML document at path over c. Keys absent from the
// file leave c untouched; unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return &OpError{Op: "config.load", Path: path, Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return &OpError{Op: "config.parse", Path: path, Err: fmt.Errorf("%w: %w", ErrInvalid, err)}
	}
	return nil
}

// ApplyEnv merges QRSHARE_* variables over c. PORT is honored as well,
// with QRSHARE_PORT taking precedence; a PORT that is not a number is
// ignored since it is often set for other programs.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	setInt := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, key, v))
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalid, key, v))
				return
			}
			*dst = b
		}
	}
	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.Port = n
		}
	}
	setInt("QRSHARE_PORT", &c.Port)
	setInt("QRSHARE_SCALE", &c.Scale)
	setInt("QRSHARE_BORDER", &c.Border)
	setString("QRSHARE_LEVEL", &c.Level)
	setString("QRSHARE_OUTPUT", &c.Output)
	setString("QRSHARE_DISPLAY", &c.Display)
	setString("QRSHARE_QRENCODE", &c.QREncode)
	setBool("QRSHARE_ONCE", &c.Once)
	setBool("QRSHARE_DEBUG", &c.Debug)
	setString("QRSHARE_LOG_FORMAT", &c.LogFormat)

	return errors.Join(errs...)
}

// Validate reports every setting that is out of range.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range [0, 65535]", c.Port))
	}
	if c.Scale <= 0 {
		errs = append(errs, fmt.Errorf("scale %d must be positive", c.Scale))
	}
	if c.Border < 0 {
		errs = append(errs, fmt.Errorf("border %d must not be negative", c.Border))
	}
	switch strings.ToUpper(strings.TrimSpace(c.Level)) {
	case "L", "M", "Q", "H":
	default:
		errs = append(errs, fmt.Errorf("level %q must be one of L, M, Q, H", c.Level))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("output path must not be empty"))
	}
	switch c.Display {
	case DisplayAuto, DisplayQREncode, DisplayBuiltin, DisplayNone:
	default:
		errs = append(errs, fmt.Errorf("display %q must be one of auto, qrencode, builtin, none", c.Display))
	}
	switch c.LogFormat {
	case FormatText, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log format %q must be text or json", c.LogFormat))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Load builds the effective Config: defaults, then the YAML file, then the
// environment, then the flags the user set. The file is f.ConfigPath,
// else QRSHARE_CONFIG, else DefaultPath when that file exists.
func Load(f *Flags, lookup func(string) (string, bool)) (Config, error) {
	if f == nil {
		f = &Flags{}
	}
	c := Default()

	path, explicit := f.ConfigPath, f.ConfigPath != ""
	if !explicit {
		if v, ok := lookup("QRSHARE_CONFIG"); ok && v != "" {
			path, explicit = v, true
		}
	}
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		err := c.LoadFile(path)
		switch {
		case err == nil:
		case !explicit && errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, err
		}
	}

	if err := c.ApplyEnv(lookup); err != nil {
		return Config{}, err
	}
	f.apply(&c)
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
