// Package config loads scanner and server settings from the environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ironsheep/docscan-mcp/internal/imaging"
	"github.com/ironsheep/docscan-mcp/internal/scan"
)

// EnvFileVar names the variable holding the .env path.
const EnvFileVar = "DOCSCAN_ENV_FILE"

// Log holds logging settings.
type Log struct {
	Level      string `env:"DOCSCAN_LOG_LEVEL,info"`
	File       string `env:"DOCSCAN_LOG_FILE,"`
	MaxSizeMB  int    `env:"DOCSCAN_LOG_MAX_SIZE_MB,10"`
	MaxBackups int    `env:"DOCSCAN_LOG_MAX_BACKUPS,3"`
}

// Scan holds the document pipeline settings.
type Scan struct {
	DetectHeight int     `env:"DOCSCAN_DETECT_HEIGHT,500"`
	CannyLow     int     `env:"DOCSCAN_CANNY_LOW,75"`
	CannyHigh    int     `env:"DOCSCAN_CANNY_HIGH,200"`
	Candidates   int     `env:"DOCSCAN_CANDIDATES,5"`
	BlockSize    int     `env:"DOCSCAN_BLOCK_SIZE,11"`
	Offset       float64 `env:"DOCSCAN_OFFSET,10"`
	FillColor    string  `env:"DOCSCAN_FILL_COLOR,#000000"`
	Fallback     bool    `env:"DOCSCAN_FALLBACK,false"`
	Language     string  `env:"DOCSCAN_OCR_LANGUAGE,eng"`

	fill color.NRGBA
}

// Config is the complete runtime configuration.
type Config struct {
	Log  Log
	Scan Scan

	// OutputDir is where generated images are written when a request does
	// not name an output path. Defaults to the system temp directory.
	OutputDir string `env:"DOCSCAN_OUTPUT_DIR,"`
}

// Load reads the .env file named by DOCSCAN_ENV_FILE (default ".env"), then
// fills a Config from environment variables. Variables already set in the
// environment take precedence over the file, and a missing file is not an
// error.
func Load() (*Config, error) {
	envFile := os.Getenv(EnvFileVar)
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{}
	if err := parseStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, err
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = os.TempDir()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting and resolves the fill colour.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil || c.Log.Level == "" {
		return fmt.Errorf("DOCSCAN_LOG_LEVEL: unknown level %q", c.Log.Level)
	}
	if c.Log.MaxSizeMB < 1 {
		return fmt.Errorf("DOCSCAN_LOG_MAX_SIZE_MB: must be at least 1, got %d", c.Log.MaxSizeMB)
	}
	if c.Log.MaxBackups < 0 {
		return fmt.Errorf("DOCSCAN_LOG_MAX_BACKUPS: must not be negative, got %d", c.Log.MaxBackups)
	}

	s := &c.Scan
	if s.DetectHeight < 0 {
		return fmt.Errorf("DOCSCAN_DETECT_HEIGHT: must not be negative, got %d", s.DetectHeight)
	}
	if s.CannyLow < 1 || s.CannyHigh < s.CannyLow {
		return fmt.Errorf("DOCSCAN_CANNY_LOW/DOCSCAN_CANNY_HIGH: need 1 <= low <= high, got %d/%d", s.CannyLow, s.CannyHigh)
	}
	if s.Candidates < 1 {
		return fmt.Errorf("DOCSCAN_CANDIDATES: must be at least 1, got %d", s.Candidates)
	}
	if s.BlockSize < 3 || s.BlockSize%2 == 0 {
		return fmt.Errorf("DOCSCAN_BLOCK_SIZE: must be odd and at least 3, got %d", s.BlockSize)
	}

	fill, err := imaging.ParseColor(s.FillColor)
	if err != nil {
		return fmt.Errorf("DOCSCAN_FILL_COLOR: %w", err)
	}
	s.fill = fill
	return nil
}

// ScanOptions converts the scan settings to pipeline options.
func (c *Config) ScanOptions() scan.Options {
	return scan.Options{
		DetectHeight:      c.Scan.DetectHeight,
		CannyLow:          c.Scan.CannyLow,
		CannyHigh:         c.Scan.CannyHigh,
		Candidates:        c.Scan.Candidates,
		BlockSize:         c.Scan.BlockSize,
		Offset:            c.Scan.Offset,
		Fill:              c.Scan.fill,
		FallbackFullImage: c.Scan.Fallback,
	}
}

// Fill returns the parsed fill colour. It is only meaningful after Validate.
func (s Scan) Fill() color.NRGBA {
	return s.fill
}

// parseStruct fills every field carrying an `env:"KEY,default"` tag,
// recursing into nested structs.
func parseStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !fieldType.IsExported() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := parseStruct(field); err != nil {
				return err
			}
			continue
		}

		tag := fieldType.Tag.Get("env")
		if tag == "" {
			continue
		}

		key, defaultVal := parseTag(tag)
		raw, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(raw) == "" {
			raw = defaultVal
		}

		if err := setField(field, key, strings.TrimSpace(raw)); err != nil {
			return err
		}
	}

	return nil
}

// parseTag splits "ENV_KEY,default_value" into its parts.
func parseTag(tag string) (key, defaultVal string) {
	parts := strings.SplitN(tag, ",", 2)
	key = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		defaultVal = strings.TrimSpace(parts[1])
	}
	return key, defaultVal
}

// setField converts raw to the field's type and stores it.
func setField(field reflect.Value, key, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)

	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: cannot parse %q as int: %w", key, raw, err)
		}
		field.SetInt(int64(n))

	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: cannot parse %q as bool (use true/false/1/0): %w", key, raw, err)
		}
		field.SetBool(b)

	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%s: cannot parse %q as float: %w", key, raw, err)
		}
		field.SetFloat(f)

	default:
		return fmt.Errorf("%s: unsupported type %s", key, field.Kind())
	}
	return nil
}
