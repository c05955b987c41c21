package config

import (
	"strings"

	"github.com/arthur-debert/stager/pkg/errors"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment variables that override settings
const EnvPrefix = "STAGER_"

// Report formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// Settings control a staging run
type Settings struct {
	Output string `koanf:"output"`
	Strict bool   `koanf:"strict"`
	Jobs   int    `koanf:"jobs"`
	Format string `koanf:"format"`
}

var settingKeys = map[string]bool{
	"output": true,
	"strict": true,
	"jobs":   true,
	"format": true,
}

// LoadSettings layers the embedded defaults, STAGER_* environment variables
// and overrides (usually the flags the user actually set), in that order
func LoadSettings(overrides map[string]interface{}) (*Settings, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultSettings}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load default settings")
	}

	// 2. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load settings from environment")
	}

	// 3. Flags
	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load settings overrides")
		}
	}

	var s Settings
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{
		Tag:           "koanf",
		DecoderConfig: decoderConfig(&s),
	}); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigValid, "invalid settings")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// envKey maps STAGER_JOBS to "jobs". Variables that are not settings
// (STAGER_VAR_* among them) map to "" and are skipped.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	if !settingKeys[key] {
		return ""
	}
	return key
}

// Validate checks value ranges
func (s *Settings) Validate() error {
	switch s.Format {
	case FormatText, FormatJSON, FormatYAML, FormatTOML:
	default:
		return errors.Newf(errors.ErrConfigValid,
			"unknown format %q (want text, json, yaml or toml)", s.Format).
			WithDetail("format", s.Format)
	}
	if s.Jobs < 0 {
		return errors.Newf(errors.ErrConfigValid, "jobs must not be negative, got %d", s.Jobs)
	}
	return nil
}
