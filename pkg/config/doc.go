// Package config loads stage files and run settings.
//
// A stage file (YAML, TOML or JSON, chosen by extension) declares the
// staging rules. LoadStage parses it with koanf, substitutes ${variables},
// validates every rule and returns []types.Rule ready for the resolver.
//
// Settings are layered: embedded defaults, then STAGER_* environment
// variables, then command line flags.
package config
