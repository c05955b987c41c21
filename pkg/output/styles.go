package output

import (
	_ "embed"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"
)

// ColorDef represents an adaptive color definition in YAML
type ColorDef struct {
	Light string `yaml:"light"`
	Dark  string `yaml:"dark"`
}

// StyleDef represents a style definition in YAML
type StyleDef struct {
	Bold       bool   `yaml:"bold,omitempty"`
	Italic     bool   `yaml:"italic,omitempty"`
	Underline  bool   `yaml:"underline,omitempty"`
	Foreground string `yaml:"foreground,omitempty"`
}

// StyleConfig represents the complete styles configuration
type StyleConfig struct {
	Colors map[string]ColorDef `yaml:"colors"`
	Styles map[string]StyleDef `yaml:"styles"`
}

//go:embed styles.yaml
var embeddedStyles []byte

// styleNames lists the styles the text renderer uses
var styleNames = []string{"Header", "Success", "Error", "Muted", "Path", "Verb"}

// Styles maps semantic names to lipgloss styles bound to one writer
type Styles map[string]lipgloss.Style

// Get returns the named style, or a plain one
func (s Styles) Get(name string) lipgloss.Style {
	if style, ok := s[name]; ok {
		return style
	}
	return lipgloss.NewStyle()
}

// LoadStyles parses a styles definition for a lipgloss renderer. Without
// color every style renders as plain text.
func LoadStyles(data []byte, r *lipgloss.Renderer, color bool) (Styles, error) {
	var config StyleConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse styles data: %w", err)
	}

	if !color {
		r.SetColorProfile(termenv.Ascii)
	}

	styles := make(Styles, len(config.Styles))
	for name, def := range config.Styles {
		style := r.NewStyle().
			Bold(def.Bold && color).
			Italic(def.Italic && color).
			Underline(def.Underline && color)
		if c, ok := config.Colors[def.Foreground]; ok {
			style = style.Foreground(lipgloss.AdaptiveColor{Light: c.Light, Dark: c.Dark})
		}
		styles[name] = style
	}

	for _, name := range styleNames {
		if _, ok := styles[name]; !ok {
			styles[name] = r.NewStyle()
		}
	}
	return styles, nil
}
