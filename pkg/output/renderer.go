package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Renderer writes plans, reports and errors in one format
type Renderer struct {
	output io.Writer
	format Format
	styles Styles
}

// New creates a renderer for w, detecting color support for text output
func New(w io.Writer, format Format) (*Renderer, error) {
	return NewWithColor(w, format, UseColor(w))
}

// NewWithColor creates a renderer with color forced on or off
func NewWithColor(w io.Writer, format Format, color bool) (*Renderer, error) {
	styles, err := LoadStyles(embeddedStyles, lipgloss.NewRenderer(w), color)
	if err != nil {
		return nil, err
	}
	return &Renderer{output: w, format: format, styles: styles}, nil
}

// RenderPlan writes a computed plan
func (r *Renderer) RenderPlan(plan PlanView) error {
	if r.format != FormatText {
		return r.encode(plan)
	}

	var b strings.Builder
	header := fmt.Sprintf("Plan: %d actions", len(plan.Actions))
	if plan.Output != "" {
		header += " into " + plan.Output
	}
	b.WriteString(r.styles.Get("Header").Render(header) + "\n")

	for _, a := range plan.Actions {
		b.WriteString("  " + r.command(a) + "\n")
	}
	for _, o := range plan.Overrides {
		b.WriteString(r.styles.Get("Muted").Render(
			fmt.Sprintf("  override %s: %s replaces %s", o.Target, o.Winner, o.Discarded)) + "\n")
	}

	_, err := io.WriteString(r.output, b.String())
	return err
}

// RenderReport writes an execution report
func (r *Renderer) RenderReport(report ReportView) error {
	if r.format != FormatText {
		return r.encode(report)
	}

	var b strings.Builder
	ok := r.styles.Get("Success").Render("ok")
	for _, a := range report.Applied {
		b.WriteString(fmt.Sprintf("  %s %s\n", ok, r.command(a)))
	}
	if report.Failed != nil {
		b.WriteString(fmt.Sprintf("  %s %s\n", r.styles.Get("Error").Render("failed"), r.command(*report.Failed)))
	}

	switch {
	case report.Error != nil:
		b.WriteString(r.styles.Get("Error").Render(
			fmt.Sprintf("Stopped after %d actions: %s", len(report.Applied), report.Error.Message)) + "\n")
	case report.DryRun:
		b.WriteString(r.styles.Get("Header").Render(
			fmt.Sprintf("Dry run: %d actions would be applied to %s", len(report.Applied), report.Output)) + "\n")
	default:
		b.WriteString(r.styles.Get("Success").Render(
			fmt.Sprintf("Staged %d actions into %s", len(report.Applied), report.Output)) + "\n")
	}

	_, err := io.WriteString(r.output, b.String())
	return err
}

// RenderError writes an error
func (r *Renderer) RenderError(err error) error {
	view := NewErrorView(err)
	if r.format != FormatText {
		return r.encode(map[string]*ErrorView{"error": view})
	}
	_, werr := fmt.Fprintln(r.output, r.styles.Get("Error").Render("Error:")+" "+view.Message)
	return werr
}

// command renders an action as a styled shell-like line
func (r *Renderer) command(a ActionView) string {
	verb, rest, _ := strings.Cut(a.Command, " ")
	return r.styles.Get("Verb").Render(verb) + " " + r.styles.Get("Path").Render(rest)
}

func (r *Renderer) encode(v interface{}) error {
	switch r.format {
	case FormatJSON:
		encoder := json.NewEncoder(r.output)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case FormatYAML:
		encoder := yaml.NewEncoder(r.output)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	case FormatTOML:
		return toml.NewEncoder(r.output).Encode(v)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}
