package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/arthur-debert/stager/pkg/errors"
	"github.com/arthur-debert/stager/pkg/planner"
	"github.com/arthur-debert/stager/pkg/types"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func samplePlan() *planner.Result {
	return &planner.Result{
		Actions: []types.Action{
			types.EnsureDir("bin"),
			types.PlaceFile("/src/run.sh", "bin/run", types.ModeCopy, types.Perm(0755)),
			types.SetPermissions("bin/run", 0755),
			types.PlaceFile("/src/a.md", "a.md", types.ModeSymlink, nil),
		},
		Overrides: []planner.Override{{
			Target: "bin/run",
			Winner: types.ResolvedEntry{SourcePath: "/src/run.sh"},
			Loser:  types.ResolvedEntry{SourcePath: "/old/run.sh"},
		}},
	}
}

func failedReport() types.ExecutionReport {
	plan := samplePlan().Actions
	return types.ExecutionReport{
		Applied:     plan[:2],
		Failed:      &plan[2],
		FailedIndex: 2,
		Error:       errors.New(errors.ErrIOFailure, "cannot set permissions"),
	}
}

func render(t *testing.T, format Format, fn func(*Renderer) error) string {
	t.Helper()
	var buf bytes.Buffer
	r, err := NewWithColor(&buf, format, false)
	require.NoError(t, err)
	require.NoError(t, fn(r))
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"": FormatText, "text": FormatText, "JSON": FormatJSON,
		"yml": FormatYAML, "yaml": FormatYAML, "toml": FormatTOML,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestUseColor(t *testing.T) {
	assert.False(t, UseColor(&bytes.Buffer{}))
}

func TestNewPlanView(t *testing.T) {
	v := NewPlanView(samplePlan(), "/out")
	require.Len(t, v.Actions, 4)
	assert.Equal(t, ActionView{Kind: "ensure_dir", Path: "bin", Command: "mkdir -p bin"}, v.Actions[0])
	assert.Equal(t, "0755", v.Actions[1].Permissions)
	assert.Equal(t, "copy", v.Actions[1].Mode)
	assert.Equal(t, "ln -sf /src/a.md a.md", v.Actions[3].Command)
	assert.Equal(t, []OverrideView{{Target: "bin/run", Winner: "/src/run.sh", Discarded: "/old/run.sh"}}, v.Overrides)

	empty := NewPlanView(nil, "")
	assert.NotNil(t, empty.Actions)
}

func TestRenderPlan_Text(t *testing.T) {
	out := render(t, FormatText, func(r *Renderer) error {
		return r.RenderPlan(NewPlanView(samplePlan(), "/out"))
	})

	assert.Contains(t, out, "Plan: 4 actions into /out")
	assert.Contains(t, out, "  mkdir -p bin\n")
	assert.Contains(t, out, "  cp /src/run.sh bin/run\n")
	assert.Contains(t, out, "  chmod 0755 bin/run\n")
	assert.Contains(t, out, "override bin/run: /src/run.sh replaces /old/run.sh")
	assert.NotContains(t, out, "\x1b[")
}

func TestRenderPlan_Machine(t *testing.T) {
	plan := NewPlanView(samplePlan(), "/out")

	t.Run("json", func(t *testing.T) {
		out := render(t, FormatJSON, func(r *Renderer) error { return r.RenderPlan(plan) })
		var got PlanView
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, plan, got)
		assert.Contains(t, out, `"permissions": "0755"`)
	})

	t.Run("yaml", func(t *testing.T) {
		out := render(t, FormatYAML, func(r *Renderer) error { return r.RenderPlan(plan) })
		var got PlanView
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		assert.Equal(t, plan, got)
	})

	t.Run("toml", func(t *testing.T) {
		out := render(t, FormatTOML, func(r *Renderer) error { return r.RenderPlan(plan) })
		var got PlanView
		require.NoError(t, toml.Unmarshal([]byte(out), &got))
		assert.Equal(t, plan, got)
	})
}

func TestRenderReport(t *testing.T) {
	t.Run("text_failure", func(t *testing.T) {
		out := render(t, FormatText, func(r *Renderer) error {
			return r.RenderReport(NewReportView(failedReport(), "/out"))
		})
		assert.Contains(t, out, "  ok mkdir -p bin\n")
		assert.Contains(t, out, "  failed chmod 0755 bin/run\n")
		assert.Contains(t, out, "Stopped after 2 actions: [IO_FAILURE] cannot set permissions")
	})

	t.Run("text_success", func(t *testing.T) {
		report := types.ExecutionReport{Applied: samplePlan().Actions, FailedIndex: -1}
		out := render(t, FormatText, func(r *Renderer) error {
			return r.RenderReport(NewReportView(report, "/out"))
		})
		assert.Contains(t, out, "Staged 4 actions into /out")
	})

	t.Run("text_dry_run", func(t *testing.T) {
		report := types.ExecutionReport{Applied: samplePlan().Actions, FailedIndex: -1, DryRun: true}
		out := render(t, FormatText, func(r *Renderer) error {
			return r.RenderReport(NewReportView(report, "/out"))
		})
		assert.Contains(t, out, "Dry run: 4 actions would be applied to /out")
	})

	t.Run("json_failure", func(t *testing.T) {
		out := render(t, FormatJSON, func(r *Renderer) error {
			return r.RenderReport(NewReportView(failedReport(), "/out"))
		})
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, false, got["success"])
		assert.Equal(t, float64(2), got["failed_index"])
		assert.Equal(t, "IO_FAILURE", got["error"].(map[string]interface{})["code"])
		assert.Len(t, got["applied"], 2)
	})

	t.Run("toml_success_omits_failure", func(t *testing.T) {
		report := types.ExecutionReport{Applied: samplePlan().Actions[:1], FailedIndex: -1}
		out := render(t, FormatTOML, func(r *Renderer) error {
			return r.RenderReport(NewReportView(report, "/out"))
		})
		var got ReportView
		require.NoError(t, toml.Unmarshal([]byte(out), &got))
		assert.True(t, got.Success)
		assert.Nil(t, got.Failed)
		assert.Nil(t, got.Error)
		assert.Equal(t, -1, got.FailedIndex)
	})
}

func TestRenderError(t *testing.T) {
	err := errors.New(errors.ErrPathEscape, "target leaves the output root")

	out := render(t, FormatText, func(r *Renderer) error { return r.RenderError(err) })
	assert.Equal(t, "Error: [PATH_ESCAPE] target leaves the output root\n", out)

	out = render(t, FormatYAML, func(r *Renderer) error { return r.RenderError(err) })
	var got map[string]ErrorView
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "PATH_ESCAPE", got["error"].Code)
}

func TestLoadStyles(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewWithColor(&buf, FormatText, false)
	require.NoError(t, err)
	for _, name := range styleNames {
		assert.Contains(t, r.styles, name)
	}
	assert.Equal(t, "x", r.styles.Get("Unknown").Render("x"))
}
