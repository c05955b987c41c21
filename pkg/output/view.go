package output

import (
	"fmt"
	"io/fs"

	"github.com/arthur-debert/stager/pkg/errors"
	"github.com/arthur-debert/stager/pkg/planner"
	"github.com/arthur-debert/stager/pkg/types"
)

// ActionView is the serialisable form of an action
type ActionView struct {
	Kind        string `json:"kind" yaml:"kind" toml:"kind"`
	Path        string `json:"path" yaml:"path" toml:"path"`
	Source      string `json:"source,omitempty" yaml:"source,omitempty" toml:"source,omitempty"`
	Mode        string `json:"mode,omitempty" yaml:"mode,omitempty" toml:"mode,omitempty"`
	Permissions string `json:"permissions,omitempty" yaml:"permissions,omitempty" toml:"permissions,omitempty"`
	Command     string `json:"command" yaml:"command" toml:"command"`
}

// OverrideView describes a target claimed by more than one rule
type OverrideView struct {
	Target    string `json:"target" yaml:"target" toml:"target"`
	Winner    string `json:"winner" yaml:"winner" toml:"winner"`
	Discarded string `json:"discarded" yaml:"discarded" toml:"discarded"`
}

// ErrorView is the serialisable form of an error
type ErrorView struct {
	Code    string `json:"code" yaml:"code" toml:"code"`
	Message string `json:"message" yaml:"message" toml:"message"`
}

// PlanView is a computed plan
type PlanView struct {
	Output    string         `json:"output,omitempty" yaml:"output,omitempty" toml:"output,omitempty"`
	Actions   []ActionView   `json:"actions" yaml:"actions" toml:"actions"`
	Overrides []OverrideView `json:"overrides,omitempty" yaml:"overrides,omitempty" toml:"overrides,omitempty"`
}

// ReportView is an execution report
type ReportView struct {
	Output      string       `json:"output" yaml:"output" toml:"output"`
	DryRun      bool         `json:"dry_run" yaml:"dry_run" toml:"dry_run"`
	Success     bool         `json:"success" yaml:"success" toml:"success"`
	Applied     []ActionView `json:"applied" yaml:"applied" toml:"applied"`
	Failed      *ActionView  `json:"failed,omitempty" yaml:"failed,omitempty" toml:"failed,omitempty"`
	FailedIndex int          `json:"failed_index" yaml:"failed_index" toml:"failed_index"`
	Error       *ErrorView   `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
}

// NewActionView converts an action
func NewActionView(a types.Action) ActionView {
	v := ActionView{
		Kind:    string(a.Kind),
		Path:    a.Path,
		Source:  a.Source,
		Mode:    string(a.Mode),
		Command: a.String(),
	}
	if a.Permissions != nil {
		v.Permissions = octal(*a.Permissions)
	}
	return v
}

// NewPlanView converts a planner result
func NewPlanView(result *planner.Result, outputRoot string) PlanView {
	v := PlanView{Output: outputRoot, Actions: []ActionView{}}
	if result == nil {
		return v
	}
	for _, a := range result.Actions {
		v.Actions = append(v.Actions, NewActionView(a))
	}
	for _, o := range result.Overrides {
		v.Overrides = append(v.Overrides, OverrideView{
			Target:    o.Target,
			Winner:    o.Winner.SourcePath,
			Discarded: o.Loser.SourcePath,
		})
	}
	return v
}

// NewReportView converts an execution report
func NewReportView(report types.ExecutionReport, outputRoot string) ReportView {
	v := ReportView{
		Output:      outputRoot,
		DryRun:      report.DryRun,
		Success:     report.Succeeded(),
		Applied:     make([]ActionView, 0, len(report.Applied)),
		FailedIndex: report.FailedIndex,
	}
	for _, a := range report.Applied {
		v.Applied = append(v.Applied, NewActionView(a))
	}
	if report.Failed != nil {
		failed := NewActionView(*report.Failed)
		v.Failed = &failed
	}
	if report.Error != nil {
		v.Error = NewErrorView(report.Error)
	}
	return v
}

// NewErrorView converts an error, keeping its code when it has one
func NewErrorView(err error) *ErrorView {
	return &ErrorView{
		Code:    string(errors.GetErrorCode(err)),
		Message: err.Error(),
	}
}

func octal(bits fs.FileMode) string {
	return fmt.Sprintf("%04o", uint32(bits.Perm()))
}
