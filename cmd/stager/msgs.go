package stager

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Stage files into an output tree"
	MsgStageShort      = "Plan and apply a stage file"
	MsgPlanShort       = "Print the plan for a stage file without applying it"
	MsgPlanLong        = "Plan resolves every rule of the stage file and prints the ordered actions stager would apply. Nothing is written."
	MsgInitShort       = "Write an annotated example stage file"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"
	MsgCompletionLong  = "Generate the autocompletion script for stager for the specified shell."

	// Status messages
	MsgStageWritten = "Wrote example stage file to %s\n"

	// Error messages
	MsgErrNoOutput    = "no output root: pass -o DIR or set STAGER_OUTPUT"
	MsgErrNoInput     = "no stage file: pass -i FILE"
	MsgErrStageExists = "%s already exists (use --force to overwrite)"
	MsgErrLoadStage   = "failed to load stage file: %w"
	MsgErrSettings    = "invalid settings: %w"

	// Flag descriptions
	MsgFlagVerbose  = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagInput    = "Stage file (.yaml, .yml, .toml or .json)"
	MsgFlagOutput   = "Output root directory"
	MsgFlagDryRun   = "Print the plan without applying it"
	MsgFlagSimulate = "Apply the plan to an in-memory copy of the output tree"
	MsgFlagStrict   = "Fail when two rules place different files on one target"
	MsgFlagJobs     = "Rules resolved concurrently (0 = number of CPUs)"
	MsgFlagFormat   = "Output format: text, json, yaml or toml"
	MsgFlagForce    = "Overwrite an existing file"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/stage-long.txt
	msgStageLongRaw string
	MsgStageLong    = strings.TrimSpace(msgStageLongRaw)

	//go:embed msgs/stage-example.txt
	msgStageExampleRaw string
	MsgStageExample    = strings.TrimRight(msgStageExampleRaw, "\n")
)
