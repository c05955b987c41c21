package stager

import (
	"fmt"
	"os"

	"github.com/arthur-debert/stager/internal/version"
	"github.com/arthur-debert/stager/pkg/config"
	"github.com/arthur-debert/stager/pkg/errors"
	"github.com/arthur-debert/stager/pkg/filesystem"
	"github.com/arthur-debert/stager/pkg/logging"
	"github.com/arthur-debert/stager/pkg/output"
	"github.com/arthur-debert/stager/pkg/stage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	var verbosity int

	rootCmd := &cobra.Command{
		Use:     "stager",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging based on verbosity
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// If we get here, no subcommand was provided
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", MsgFlagVerbose)

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "COMMANDS:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "misc",
		Title: "MISC:",
	})

	rootCmd.AddCommand(newStageCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// runFlags are shared by stage and plan
type runFlags struct {
	input  string
	output string
	strict bool
	jobs   int
	format string
}

func (f *runFlags) register(cmd *cobra.Command, withOutput bool) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", MsgFlagInput)
	if withOutput {
		cmd.Flags().StringVarP(&f.output, "output", "o", "", MsgFlagOutput)
	}
	cmd.Flags().BoolVar(&f.strict, "strict", false, MsgFlagStrict)
	cmd.Flags().IntVar(&f.jobs, "jobs", 0, MsgFlagJobs)
	cmd.Flags().StringVar(&f.format, "format", "text", MsgFlagFormat)
	_ = cmd.MarkFlagFilename("input", "yaml", "yml", "toml", "json")
}

// settings layers the flags the user set over environment and defaults
func (f *runFlags) settings(cmd *cobra.Command) (*config.Settings, error) {
	overrides := make(map[string]interface{})
	changed := cmd.Flags().Changed
	if changed("output") {
		overrides["output"] = f.output
	}
	if changed("strict") {
		overrides["strict"] = f.strict
	}
	if changed("jobs") {
		overrides["jobs"] = f.jobs
	}
	if changed("format") {
		overrides["format"] = f.format
	}

	s, err := config.LoadSettings(overrides)
	if err != nil {
		return nil, fmt.Errorf(MsgErrSettings, err)
	}
	return s, nil
}

// load reads the stage file and settings and prepares a renderer
func (f *runFlags) load(cmd *cobra.Command) (*config.Stage, *config.Settings, *output.Renderer, error) {
	if f.input == "" {
		return nil, nil, nil, errors.New(errors.ErrInvalidInput, MsgErrNoInput)
	}

	settings, err := f.settings(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	st, err := config.LoadStage(f.input)
	if err != nil {
		return nil, nil, nil, fmt.Errorf(MsgErrLoadStage, err)
	}

	format, err := output.ParseFormat(settings.Format)
	if err != nil {
		return nil, nil, nil, err
	}
	renderer, err := output.New(cmd.OutOrStdout(), format)
	if err != nil {
		return nil, nil, nil, err
	}

	return st, settings, renderer, nil
}

func newStageCmd() *cobra.Command {
	var (
		flags    runFlags
		dryRun   bool
		simulate bool
	)

	cmd := &cobra.Command{
		Use:     "stage -i STAGE -o DIR",
		Short:   MsgStageShort,
		Long:    MsgStageLong,
		Example: MsgStageExample,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, settings, renderer, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if settings.Output == "" {
				return errors.New(errors.ErrInvalidInput, MsgErrNoOutput)
			}

			opts := stage.Options{
				Jobs:   settings.Jobs,
				Strict: settings.Strict || st.Strict,
			}

			if dryRun {
				plan, err := stage.Plan(cmd.Context(), st.Rules, opts)
				if err != nil {
					return err
				}
				return renderer.RenderPlan(output.NewPlanView(plan, settings.Output))
			}

			if simulate {
				opts.FileSystem = filesystem.NewOverlay()
			}

			result, runErr := stage.Run(cmd.Context(), st.Rules, settings.Output, opts)
			if result != nil && result.Report != nil {
				view := output.NewReportView(*result.Report, settings.Output)
				view.DryRun = simulate
				if err := renderer.RenderReport(view); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	flags.register(cmd, true)
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, MsgFlagDryRun)
	cmd.Flags().BoolVar(&simulate, "simulate", false, MsgFlagSimulate)
	cmd.MarkFlagsMutuallyExclusive("dry-run", "simulate")

	return cmd
}

func newPlanCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:     "plan -i STAGE",
		Short:   MsgPlanShort,
		Long:    MsgPlanLong,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, settings, renderer, err := flags.load(cmd)
			if err != nil {
				return err
			}

			plan, err := stage.Plan(cmd.Context(), st.Rules, stage.Options{
				Jobs:   settings.Jobs,
				Strict: settings.Strict || st.Strict,
			})
			if err != nil {
				return err
			}
			return renderer.RenderPlan(output.NewPlanView(plan, settings.Output))
		},
	}

	flags.register(cmd, false)
	return cmd
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "init [FILE]",
		Short:   MsgInitShort,
		GroupID: "core",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "stage.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return errors.Newf(errors.ErrInvalidInput, MsgErrStageExists, path)
			}
			if err := os.WriteFile(path, []byte(config.SampleStage()), 0644); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), MsgStageWritten, path)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, MsgFlagForce)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		Long:                  MsgCompletionLong,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		GroupID:               "misc",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}
