package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nbrun/nbrun/internal/core"
	"github.com/nbrun/nbrun/internal/runner"
	"github.com/nbrun/nbrun/internal/tools"
	"github.com/nbrun/nbrun/pkg/console"
)

var verboseInfo bool
var verboseDebug bool
var verboseTrace bool

var mutate bool
var diff bool
var excludeCells string
var parallel int

var rootCmd = &cobra.Command{
	Use:   "nbrun <tool> <notebook or directory>... [flags] [-- <tool flags>]",
	Short: "Run any code-quality tool on Jupyter notebooks",
	Long: `nbrun lets formatters, linters, and upgraders built for plain Python
files operate on Jupyter notebooks. Code cells are assembled into a
synthetic source file, the tool runs on it, diagnostics are rewritten
to notebook coordinates, and (with --mutate) the notebook cells are
updated from the tool's changes.

Examples:
    nbrun flake8 notebook.ipynb
    nbrun black notebook.ipynb --mutate -- --line-length=96
    nbrun pyupgrade notebooks/ --diff`,
	Args: cobra.MinimumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Enable verbose output. The most verbose level wins when multiple flags are passed.
		if verboseInfo {
			core.CurrentLogger().SetVerboseLevel(core.VerboseInfo)
		}
		if verboseDebug {
			core.CurrentLogger().SetVerboseLevel(core.VerboseDebug)
		}
		if verboseTrace {
			core.CurrentLogger().SetVerboseLevel(core.VerboseTrace)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		c := console.New()

		ownArgs := args
		var toolArgs []string
		if dash := cmd.ArgsLenAtDash(); dash >= 0 {
			ownArgs = args[:dash]
			toolArgs = args[dash:]
		}
		tool := ownArgs[0]
		roots := ownArgs[1:]
		if len(roots) == 0 {
			c.Attention("Please specify:")
			c.Error("- 1) a code quality tool (e.g. `black`, `flake8`, `pyupgrade`, ...)")
			c.Error("- 2) some notebooks (or, if supported by the tool, directories)")
			c.Error("- 3) (optional) flags for nbrun (e.g. `--mutate`)")
			c.Error("- 4) (optional) flags for the tool after `--` (e.g. `--line-length` for `black`)")
			os.Exit(1)
		}

		registry, err := tools.Load()
		if err != nil {
			c.Errorf("Invalid tool registry: %v", err)
			os.Exit(1)
		}

		options := core.Options{
			Tool:         tool,
			ToolArgs:     toolArgs,
			Mutate:       mutate,
			Diff:         diff,
			ExcludeCells: excludeCells,
			Parallel:     parallel,
		}
		run := core.NewRun(options, registry, runner.NewExecRunner(""), c)
		os.Exit(run.Execute(cmd.Context(), roots))
	},
}

func init() {
	// Use PersistentFlags to make flags accessible to sub-commands
	rootCmd.PersistentFlags().BoolVarP(&verboseInfo, "v", "", false, "enable verbose info output")
	rootCmd.PersistentFlags().BoolVarP(&verboseDebug, "vv", "", false, "enable verbose debug output")
	rootCmd.PersistentFlags().BoolVarP(&verboseTrace, "vvv", "", false, "enable verbose trace output")

	rootCmd.Flags().BoolVarP(&mutate, "mutate", "m", false, "let the tool modify the notebooks")
	rootCmd.Flags().BoolVarP(&diff, "diff", "d", false, "print the changes instead of writing them")
	rootCmd.Flags().StringVarP(&excludeCells, "exclude-cells", "e", "", "comma-separated code cells to skip (1-based, plus first/last)")
	rootCmd.Flags().IntVarP(&parallel, "parallel", "t", 1, "number of notebooks to process concurrently")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
