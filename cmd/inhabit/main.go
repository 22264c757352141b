package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// command describes a CLI subcommand. The commands slice is the single
// source of truth for the cobra tree and the help listing.
type command struct {
	name  string
	short string
	usage string
	long  string
	nargs int // minimum positional arguments
	flags func(c *cobra.Command, o *options)
	run   func(ctx context.Context, o *options, args []string) error
}

// options holds flag values and the output streams for one invocation.
type options struct {
	out io.Writer
	err io.Writer

	// add
	iface   string
	result  string
	targets string

	// analyze
	stages   []string
	packages []string

	// metrics
	textfile string
	runOut   string
	plain    bool

	// report
	archive bool
}

var commands = []command{
	{
		name:  "init",
		short: "Create a new inhabit workspace",
		usage: "inhabit init <workspace>",
		long: `Create a new workspace at ~/.inhabit/<workspace>/ with a default
settings.yaml.

Errors if the workspace already exists.
`,
		nargs: 1,
		run:   runInit,
	},
	{
		name:  "add",
		short: "Add a package to a workspace",
		usage: "inhabit add <workspace> <package> [--interface f --result f --targets f]",
		long: `Add a package to an existing workspace.

Prompts for each stage's configuration (interface JSON, dry-run result,
optional target type list) unless --interface is given, and writes
~/.inhabit/<workspace>/<package>.yaml.

Errors if the package already exists.
`,
		nargs: 2,
		flags: func(c *cobra.Command, o *options) {
			c.Flags().StringVar(&o.iface, "interface", "", "package interface JSON")
			c.Flags().StringVar(&o.result, "result", "", "dry-run result JSON")
			c.Flags().StringVar(&o.targets, "targets", "", "target type list (JSON, optionally fenced)")
		},
		run: runAdd,
	},
	{
		name:  "analyze",
		short: "Run the pipeline stages for every package in a workspace",
		usage: "inhabit analyze <workspace> [--stage s]... [--package p]...",
		long: `Run the select and score stages for every package in the workspace,
in parallel (settings.yaml: workers).

Outputs land in ~/.inhabit/<workspace>/<package>/<stage>/. Packages
matching a skip rule in settings.yaml are not run.
`,
		nargs: 1,
		flags: func(c *cobra.Command, o *options) {
			c.Flags().StringSliceVar(&o.stages, "stage", nil, "run only these stages")
			c.Flags().StringSliceVar(&o.packages, "package", nil, "run only these packages")
		},
		run: runAnalyze,
	},
	{
		name:  "validate",
		short: "Validate a plan or a run document",
		usage: "inhabit validate <file>...",
		long: `Validate plan files (objects with a "calls" list) for causal ordering,
and run documents for schema and checksum.

Exits non-zero on the first invalid file.
`,
		nargs: 1,
		run:   runValidate,
	},
	{
		name:  "metrics",
		short: "Print run metrics for a workspace or run document",
		usage: "inhabit metrics <workspace|run.json> [--textfile f] [--out run.json] [--plain]",
		long: `Aggregate package rows into run metrics.

The argument is either an existing run document or a workspace name. With
--out, the workspace rows are also written as a checksummed run document.
With --textfile, the metrics are written in Prometheus textfile format.
`,
		nargs: 1,
		flags: func(c *cobra.Command, o *options) {
			c.Flags().StringVar(&o.textfile, "textfile", "", "write Prometheus textfile metrics here")
			c.Flags().StringVar(&o.runOut, "out", "", "write the run document here (workspace mode)")
			c.Flags().BoolVar(&o.plain, "plain", false, "print key=value lines only")
		},
		run: runMetrics,
	},
	{
		name:  "report",
		short: "Write a markdown report for a workspace",
		usage: "inhabit report <workspace> <dir> [--archive]",
		long: `Write a markdown vault describing the workspace's latest results:
index.md, one page per package, reasons.md and aborts.md.

With --archive, stage outputs are also copied into <dir>/artifacts/.
`,
		nargs: 2,
		flags: func(c *cobra.Command, o *options) {
			c.Flags().BoolVar(&o.archive, "archive", false, "copy stage outputs into <dir>/artifacts")
		},
		run: runReport,
	},
	{
		name:  "list",
		short: "List workspaces, or the packages of one",
		usage: "inhabit list [workspace]",
		long: `With no argument, list every workspace under ~/.inhabit/.
With a workspace name, list its packages.
`,
		run: runList,
	},
	{
		name:  "remove",
		short: "Remove a workspace or one of its packages",
		usage: "inhabit remove <workspace> [package]",
		long: `Remove a package (config and outputs) from a workspace, or the whole
workspace when no package is given.
`,
		nargs: 1,
		run:   runRemove,
	},
}

// newRootCmd builds the cobra tree from commands.
func newRootCmd(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "inhabit",
		Short: "inhabit — plan synthesis and inhabitation scoring for on-chain packages",
		Long: `inhabit selects directly callable functions from package interfaces,
synthesizes default-argument plans, classifies dry-run outcomes and scores
how many target types each plan created.

Run 'inhabit help <command>' for details on a specific command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(o.out)
	root.SetErr(o.err)
	for _, cmd := range commands {
		c := &cobra.Command{
			Use:   cmd.usage[len("inhabit "):],
			Short: cmd.short,
			Long:  cmd.long,
			Args:  cobra.MinimumNArgs(cmd.nargs),
		}
		run := cmd.run
		c.RunE = func(c *cobra.Command, args []string) error {
			return run(c.Context(), o, args)
		}
		if cmd.flags != nil {
			cmd.flags(c, o)
		}
		root.AddCommand(c)
	}
	return root
}

// dispatch runs the CLI with args, writing to out and errOut.
func dispatch(ctx context.Context, args []string, out, errOut io.Writer) error {
	root := newRootCmd(&options{out: out, err: errOut})
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := dispatch(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "inhabit: %v\n", err)
		os.Exit(1)
	}
}
