// Package cmds implements the kmon command line interface.
package cmds

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/go-kmon/kmon/cmd/kmon/cmds/helphelpers"
	"github.com/go-kmon/kmon/pkg/config"
	"github.com/go-kmon/kmon/pkg/debuginfo"
	"github.com/go-kmon/kmon/pkg/logflags"
	"github.com/go-kmon/kmon/pkg/monitor"
	"github.com/go-kmon/kmon/pkg/pagetable"
	"github.com/go-kmon/kmon/pkg/target"
	"github.com/go-kmon/kmon/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path where logs should go.
	logDest string
	// mapFile is the path to the debug map describing the kernel image.
	mapFile string

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	conf *config.Config
)

const kmonCommandLongDesc = `kmon is a monitor console for trapped kernel execution contexts.

It attaches to a machine snapshot (a raw memory image plus a machine file
describing the saved registers and paging root) and lets you walk the call
stack, inspect virtual-to-physical mappings, and flag the context for
single-stepping or resumption.`

// New returns an initialized command tree.
func New() *cobra.Command {
	// Config setup and load.
	conf = config.LoadConfig()

	// Main kmon root command.
	rootCommand = &cobra.Command{
		Use:   "kmon",
		Short: "kmon is a monitor console for trapped kernel contexts.",
		Long:  kmonCommandLongDesc,
	}

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable debug logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", "Comma separated list of components that should produce debug output (monitor, target, debuginfo).")
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file.")
	rootCommand.PersistentFlags().StringVar(&mapFile, "map", "", "Debug map file for the kernel image.")

	// 'core' subcommand.
	coreCommand := &cobra.Command{
		Use:   "core <image> <machine-file>",
		Short: "Open a monitor session on a machine snapshot.",
		Long: `Open a monitor session on a machine snapshot.

The image is a raw dump of the machine's physical memory; the machine file
carries the mapping base, the paging root and, when the machine stopped in
a trap, the saved execution context.`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(coreCmd(cmd, args))
		},
	}
	rootCommand.AddCommand(coreCommand)

	// 'version' subcommand.
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kmon %s\n", version.KmonVersion)
		},
	}
	rootCommand.AddCommand(versionCommand)

	rootCommand.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helphelpers.Prepare(cmd)
		cmd.InitDefaultHelpFlag()
		defaultHelpFunc(cmd, args)
	})

	return rootCommand
}

var defaultHelpFunc = (&cobra.Command{}).HelpFunc()

func coreCmd(cmd *cobra.Command, args []string) int {
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	snap, err := target.OpenSnapshot(args[0], args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	tgt := monitor.Target{
		Mem:     snap.Mem,
		Context: snap.Ctx,
		Pages:   pagetable.NewWalker(snap.Mem, snap.PageDir),
	}
	if mapFile != "" {
		info, err := debuginfo.LoadMap(mapFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		tgt.Info = info
	}

	var line monitor.LineReader
	if isatty.IsTerminal(os.Stdin.Fd()) {
		line = monitor.NewLinerReader()
	} else {
		line = monitor.NewPlainReader(os.Stdin, os.Stdout)
	}
	defer line.Close()

	sess := monitor.New(tgt, conf, line, os.Stdout)
	if err := sess.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	// Snapshots cannot actually resume; report what a trap handler would
	// have done with the context.
	if ctx := sess.Context(); ctx != nil && ctx.SingleStepping() {
		fmt.Println("context flagged for single-step")
	}
	return 0
}
