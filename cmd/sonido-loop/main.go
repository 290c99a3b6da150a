package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/RyanBlaney/sonido-loop/internal/cli"
	"github.com/RyanBlaney/sonido-loop/logging"
)

var (
	version = "0.1.0"
)

// CLI defines the command-line interface
type CLI struct {
	Verbose bool             `short:"v" help:"Enable debug logging."`
	Version kong.VersionFlag `help:"Show version information."`

	List   ListCmd   `cmd:"" help:"List the ranked loop candidates of each file."`
	Best   BestCmd   `cmd:"" help:"Print the best loop points of each file."`
	Pick   PickCmd   `cmd:"" help:"Choose a loop interactively and print its points."`
	Split  SplitCmd  `cmd:"" help:"Split each file into intro, loop and outro WAV files."`
	Extend ExtendCmd `cmd:"" help:"Write an extended WAV that repeats the loop to a target length."`
	Points PointsCmd `cmd:"" help:"Export loop points as text or JSON."`
}

func main() {
	cliArgs := &CLI{}
	kctx := kong.Parse(cliArgs,
		kong.Name("sonido-loop"),
		kong.Description("Find seamless loop points in music"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	logging.SetLevel(logging.WarnLevel)
	if cliArgs.Verbose {
		logging.SetLevel(logging.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := kctx.Run(&runContext{ctx: ctx, stdout: os.Stdout, stdin: os.Stdin}); err != nil {
		cli.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}
