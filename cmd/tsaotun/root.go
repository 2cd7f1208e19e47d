package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ruffel/tsaotun"
	"github.com/ruffel/tsaotun/commands"
	"github.com/ruffel/tsaotun/daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"mvdan.cc/sh/v3/syntax"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	v          *viper.Viper
	configFile string

	settings   Settings
	conn       *daemon.Connection
	dispatcher *tsaotun.Dispatcher
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, v: newViper()}

	root := &cobra.Command{
		Use:               appName,
		Short:             "Run container commands without hanging on silent streams",
		Long:              `tsaotun starts, stops, inspects and runs commands in containers, streaming their output until it ends or goes quiet.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.conn != nil {
				return a.conn.Close()
			}

			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/tsaotun/config.yaml)")
	flags.String("host", "", "daemon host (unix://, tcp:// or ssh://); overrides platform detection")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Duration("timeout", tsaotun.DefaultInactivityTimeout, "give up on a stream after this much silence")
	flags.Bool("dry-run", false, "resolve the command without contacting the daemon")

	_ = a.v.BindPFlag("host", flags.Lookup("host"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("timeout", flags.Lookup("timeout"))
	_ = a.v.BindPFlag("dry_run", flags.Lookup("dry-run"))

	root.AddCommand(
		a.containerCmd("start", "Start a stopped container"),
		a.stopCmd("stop", "Stop a running container"),
		a.stopCmd("restart", "Restart a container"),
		a.containerCmd("logs", "Follow a container's output"),
		a.containerCmd("rm", "Force-remove a container"),
		a.containerCmd("inspect", "Show a container's low-level details"),
		a.execCmd(),
		a.psCmd(),
		a.pullCmd(),
		a.cpCmd(),
	)

	return root
}

// setup loads settings, builds the logger and, unless this is a dry run,
// connects to the daemon.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(a.v, a.configFile)
	if err != nil {
		return err
	}

	a.settings = settings

	level, _ := log.ParseLevel(settings.LogLevel)
	logger := log.NewWithOptions(a.errOut, log.Options{Prefix: appName, Level: level})

	if settings.DryRun {
		engine := tsaotun.NewEngine(nil, settings.EngineOptions(logger, daemon.LocalHost)...)
		a.dispatcher = tsaotun.NewDispatcher(engine, commands.Registry())

		return nil
	}

	conn, err := daemon.Connect(cmd.Context(), settings.DaemonConfig())
	if err != nil {
		return err
	}

	logger.Debug("connected", "host", conn.Host, "transport", conn.Transport)

	a.conn = conn
	engine := tsaotun.NewEngine(conn.Client, settings.EngineOptions(logger, conn.Host)...)
	a.dispatcher = tsaotun.NewDispatcher(engine, commands.Registry())

	return nil
}

// run dispatches req (or records a dry run) and prints any result.
func (a *app) run(cmd *cobra.Command, req tsaotun.CommandRequest) error {
	return a.runStyled(cmd, req, nil)
}

// runStyled is run with the result rendered through style.
func (a *app) runStyled(cmd *cobra.Command, req tsaotun.CommandRequest, style *lipgloss.Style) error {
	if a.settings.DryRun {
		a.dispatcher.Dry()
		fmt.Fprintln(a.out, infoStyle.Render(req.Name+": "+a.dispatcher.Result()))

		return nil
	}

	out, err := a.dispatcher.Dispatch(cmd.Context(), req)
	if err != nil {
		return err
	}

	switch {
	case out == "":
	case style != nil:
		fmt.Fprintln(a.out, style.Render(out))
	default:
		fmt.Fprintln(a.out, out)
	}

	return nil
}

func (a *app) containerCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [CONTAINER]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := tsaotun.Request(name).Container(firstArg(args)).Build()
			if name == "inspect" {
				return a.run(cmd, req)
			}

			return a.runStyled(cmd, req, &successStyle)
		},
	}
}

func (a *app) stopCmd(name, short string) *cobra.Command {
	var seconds int

	cmd := &cobra.Command{
		Use:   name + " [CONTAINER]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b := tsaotun.Request(name).Container(firstArg(args))
			if cmd.Flags().Changed("time") {
				b.Arg(tsaotun.ArgTimeout, seconds)
			}

			return a.runStyled(cmd, b.Build(), &successStyle)
		},
	}

	cmd.Flags().IntVarP(&seconds, "time", "t", 10, "seconds to wait before killing the container")

	return cmd
}

func (a *app) execCmd() *cobra.Command {
	var containerID, workdir string

	cmd := &cobra.Command{
		Use:   "exec [flags] -- COMMAND [ARG...]",
		Short: "Run a command in a container and stream its output",
		Long: `Run a command in a container and stream its output.

A single argument is taken as a complete command line. Several arguments are
quoted one by one, so "exec -- sh -c 'echo a b'" runs sh with two arguments.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := commandLine(args)
			if err != nil {
				return err
			}

			req := tsaotun.Request("exec").
				Container(containerID).
				Path(workdir).
				Arg(tsaotun.ArgCommand, line).
				Build()

			return a.run(cmd, req)
		},
	}

	cmd.Flags().StringVarP(&containerID, "container", "c", "", "target container (default: last used or latest)")
	cmd.Flags().StringVarP(&workdir, "workdir", "w", "", "working directory inside the container")

	return cmd
}

func (a *app) psCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, tsaotun.Request("ps").Arg(tsaotun.ArgAll, all).Build())
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include stopped containers")

	return cmd
}

func (a *app) pullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull IMAGE",
		Short: "Pull an image and report progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, tsaotun.Request("pull").Arg(tsaotun.ArgImage, args[0]).Build())
		},
	}
}

func (a *app) cpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cp SRC DST",
		Short: "Copy files between a container and the local filesystem",
		Long:  `One of SRC and DST must be CONTAINER:PATH. Use :PATH for the last used container.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := tsaotun.Request("cp").
				Arg(tsaotun.ArgSource, args[0]).
				Arg(tsaotun.ArgDest, args[1]).
				Build()

			return a.runStyled(cmd, req, &successStyle)
		},
	}
}

// commandLine rebuilds a command line from exec arguments.
func commandLine(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	quoted := make([]string, len(args))

	for i, arg := range args {
		q, err := syntax.Quote(arg, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("%w: cannot quote argument %d: %w", tsaotun.ErrInvalidArgument, i, err)
		}

		quoted[i] = q
	}

	return strings.Join(quoted, " "), nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}

	return args[0]
}
