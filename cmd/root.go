package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fatih/color"
	"github.com/qobs-build/qrun/internal/action"
	"github.com/qobs-build/qrun/internal/build"
	"github.com/qobs-build/qrun/internal/compile"
	"github.com/qobs-build/qrun/internal/config"
	"github.com/qobs-build/qrun/internal/launch"
	"github.com/qobs-build/qrun/internal/msg"
	"github.com/qobs-build/qrun/internal/notify"
	"github.com/qobs-build/qrun/internal/project"
	"github.com/spf13/cobra"
)

// lockFilename is shared by every qrun process, so only one compile or build runs at a time
const lockFilename = "qrun.lock"

var (
	flagConfig   string
	flagVerbose  bool
	flagTerminal = newChoiceFlag(string(config.TerminalXTerm), terminalHelp())
	flagNotify   = newChoiceFlag("text", map[string]string{
		"text": "Colored messages on the console (default)",
		"json": "One JSON object per notification, for editor hosts",
	})
)

func terminalHelp() map[string]string {
	help := make(map[string]string, len(config.Terminals))
	for _, t := range config.Terminals {
		help[string(t)] = ""
	}
	help[string(config.TerminalDefault)] = "x-terminal-emulator"
	return help
}

// loadConfig reads the user and local config files plus --config, then applies flags
func loadConfig() *config.Config {
	paths := append(config.DefaultPaths(), flagConfig)
	cfg, err := config.Load(config.NewEnv(), paths...)
	if err != nil {
		msg.Fatal("%v", err)
	}
	if rootCmd.PersistentFlags().Changed("terminal") {
		cfg.LinuxTerminal = config.Terminal(flagTerminal.Value())
	}
	return cfg
}

// jsonSink is set when notifications go to an editor host as JSON
var jsonSink *notify.JSON

func newNotifier() notify.Notifier {
	if flagNotify.Value() == "json" {
		jsonSink = &notify.JSON{W: os.Stdout}
		return jsonSink
	}
	return notify.Console{}
}

// newSelector prompts on stderr so the json notifications on stdout stay parseable
func newSelector() *project.Selector {
	return project.NewSelector(&project.Prompt{In: os.Stdin, Out: color.Error})
}

func newOrchestrator(cfg *config.Config) *action.Orchestrator {
	builder := build.NewRunner(runtime.GOOS)
	if flagNotify.Value() == "json" {
		builder.Output = os.Stderr
	}
	tmp := compile.TempDir(runtime.GOOS, os.Getenv)
	return action.New(action.Options{
		Config:   cfg,
		Launcher: launch.ForPlatform(runtime.GOOS, cfg),
		Notifier: newNotifier(),
		Selector: newSelector(),
		Builder:  builder,
		TempDir:  tmp,
		LockPath: filepath.Join(tmp, lockFilename),
	})
}

// exitOnError ends the process with status 1 when an action failed or its notifications
// could not be delivered. An action failure has already been reported as a notification.
func exitOnError(err error) {
	if jsonSink != nil && jsonSink.Err() != nil {
		fmt.Fprintln(os.Stderr, "qrun: writing notifications:", jsonSink.Err())
		os.Exit(1)
	}
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "qrun",
	Short: "Compile, run and debug C/C++ files, build make projects",
	Long: `qrun compiles a single C or C++ file and runs the result in a terminal, optionally
under a debugger. It can also pick a project from the workspace and build it with make.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		msg.Verbose = flagVerbose
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Extra config file applied after "+config.LocalFilename)
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print debug messages")
	rootCmd.PersistentFlags().Var(&flagTerminal, "terminal", "Linux terminal to launch programs in, one of "+flagTerminal.HelpString())
	rootCmd.PersistentFlags().Var(&flagNotify, "notify", "Notification format, one of "+flagNotify.HelpString())
	rootCmd.RegisterFlagCompletionFunc("terminal", flagTerminal.complete)
	rootCmd.RegisterFlagCompletionFunc("notify", flagNotify.complete)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
