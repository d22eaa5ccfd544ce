// qrun build [target], qrun targets
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/qobs-build/qrun/internal/build"
	"github.com/qobs-build/qrun/internal/config"
	"github.com/qobs-build/qrun/internal/msg"
	"github.com/qobs-build/qrun/internal/project"
	"github.com/spf13/cobra"
)

var (
	flagProjects      []string
	flagSelectTimeout time.Duration
)

func candidates(cfg *config.Config) []project.Project {
	cwd, err := os.Getwd()
	if err != nil {
		msg.Fatal("could not get current directory: %v", err)
	}
	ps, err := project.Candidates(cwd, flagProjects, cfg.Workspace)
	if err != nil {
		msg.Fatal("%v", err)
	}
	return ps
}

// selectContext bounds the project prompt by --select-timeout, if given
func selectContext() (context.Context, context.CancelFunc) {
	if flagSelectTimeout > 0 {
		return context.WithTimeout(context.Background(), flagSelectTimeout)
	}
	return context.WithCancel(context.Background())
}

func doBuild(cmd *cobra.Command, args []string) {
	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	cfg := loadConfig()

	ctx, cancel := selectContext()
	defer cancel()
	err := newOrchestrator(cfg).Build(ctx, candidates(cfg), target)
	exitOnError(err)
}

func doTargets(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx, cancel := selectContext()
	defer cancel()
	p, err := newSelector().Select(ctx, candidates(cfg))
	if err != nil {
		msg.Fatal("%v", err)
	}

	targets, err := build.Targets(p.Root)
	if err != nil {
		msg.Fatal("%v", err)
	}
	for _, t := range targets {
		fmt.Println(t)
	}
}

// completeTargets offers the Makefile targets when the project is unambiguous
func completeTargets(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := config.Load(config.NewEnv(), append(config.DefaultPaths(), flagConfig)...)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	ps, err := project.Candidates(cwd, flagProjects, cfg.Workspace)
	if err != nil || len(ps) != 1 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	targets, err := build.Targets(ps[0].Root)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return targets, cobra.ShellCompDirectiveNoFileComp
}

var buildCmd = &cobra.Command{
	Use:   "build [target]",
	Short: "Build a workspace project with make",
	Long: `Build a workspace project with make. When the workspace has more than one project
you are asked to pick one. The project root must contain a Makefile. If no target is given,
make's default target is built.`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeTargets,
	Run:               doBuild,
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List the Makefile targets of a workspace project",
	Args:  cobra.NoArgs,
	Run:   doTargets,
}

func addProjectFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&flagProjects, "project", "p", nil, "Project root, may be repeated (default: workspace globs, git root or current directory)")
	cmd.Flags().DurationVar(&flagSelectTimeout, "select-timeout", 0, "Give up waiting for a project choice after this long (default: wait forever)")
	cmd.MarkFlagDirname("project")
}

func init() {
	addProjectFlags(buildCmd)
	rootCmd.AddCommand(buildCmd)

	addProjectFlags(targetsCmd)
	rootCmd.AddCommand(targetsCmd)
}
