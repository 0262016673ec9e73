package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/btklab/pwmake"
)

var version = "0.2.0"

func main() {
	file := pflag.StringP("file", "f", "Makefile", "mkfile to use")
	rundir := pflag.StringP("directory", "C", "", "run from directory")
	dryrun := pflag.BoolP("dry-run", "n", false, "print expanded commands without executing")
	quiet := pflag.BoolP("quiet", "q", false, "don't echo commands")
	helpTargets := pflag.BoolP("help-targets", "H", false, "list targets annotated with '## help text'")
	tool := pflag.StringP("tool", "t", "", "run a reporter tool (list, help, plan, graph, vars, status); tool arguments go after '--'")
	shell := pflag.String("shell", "", "run commands as 'shell -c' subprocesses instead of in the embedded shell")
	params := pflag.StringArray("params", nil, "values for the predefined ${params} variable")
	param := pflag.String("param", "", "value for the predefined ${param} variable")
	strip := pflag.Bool("strip-comments", false, "strip trailing '#' comments from command lines")
	style := pflag.StringP("style", "s", "basic", "printer style to use (basic, steps, progress)")
	cache := pflag.String("cache", ".", "directory for the recipe database ('$cache' for the user cache dir)")
	delim := pflag.String("target-delimiter", ":", "delimiter between a target and its prerequisites")
	showVersion := pflag.BoolP("version", "v", false, "show version information")
	help := pflag.BoolP("help", "h", false, "show this help message")

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		fmt.Println("pwmake version", version)
		os.Exit(0)
	}

	log.SetPrefix("pwmake")
	log.SetReportTimestamp(false)

	user, err := pwmake.LoadUserFlags()
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
	changed := pflag.CommandLine.Changed
	if !changed("file") && user.File != nil {
		*file = *user.File
	}
	if !changed("directory") && user.RunDir != nil {
		*rundir = *user.RunDir
	}
	if !changed("dry-run") && user.DryRun != nil {
		*dryrun = *user.DryRun
	}
	if !changed("quiet") && user.Quiet != nil {
		*quiet = *user.Quiet
	}
	if !changed("style") && user.Style != nil {
		*style = *user.Style
	}
	if !changed("shell") && user.Shell != nil {
		*shell = *user.Shell
	}
	if !changed("strip-comments") && user.StripComments != nil {
		*strip = *user.StripComments
	}
	if !changed("cache") && user.CacheDir != nil {
		*cache = *user.CacheDir
	}

	ps := *params
	if len(ps) == 0 && *param != "" {
		ps = []string{*param}
	}

	args := pflag.Args()
	var toolArgs []string
	if i := pflag.CommandLine.ArgsLenAtDash(); i >= 0 {
		toolArgs = args[i:]
		args = args[:i]
	}

	toolName := *tool
	if *helpTargets && toolName == "" {
		toolName = "help"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = pwmake.Run(ctx, os.Stdout, args, pwmake.Flags{
		File:          *file,
		RunDir:        *rundir,
		DryRun:        *dryrun,
		Quiet:         *quiet,
		Style:         *style,
		Shell:         *shell,
		Params:        ps,
		StripComments: *strip,
		TargetDelim:   *delim,
		CacheDir:      *cache,
		Tool:          toolName,
		ToolArgs:      toolArgs,
	})
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
